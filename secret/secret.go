// Package secret stores the catalog connection string in the system keyring.
package secret

import (
	"errors"

	"github.com/padhai-cli/padhai/constant"
	"github.com/zalando/go-keyring"
)

const (
	service = constant.Padhai + "-cli"
	dsnUser = "catalog-dsn"
)

// ErrNotFound is returned when no secret has been stored.
var ErrNotFound = errors.New("secret not found")

// SetDSN stores the catalog connection string.
func SetDSN(dsn string) error {
	if dsn == "" {
		return errors.New("empty connection string")
	}
	return keyring.Set(service, dsnUser, dsn)
}

// DSN returns the stored catalog connection string.
func DSN() (string, error) {
	dsn, err := keyring.Get(service, dsnUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return dsn, err
}

// DeleteDSN removes the stored connection string. Deleting a missing secret is not an error.
func DeleteDSN() error {
	err := keyring.Delete(service, dsnUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
