// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "PADHAI_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the configuration directory, honoring PADHAI_CONFIG_PATH.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Padhai))
}

// Cache is the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Padhai))
}

// Logs is the directory for dated log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History is the watch progress file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Queries is the batch search history file.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Live is the default live lecture schedule file.
func Live() string {
	return filepath.Join(Config(), "live.json")
}

// Catalog is the default local sqlite mirror of the catalog.
func Catalog() string {
	return filepath.Join(Cache(), "catalog.db")
}

// Temp is a volatile directory for sockets and other transient files.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Padhai))
}
