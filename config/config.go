// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// options lists the accepted values of enumerated string fields.
var options = map[string][]string{
	key.CatalogDriver:   {"postgres", "sqlite"},
	key.PlayerNativeHLS: {"auto", "always", "never"},
	key.Player:          {"mpv", "iina"},
}

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.Padhai)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Padhai)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return Validate()
}

// Validate checks enumerated and ranged fields against their accepted values.
func Validate() error {
	for k, accepted := range options {
		if v := viper.GetString(k); !lo.Contains(accepted, v) {
			return fmt.Errorf("invalid value %q for %s, expected one of %s", v, k, strings.Join(accepted, ", "))
		}
	}

	if p := viper.GetInt(key.PlayerCompletionPercentage); p < 1 || p > 100 {
		return fmt.Errorf("invalid value %d for %s, expected 1-100", p, key.PlayerCompletionPercentage)
	}

	if viper.GetDuration(key.DecoderBackBuffer) < 0 {
		return fmt.Errorf("%s must not be negative", key.DecoderBackBuffer)
	}

	return nil
}

// Options returns the accepted values of an enumerated field, if it has any.
func Options(k string) ([]string, bool) {
	o, ok := options[k]
	return o, ok
}

// Path is where the config file is written.
func Path() string {
	return filepath.Join(where.Config(), constant.Padhai+".toml")
}

// Parse converts raw command line values to the type of k's default.
// Durations are kept in their string form so the written file stays readable.
func Parse(k string, raw []string) (any, error) {
	field, ok := Default[k]
	if !ok {
		return nil, fmt.Errorf("unknown key %s", k)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no value for %s", k)
	}

	switch field.Value.(type) {
	case []string:
		return raw, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects a boolean, got %q", k, raw[0])
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", k, raw[0])
		}
		return n, nil
	case time.Duration:
		d, err := time.ParseDuration(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects a duration like 500ms or 2s, got %q", k, raw[0])
		}
		return d.String(), nil
	default:
		return raw[0], nil
	}
}

// Set assigns v to k, reverting if the result does not validate.
func Set(k string, v any) error {
	previous := viper.Get(k)
	viper.Set(k, v)

	if err := Validate(); err != nil {
		viper.Set(k, previous)
		return err
	}

	return nil
}

// Write persists the current settings, creating the file on first use.
func Write() error {
	err := viper.WriteConfig()

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfigAs(Path())
	}

	return err
}
