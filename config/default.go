// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Padhai + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	case time.Duration:
		return "duration"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.CatalogDriver, "postgres", "Catalog database driver.\nAvailable options are: postgres, sqlite")
	register(key.CatalogDSN, "", "Catalog connection string.\nFalls back to the secret stored with \"padhai secret set\"")
	register(key.CatalogSQLitePath, "", "Path to the local sqlite catalog mirror.\nDefaults to catalog.db in the cache directory")
	register(key.UserID, "", "Student id used for enrollment checks")
	register(key.Player, "mpv", "Media player to use (e.g., mpv, iina)")
	register(key.PlayerAutoplay, true, "Start playback as soon as the source is ready")
	register(key.PlayerNativeHLS, "auto", "Whether the player reads HLS manifests itself.\nAvailable options are: auto, always, never")
	register(key.PlayerOrigin, "http://localhost", "Origin passed to YouTube embeds")
	register(key.PlayerCompletionPercentage, 80, "Percentage required to mark a lecture as watched (1-100)")
	register(key.PlayerBrowser, "", "Browser used for embedded videos.\nSystem default if empty")
	register(key.DecoderBackBuffer, 90*time.Second, "How much already played stream is kept for seeking back")
	register(key.DecoderWorker, true, "Hand demuxed frames to a separate worker goroutine")
	register(key.DecoderLowLatency, true, "Serve low-latency HLS to the player")
	register(key.DecoderListen, "127.0.0.1:0", "Listen address of the local stream relay")
	register(key.LiveFile, "", "Live lecture schedule file.\nDefaults to live.json in the config directory")
	register(key.LiveRefreshDebounce, 300*time.Millisecond, "Delay before reloading a changed live schedule")
	register(key.HistorySave, true, "Save watch progress")
	register(key.SearchShowQuerySuggestions, true, "Suggest previous batch searches")
	register(key.MiniVimMode, false, "Use vim keys in mini mode")
	register(key.MiniSearchLimit, 20, "Limit of entries to show in mini mode prompts")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.TUIItemSpacing, 1, "Spacing between items in the TUI")
	register(key.TUIShowURLs, false, "Show video URLs under lectures")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		case time.Duration:
			return style.Fg(color.Cyan)(value.String())
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
