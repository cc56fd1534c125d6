// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount is the number of registered configuration fields.
const DefinedFieldsCount = 28

// Catalog - connection to the hosted record store or its local mirror.
const (
	CatalogDriver     = "catalog.driver"
	CatalogDSN        = "catalog.dsn"
	CatalogSQLitePath = "catalog.sqlite_path"
)

// Student identity used for enrollment checks.
const (
	UserID = "user.id"
)

// Media Playback - external player and embed behavior.
const (
	Player                     = "player.default"
	PlayerAutoplay             = "player.autoplay"
	PlayerNativeHLS            = "player.native_hls"
	PlayerOrigin               = "player.origin"
	PlayerCompletionPercentage = "player.completion_percentage"
	PlayerBrowser              = "player.browser"
)

// Stream decoder tuning.
const (
	DecoderBackBuffer = "decoder.back_buffer"
	DecoderWorker     = "decoder.worker"
	DecoderLowLatency = "decoder.low_latency"
	DecoderListen     = "decoder.listen"
)

// Live lecture schedule.
const (
	LiveFile            = "live.file"
	LiveRefreshDebounce = "live.refresh_debounce"
)

const (
	HistorySave = "history.save"
)

const (
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// Minimalist (Mini) Mode - these keys configure the survey based picker.
const (
	MiniVimMode     = "mini.vim_mode"
	MiniSearchLimit = "mini.search_limit"
)

const (
	IconsVariant = "icons.variant"
)

// Terminal User Interface (TUI).
const (
	TUIItemSpacing = "tui.item_spacing"
	TUIShowURLs    = "tui.show_urls"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
