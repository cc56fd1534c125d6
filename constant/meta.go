// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Padhai is the canonical application identifier used for filesystem paths and CLI branding.
	Padhai = "padhai"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is sent with every outgoing HTTP request, including stream fetches.
	UserAgent = Padhai + "/" + Version
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
