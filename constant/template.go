package constant

// ReferenceTemplate renders a classified media reference for humans.
// It expects the fields of media.Reference plus a Label.
const ReferenceTemplate = `{{ bold "Kind:" }}     {{ .Label }}
{{ bold "URL:" }}      {{ if .URL }}{{ .URL }}{{ else }}{{ faint "(empty)" }}{{ end }}
{{- if .ProviderID }}
{{ bold "Provider:" }} {{ .ProviderID }}{{ end }}
{{- if .EmbedURL }}
{{ bold "Embed:" }}    {{ .EmbedURL }}{{ end }}
{{- if .Empty }}
{{ faint "No video available" }}{{ end }}
`
