package render

import "strings"

// mediaTypeLanguages maps IANA media types to fence language tags.
var mediaTypeLanguages = map[string]string{
	"application/json":       "json",
	"application/ld+json":    "json",
	"application/yaml":       "yaml",
	"application/x-yaml":     "yaml",
	"text/yaml":              "yaml",
	"application/xml":        "xml",
	"text/xml":               "xml",
	"text/html":              "html",
	"text/css":               "css",
	"text/markdown":          "markdown",
	"text/csv":               "csv",
	"application/toml":       "toml",
	"application/sql":        "sql",
	"application/javascript": "javascript",
	"text/javascript":        "javascript",
	"application/typescript": "typescript",
	"text/x-python":          "python",
	"text/x-go":              "go",
	"text/x-shellscript":     "bash",
	"application/x-sh":       "bash",
	"text/plain":             "text",
}

// LanguageFor returns the fence tag for a media type, or "" when unknown.
// Parameters and letter case are ignored.
func LanguageFor(mediaType string) string {
	mt := mediaType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mediaTypeLanguages[strings.ToLower(strings.TrimSpace(mt))]
}
