// Package stdlib embeds the standard module library shipped with personakit.
package stdlib

import (
	"embed"
	"io/fs"

	"personakit/internal/ums"
)

//go:embed modules
var files embed.FS

// Source identifies modules loaded from the embedded library.
var Source = ums.Source{Type: ums.SourceStandard, Path: "embedded"}

// FS returns the embedded library rooted at the modules directory.
func FS() fs.FS {
	sub, err := fs.Sub(files, "modules")
	if err != nil {
		// the directory is embedded at compile time
		panic(err)
	}
	return sub
}
