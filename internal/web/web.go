// Package web embeds the single-page frontend served at "/".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// FS returns the frontend rooted at its index.html.
func FS() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err) // the embed directive guarantees the directory
	}
	return sub
}
