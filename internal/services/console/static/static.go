// Package static embeds the console page skeleton and browser assets.
package static

import (
	"embed"
	"io/fs"
)

//go:embed index.html console.js console.css
var files embed.FS

// Skeleton returns the page markup every session starts from.
func Skeleton() string {
	data, err := files.ReadFile("index.html")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Assets serves the shim and stylesheet.
func Assets() fs.FS {
	return files
}
