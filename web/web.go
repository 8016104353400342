// Package web embeds the browser client.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var IndexHTML []byte

//go:embed filter.js
var assets embed.FS

// Static holds the client's ES modules, served under /static.
var Static fs.FS = assets
