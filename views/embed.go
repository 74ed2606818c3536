// Package views holds the server-rendered HTML templates.
package views

import "embed"

// FS contains every *.html template in this directory.
//
//go:embed *.html
var FS embed.FS
