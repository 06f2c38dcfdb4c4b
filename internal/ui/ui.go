// Package ui holds the embedded HTML page templates.
package ui

import "embed"

//go:embed *.html
var Templates embed.FS
