// Package web embeds the dashboard page and its service worker.
package web

import _ "embed"

// Markers delimiting the data block of the page.
const (
	InjectionStart = "// --- DATA INJECTION POINT ---"
	InjectionEnd   = "// --- END DATA INJECTION ---"
)

//go:embed index.html
var IndexHTML []byte

//go:embed sw.js
var ServiceWorker []byte
