package api

import (
	"bytes"
	"errors"

	"MacroCompass/web"
)

// ErrMissingMarkers is returned when the page lacks the data block markers.
var ErrMissingMarkers = errors.New("page: data injection markers not found")

// InjectData replaces whatever sits between the injection markers of page
// with a `const DATA = <data>;` statement. page is not modified.
func InjectData(page, data []byte) ([]byte, error) {
	start := []byte(web.InjectionStart)
	end := []byte(web.InjectionEnd)

	i := bytes.Index(page, start)
	if i < 0 {
		return nil, ErrMissingMarkers
	}
	head := i + len(start)
	j := bytes.Index(page[head:], end)
	if j < 0 {
		return nil, ErrMissingMarkers
	}
	tail := head + j

	out := make([]byte, 0, len(page)+len(data)+32)
	out = append(out, page[:head]...)
	out = append(out, "\n        const DATA = "...)
	out = append(out, data...)
	out = append(out, ";\n        "...)
	out = append(out, page[tail:]...)
	return out, nil
}
