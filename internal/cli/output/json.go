package output

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONFormatter writes indented JSON for scripts. Nil slices are written
// as [] so an empty result is still a list, and HTML characters are left
// unescaped.
type JSONFormatter struct{}

// Format writes data followed by a newline.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if v := reflect.ValueOf(data); v.Kind() == reflect.Slice && v.IsNil() {
		data = []any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}
