package helpers

import (
	"encoding/json"
	"io"
)

// WriteJson writes v as indented JSON. Html characters are kept as is, they
// are common in compiler messages.
func WriteJson(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
