package output

import (
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/yndnr/respkv/pkg/resp"
)

// JSONFormatter formats replies as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format writes the JSON form of f.
func (j *JSONFormatter) Format(w io.Writer, f resp.Frame) error {
	return j.Encode(w, ToValue(f))
}

// Encode writes any value as JSON.
func (j *JSONFormatter) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if j.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// ToValue maps a reply to a JSON-friendly value. Null replies become nil
// and errors become {"error": msg}. Bulk strings that are not valid UTF-8
// become {"base64": "..."}.
func ToValue(f resp.Frame) any {
	switch f.Kind {
	case resp.SimpleString:
		return string(f.Str)
	case resp.Error:
		return map[string]string{"error": string(f.Str)}
	case resp.Integer:
		return f.Int
	case resp.BulkString:
		if f.Null {
			return nil
		}
		if !utf8.Valid(f.Str) {
			return map[string][]byte{"base64": f.Str}
		}
		return string(f.Str)
	case resp.Array:
		if f.Null {
			return nil
		}
		out := make([]any, len(f.Array))
		for i, elem := range f.Array {
			out[i] = ToValue(elem)
		}
		return out
	}
	return nil
}
