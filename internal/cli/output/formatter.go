package output

import (
	"fmt"
	"io"

	"github.com/yndnr/respkv/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatRaw  Format = "raw"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatRaw:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or raw)", s)
}

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, f resp.Frame) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatRaw:
		return &RawFormatter{}
	default:
		return &TextFormatter{}
	}
}
