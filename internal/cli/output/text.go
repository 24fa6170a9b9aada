package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/pkg/resp"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

// Format writes f followed by a newline.
func (t *TextFormatter) Format(w io.Writer, f resp.Frame) error {
	bw := bufio.NewWriter(w)
	writeText(bw, f, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

func writeText(w *bufio.Writer, f resp.Frame, indent int) {
	switch f.Kind {
	case resp.SimpleString:
		w.Write(f.Str)
	case resp.Error:
		w.WriteString("(error) ")
		w.Write(f.Str)
	case resp.Integer:
		w.WriteString("(integer) ")
		w.WriteString(strconv.FormatInt(f.Int, 10))
	case resp.BulkString:
		if f.Null {
			w.WriteString("(nil)")
			return
		}
		w.WriteString(Quote(f.Str))
	case resp.Array:
		writeArray(w, f, indent)
	}
}

func writeArray(w *bufio.Writer, f resp.Frame, indent int) {
	switch {
	case f.Null:
		w.WriteString("(nil)")
		return
	case len(f.Array) == 0:
		w.WriteString("(empty array)")
		return
	}

	width := len(strconv.Itoa(len(f.Array)))
	for i, elem := range f.Array {
		if i > 0 {
			w.WriteByte('\n')
			w.WriteString(strings.Repeat(" ", indent))
		}
		num := strconv.Itoa(i + 1)
		w.WriteString(strings.Repeat(" ", width-len(num)))
		w.WriteString(num)
		w.WriteString(") ")
		writeText(w, elem, indent+width+2)
	}
}

// Quote renders b as a double-quoted string, escaping bytes that are not
// printable ASCII.
func Quote(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		default:
			if c < 0x20 || c >= 0x7f {
				const hex = "0123456789abcdef"
				sb.WriteString(`\x`)
				sb.WriteByte(hex[c>>4])
				sb.WriteByte(hex[c&0xf])
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// RawFormatter prints payloads without decoration, one array element per
// line, like redis-cli when stdout is not a terminal.
type RawFormatter struct{}

// Format writes f followed by a newline.
func (r *RawFormatter) Format(w io.Writer, f resp.Frame) error {
	bw := bufio.NewWriter(w)
	writeRaw(bw, f)
	bw.WriteByte('\n')
	return bw.Flush()
}

func writeRaw(w *bufio.Writer, f resp.Frame) {
	switch f.Kind {
	case resp.SimpleString, resp.Error, resp.BulkString:
		w.Write(f.Str)
	case resp.Integer:
		w.WriteString(strconv.FormatInt(f.Int, 10))
	case resp.Array:
		for i, elem := range f.Array {
			if i > 0 {
				w.WriteByte('\n')
			}
			writeRaw(w, elem)
		}
	}
}
