package resp

import (
	"bytes"
	"strconv"
	"strings"
)

// Kind identifies the type of a frame by its wire sigil.
type Kind byte

// Frame kinds.
const (
	SimpleString Kind = '+'
	Error        Kind = '-'
	Integer      Kind = ':'
	BulkString   Kind = '$'
	Array        Kind = '*'
)

// String returns a human readable name for the kind.
func (k Kind) String() string {
	switch k {
	case SimpleString:
		return "simple-string"
	case Error:
		return "error"
	case Integer:
		return "integer"
	case BulkString:
		return "bulk-string"
	case Array:
		return "array"
	default:
		return "kind(" + strconv.Quote(string(rune(k))) + ")"
	}
}

// Frame is one protocol message unit.
//
// Str carries the payload of simple strings, errors and bulk strings.
// Int carries the value of integers. Array carries the elements of arrays.
// Null marks a null bulk string or a null array.
type Frame struct {
	Kind  Kind
	Str   []byte
	Int   int64
	Array []Frame
	Null  bool
}

// SimpleFrame returns a simple string frame. s must not contain CR or LF.
func SimpleFrame(s string) Frame {
	return Frame{Kind: SimpleString, Str: []byte(s)}
}

// ErrorFrame returns an error frame. msg must not contain CR or LF.
func ErrorFrame(msg string) Frame {
	return Frame{Kind: Error, Str: []byte(msg)}
}

// IntegerFrame returns an integer frame.
func IntegerFrame(n int64) Frame {
	return Frame{Kind: Integer, Int: n}
}

// BulkFrame returns a bulk string frame holding b. A nil b is rendered as an
// empty bulk string, not as null; use NullBulk for that.
func BulkFrame(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{Kind: BulkString, Str: b}
}

// BulkStringFrame returns a bulk string frame holding s.
func BulkStringFrame(s string) Frame {
	return BulkFrame([]byte(s))
}

// NullBulk returns the null bulk string ($-1).
func NullBulk() Frame {
	return Frame{Kind: BulkString, Null: true}
}

// ArrayFrame returns an array frame of the given elements.
func ArrayFrame(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{Kind: Array, Array: elems}
}

// NullArray returns the null array (*-1).
func NullArray() Frame {
	return Frame{Kind: Array, Null: true}
}

// Command builds a request frame: an array of bulk strings.
func Command(args ...[]byte) Frame {
	elems := make([]Frame, len(args))
	for i, a := range args {
		elems[i] = BulkFrame(a)
	}
	return Frame{Kind: Array, Array: elems}
}

// CommandStrings is Command for string arguments.
func CommandStrings(args ...string) Frame {
	elems := make([]Frame, len(args))
	for i, a := range args {
		elems[i] = BulkStringFrame(a)
	}
	return Frame{Kind: Array, Array: elems}
}

// IsError reports whether f is an error frame.
func (f Frame) IsError() bool {
	return f.Kind == Error
}

// Equal reports whether f and o are structurally identical.
// A null bulk string is not equal to an empty one.
func (f Frame) Equal(o Frame) bool {
	if f.Kind != o.Kind || f.Null != o.Null {
		return false
	}
	switch f.Kind {
	case Integer:
		return f.Int == o.Int
	case Array:
		if len(f.Array) != len(o.Array) {
			return false
		}
		for i := range f.Array {
			if !f.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(f.Str, o.Str)
	}
}

// Clone returns a deep copy of f that does not alias any input buffer.
func (f Frame) Clone() Frame {
	out := f
	if f.Str != nil {
		out.Str = append([]byte(nil), f.Str...)
	}
	if f.Array != nil {
		out.Array = make([]Frame, len(f.Array))
		for i := range f.Array {
			out.Array[i] = f.Array[i].Clone()
		}
	}
	return out
}

// String returns a compact debug rendering of the frame.
func (f Frame) String() string {
	var sb strings.Builder
	f.debug(&sb)
	return sb.String()
}

func (f Frame) debug(sb *strings.Builder) {
	switch f.Kind {
	case SimpleString:
		sb.WriteByte('+')
		sb.Write(f.Str)
	case Error:
		sb.WriteByte('-')
		sb.Write(f.Str)
	case Integer:
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatInt(f.Int, 10))
	case BulkString:
		if f.Null {
			sb.WriteString("$-1")
			return
		}
		sb.WriteString(strconv.Quote(string(f.Str)))
	case Array:
		if f.Null {
			sb.WriteString("*-1")
			return
		}
		sb.WriteByte('[')
		for i, e := range f.Array {
			if i > 0 {
				sb.WriteByte(' ')
			}
			e.debug(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(f.Kind.String())
	}
}
