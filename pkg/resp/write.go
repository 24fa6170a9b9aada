package resp

import "strconv"

var crlf = []byte("\r\n")

// AppendFrame appends the wire form of f to dst and returns the extended slice.
func AppendFrame(dst []byte, f Frame) []byte {
	switch f.Kind {
	case SimpleString, Error:
		dst = append(dst, byte(f.Kind))
		dst = append(dst, f.Str...)
		return append(dst, crlf...)
	case Integer:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, f.Int, 10)
		return append(dst, crlf...)
	case BulkString:
		if f.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(f.Str)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, f.Str...)
		return append(dst, crlf...)
	case Array:
		if f.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(f.Array)), 10)
		dst = append(dst, crlf...)
		for _, e := range f.Array {
			dst = AppendFrame(dst, e)
		}
		return dst
	default:
		// The zero Frame renders as a null bulk string.
		return append(dst, "$-1\r\n"...)
	}
}

// Bytes returns the wire form of f.
func (f Frame) Bytes() []byte {
	return AppendFrame(nil, f)
}
