package resp

import "bytes"

// Protocol limits applied by DefaultLimits.
const (
	DefaultMaxBulkLen   = 512 * 1024 * 1024
	DefaultMaxArrayLen  = 1024 * 1024
	DefaultMaxDepth     = 32
	DefaultMaxInlineLen = 64 * 1024

	// maxHeaderLen bounds the digits of a length header ("$" and "*").
	maxHeaderLen = 20
)

// Limits bounds what the parser accepts. Input exceeding a limit is
// malformed, never incomplete, so a peer cannot make a connection buffer
// without bound.
type Limits struct {
	// MaxBulkLen is the largest accepted bulk string payload in bytes.
	MaxBulkLen int
	// MaxArrayLen is the largest accepted array element count.
	MaxArrayLen int
	// MaxDepth is the deepest accepted array nesting.
	MaxDepth int
	// MaxInlineLen is the longest accepted simple string, error or integer line.
	MaxInlineLen int
}

// DefaultLimits are the limits used by Parse and by a Reader without options.
var DefaultLimits = Limits{
	MaxBulkLen:   DefaultMaxBulkLen,
	MaxArrayLen:  DefaultMaxArrayLen,
	MaxDepth:     DefaultMaxDepth,
	MaxInlineLen: DefaultMaxInlineLen,
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = DefaultMaxBulkLen
	}
	if l.MaxArrayLen <= 0 {
		l.MaxArrayLen = DefaultMaxArrayLen
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxInlineLen <= 0 {
		l.MaxInlineLen = DefaultMaxInlineLen
	}
	return l
}

// Parse decodes one frame from the start of buf using DefaultLimits.
func Parse(buf []byte) (Frame, int, error) {
	return DefaultLimits.Parse(buf)
}

// Parse decodes exactly one frame from the start of buf.
//
// On success it returns the frame and the number of bytes it occupies.
// If buf holds only a prefix of a valid frame it returns ErrIncomplete and
// consumes nothing. If the leading bytes cannot start any valid frame it
// returns a *ProtocolError.
//
// The input is validated in full before any frame is built, so an
// incomplete buffer costs no allocation.
func (l Limits) Parse(buf []byte) (Frame, int, error) {
	p := parser{buf: buf, lim: l.withDefaults()}
	end, err := p.scan(0, 0)
	if err != nil {
		return Frame{}, 0, err
	}
	f, _ := p.build(0)
	return f, end, nil
}

type parser struct {
	buf []byte
	lim Limits
}

// scan validates the frame starting at off and returns the offset just past
// it. It allocates nothing on the Incomplete path.
func (p *parser) scan(off, depth int) (int, error) {
	if off >= len(p.buf) {
		return 0, ErrIncomplete
	}
	switch Kind(p.buf[off]) {
	case SimpleString, Error:
		_, next, err := p.line(off+1, p.lim.MaxInlineLen)
		return next, err
	case Integer:
		end, next, err := p.line(off+1, p.lim.MaxInlineLen)
		if err != nil {
			return 0, err
		}
		if _, ok := parseInt(p.buf[off+1 : end]); !ok {
			return 0, protocolErr(off+1, "invalid integer")
		}
		return next, nil
	case BulkString:
		n, next, err := p.header(off, p.lim.MaxBulkLen, "bulk length")
		if err != nil || n < 0 {
			return next, err
		}
		if len(p.buf)-next < n+2 {
			return 0, ErrIncomplete
		}
		if p.buf[next+n] != '\r' || p.buf[next+n+1] != '\n' {
			return 0, protocolErr(next+n, "bulk string not terminated by CRLF")
		}
		return next + n + 2, nil
	case Array:
		if depth >= p.lim.MaxDepth {
			return 0, protocolErr(off, "array nesting too deep")
		}
		n, next, err := p.header(off, p.lim.MaxArrayLen, "array length")
		if err != nil {
			return 0, err
		}
		for i := 0; i < n; i++ {
			if next, err = p.scan(next, depth+1); err != nil {
				return 0, err
			}
		}
		return next, nil
	default:
		return 0, protocolErr(off, "unknown frame type "+quoteByte(p.buf[off]))
	}
}

// build decodes the frame at off. The input must already have passed scan.
func (p *parser) build(off int) (Frame, int) {
	kind := Kind(p.buf[off])
	switch kind {
	case SimpleString, Error:
		end, next, _ := p.line(off+1, p.lim.MaxInlineLen)
		return Frame{Kind: kind, Str: p.buf[off+1 : end : end]}, next
	case Integer:
		end, next, _ := p.line(off+1, p.lim.MaxInlineLen)
		n, _ := parseInt(p.buf[off+1 : end])
		return Frame{Kind: Integer, Int: n}, next
	case BulkString:
		n, next, _ := p.header(off, p.lim.MaxBulkLen, "")
		if n < 0 {
			return Frame{Kind: BulkString, Null: true}, next
		}
		return Frame{Kind: BulkString, Str: p.buf[next : next+n : next+n]}, next + n + 2
	default:
		n, next, _ := p.header(off, p.lim.MaxArrayLen, "")
		if n < 0 {
			return Frame{Kind: Array, Null: true}, next
		}
		elems := make([]Frame, n)
		for i := range elems {
			elems[i], next = p.build(next)
		}
		return Frame{Kind: Array, Array: elems}, next
	}
}

// header parses a "$<n>\r\n" or "*<n>\r\n" length line starting at the sigil.
// It returns -1 for the null marker.
func (p *parser) header(off, max int, what string) (int, int, error) {
	end, next, err := p.line(off+1, maxHeaderLen)
	if err != nil {
		return 0, 0, err
	}
	n, ok := parseInt(p.buf[off+1 : end])
	switch {
	case !ok:
		return 0, 0, protocolErr(off+1, "invalid "+what)
	case n == -1:
		return -1, next, nil
	case n < 0:
		return 0, 0, protocolErr(off+1, "negative "+what)
	case n > int64(max):
		return 0, 0, protocolErr(off+1, what+" exceeds limit")
	}
	return int(n), next, nil
}

// line locates the CRLF that ends the line starting at off. It returns the
// offset of the CR and the offset just past the LF. The payload may not
// contain CR or LF, and may not exceed max bytes.
func (p *parser) line(off, max int) (int, int, error) {
	window := p.buf[off:]
	if len(window) > max+1 {
		window = window[:max+1]
	}

	cr := bytes.IndexByte(window, '\r')
	scanned := window
	if cr >= 0 {
		scanned = window[:cr]
	}
	if lf := bytes.IndexByte(scanned, '\n'); lf >= 0 {
		return 0, 0, protocolErr(off+lf, "unexpected LF in line")
	}

	if cr < 0 {
		if len(window) > max {
			return 0, 0, protocolErr(off, "line exceeds limit")
		}
		return 0, 0, ErrIncomplete
	}
	if off+cr+1 >= len(p.buf) {
		return 0, 0, ErrIncomplete
	}
	if p.buf[off+cr+1] != '\n' {
		return 0, 0, protocolErr(off+cr, "CR not followed by LF")
	}
	return off + cr, off + cr + 2, nil
}

func quoteByte(b byte) string {
	const hex = "0123456789abcdef"
	if b >= 0x20 && b < 0x7f {
		return "'" + string(b) + "'"
	}
	return "0x" + string([]byte{hex[b>>4], hex[b&0xf]})
}
