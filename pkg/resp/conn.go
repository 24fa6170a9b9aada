package resp

import (
	"errors"
	"io"
)

const (
	defaultBufferSize = 4 * 1024
	// maxRetainedScratch is the largest scratch buffer a Writer keeps between frames.
	maxRetainedScratch = 64 * 1024
	maxEmptyReads      = 100
)

// Reader decodes frames from a byte stream.
//
// It owns a growable buffer: bytes are read from the underlying reader,
// offered to the parser, and discarded once a complete frame has been
// extracted. A Reader is not safe for concurrent use.
type Reader struct {
	rd     io.Reader
	buf    []byte
	r, w   int
	limits Limits
	err    error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLimits sets the protocol limits enforced by the Reader.
func WithLimits(l Limits) ReaderOption {
	return func(r *Reader) {
		r.limits = l.withDefaults()
	}
}

// WithBufferSize sets the initial buffer size.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// NewReader returns a Reader that decodes frames from rd.
func NewReader(rd io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		rd:     rd,
		limits: DefaultLimits,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.buf == nil {
		r.buf = make([]byte, defaultBufferSize)
	}
	return r
}

// ReadFrame returns the next frame from the stream.
//
// The returned frame aliases the Reader's buffer and is valid only until the
// next call to ReadFrame. It returns io.EOF when the stream ends cleanly
// between frames, an error matching ErrTruncated when it ends inside one,
// and a *ProtocolError for malformed input. Protocol and truncation errors
// are sticky.
func (r *Reader) ReadFrame() (Frame, error) {
	if r.err != nil {
		return Frame{}, r.err
	}
	if r.r == r.w {
		r.r, r.w = 0, 0
	}

	for {
		if r.w > r.r {
			f, n, err := r.limits.Parse(r.buf[r.r:r.w])
			if err == nil {
				r.r += n
				return f, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				r.err = err
				return Frame{}, err
			}
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				if r.r == r.w {
					return Frame{}, io.EOF
				}
				r.err = &truncatedError{buffered: r.w - r.r}
				return Frame{}, r.err
			}
			return Frame{}, err
		}
	}
}

// Buffered returns the number of bytes read from the stream but not yet
// consumed by a frame.
func (r *Reader) Buffered() int {
	return r.w - r.r
}

// Reset discards buffered data and sticky errors and switches to rd.
func (r *Reader) Reset(rd io.Reader) {
	r.rd = rd
	r.r, r.w = 0, 0
	r.err = nil
}

// fill reads more bytes, compacting or growing the buffer first.
func (r *Reader) fill() error {
	if r.r > 0 {
		copy(r.buf, r.buf[r.r:r.w])
		r.w -= r.r
		r.r = 0
	}
	if r.w == len(r.buf) {
		grown := make([]byte, 2*len(r.buf))
		copy(grown, r.buf[:r.w])
		r.buf = grown
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := r.rd.Read(r.buf[r.w:])
		if n < 0 {
			return errors.New("resp: reader returned negative count")
		}
		r.w += n
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}

// Writer encodes frames onto a byte stream.
type Writer struct {
	w       io.Writer
	scratch []byte
}

// NewWriter returns a Writer that writes frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame serializes f, writes every byte and flushes the destination if
// it buffers. Short writes are retried until the frame is fully written.
func (w *Writer) WriteFrame(f Frame) error {
	w.scratch = AppendFrame(w.scratch[:0], f)
	err := writeAll(w.w, w.scratch)
	if cap(w.scratch) > maxRetainedScratch {
		w.scratch = nil
	}
	if err != nil {
		return err
	}
	if fl, ok := w.w.(interface{ Flush() error }); ok {
		return fl.Flush()
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
