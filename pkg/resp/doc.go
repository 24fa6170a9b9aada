// Package resp implements the RESP2 wire format used by respkv.
//
// It provides a streaming frame codec and the per-connection reader and
// writer built on top of it:
//
//   - Parse decodes exactly one frame from the front of a byte slice, or
//     reports ErrIncomplete when more bytes are needed.
//   - AppendFrame renders a frame back into its wire form.
//   - Reader owns a growable buffer and turns a byte stream into frames.
//   - Writer serializes frames and writes them out in full.
//
// Frame types:
//
//	+OK\r\n                    simple string
//	-ERR message\r\n           error
//	:42\r\n                    integer
//	$5\r\nhello\r\n            bulk string ($-1\r\n is null)
//	*2\r\n$3\r\nGET\r\n$1\r\nk\r\n  array (*-1\r\n is null)
//
// Parsing is zero-copy: the byte payloads of a parsed frame alias the input
// buffer. Callers that keep data beyond the lifetime of the buffer must copy.
package resp
