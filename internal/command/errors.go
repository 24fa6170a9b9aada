package command

import (
	"errors"
	"strings"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

var (
	// ErrNotArray is returned for a request that is not an array of bulk strings.
	ErrNotArray = errors.New("Protocol error: expected array of bulk strings")

	// ErrEmpty is returned for an empty request array.
	ErrEmpty = errors.New("empty command")

	// ErrSyntax is returned for unrecognized or conflicting options.
	ErrSyntax = errors.New("syntax error")

	// ErrNotInteger is returned when an argument or a stored value is not a
	// base-10 64-bit integer.
	ErrNotInteger = memory.ErrNotInteger
)

// ArityError reports a wrong number of arguments.
type ArityError struct {
	Name string
}

func (e *ArityError) Error() string {
	return "wrong number of arguments for '" + strings.ToLower(e.Name) + "' command"
}

// ExpireError reports an expiry argument that is not positive or does not
// fit a deadline.
type ExpireError struct {
	Name string
}

func (e *ExpireError) Error() string {
	return "invalid expire time in '" + strings.ToLower(e.Name) + "' command"
}

// ErrorFrame renders err as an error reply with the generic ERR prefix.
func ErrorFrame(err error) resp.Frame {
	return resp.ErrorFrame("ERR " + err.Error())
}

// ErrOverflow is returned when INCR and friends would leave the int64 range.
var ErrOverflow = memory.ErrOverflow

// unknownError renders the reply for a name missing from the command table.
func unknownError(c Unknown) error {
	var b strings.Builder
	b.WriteString("unknown command '")
	b.WriteString(lineSafe.Replace(c.Cmd))
	b.WriteString("', with args beginning with:")
	for _, arg := range c.Args {
		if b.Len() >= maxUnknownReply {
			break
		}
		b.WriteString(" '")
		b.WriteString(lineSafe.Replace(arg))
		b.WriteByte('\'')
	}
	return errors.New(b.String())
}

// lineSafe keeps echoed client bytes from ending the error line early.
var lineSafe = strings.NewReplacer("\r", " ", "\n", " ")

// maxUnknownReply bounds how much of an unknown request is echoed back.
const maxUnknownReply = 128
