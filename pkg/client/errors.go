package client

import (
	"errors"
	"fmt"

	"github.com/yndnr/respkv/pkg/resp"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("client: closed")

// ReplyError is an error reply sent by the server.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string {
	return e.Msg
}

// UnexpectedReplyError reports a reply whose type does not fit the command.
type UnexpectedReplyError struct {
	Command string
	Reply   resp.Frame
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("client: unexpected %s reply to %s: %s", e.Reply.Kind, e.Command, e.Reply)
}

// asError converts an error reply into a *ReplyError.
func asError(f resp.Frame) error {
	if f.IsError() {
		return &ReplyError{Msg: string(f.Str)}
	}
	return nil
}
