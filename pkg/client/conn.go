package client

import (
	"context"
	"net"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// conn is one pooled connection. It is used by a single goroutine at a
// time; the pool provides the exclusion.
type conn struct {
	nc net.Conn
	r  *resp.Reader
	w  *resp.Writer
}

func newConn(nc net.Conn, limits resp.Limits) *conn {
	return &conn{
		nc: nc,
		r:  resp.NewReader(nc, resp.WithLimits(limits)),
		w:  resp.NewWriter(nc),
	}
}

// roundTrip writes req and reads one reply. The returned frame owns its
// memory. Any error leaves the connection in an unknown state.
func (c *conn) roundTrip(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.nc.SetDeadline(deadline); err != nil {
		return resp.Frame{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := c.w.WriteFrame(req); err != nil {
		return resp.Frame{}, ctxErr(ctx, err)
	}
	reply, err := c.r.ReadFrame()
	if err != nil {
		return resp.Frame{}, ctxErr(ctx, err)
	}
	return reply.Clone(), nil
}

func (c *conn) close() error {
	return c.nc.Close()
}

// ctxErr prefers the context error when cancellation forced the deadline.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
