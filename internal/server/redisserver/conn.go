package redisserver

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/command"
	"github.com/yndnr/respkv/pkg/resp"
)

var rateLimitedFrame = resp.ErrorFrame("ERR rate limit exceeded")

// conn is the state of one client connection.
type conn struct {
	netConn net.Conn
	r       *resp.Reader
	w       *resp.Writer
	ip      string
	logger  *slog.Logger
}

func (s *Server) newConn(c net.Conn) *conn {
	remote := c.RemoteAddr().String()
	ip, _, err := net.SplitHostPort(remote)
	if err != nil {
		ip = remote
	}

	return &conn{
		netConn: c,
		r:       resp.NewReader(c, resp.WithLimits(s.cfg.Limits)),
		w:       resp.NewWriter(c),
		ip:      ip,
		logger:  s.logger.With("conn_id", ulid.Make().String(), "remote", remote),
	}
}

// serveConn runs the request loop of one connection until the client
// leaves, an I/O error occurs or the input is malformed.
func (s *Server) serveConn(nc net.Conn) {
	c := s.newConn(nc)
	defer nc.Close()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connection handler panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	c.logger.Debug("connection opened")
	defer c.logger.Debug("connection closed")

	readTimeout := orDefault(s.cfg.ReadTimeout, 30*time.Second)
	writeTimeout := orDefault(s.cfg.WriteTimeout, 30*time.Second)
	idleTimeout := orDefault(s.cfg.IdleTimeout, 5*time.Minute)

	for {
		// Between requests the client may stay idle; a request already
		// partly buffered must complete within the read timeout.
		timeout := idleTimeout
		if c.r.Buffered() > 0 {
			timeout = readTimeout
		}
		if err := nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return
		}

		f, err := c.r.ReadFrame()
		if err != nil {
			s.readFailed(c, err, writeTimeout)
			return
		}

		reply, quit := s.handle(c, f)

		if err := nc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.w.WriteFrame(reply); err != nil {
			c.logger.Debug("connection write error", "error", err)
			return
		}
		if quit {
			return
		}
	}
}

// handle turns one request frame into its reply. It reports whether the
// connection should close after the reply is written.
func (s *Server) handle(c *conn, f resp.Frame) (resp.Frame, bool) {
	if !s.limiter.allow(c.ip) {
		s.metrics.IncRateLimited()
		return rateLimitedFrame, false
	}

	start := time.Now()
	cmd, err := command.Parse(f)
	if err != nil {
		s.metrics.RecordCommand("invalid", "error", time.Since(start).Seconds())
		return command.ErrorFrame(err), false
	}

	reply := command.Execute(s.store, cmd)

	name := cmd.Name()
	if _, unknown := cmd.(command.Unknown); unknown {
		name = "unknown"
	}
	status := "ok"
	if reply.IsError() {
		status = "error"
	}
	s.metrics.RecordCommand(name, status, time.Since(start).Seconds())

	_, quit := cmd.(command.Quit)
	return reply, quit
}

// readFailed logs why reading stopped and, for malformed input, tells the
// client before the connection closes.
func (s *Server) readFailed(c *conn, err error, writeTimeout time.Duration) {
	var (
		netErr   net.Error
		protoErr *resp.ProtocolError
	)

	switch {
	case errors.Is(err, io.EOF):
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Debug("connection timed out")
	case errors.As(err, &protoErr):
		s.metrics.IncProtocolErrors()
		c.logger.Warn("protocol error", "error", err)
		_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.w.WriteFrame(resp.ErrorFrame("ERR Protocol error: " + protoErr.Reason))
	case errors.Is(err, resp.ErrTruncated):
		c.logger.Debug("connection closed mid-request", "error", err)
	default:
		c.logger.Debug("connection read error", "error", err)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
