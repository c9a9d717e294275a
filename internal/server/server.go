// Package server runs the sequential connection loop in front of a worker:
// one connection at a time, one request per connection.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// Handler produces a response for a parsed request. bridge.Bridge satisfies
// it.
type Handler interface {
	Handle(req *core.HTTPRequest) *core.HTTPResponse
}

// Server accepts connections and hands each parsed request to a Handler.
type Server struct {
	cfg     Config
	handler Handler
}

// New creates a Server. Zero config fields take their defaults.
func New(cfg Config, h Handler) *Server {
	return &Server{cfg: cfg.WithDefaults(), handler: h}
}

// Config returns the effective configuration.
func (s *Server) Config() Config { return s.cfg }

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done. Each connection is
// fully handled before the next one is accepted. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := core.Logger()
	log.Info("listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("server stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				log.Warn("accept", zap.Error(err), zap.Duration("retry", backoff))
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0
		s.serveConn(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// serveConn reads one request, answers it and closes conn. A request that
// cannot be parsed gets a 400.
func (s *Server) serveConn(conn net.Conn) {
	log := core.Logger()
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	req, err := ReadRequest(bufio.NewReader(conn), s.cfg.MaxHeaderBytes, s.cfg.MaxBodyBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Debug("connection closed before request", zap.String("remote", remote))
			return
		}
		log.Warn("bad request", zap.String("remote", remote), zap.Error(err))
		s.write(conn, badRequest(err))
		return
	}
	s.write(conn, s.handler.Handle(req))
}

func (s *Server) write(conn net.Conn, resp *core.HTTPResponse) {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := WriteResponse(conn, resp); err != nil {
		core.Logger().Warn("writing response",
			zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
	}
}

func badRequest(err error) *core.HTTPResponse {
	body := []byte("bad request: " + err.Error())
	return &core.HTTPResponse{
		Status:     400,
		StatusText: core.StatusText(400),
		Headers: map[string]string{
			"content-type":   "text/plain; charset=utf-8",
			"content-length": fmt.Sprint(len(body)),
		},
		Body: body,
	}
}
