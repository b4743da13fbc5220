// Package server runs the HTTP listener and the in-process analysis pool for
// the lifetime of a context.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dharsanguruparan/SheetDrop/internal/logging"
)

// Background is a worker pool started alongside the listener.
type Background interface {
	Start(ctx context.Context)
	Wait()
}

// Server owns the http.Server. Serve may be called once.
type Server struct {
	addr            string
	handler         http.Handler
	background      Background
	shutdownTimeout time.Duration
	once            sync.Once
	ready           chan net.Addr
}

// New creates a server for handler on addr. background may be nil.
func New(addr string, handler http.Handler, background Background, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{
		addr:            addr,
		handler:         handler,
		background:      background,
		shutdownTimeout: shutdownTimeout,
		ready:           make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is open.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Serve listens until ctx is cancelled, then drains in-flight requests and
// waits for the background pool to finish its current jobs.
func (s *Server) Serve(ctx context.Context) error {
	s.once.Do(func() {
		if s.background != nil {
			s.background.Start(ctx)
		}
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logging.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http shutdown")
		}
	}()

	logging.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	s.ready <- ln.Addr()
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	if s.background != nil {
		s.background.Wait()
	}
	return nil
}
