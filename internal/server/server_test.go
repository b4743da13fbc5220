package server

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakePool struct {
	started atomic.Int32
	waited  atomic.Int32
}

func (p *fakePool) Start(context.Context) { p.started.Add(1) }
func (p *fakePool) Wait()                 { p.waited.Add(1) }

func TestServeAndShutdown(t *testing.T) {
	pool := &fakePool{}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	srv := New("127.0.0.1:0", h, pool, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	var addr string
	select {
	case a := <-srv.Ready():
		addr = a.String()
	case err := <-errCh:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener not ready")
	}

	resp, err := http.Get("http://" + addr + "/ping")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if pool.started.Load() != 1 || pool.waited.Load() != 1 {
		t.Errorf("pool started %d waited %d", pool.started.Load(), pool.waited.Load())
	}
}

func TestServeListenError(t *testing.T) {
	srv := New("256.0.0.1:bad", http.NotFoundHandler(), nil, 0)
	if err := srv.Serve(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}
