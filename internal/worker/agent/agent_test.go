package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
	"github.com/thesamsai/transcode-dispatch/internal/worker/client"
	"github.com/thesamsai/transcode-dispatch/internal/worker/config"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func TestNewParsesServerHost(t *testing.T) {
	cfg := config.Config{ServerURL: "http://coordinator.example:8080", JobsDir: t.TempDir(), PingInterval: time.Second}
	c, err := client.New(client.Options{BaseURL: cfg.ServerURL})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	a, err := New(cfg, c, testLogger(t))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	if a.serverHost != "coordinator.example" {
		t.Fatalf("expected host coordinator.example, got %q", a.serverHost)
	}
}

func TestRunStopsCleanlyOnContextCancelWithNoWork(t *testing.T) {
	var pulls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			w.Write([]byte("5c3dd5b3-27e5-4b7e-9f1f-3f9b5f36b111"))
		case "/ping":
			w.WriteHeader(http.StatusOK)
		case "/pull":
			atomic.AddInt32(&pulls, 1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.Config{ServerURL: srv.URL, JobsDir: t.TempDir(), PingInterval: 10 * time.Millisecond}
	c, err := client.New(client.Options{BaseURL: cfg.ServerURL})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	a, err := New(cfg, c, testLogger(t))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("expected clean shutdown, got error: %v", err)
	}
	if atomic.LoadInt32(&pulls) == 0 {
		t.Fatal("expected at least one pull attempt before shutdown")
	}
}

func TestRunPropagatesRegisterFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.Config{ServerURL: srv.URL, JobsDir: t.TempDir(), PingInterval: time.Second}
	c, err := client.New(client.Options{BaseURL: cfg.ServerURL})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	a, err := New(cfg, c, testLogger(t))
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}

	if err := a.Run(t.Context()); err == nil {
		t.Fatal("expected register failure to propagate")
	}
}
