package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossarb/crossarb/internal/domain"
	"github.com/crossarb/crossarb/internal/ingest"
)

func testParser() *ingest.Parser {
	pair := domain.AssetPair{Base: "BTC", Quote: "USD", Accuracy: 8, InvertedAccuracy: 8}
	return ingest.NewParser([]domain.AssetPair{pair}, []string{"BTC", "USD"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// A venue that drops every connection immediately forces the feed through
// its full reconnect cycle on each attempt.
func flappingVenue(t *testing.T, accepted *atomic.Int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		_ = c.Close()
	}))
}

func TestWSFeed_ReconnectDoesNotAccumulateGoroutines(t *testing.T) {
	var accepted atomic.Int32
	srv := flappingVenue(t, &accepted)
	defer srv.Close()

	f := NewWSFeed("flappy", "ws"+strings.TrimPrefix(srv.URL, "http"),
		testParser(), func(*domain.OrderBook) {}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.backoff = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return accepted.Load() >= 3 },
		5*time.Second, 10*time.Millisecond, "feed never cycled through reconnects")
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	target := accepted.Load() + 3
	require.Eventually(t, func() bool { return accepted.Load() >= target },
		5*time.Second, 10*time.Millisecond, "feed stopped reconnecting")
	time.Sleep(50 * time.Millisecond)

	// Each completed connection must tear down its shutdown watcher; the
	// goroutine count stays flat across further reconnect cycles.
	assert.LessOrEqual(t, runtime.NumGoroutine(), baseline+1)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}

func TestWSFeed_StopsWhenCancelledMidConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hold the connection open; the feed blocks in ReadMessage.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	f := NewWSFeed("steady", "ws"+strings.TrimPrefix(srv.URL, "http"),
		testParser(), func(*domain.OrderBook) {}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}
