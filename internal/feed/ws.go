// Package feed consumes raw order book updates from venue websocket
// endpoints and hands the parsed books to the detector.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crossarb/crossarb/internal/domain"
	"github.com/crossarb/crossarb/internal/ingest"
	"github.com/crossarb/crossarb/internal/metrics"
)

// Sink receives every successfully parsed book.
type Sink func(*domain.OrderBook)

// WSFeed reads JSON order book messages from one venue websocket and parses
// them through the ingest layer. It reconnects with backoff on disconnect.
// One malformed payload only ever drops itself; the stream keeps going.
type WSFeed struct {
	name    string
	url     string
	parser  *ingest.Parser
	sink    Sink
	logger  *slog.Logger
	backoff time.Duration
}

// NewWSFeed creates a feed for one venue endpoint.
func NewWSFeed(name, url string, parser *ingest.Parser, sink Sink, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		name:    name,
		url:     url,
		parser:  parser,
		sink:    sink,
		logger:  logger.With(slog.String("component", "ws_feed"), slog.String("venue", name)),
		backoff: time.Second,
	}
}

// Run connects and consumes until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	backoff := f.backoff
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *WSFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()
	f.logger.Info("feed connected", slog.String("url", f.url))

	// Unblock ReadMessage on shutdown. The watcher is scoped to this
	// connection so it does not outlive a reconnect.
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(data)
	}
}

func (f *WSFeed) handleMessage(data []byte) {
	var raw ingest.RawOrderBook
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.UpdatesRejected.WithLabelValues("malformed").Inc()
		f.logger.Warn("malformed payload dropped", slog.String("error", err.Error()))
		return
	}
	if raw.Source == "" {
		raw.Source = f.name
	}

	ob, err := f.parser.Parse(raw)
	if err != nil {
		metrics.UpdatesRejected.WithLabelValues("unparsable").Inc()
		f.logger.Warn("update dropped",
			slog.String("asset", raw.AssetPair),
			slog.String("error", err.Error()),
		)
		return
	}
	f.sink(ob)
}
