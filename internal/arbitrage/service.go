package arbitrage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/internal/domain"
	"github.com/crossarb/crossarb/internal/metrics"
	"github.com/crossarb/crossarb/internal/synth"
)

// Config configures the lifecycle service.
type Config struct {
	Settings domain.Settings
	Bus      domain.EventBus // optional; lifecycle events are best-effort
	Logger   *slog.Logger
}

// Service owns the detection lifecycle. Two writers share it: ingestion
// replaces entries of the raw book map (last write wins, never blocked by a
// cycle), and a single periodic worker runs Execute, which reads a
// point-in-time snapshot of that map, rebuilds cross rates, detects, advances
// the active/history state machine, and only then publishes the new state.
// Readers always see complete, immutable published state.
type Service struct {
	logger *slog.Logger
	bus    domain.EventBus

	booksMu sync.RWMutex
	books   map[domain.BookKey]*domain.OrderBook

	settingsMu    sync.RWMutex
	settings      domain.Settings
	restartNeeded bool

	stateMu sync.RWMutex
	synths  map[string]*domain.SynthOrderBook
	active  map[domain.ArbitrageKey]*domain.Arbitrage
	history map[domain.ArbitrageKey]*domain.Arbitrage
}

// New creates the service with the given initial settings.
func New(cfg Config) *Service {
	return &Service{
		logger:   cfg.Logger.With(slog.String("component", "arbitrage_service")),
		bus:      cfg.Bus,
		books:    make(map[domain.BookKey]*domain.OrderBook),
		settings: cfg.Settings,
		synths:   make(map[string]*domain.SynthOrderBook),
		active:   make(map[domain.ArbitrageKey]*domain.Arbitrage),
		history:  make(map[domain.ArbitrageKey]*domain.Arbitrage),
	}
}

// Process ingests one order book. It only filters by the exchange allow list
// and replaces the previous book for the same (exchange, pair) key; no merge,
// no long computation, never blocked by a running cycle.
func (s *Service) Process(ob *domain.OrderBook) {
	if !s.Settings().AllowsExchange(ob.Exchange) {
		metrics.UpdatesRejected.WithLabelValues("exchange_not_allowed").Inc()
		return
	}
	s.booksMu.Lock()
	s.books[ob.Key()] = ob
	s.booksMu.Unlock()
	metrics.BooksIngested.Inc()
}

// Settings returns the current detection settings.
func (s *Service) Settings() domain.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// UpdateSettings validates and applies new settings and flags a full state
// restart for the next cycle.
func (s *Service) UpdateSettings(set domain.Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.settingsMu.Lock()
	s.settings = set
	s.restartNeeded = true
	s.settingsMu.Unlock()
	s.logger.Info("settings updated, state restart scheduled")
	return nil
}

func (s *Service) consumeRestart() bool {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	needed := s.restartNeeded
	s.restartNeeded = false
	return needed
}

// Execute runs one detection cycle. A cycle that fails leaves the previously
// published state untouched: the new state is swapped in only at the end.
func (s *Service) Execute(ctx context.Context) error {
	started := time.Now().UTC()
	set := s.Settings()

	if s.consumeRestart() {
		s.clearState()
		s.logger.Info("state cleared after settings change")
	}

	books := s.snapshotBooks(started, set.ExpirationTime())

	newSynths := make(map[string]*domain.SynthOrderBook)
	for _, base := range set.BaseAssets {
		if strings.EqualFold(base, set.QuoteAsset) {
			continue
		}
		target, err := domain.NewAssetPair(base, set.QuoteAsset, 8, 8)
		if err != nil {
			s.logger.Warn("skipping invalid target pair",
				slog.String("base", base), slog.String("quote", set.QuoteAsset))
			continue
		}
		pool := chainPool(books, target, set.IntermediateAssets)
		for _, sb := range synth.All(target, pool) {
			newSynths[sb.Key()] = sb
		}
	}

	pool := make([]*domain.SynthOrderBook, 0, len(newSynths))
	for _, sb := range newSynths {
		pool = append(pool, sb)
	}
	detected := Detect(pool, set)

	startedArbs, endedArbs := s.reconcile(detected, newSynths, set, started)

	for _, a := range startedArbs {
		s.publish(ctx, "arbitrage.started", a)
	}
	for _, a := range endedArbs {
		s.publish(ctx, "arbitrage.ended", a)
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	metrics.SynthBooks.Set(float64(len(newSynths)))
	metrics.ArbitragesEnded.Add(float64(len(endedArbs)))

	s.logger.Debug("cycle complete",
		slog.Int("books", len(books)),
		slog.Int("synth_books", len(newSynths)),
		slog.Int("detected", len(detected)),
		slog.Int("started", len(startedArbs)),
		slog.Int("ended", len(endedArbs)),
		slog.Duration("took", time.Since(started)),
	)
	return nil
}

// reconcile advances the per-key state machine and publishes the new state
// atomically. It returns the opportunities that entered and left the active
// set this cycle.
func (s *Service) reconcile(detected []*domain.Arbitrage, newSynths map[string]*domain.SynthOrderBook, set domain.Settings, now time.Time) (startedArbs, endedArbs []*domain.Arbitrage) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	active := make(map[domain.ArbitrageKey]*domain.Arbitrage, len(detected))
	for _, arb := range detected {
		key := arb.Key()
		old, known := s.active[key]
		switch {
		case !known:
			arb.ID = uuid.NewString()
			arb.StartedAt = now
			active[key] = arb
			startedArbs = append(startedArbs, arb)
		case arb.PnL.GreaterThanOrEqual(old.PnL):
			// Re-detected with a better result: update in place, keep
			// identity and start time.
			arb.ID = old.ID
			arb.StartedAt = old.StartedAt
			active[key] = arb
		default:
			active[key] = old
		}
	}

	for key, old := range s.active {
		if _, still := active[key]; still {
			continue
		}
		ended := *old
		ended.EndedAt = now
		s.addHistoryLocked(&ended, set)
		endedArbs = append(endedArbs, &ended)
	}

	s.synths = newSynths
	s.active = active
	metrics.ActiveArbitrages.Set(float64(len(active)))
	return startedArbs, endedArbs
}

// addHistoryLocked stores an ended opportunity, replacing an existing entry
// for the same key only when the new PnL is not lower, then prunes the
// per-pair overflow lowest PnL first. Caller holds stateMu.
func (s *Service) addHistoryLocked(arb *domain.Arbitrage, set domain.Settings) {
	key := arb.Key()
	if old, ok := s.history[key]; ok && arb.PnL.LessThan(old.PnL) {
		return
	}
	s.history[key] = arb

	pair := arb.AssetPair.Name()
	var keys []domain.ArbitrageKey
	for k, h := range s.history {
		if h.AssetPair.Name() == pair {
			keys = append(keys, k)
		}
	}
	if len(keys) <= set.HistoryMaxSizePerPair {
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.history[keys[i]].PnL.LessThan(s.history[keys[j]].PnL)
	})
	for _, k := range keys[:len(keys)-set.HistoryMaxSizePerPair] {
		delete(s.history, k)
	}
}

func (s *Service) clearState() {
	s.stateMu.Lock()
	s.synths = make(map[string]*domain.SynthOrderBook)
	s.active = make(map[domain.ArbitrageKey]*domain.Arbitrage)
	s.history = make(map[domain.ArbitrageKey]*domain.Arbitrage)
	s.stateMu.Unlock()
	metrics.ActiveArbitrages.Set(0)
	metrics.SynthBooks.Set(0)
}

// snapshotBooks evicts entries older than the expiration window and returns
// a point-in-time copy of the remaining books.
func (s *Service) snapshotBooks(now time.Time, window time.Duration) []*domain.OrderBook {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	if window > 0 {
		cutoff := now.Add(-window)
		for key, ob := range s.books {
			if ob.Timestamp.Before(cutoff) {
				delete(s.books, key)
			}
		}
	}
	out := make([]*domain.OrderBook, 0, len(s.books))
	for _, ob := range s.books {
		out = append(out, ob)
	}
	return out
}

// chainPool keeps the books that can possibly participate in a chain to the
// target: every asset of the book must be the target base, the target quote,
// or a configured intermediate.
func chainPool(books []*domain.OrderBook, target domain.AssetPair, intermediates []string) []*domain.OrderBook {
	allowed := func(asset string) bool {
		if strings.EqualFold(asset, target.Base) || strings.EqualFold(asset, target.Quote) {
			return true
		}
		for _, i := range intermediates {
			if strings.EqualFold(i, asset) {
				return true
			}
		}
		return false
	}
	out := make([]*domain.OrderBook, 0, len(books))
	for _, ob := range books {
		if allowed(ob.AssetPair.Base) && allowed(ob.AssetPair.Quote) {
			out = append(out, ob)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Query surface. Every method copies out of the published state; readers
// never block the cycle worker and never observe partial collections.
// ---------------------------------------------------------------------------

// ListActiveArbitrages returns the active opportunities, PnL descending.
func (s *Service) ListActiveArbitrages() []domain.Arbitrage {
	s.stateMu.RLock()
	out := make([]domain.Arbitrage, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, *a)
	}
	s.stateMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PnL.GreaterThan(out[j].PnL) })
	return out
}

// ListArbitrageHistory returns the best ended entry per conversion-path pair
// with EndedAt after since, PnL descending, capped at limit.
func (s *Service) ListArbitrageHistory(since time.Time, limit int) []domain.Arbitrage {
	s.stateMu.RLock()
	out := make([]domain.Arbitrage, 0, len(s.history))
	for _, a := range s.history {
		if a.EndedAt.After(since) {
			out = append(out, *a)
		}
	}
	s.stateMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PnL.GreaterThan(out[j].PnL) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListSynthOrderBooks returns the cross rates built by the last cycle.
func (s *Service) ListSynthOrderBooks() []domain.SynthOrderBook {
	s.stateMu.RLock()
	out := make([]domain.SynthOrderBook, 0, len(s.synths))
	for _, sb := range s.synths {
		out = append(out, *sb)
	}
	s.stateMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConversionPath < out[j].ConversionPath })
	return out
}

// ListOrderBooks returns the raw ingested books, optionally filtered by
// exchange and/or asset pair name. Empty filters match everything.
func (s *Service) ListOrderBooks(exchange, pair string) []domain.OrderBook {
	s.booksMu.RLock()
	out := make([]domain.OrderBook, 0, len(s.books))
	for _, ob := range s.books {
		if exchange != "" && !strings.EqualFold(ob.Exchange, exchange) {
			continue
		}
		if pair != "" && !strings.EqualFold(ob.AssetPair.Name(), pair) {
			continue
		}
		out = append(out, *ob)
	}
	s.booksMu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Exchange != out[j].Exchange {
			return out[i].Exchange < out[j].Exchange
		}
		return out[i].AssetPair.Name() < out[j].AssetPair.Name()
	})
	return out
}

// SpreadMatrix builds the square grid across all venues quoting the pair:
// cell[i][j] is the spread of venue i's best bid against venue j's best ask.
// Books quoting the inverted pair are reversed into the requested direction.
func (s *Service) SpreadMatrix(pair string) (*domain.Matrix, error) {
	s.booksMu.RLock()
	perVenue := make(map[string]*domain.OrderBook)
	for _, ob := range s.books {
		name := ob.AssetPair.Name()
		inverted := ob.AssetPair.Invert().Name()
		switch {
		case strings.EqualFold(name, pair):
			perVenue[ob.Exchange] = ob
		case strings.EqualFold(inverted, pair):
			perVenue[ob.Exchange] = ob.Reverse()
		}
	}
	s.booksMu.RUnlock()

	if len(perVenue) == 0 {
		return nil, domain.ErrNotFound
	}

	exchanges := make([]string, 0, len(perVenue))
	for e := range perVenue {
		exchanges = append(exchanges, e)
	}
	sort.Strings(exchanges)

	m := &domain.Matrix{
		AssetPair: pair,
		Exchanges: exchanges,
		Bids:      make([]*domain.VolumePrice, len(exchanges)),
		Asks:      make([]*domain.VolumePrice, len(exchanges)),
		Cells:     make([][]*domain.MatrixCell, len(exchanges)),
		Timestamp: time.Now().UTC(),
	}
	for i, e := range exchanges {
		if bid, ok := perVenue[e].BestBid(); ok {
			b := bid
			m.Bids[i] = &b
		}
		if ask, ok := perVenue[e].BestAsk(); ok {
			a := ask
			m.Asks[i] = &a
		}
	}
	for i := range exchanges {
		m.Cells[i] = make([]*domain.MatrixCell, len(exchanges))
		for j := range exchanges {
			bid, ask := m.Bids[i], m.Asks[j]
			if bid == nil || ask == nil {
				continue
			}
			m.Cells[i][j] = &domain.MatrixCell{
				Spread: domain.Spread(bid.Price, ask.Price),
				Volume: decimal.Min(bid.Volume, ask.Volume),
			}
		}
	}
	return m, nil
}

// arbitrageEvent is the payload published for lifecycle transitions.
type arbitrageEvent struct {
	Event     string          `json:"event"`
	ID        string          `json:"id"`
	AssetPair string          `json:"assetPair"`
	BidPath   string          `json:"bidPath"`
	AskPath   string          `json:"askPath"`
	Spread    decimal.Decimal `json:"spread"`
	Volume    decimal.Decimal `json:"volume"`
	PnL       decimal.Decimal `json:"pnl"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt,omitzero"`
}

func (s *Service) publish(ctx context.Context, channel string, a *domain.Arbitrage) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(arbitrageEvent{
		Event:     channel,
		ID:        a.ID,
		AssetPair: a.AssetPair.Name(),
		BidPath:   a.BidBook.ConversionPath,
		AskPath:   a.AskBook.ConversionPath,
		Spread:    a.Spread,
		Volume:    a.Volume,
		PnL:       a.PnL,
		StartedAt: a.StartedAt,
		EndedAt:   a.EndedAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.Warn("event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
