// Package trader drives a trading session: it launches the ledger, owns the
// periodic price refresh and funnels user orders through validation
package trader

import (
	log "github.com/sirupsen/logrus"

	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chucky-1/papertrader/internal/model"
	"github.com/chucky-1/papertrader/internal/portfolio"
)

// Feed is the market data provider
type Feed interface {
	ListSymbols(ctx context.Context, currency string, limit int) ([]string, error)
	GetPrices(ctx context.Context, symbols []string, currency string) (map[string]float64, error)
}

// QuoteCache keeps the last known quotes between sessions
type QuoteCache interface {
	Set(quote *model.Quote) error
	Get(symbol, currency string) (*model.Quote, error)
}

// Broadcaster pushes fresh snapshots to connected clients
type Broadcaster interface {
	BroadcastSnapshot(snapshot model.Snapshot)
}

// Options tunes a Trader
type Options struct {
	SymbolLimit     int
	RefreshInterval time.Duration
	ErrorTTL        time.Duration
}

// Trader owns the refresh loop of the active session. There is at most one
// loop at a time: a relaunch tears the previous one down first
type Trader struct {
	baseCtx context.Context
	ledger  *portfolio.Ledger
	feed    Feed
	cache   QuoteCache  // may be nil
	hub     Broadcaster // may be nil
	opts    Options

	// launchMu serializes Launch and Close so two launches can never
	// leave two refresh loops running.
	launchMu sync.Mutex

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	errTimer *time.Timer
}

// NewTrader is constructor. ctx bounds the lifetime of every refresh loop,
// cache and hub are optional
func NewTrader(ctx context.Context, ledger *portfolio.Ledger, feed Feed, cache QuoteCache, hub Broadcaster, opts Options) *Trader {
	if opts.SymbolLimit <= 0 {
		opts.SymbolLimit = 10
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 3 * time.Second
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = 5 * time.Second
	}
	return &Trader{baseCtx: ctx, ledger: ledger, feed: feed, cache: cache, hub: hub, opts: opts}
}

// Launch resets the session in the given currency with the given cash,
// seeds the symbol universe from the feed and starts the refresh loop.
// A previous loop, if any, is stopped first
func (t *Trader) Launch(ctx context.Context, currency string, startingCash float64) error {
	t.launchMu.Lock()
	defer t.launchMu.Unlock()

	t.stopLoop()
	t.ledger.Reset(currency, startingCash)

	symbols, err := t.feed.ListSymbols(ctx, currency, t.opts.SymbolLimit)
	if err != nil {
		// The universe stays as it was, zeroed by the reset.
		return fmt.Errorf("launch: %w", err)
	}
	t.ledger.SeedUniverse(symbols)
	t.warmFromCache(symbols, currency)

	if prices, err := t.feed.GetPrices(ctx, symbols, currency); err != nil {
		log.Error(err)
	} else {
		t.absorb(prices, currency)
	}
	t.broadcast()

	// The loop outlives the launch call, so it hangs off the trader's own
	// context, not the caller's.
	loopCtx, cancel := context.WithCancel(t.baseCtx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				t.refresh(loopCtx, symbols, currency)
			}
		}
	}()

	log.Infof("session launched: %d symbols, %v %s", len(symbols), startingCash, currency)
	return nil
}

// refresh fetches one price batch and feeds it to the ledger. A failed fetch
// is skipped entirely, the ledger never sees a partial update
func (t *Trader) refresh(ctx context.Context, symbols []string, currency string) {
	prices, err := t.feed.GetPrices(ctx, symbols, currency)
	if err != nil {
		log.Error(err)
		return
	}
	t.absorb(prices, currency)
	for _, position := range t.ledger.Positions() {
		log.Infof("pnl for position %s is %f", position.Symbol, position.PnL)
	}
	t.broadcast()
}

// absorb marks the book and remembers the quotes for the next session
func (t *Trader) absorb(prices map[string]float64, currency string) {
	if err := t.ledger.AbsorbPrices(prices); err != nil {
		log.Error(err)
		return
	}
	if t.cache == nil {
		return
	}
	update := time.Now().UnixMilli()
	for symbol, price := range prices {
		err := t.cache.Set(&model.Quote{Symbol: symbol, Currency: currency, Price: price, Update: update})
		if err != nil {
			log.Error(err)
		}
	}
}

// warmFromCache prices the freshly seeded book from cached quotes so the UI
// is not stuck at zero while the first fetch is in flight
func (t *Trader) warmFromCache(symbols []string, currency string) {
	if t.cache == nil {
		return
	}
	prices := make(map[string]float64)
	for _, symbol := range symbols {
		quote, err := t.cache.Get(symbol, currency)
		if err != nil {
			continue
		}
		prices[quote.Symbol] = quote.Price
	}
	if len(prices) == 0 {
		return
	}
	if err := t.ledger.AbsorbPrices(prices); err != nil {
		log.Error(err)
	}
}

// Trade executes one order. On a rejected order the ledger's error message
// stays visible until the error TTL elapses or it is cleared explicitly
func (t *Trader) Trade(symbol string, side model.Side, quantity float64) error {
	err := t.ledger.ExecuteTrade(symbol, side, quantity)
	if err != nil {
		t.armErrorTimer()
	} else {
		log.Infof("trade executed: %s %v %s", side, quantity, symbol)
	}
	t.broadcast()
	return err
}

// ClearError wipes the pending error message right away
func (t *Trader) ClearError() {
	t.mu.Lock()
	if t.errTimer != nil {
		t.errTimer.Stop()
		t.errTimer = nil
	}
	t.mu.Unlock()
	t.ledger.ClearError()
	t.broadcast()
}

// Snapshot returns a consistent copy of the session
func (t *Trader) Snapshot() model.Snapshot {
	return t.ledger.Snapshot()
}

// Positions returns an ordered copy of all positions
func (t *Trader) Positions() []model.Position {
	return t.ledger.Positions()
}

// Close stops the refresh loop and waits for it to finish
func (t *Trader) Close() {
	t.launchMu.Lock()
	defer t.launchMu.Unlock()

	t.stopLoop()
	t.mu.Lock()
	if t.errTimer != nil {
		t.errTimer.Stop()
		t.errTimer = nil
	}
	t.mu.Unlock()
}

func (t *Trader) stopLoop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}

// armErrorTimer schedules the time-based clear. A newer rejection restarts
// the countdown
func (t *Trader) armErrorTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.errTimer != nil {
		t.errTimer.Stop()
	}
	t.errTimer = time.AfterFunc(t.opts.ErrorTTL, func() {
		t.ledger.ClearError()
		t.broadcast()
	})
}

func (t *Trader) broadcast() {
	if t.hub == nil {
		return
	}
	t.hub.BroadcastSnapshot(t.ledger.Snapshot())
}
