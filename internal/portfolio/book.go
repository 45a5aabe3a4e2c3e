// Package portfolio is the symbol-keyed registry of positions.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/model"
)

var (
	ErrPositionExists   = errors.New("position already open")
	ErrPositionNotFound = errors.New("no open position")
)

// Book tracks at most one open position per symbol.
// Callers serialize evaluate-then-execute with LockSymbol; the book's own
// mutex only protects its maps.
type Book struct {
	mu       sync.Mutex
	state    *State
	filePath string
	logger   zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewBook creates a Book, loading state from filePath. An empty path keeps
// the book in memory.
func NewBook(filePath string, logger zerolog.Logger) (*Book, error) {
	state := &State{Open: make(map[string]*model.Position)}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, err
		}
	}
	b := &Book{
		state:    state,
		filePath: filePath,
		logger:   logger.With().Str("component", "portfolio").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
	if n := len(state.Open); n > 0 {
		b.logger.Info().Int("open", n).Msg("restored open positions")
	}
	return b, nil
}

// LockSymbol acquires the per-symbol critical section and returns its release.
func (b *Book) LockSymbol(symbol string) func() {
	b.locksMu.Lock()
	l, ok := b.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		b.locks[symbol] = l
	}
	b.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Open records pos as the open position for its symbol.
func (b *Book) Open(pos model.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.state.Open[pos.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrPositionExists, pos.Symbol)
	}
	pos.Status = model.StatusOpen
	b.state.Open[pos.Symbol] = &pos
	b.save()
	return nil
}

// Close realizes the open position for symbol at exitPrice.
func (b *Book) Close(symbol string, exitPrice float64, reason string, at time.Time) (model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.state.Open[symbol]
	if !ok {
		return model.Position{}, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	delete(b.state.Open, symbol)

	pos.Status = model.StatusClosed
	pos.ExitPrice = exitPrice
	pos.ExitReason = reason
	pos.RealizedPnL = pos.UnrealizedPnL(exitPrice)
	pos.ClosedAt = at

	st := &b.state.Stats
	st.TotalTrades++
	st.TotalPnL += pos.RealizedPnL
	if pos.RealizedPnL > 0 {
		st.WinningTrades++
	} else {
		st.LosingTrades++
	}

	b.state.History = append(b.state.History, *pos)
	if len(b.state.History) > maxHistory {
		b.state.History = b.state.History[len(b.state.History)-maxHistory:]
	}
	b.save()
	return *pos, nil
}

// Get returns a copy of the open position for symbol.
func (b *Book) Get(symbol string) (model.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.state.Open[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *pos, true
}

// HasOpen reports whether symbol has an open position.
func (b *Book) HasOpen(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.state.Open[symbol]
	return ok
}

// OpenPositions returns copies of all open positions ordered by symbol.
func (b *Book) OpenPositions() []model.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Position, 0, len(b.state.Open))
	for _, p := range b.state.Open {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// History returns the most recent closed positions, newest last.
func (b *Book) History(limit int) []model.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.state.History
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]model.Position(nil), h...)
}

// Stats returns the closed-trade statistics.
func (b *Book) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Stats
}

// save persists the state. Caller holds b.mu.
func (b *Book) save() {
	if b.filePath == "" {
		return
	}
	if err := SaveState(b.filePath, b.state); err != nil {
		b.logger.Error().Err(err).Str("file", b.filePath).Msg("failed to save position state")
	}
}
