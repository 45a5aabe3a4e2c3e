package portfolio

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/model"
)

func longPos(symbol string) model.Position {
	return model.Position{
		Symbol:     symbol,
		Side:       model.Long,
		Size:       5,
		Entry:      100,
		StopLoss:   98,
		TakeProfit: 104,
		OpenedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBook_OnePositionPerSymbol(t *testing.T) {
	b, err := NewBook("", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Open(longPos("BTCUSDT")); err != nil {
		t.Fatal(err)
	}
	if err := b.Open(longPos("BTCUSDT")); !errors.Is(err, ErrPositionExists) {
		t.Errorf("expected ErrPositionExists, got %v", err)
	}
	if err := b.Open(longPos("ETHUSDT")); err != nil {
		t.Errorf("other symbols must be independent: %v", err)
	}
	if got := len(b.OpenPositions()); got != 2 {
		t.Errorf("expected 2 open positions, got %d", got)
	}
}

func TestBook_CloseUpdatesStats(t *testing.T) {
	b, _ := NewBook("", zerolog.Nop())
	b.Open(longPos("BTCUSDT"))
	short := longPos("ETHUSDT")
	short.Side = model.Short
	b.Open(short)

	won, err := b.Close("BTCUSDT", 104, model.ExitTakeProfit, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if won.RealizedPnL != 20 || won.Status != model.StatusClosed {
		t.Errorf("unexpected closed position: %+v", won)
	}
	lost, _ := b.Close("ETHUSDT", 102, model.ExitStopLoss, time.Now())
	if lost.RealizedPnL != -10 {
		t.Errorf("short loss: expected -10, got %v", lost.RealizedPnL)
	}

	st := b.Stats()
	if st.TotalTrades != 2 || st.WinningTrades != 1 || st.LosingTrades != 1 || st.TotalPnL != 10 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.WinRate() != 0.5 {
		t.Errorf("expected win rate 0.5, got %v", st.WinRate())
	}
	if b.HasOpen("BTCUSDT") {
		t.Error("closed position still open")
	}
	if _, err := b.Close("BTCUSDT", 100, model.ExitManual, time.Now()); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}
	if h := b.History(1); len(h) != 1 || h[0].Symbol != "ETHUSDT" {
		t.Errorf("unexpected history: %+v", h)
	}
}

func TestBook_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "positions.json")
	b, err := NewBook(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	b.Open(longPos("BTCUSDT"))
	b.Open(longPos("SOLUSDT"))
	b.Close("SOLUSDT", 110, model.ExitTakeProfit, time.Now())

	restored, err := NewBook(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	pos, ok := restored.Get("BTCUSDT")
	if !ok || pos.Entry != 100 || pos.Status != model.StatusOpen {
		t.Errorf("open position not restored: %+v", pos)
	}
	if st := restored.Stats(); st.TotalTrades != 1 || st.TotalPnL != 50 {
		t.Errorf("stats not restored: %+v", st)
	}
}

func TestBook_LockSymbolSerializes(t *testing.T) {
	b, _ := NewBook("", zerolog.Nop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	opened, rejected := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := b.LockSymbol("BTCUSDT")
			defer unlock()
			if b.HasOpen("BTCUSDT") {
				mu.Lock()
				rejected++
				mu.Unlock()
				return
			}
			if err := b.Open(longPos("BTCUSDT")); err != nil {
				t.Errorf("open inside lock failed: %v", err)
				return
			}
			mu.Lock()
			opened++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if opened != 1 || rejected != 15 {
		t.Errorf("expected exactly one open, got opened=%d rejected=%d", opened, rejected)
	}
}
