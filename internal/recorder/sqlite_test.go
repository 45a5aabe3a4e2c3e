package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Signals(t *testing.T) {
	r := openTestRecorder(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	hold := model.Signal{Symbol: "ETHUSDT", Type: model.Hold, RSI: 50, Price: 3000, Reasoning: "no clear signal", Timestamp: ts}
	buy := model.Signal{
		Symbol: "BTCUSDT", Type: model.StrongBuy, Confidence: 0.9, Actionable: true,
		RSI: 25, Price: 100, Reasoning: "RSI oversold", Timestamp: ts.Add(time.Hour),
		Divergence: &model.DivergenceEvent{Kind: model.Bullish, Strength: 0.9},
	}
	plan := &model.RiskPlan{Side: model.Long, Entry: 100, StopLoss: 98, TakeProfit: 104, Size: 5, RiskAmount: 10}

	if err := r.RecordSignal(hold, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordSignal(buy, plan); err != nil {
		t.Fatal(err)
	}

	recs, err := r.RecentSignals(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(recs))
	}
	if recs[0].Symbol != "BTCUSDT" || recs[0].Type != model.StrongBuy || !recs[0].Actionable {
		t.Errorf("expected newest first, got %+v", recs[0])
	}
	if recs[0].Timestamp != ts.Add(time.Hour).Unix() {
		t.Errorf("unexpected timestamp %d", recs[0].Timestamp)
	}

	var size float64
	if err := r.db.QueryRow(`SELECT plan_size FROM signals WHERE symbol = 'BTCUSDT'`).Scan(&size); err != nil {
		t.Fatal(err)
	}
	if size != 5 {
		t.Errorf("plan size not stored, got %v", size)
	}
}

func TestSQLiteRecorder_OrdersAndTrades(t *testing.T) {
	r := openTestRecorder(t)
	now := time.Now()

	if err := r.RecordOrder(&model.OrderResult{OrderID: "abc", Symbol: "BTCUSDT", Side: model.OrderBuy, FilledQty: 5, AvgPrice: 100, Status: "FILLED", SubmittedAt: now}, "entry"); err != nil {
		t.Fatal(err)
	}
	pos := model.Position{
		Symbol: "BTCUSDT", Side: model.Long, Size: 5, Entry: 100, ExitPrice: 104,
		StopLoss: 98, TakeProfit: 104, OpenedAt: now, ClosedAt: now.Add(time.Hour),
		Status: model.StatusClosed, ExitReason: model.ExitTakeProfit, RealizedPnL: 20,
	}
	if err := r.RecordClosedPosition(pos); err != nil {
		t.Fatal(err)
	}

	var orders, trades int
	var pnl float64
	r.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orders)
	r.db.QueryRow(`SELECT COUNT(*), SUM(realized_pnl) FROM trades`).Scan(&trades, &pnl)
	if orders != 1 || trades != 1 || pnl != 20 {
		t.Errorf("unexpected journal: orders=%d trades=%d pnl=%v", orders, trades, pnl)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordSignal(model.Signal{}, nil); err != nil {
		t.Error(err)
	}
	if recs, err := r.RecentSignals(5); err != nil || recs != nil {
		t.Errorf("unexpected noop result: %v %v", recs, err)
	}
}
