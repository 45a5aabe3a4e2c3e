package recorder

import "DivergenceSentinel/internal/model"

// SignalRecord is one evaluated signal as stored in the journal.
type SignalRecord struct {
	Timestamp  int64
	Symbol     string
	Type       model.SignalType
	Confidence float64
	Actionable bool
	RSI        float64
	Price      float64
	Reasoning  string
}

// Recorder persists the signal and trade journal for later analysis.
type Recorder interface {
	RecordSignal(sig model.Signal, plan *model.RiskPlan) error
	RecordOrder(res *model.OrderResult, purpose string) error
	RecordClosedPosition(pos model.Position) error
	RecentSignals(limit int) ([]SignalRecord, error)
	Close() error
}
