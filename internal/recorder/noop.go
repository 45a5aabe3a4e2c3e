package recorder

import "DivergenceSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ model.Signal, _ *model.RiskPlan) error { return nil }
func (n *NoopRecorder) RecordOrder(_ *model.OrderResult, _ string) error     { return nil }
func (n *NoopRecorder) RecordClosedPosition(_ model.Position) error          { return nil }
func (n *NoopRecorder) RecentSignals(_ int) ([]SignalRecord, error)          { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
