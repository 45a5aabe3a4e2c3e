package model

// ExtremaKind distinguishes local maxima from local minima.
type ExtremaKind string

const (
	Peak   ExtremaKind = "peak"
	Trough ExtremaKind = "trough"
)

// ExtremaPoint is a local peak or trough at Index of the series it was found in.
type ExtremaPoint struct {
	Index int
	Value float64
	Kind  ExtremaKind
}

// DivergenceKind is the direction of a price/oscillator disagreement.
type DivergenceKind string

const (
	Bullish DivergenceKind = "bullish"
	Bearish DivergenceKind = "bearish"
)

// DivergenceEvent describes the most recent qualifying divergence.
// Oscillator anchors are expressed in price-series index space.
type DivergenceEvent struct {
	Kind     DivergenceKind
	Strength float64 // 0.0 ~ 1.0
	Price    [2]ExtremaPoint
	Osc      [2]ExtremaPoint
}

// Levels holds support and resistance derived from recent extrema.
type Levels struct {
	Support    float64
	Resistance float64
}
