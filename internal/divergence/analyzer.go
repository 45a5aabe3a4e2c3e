// Package divergence classifies disagreements between price extrema and
// oscillator extrema.
package divergence

import (
	"math"

	"DivergenceSentinel/internal/model"
)

// Strength weighting. A price move of PriceMoveScale (relative) or an oscillator
// move of OscillatorMoveScale points saturates its component.
const (
	PriceWeight         = 0.4
	OscillatorWeight    = 0.6
	PriceMoveScale      = 0.05
	OscillatorMoveScale = 10.0
)

// Params bounds the search window.
type Params struct {
	Lookback int // only extrema within the last Lookback bars are considered
	MinGap   int // anchor indices must be more than MinGap bars apart
}

// FindDivergence returns the most recent bullish or bearish divergence, or nil.
// oscExt must already be in price-index space; seriesLen is the price series length.
func FindDivergence(priceExt, oscExt []model.ExtremaPoint, seriesLen int, p Params) *model.DivergenceEvent {
	bull := find(priceExt, oscExt, seriesLen, p, model.Trough)
	bear := find(priceExt, oscExt, seriesLen, p, model.Peak)
	switch {
	case bull == nil:
		return bear
	case bear == nil:
		return bull
	case bear.Price[1].Index > bull.Price[1].Index:
		return bear
	default:
		return bull
	}
}

func find(priceExt, oscExt []model.ExtremaPoint, seriesLen int, p Params, kind model.ExtremaKind) *model.DivergenceEvent {
	start := seriesLen - p.Lookback
	prices := inWindow(priceExt, kind, start)
	oscs := inWindow(oscExt, kind, start)
	if len(prices) < 2 || len(oscs) < 2 {
		return nil
	}

	second := prices[len(prices)-1]
	first, ok := previousAnchor(prices, second, p.MinGap)
	if !ok {
		return nil
	}

	oi := nearest(oscs, first.Index)
	oj := nearest(oscs, second.Index)
	if oi == oj {
		return nil
	}
	o1, o2 := oscs[oi], oscs[oj]

	var div model.DivergenceKind
	switch {
	case kind == model.Trough && second.Value < first.Value && o2.Value > o1.Value:
		div = model.Bullish
	case kind == model.Peak && second.Value > first.Value && o2.Value < o1.Value:
		div = model.Bearish
	default:
		return nil
	}

	return &model.DivergenceEvent{
		Kind:     div,
		Strength: Strength(first.Value, second.Value, o1.Value, o2.Value),
		Price:    [2]model.ExtremaPoint{first, second},
		Osc:      [2]model.ExtremaPoint{o1, o2},
	}
}

// Strength combines the relative price move and the oscillator move into [0,1].
func Strength(p1, p2, o1, o2 float64) float64 {
	var priceComp float64
	if p1 != 0 {
		priceComp = math.Min(1, math.Abs(p2-p1)/math.Abs(p1)/PriceMoveScale)
	}
	oscComp := math.Min(1, math.Abs(o2-o1)/OscillatorMoveScale)
	s := PriceWeight*priceComp + OscillatorWeight*oscComp
	return math.Max(0, math.Min(1, s))
}

func inWindow(points []model.ExtremaPoint, kind model.ExtremaKind, start int) []model.ExtremaPoint {
	var out []model.ExtremaPoint
	for _, pt := range points {
		if pt.Kind == kind && pt.Index >= start {
			out = append(out, pt)
		}
	}
	return out
}

// previousAnchor walks back from the latest extremum to the first one far enough away.
func previousAnchor(points []model.ExtremaPoint, latest model.ExtremaPoint, minGap int) (model.ExtremaPoint, bool) {
	for i := len(points) - 2; i >= 0; i-- {
		if latest.Index-points[i].Index > minGap {
			return points[i], true
		}
	}
	return model.ExtremaPoint{}, false
}

// nearest returns the position in points closest to index; ties go to the later point.
func nearest(points []model.ExtremaPoint, index int) int {
	best, bestDist := 0, math.MaxInt
	for i, pt := range points {
		d := pt.Index - index
		if d < 0 {
			d = -d
		}
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
