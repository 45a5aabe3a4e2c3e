package calculator

import (
	"errors"
	"math"

	"DivergenceSentinel/internal/model"
)

// levelDepth is how many of the latest peaks/troughs are averaged into a level.
const levelDepth = 3

// SupportResistance averages the closes at the latest troughs (support) and peaks (resistance).
// Without extrema of a kind it falls back to the series low or high.
func SupportResistance(bars []model.OHLCV, extrema []model.ExtremaPoint) (model.Levels, error) {
	if len(bars) == 0 {
		return model.Levels{}, errors.New("no bars provided")
	}
	low, high := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		if b.Close > high {
			high = b.Close
		}
		if b.Close < low {
			low = b.Close
		}
	}

	levels := model.Levels{Support: low, Resistance: high}
	if v, ok := meanOfLatest(FilterKind(extrema, model.Trough)); ok {
		levels.Support = v
	}
	if v, ok := meanOfLatest(FilterKind(extrema, model.Peak)); ok {
		levels.Resistance = v
	}
	return levels, nil
}

func meanOfLatest(points []model.ExtremaPoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	start := len(points) - levelDepth
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, p := range points[start:] {
		sum += p.Value
	}
	return sum / float64(len(points)-start), true
}
