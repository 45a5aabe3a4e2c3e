package calculator

import "DivergenceSentinel/internal/model"

// FindExtrema returns the strict local peaks and troughs of values, ordered by index.
// Index i is a peak when values[i] is greater than every other value in [i-order, i+order],
// a trough when it is lower than all of them. The first and last `order` indices are skipped.
func FindExtrema(values []float64, order int) []model.ExtremaPoint {
	if order < 1 {
		return nil
	}
	var points []model.ExtremaPoint
	for i := order; i < len(values)-order; i++ {
		isPeak, isTrough := true, true
		for j := i - order; j <= i+order; j++ {
			if j == i {
				continue
			}
			if values[j] >= values[i] {
				isPeak = false
			}
			if values[j] <= values[i] {
				isTrough = false
			}
			if !isPeak && !isTrough {
				break
			}
		}
		switch {
		case isPeak:
			points = append(points, model.ExtremaPoint{Index: i, Value: values[i], Kind: model.Peak})
		case isTrough:
			points = append(points, model.ExtremaPoint{Index: i, Value: values[i], Kind: model.Trough})
		}
	}
	return points
}

// FilterKind returns the points of the given kind, preserving order.
func FilterKind(points []model.ExtremaPoint, kind model.ExtremaKind) []model.ExtremaPoint {
	var out []model.ExtremaPoint
	for _, p := range points {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Shift moves every point's index by offset. Used to map oscillator indices onto price indices.
func Shift(points []model.ExtremaPoint, offset int) []model.ExtremaPoint {
	out := make([]model.ExtremaPoint, len(points))
	for i, p := range points {
		p.Index += offset
		out[i] = p
	}
	return out
}
