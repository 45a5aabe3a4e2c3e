package calculator

import (
	"testing"

	"DivergenceSentinel/internal/model"
)

func TestFindExtrema_PeaksAndTroughs(t *testing.T) {
	values := []float64{5, 4, 3, 4, 5, 6, 7, 6, 5, 4, 5}
	got := FindExtrema(values, 2)
	want := []model.ExtremaPoint{
		{Index: 2, Value: 3, Kind: model.Trough},
		{Index: 6, Value: 7, Kind: model.Peak},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d extrema, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extrema[%d]: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFindExtrema_PlateauIsNotStrict(t *testing.T) {
	values := []float64{1, 2, 5, 5, 2, 1, 0}
	for _, p := range FindExtrema(values, 1) {
		if p.Kind == model.Peak {
			t.Errorf("plateau must not produce a strict peak, got %+v", p)
		}
	}
}

func TestFindExtrema_NeverMarksEdges(t *testing.T) {
	values := []float64{9, 1, 8, 2, 7, 3, 6, 4, 5, 0, 10}
	tests := []int{1, 2, 3}
	for _, order := range tests {
		for _, p := range FindExtrema(values, order) {
			if p.Index < order || p.Index >= len(values)-order {
				t.Errorf("order %d: edge index %d marked as %s", order, p.Index, p.Kind)
			}
		}
	}
}

func TestFindExtrema_DegenerateInputs(t *testing.T) {
	if got := FindExtrema([]float64{1, 3, 1}, 0); got != nil {
		t.Errorf("order 0: expected no extrema, got %+v", got)
	}
	if got := FindExtrema([]float64{1, 3}, 2); got != nil {
		t.Errorf("short series: expected no extrema, got %+v", got)
	}
}

func TestShiftAndFilter(t *testing.T) {
	points := []model.ExtremaPoint{
		{Index: 1, Value: 10, Kind: model.Peak},
		{Index: 4, Value: 2, Kind: model.Trough},
	}
	shifted := Shift(points, 14)
	if shifted[0].Index != 15 || shifted[1].Index != 18 {
		t.Errorf("unexpected shifted indices: %+v", shifted)
	}
	if points[0].Index != 1 {
		t.Error("Shift must not mutate its input")
	}
	troughs := FilterKind(shifted, model.Trough)
	if len(troughs) != 1 || troughs[0].Value != 2 {
		t.Errorf("unexpected troughs: %+v", troughs)
	}
}
