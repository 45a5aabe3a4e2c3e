package divergence

import (
	"math"
	"testing"

	"DivergenceSentinel/internal/model"
)

func trough(i int, v float64) model.ExtremaPoint {
	return model.ExtremaPoint{Index: i, Value: v, Kind: model.Trough}
}

func peak(i int, v float64) model.ExtremaPoint {
	return model.ExtremaPoint{Index: i, Value: v, Kind: model.Peak}
}

var defaultParams = Params{Lookback: 60, MinGap: 5}

func TestFindDivergence_Bullish(t *testing.T) {
	price := []model.ExtremaPoint{trough(100, 100), peak(110, 120), trough(120, 95)}
	osc := []model.ExtremaPoint{trough(101, 25), peak(111, 60), trough(119, 35)}

	ev := FindDivergence(price, osc, 130, defaultParams)
	if ev == nil {
		t.Fatal("expected bullish divergence, got nil")
	}
	if ev.Kind != model.Bullish {
		t.Errorf("expected bullish, got %s", ev.Kind)
	}
	if ev.Strength <= 0 || ev.Strength > 1 {
		t.Errorf("strength out of (0,1]: %.3f", ev.Strength)
	}
	if ev.Price[0].Index != 100 || ev.Price[1].Index != 120 {
		t.Errorf("unexpected price anchors: %+v", ev.Price)
	}
	if ev.Osc[0].Value != 25 || ev.Osc[1].Value != 35 {
		t.Errorf("unexpected oscillator anchors: %+v", ev.Osc)
	}
}

func TestFindDivergence_Bearish(t *testing.T) {
	price := []model.ExtremaPoint{peak(90, 200), peak(115, 210)}
	osc := []model.ExtremaPoint{peak(91, 75), peak(114, 66)}

	ev := FindDivergence(price, osc, 125, defaultParams)
	if ev == nil || ev.Kind != model.Bearish {
		t.Fatalf("expected bearish divergence, got %+v", ev)
	}
}

func TestFindDivergence_NoneCases(t *testing.T) {
	tests := []struct {
		name  string
		price []model.ExtremaPoint
		osc   []model.ExtremaPoint
	}{
		{
			name:  "single oscillator trough",
			price: []model.ExtremaPoint{trough(100, 100), trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(119, 35)},
		},
		{
			name:  "single price trough",
			price: []model.ExtremaPoint{trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(101, 25), trough(119, 35)},
		},
		{
			name:  "first anchor outside lookback",
			price: []model.ExtremaPoint{trough(60, 100), trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(61, 25), trough(119, 35)},
		},
		{
			name:  "oscillator confirms price",
			price: []model.ExtremaPoint{trough(100, 100), trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(101, 35), trough(119, 25)},
		},
		{
			name:  "anchors too close",
			price: []model.ExtremaPoint{trough(116, 100), trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(116, 25), trough(120, 35)},
		},
		{
			name:  "both anchors match the same oscillator trough",
			price: []model.ExtremaPoint{trough(100, 100), trough(120, 95)},
			osc:   []model.ExtremaPoint{trough(71, 20), trough(118, 35)},
		},
		{
			name: "no extrema at all",
		},
	}
	for _, tt := range tests {
		if ev := FindDivergence(tt.price, tt.osc, 130, defaultParams); ev != nil {
			t.Errorf("%s: expected nil, got %+v", tt.name, ev)
		}
	}
}

func TestFindDivergence_SkipsAdjacentNoise(t *testing.T) {
	price := []model.ExtremaPoint{trough(100, 100), trough(118, 96), trough(120, 95)}
	osc := []model.ExtremaPoint{trough(100, 25), trough(120, 35)}

	ev := FindDivergence(price, osc, 130, defaultParams)
	if ev == nil {
		t.Fatal("expected divergence")
	}
	if ev.Price[0].Index != 100 {
		t.Errorf("expected first anchor at 100 (118 is within min gap), got %d", ev.Price[0].Index)
	}
}

func TestFindDivergence_MostRecentKindWins(t *testing.T) {
	price := []model.ExtremaPoint{
		trough(80, 100), peak(90, 150), trough(100, 95), peak(112, 160),
	}
	osc := []model.ExtremaPoint{
		trough(80, 25), peak(90, 70), trough(100, 35), peak(112, 60),
	}
	ev := FindDivergence(price, osc, 130, defaultParams)
	if ev == nil || ev.Kind != model.Bearish {
		t.Fatalf("expected the later bearish pair to win, got %+v", ev)
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		name           string
		p1, p2, o1, o2 float64
		want           float64
	}{
		{"saturated", 100, 95, 25, 35, 1.0},
		{"partial", 100, 99, 25, 27, 0.2},
		{"price only", 100, 97.5, 40, 40, 0.2},
		{"zero base price", 0, 5, 30, 35, 0.3},
	}
	for _, tt := range tests {
		got := Strength(tt.p1, tt.p2, tt.o1, tt.o2)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %.4f, got %.4f", tt.name, tt.want, got)
		}
		if got < 0 || got > 1 {
			t.Errorf("%s: strength %.4f outside [0,1]", tt.name, got)
		}
	}
}
