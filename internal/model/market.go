package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds chronologically ordered bars for one symbol and interval.
type PriceSeries struct {
	Symbol   string
	Interval string
	Bars     []OHLCV
}

// Len returns the number of bars in the series.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Last returns the most recent bar. The series must not be empty.
func (s PriceSeries) Last() OHLCV { return s.Bars[len(s.Bars)-1] }
