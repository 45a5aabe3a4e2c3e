package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"DivergenceSentinel/internal/model"
)

// maxHistory bounds the closed positions kept in the state file.
const maxHistory = 200

// Stats aggregates closed-trade results.
type Stats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
}

// WinRate returns the fraction of winning trades, 0 without trades.
func (s Stats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades)
}

// State is the persisted form of a Book.
type State struct {
	Open      map[string]*model.Position `json:"open"`
	History   []model.Position           `json:"history"`
	Stats     Stats                      `json:"stats"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// LoadState reads the book state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	state := &State{Open: make(map[string]*model.Position)}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state.Open == nil {
		state.Open = make(map[string]*model.Position)
	}
	return state, nil
}

// SaveState writes the book state to a JSON file, creating its directory.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
