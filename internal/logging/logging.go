// Package logging builds the zerolog logger and the trade event helpers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

// New returns a logger writing to the console and, when cfg.File is set, to a
// JSON log file. The returned closer releases the file.
func New(cfg config.Log) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	if cfg.JSON {
		console = os.Stdout
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LogSignal records an evaluated signal.
func LogSignal(logger zerolog.Logger, sig model.Signal) {
	ev := logger.Info()
	if sig.Type == model.Hold {
		ev = logger.Debug()
	}
	ev = ev.Str("event", "SIGNAL").
		Str("symbol", sig.Symbol).
		Str("type", string(sig.Type)).
		Float64("confidence", sig.Confidence).
		Bool("actionable", sig.Actionable).
		Float64("rsi", sig.RSI).
		Float64("price", sig.Price)
	if sig.Divergence != nil {
		ev = ev.Str("divergence", string(sig.Divergence.Kind)).
			Float64("divergence_strength", sig.Divergence.Strength)
	}
	ev.Msg(sig.Reasoning)
}

// LogOrder records a filled order.
func LogOrder(logger zerolog.Logger, res *model.OrderResult) {
	logger.Info().
		Str("event", "ORDER").
		Str("order_id", res.OrderID).
		Str("symbol", res.Symbol).
		Str("side", string(res.Side)).
		Float64("qty", res.FilledQty).
		Float64("price", res.AvgPrice).
		Str("status", res.Status).
		Msg("order filled")
}

// LogPosition records a position opening or closing.
func LogPosition(logger zerolog.Logger, action string, pos *model.Position) {
	ev := logger.Info().
		Str("event", "POSITION").
		Str("action", action).
		Str("symbol", pos.Symbol).
		Str("side", string(pos.Side)).
		Float64("size", pos.Size).
		Float64("entry", pos.Entry).
		Float64("stop_loss", pos.StopLoss).
		Float64("take_profit", pos.TakeProfit)
	if pos.Status == model.StatusClosed {
		ev = ev.Float64("exit", pos.ExitPrice).
			Str("reason", pos.ExitReason).
			Float64("pnl", pos.RealizedPnL)
	}
	ev.Msg("position " + action)
}
