package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"DivergenceSentinel/internal/model"
)

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			signal_type     TEXT NOT NULL,
			confidence      REAL,
			actionable      INTEGER,
			rsi             REAL,
			price           REAL,
			divergence      TEXT,
			strength        REAL,
			support         REAL,
			resistance      REAL,
			reasoning       TEXT,
			plan_side       TEXT,
			plan_size       REAL,
			plan_stop       REAL,
			plan_target     REAL,
			plan_risk       REAL,
			plan_capped     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			order_id    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    REAL,
			price       REAL,
			status      TEXT,
			purpose     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT NOT NULL,
			side         TEXT NOT NULL,
			size         REAL,
			entry        REAL,
			exit_price   REAL,
			stop_loss    REAL,
			take_profit  REAL,
			opened_at    INTEGER,
			closed_at    INTEGER,
			exit_reason  TEXT,
			realized_pnl REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_closed ON trades(closed_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(sig model.Signal, plan *model.RiskPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var divKind string
	var strength float64
	if sig.Divergence != nil {
		divKind = string(sig.Divergence.Kind)
		strength = sig.Divergence.Strength
	}
	var p model.RiskPlan
	if plan != nil {
		p = *plan
	}

	_, err := r.db.Exec(`INSERT INTO signals
		(timestamp, symbol, signal_type, confidence, actionable, rsi, price,
		 divergence, strength, support, resistance, reasoning,
		 plan_side, plan_size, plan_stop, plan_target, plan_risk, plan_capped)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sig.Timestamp.Unix(), sig.Symbol, string(sig.Type), sig.Confidence, sig.Actionable,
		sig.RSI, sig.Price, divKind, strength, sig.Levels.Support, sig.Levels.Resistance,
		sig.Reasoning,
		string(p.Side), p.Size, p.StopLoss, p.TakeProfit, p.RiskAmount, p.Capped,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(res *model.OrderResult, purpose string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO orders
		(timestamp, order_id, symbol, side, quantity, price, status, purpose)
		VALUES (?,?,?,?,?,?,?,?)`,
		res.SubmittedAt.Unix(), res.OrderID, res.Symbol, string(res.Side),
		res.FilledQty, res.AvgPrice, res.Status, purpose,
	)
	return err
}

func (r *SQLiteRecorder) RecordClosedPosition(pos model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trades
		(symbol, side, size, entry, exit_price, stop_loss, take_profit,
		 opened_at, closed_at, exit_reason, realized_pnl)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		pos.Symbol, string(pos.Side), pos.Size, pos.Entry, pos.ExitPrice,
		pos.StopLoss, pos.TakeProfit, pos.OpenedAt.Unix(), pos.ClosedAt.Unix(),
		pos.ExitReason, pos.RealizedPnL,
	)
	return err
}

// RecentSignals returns up to limit signals, newest first.
func (r *SQLiteRecorder) RecentSignals(limit int) ([]SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, symbol, signal_type, confidence, actionable, rsi, price, reasoning
		FROM signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var typ string
		if err := rows.Scan(&rec.Timestamp, &rec.Symbol, &typ, &rec.Confidence,
			&rec.Actionable, &rec.RSI, &rec.Price, &rec.Reasoning); err != nil {
			return nil, err
		}
		rec.Type = model.SignalType(typ)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
