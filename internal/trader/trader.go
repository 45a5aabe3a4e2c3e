// Package trader runs the trading loop: it evaluates every pair on a
// schedule, executes actionable plans and manages open positions.
package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/exchange"
	"DivergenceSentinel/internal/logging"
	"DivergenceSentinel/internal/metrics"
	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/notifier"
	"DivergenceSentinel/internal/portfolio"
	"DivergenceSentinel/internal/recorder"
	"DivergenceSentinel/internal/strategy"
)

// Deps are the collaborators a Trader drives.
type Deps struct {
	Market    exchange.MarketData
	Broker    exchange.Broker
	Evaluator *strategy.Evaluator
	Book      *portfolio.Book
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
	Metrics   *metrics.Metrics
}

// Trader owns the position lifecycle. The analysis core never sees positions.
type Trader struct {
	Cron *cron.Cron

	pairs       []string
	interval    string
	limit       int
	quoteAsset  string
	concurrency int

	market    exchange.MarketData
	broker    exchange.Broker
	evaluator *strategy.Evaluator
	book      *portfolio.Book
	recorder  recorder.Recorder
	notifier  notifier.Notifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	cycleMu sync.Mutex
}

// restorer is a simulated broker whose account is rebuilt from the book.
type restorer interface {
	Restore(positions []model.Position, realizedPnL float64)
}

// New creates a Trader for the configured pairs. A simulated broker is seeded
// with the book's open positions and realized PnL so both agree after a restart.
func New(cfg *config.Config, d Deps, logger zerolog.Logger) *Trader {
	if r, ok := d.Broker.(restorer); ok {
		r.Restore(d.Book.OpenPositions(), d.Book.Stats().TotalPnL)
	}
	rec := d.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	var n notifier.Notifier = notifier.NoopNotifier{}
	if d.Notifier != nil {
		n = d.Notifier
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	concurrency := cfg.Trading.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Trader{
		Cron:        cron.New(cron.WithSeconds()),
		pairs:       cfg.Trading.Pairs,
		interval:    cfg.Exchange.Interval,
		limit:       cfg.Exchange.Limit,
		quoteAsset:  cfg.Exchange.QuoteAsset,
		concurrency: concurrency,
		market:      d.Market,
		broker:      d.Broker,
		evaluator:   d.Evaluator,
		book:        d.Book,
		recorder:    rec,
		notifier:    n,
		metrics:     m,
		logger:      logger.With().Str("component", "trader").Logger(),
	}
}

// Register schedules the trading cycle and the position check.
func (t *Trader) Register(ctx context.Context, cycleSpec, checkSpec string) error {
	if _, err := t.Cron.AddFunc(cycleSpec, func() {
		if err := t.RunCycle(ctx); err != nil {
			t.logger.Error().Err(err).Msg("trading cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	if _, err := t.Cron.AddFunc(checkSpec, func() { t.CheckPositions(ctx) }); err != nil {
		return fmt.Errorf("register position check: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (t *Trader) Start() {
	t.Cron.Start()
	t.logger.Info().Strs("pairs", t.pairs).Str("interval", t.interval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (t *Trader) Stop() {
	<-t.Cron.Stop().Done()
	t.logger.Info().Msg("scheduler stopped")
}

type cycleStats struct {
	evaluated  atomic.Int32
	actionable atomic.Int32
	opened     atomic.Int32
	skipped    atomic.Int32
	failed     atomic.Int32
}

// RunCycle checks open positions, then evaluates every pair concurrently.
// Overlapping cycles are skipped. Per-symbol failures are logged and counted,
// not returned.
func (t *Trader) RunCycle(ctx context.Context) error {
	if !t.cycleMu.TryLock() {
		t.logger.Warn().Msg("previous cycle still running, skipping")
		return nil
	}
	defer t.cycleMu.Unlock()

	start := time.Now()
	t.CheckPositions(ctx)

	balance, err := t.broker.FetchBalance(ctx, t.quoteAsset)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}

	var stats cycleStats
	var g errgroup.Group
	g.SetLimit(t.concurrency)
	for _, symbol := range t.pairs {
		symbol := symbol
		g.Go(func() error {
			t.processSymbol(ctx, symbol, balance, &stats)
			return nil
		})
	}
	g.Wait()

	t.logger.Info().
		Int32("evaluated", stats.evaluated.Load()).
		Int32("actionable", stats.actionable.Load()).
		Int32("opened", stats.opened.Load()).
		Int32("skipped", stats.skipped.Load()).
		Int32("failed", stats.failed.Load()).
		Int("open_positions", len(t.book.OpenPositions())).
		Dur("took", time.Since(start)).
		Msg("cycle complete")
	return ctx.Err()
}

// processSymbol is the evaluate-then-execute critical section for one symbol.
func (t *Trader) processSymbol(ctx context.Context, symbol string, balance float64, stats *cycleStats) {
	unlock := t.book.LockSymbol(symbol)
	defer unlock()

	log := t.logger.With().Str("symbol", symbol).Logger()
	if t.book.HasOpen(symbol) {
		log.Debug().Msg("position open, skipping evaluation")
		stats.skipped.Add(1)
		return
	}

	start := time.Now()
	series, err := t.market.FetchPriceSeries(ctx, symbol, t.interval, t.limit)
	if err != nil {
		log.Error().Err(err).Msg("fetch price series")
		t.metrics.EvaluationErrors.WithLabelValues("fetch").Inc()
		stats.failed.Add(1)
		return
	}

	t.metrics.EvaluationsTotal.Inc()
	sig, plan, err := t.evaluator.Evaluate(symbol, series, balance)
	t.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil && sig.Type == "" {
		log.Error().Err(err).Msg("evaluate")
		t.metrics.EvaluationErrors.WithLabelValues(errorKind(err)).Inc()
		stats.failed.Add(1)
		return
	}
	stats.evaluated.Add(1)

	logging.LogSignal(log, sig)
	t.metrics.SignalsTotal.WithLabelValues(string(sig.Type)).Inc()
	if recErr := t.recorder.RecordSignal(sig, plan); recErr != nil {
		log.Error().Err(recErr).Msg("record signal")
	}
	if !sig.Actionable {
		return
	}
	stats.actionable.Add(1)

	if err != nil {
		log.Warn().Err(err).Str("signal", string(sig.Type)).Msg("actionable signal not sized")
		t.metrics.EvaluationErrors.WithLabelValues(errorKind(err)).Inc()
		t.notify(ctx, notifier.FormatSignal(sig, nil))
		return
	}
	if plan.Capped {
		t.metrics.RiskCappedTotal.Inc()
	}
	t.notify(ctx, notifier.FormatSignal(sig, plan))

	if err := t.openPosition(ctx, symbol, plan); err != nil {
		log.Error().Err(err).Msg("open position")
		t.metrics.EvaluationErrors.WithLabelValues("order").Inc()
		stats.failed.Add(1)
		return
	}
	stats.opened.Add(1)
}

// openPosition submits the entry order for plan. Caller holds the symbol lock.
func (t *Trader) openPosition(ctx context.Context, symbol string, plan *model.RiskPlan) error {
	res, err := t.broker.SubmitOrder(ctx, model.OrderRequest{
		Symbol:         symbol,
		Side:           model.EntrySide(plan.Side),
		Quantity:       plan.Size,
		ReferencePrice: plan.Entry,
	})
	if err != nil {
		return err
	}
	t.metrics.OrdersTotal.WithLabelValues(string(res.Side)).Inc()
	logging.LogOrder(t.logger, res)
	if err := t.recorder.RecordOrder(res, "entry"); err != nil {
		t.logger.Error().Err(err).Msg("record order")
	}

	pos := model.Position{
		Symbol:       symbol,
		Side:         plan.Side,
		Size:         orDefault(res.FilledQty, plan.Size),
		Entry:        orDefault(res.AvgPrice, plan.Entry),
		StopLoss:     plan.StopLoss,
		TakeProfit:   plan.TakeProfit,
		OpenedAt:     res.SubmittedAt,
		EntryOrderID: res.OrderID,
	}
	if err := t.book.Open(pos); err != nil {
		return err
	}
	pos.Status = model.StatusOpen
	t.metrics.OpenPositions.Set(float64(len(t.book.OpenPositions())))
	logging.LogPosition(t.logger, "opened", &pos)
	t.notify(ctx, notifier.FormatPositionOpened(pos))
	return nil
}

// CheckPositions marks every open position to market and closes those whose
// stop-loss or take-profit was crossed.
func (t *Trader) CheckPositions(ctx context.Context) {
	for _, p := range t.book.OpenPositions() {
		t.checkPosition(ctx, p.Symbol)
	}
}

func (t *Trader) checkPosition(ctx context.Context, symbol string) {
	unlock := t.book.LockSymbol(symbol)
	defer unlock()

	pos, ok := t.book.Get(symbol)
	if !ok {
		return
	}
	price, err := t.market.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		t.logger.Error().Err(err).Str("symbol", symbol).Msg("fetch price for position check")
		return
	}
	t.logger.Debug().
		Str("symbol", symbol).
		Float64("price", price).
		Float64("unrealized_pnl", pos.UnrealizedPnL(price)).
		Msg("position marked")

	if reason := pos.TriggeredExit(price); reason != "" {
		if err := t.closeLocked(ctx, pos, price, reason); err != nil {
			t.logger.Error().Err(err).Str("symbol", symbol).Str("reason", reason).Msg("close position")
		}
	}
}

// ClosePosition closes the open position for symbol at the current price.
func (t *Trader) ClosePosition(ctx context.Context, symbol, reason string) error {
	unlock := t.book.LockSymbol(symbol)
	defer unlock()

	pos, ok := t.book.Get(symbol)
	if !ok {
		return fmt.Errorf("%w: %s", portfolio.ErrPositionNotFound, symbol)
	}
	price, err := t.market.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}
	return t.closeLocked(ctx, pos, price, reason)
}

// closeLocked submits the exit order and realizes the position. Caller holds the symbol lock.
func (t *Trader) closeLocked(ctx context.Context, pos model.Position, price float64, reason string) error {
	res, err := t.broker.SubmitOrder(ctx, model.OrderRequest{
		Symbol:         pos.Symbol,
		Side:           model.ExitSide(pos.Side),
		Quantity:       pos.Size,
		ReferencePrice: price,
	})
	if err != nil {
		return fmt.Errorf("submit exit order: %w", err)
	}
	t.metrics.OrdersTotal.WithLabelValues(string(res.Side)).Inc()
	logging.LogOrder(t.logger, res)

	closed, err := t.book.Close(pos.Symbol, orDefault(res.AvgPrice, price), reason, res.SubmittedAt)
	if err != nil {
		return err
	}

	t.metrics.PositionsClosedTotal.WithLabelValues(reason).Inc()
	t.metrics.OpenPositions.Set(float64(len(t.book.OpenPositions())))
	t.metrics.RealizedPnL.Set(t.book.Stats().TotalPnL)
	if err := t.recorder.RecordOrder(res, "exit:"+reason); err != nil {
		t.logger.Error().Err(err).Msg("record order")
	}
	if err := t.recorder.RecordClosedPosition(closed); err != nil {
		t.logger.Error().Err(err).Msg("record trade")
	}
	logging.LogPosition(t.logger, "closed", &closed)
	t.notify(ctx, notifier.FormatPositionClosed(closed))
	return nil
}

// Shutdown stops the scheduler and closes every open position.
func (t *Trader) Shutdown(ctx context.Context) error {
	t.Stop()

	var errs []error
	for _, p := range t.book.OpenPositions() {
		if err := t.ClosePosition(ctx, p.Symbol, model.ExitShutdown); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Symbol, err))
		}
	}

	if s, err := t.Summary(ctx); err == nil {
		t.logSummary(s)
		t.notify(ctx, "🛑 <b>Shutdown</b>\n\n"+notifier.FormatStatus(s.Balance, s.Stats, s.OpenPositions))
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Summary is the account state reported on demand and at shutdown.
type Summary struct {
	Balance       float64
	OpenPositions int
	portfolio.Stats
}

// Summary fetches the balance and combines it with the closed-trade stats.
func (t *Trader) Summary(ctx context.Context) (Summary, error) {
	balance, err := t.broker.FetchBalance(ctx, t.quoteAsset)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch balance: %w", err)
	}
	return Summary{
		Balance:       balance,
		OpenPositions: len(t.book.OpenPositions()),
		Stats:         t.book.Stats(),
	}, nil
}

func (t *Trader) logSummary(s Summary) {
	t.logger.Info().
		Float64("balance", s.Balance).
		Int("open_positions", s.OpenPositions).
		Int("total_trades", s.TotalTrades).
		Int("winning_trades", s.WinningTrades).
		Int("losing_trades", s.LosingTrades).
		Float64("total_pnl", s.TotalPnL).
		Float64("win_rate", s.WinRate()).
		Msg("trading summary")
}

// HandleCommand processes an operator command and returns a reply.
func (t *Trader) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/status":
		s, err := t.Summary(ctx)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatStatus(s.Balance, s.Stats, s.OpenPositions)
	case "/positions":
		open := t.book.OpenPositions()
		prices := make(map[string]float64, len(open))
		for _, p := range open {
			if price, err := t.market.FetchCurrentPrice(ctx, p.Symbol); err == nil {
				prices[p.Symbol] = price
			}
		}
		return notifier.FormatPositions(open, prices)
	case "/signals":
		recs, err := t.recorder.RecentSignals(10)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatRecentSignals(recs)
	case "/run":
		if err := t.RunCycle(ctx); err != nil {
			return "❌ cycle failed: " + err.Error()
		}
		return "✅ cycle complete"
	default:
		return notifier.FormatHelp()
	}
}

func (t *Trader) notify(ctx context.Context, text string) {
	if err := t.notifier.Notify(ctx, text); err != nil {
		t.logger.Error().Err(err).Msg("send notification")
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, model.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, model.ErrPositionTooSmall):
		return "position_too_small"
	default:
		return "other"
	}
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
