package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/exchange"
	"DivergenceSentinel/internal/logging"
	"DivergenceSentinel/internal/metrics"
	"DivergenceSentinel/internal/notifier"
	"DivergenceSentinel/internal/portfolio"
	"DivergenceSentinel/internal/recorder"
	"DivergenceSentinel/internal/strategy"
	"DivergenceSentinel/internal/trader"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	once := flag.Bool("once", false, "run a single cycle, close positions and exit")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" && !isFlagSet("config") {
		*cfgPath = v
	}

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		bootLogger().Fatal().Err(err).Msg("config validation")
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("init logging")
	}
	defer logCloser.Close()

	logger.Info().
		Str("exchange", cfg.Exchange.Name).
		Strs("pairs", cfg.Trading.Pairs).
		Bool("simulate", cfg.Trading.Simulate).
		Bool("sandbox", cfg.Exchange.Sandbox).
		Msg("DivergenceSentinel starting")

	// Exchange adapters
	market, broker, err := exchange.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init exchange")
	}
	logger.Info().Str("market_data", market.Name()).Str("broker", broker.Name()).Msg("exchange ready")

	// Position book
	book, err := portfolio.NewBook(cfg.State.File, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init position book")
	}

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Notifier
	var notes notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		notes = tn
	}

	// Metrics
	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		ms := metrics.NewServer(cfg.Metrics.Addr, m, logger)
		ms.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ms.Stop(ctx)
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	t := trader.New(cfg, trader.Deps{
		Market:    market,
		Broker:    broker,
		Evaluator: strategy.NewEvaluator(cfg.Strategy, cfg.Risk, logger),
		Book:      book,
		Recorder:  rec,
		Notifier:  notes,
		Metrics:   m,
	}, logger)

	if *once {
		if err := t.RunCycle(ctx); err != nil {
			logger.Error().Err(err).Msg("trading cycle failed")
		}
		shutdown(t, logger)
		return
	}

	if err := t.Register(ctx, cfg.Schedule.CycleCron, cfg.Schedule.PositionCheckCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	t.Start()

	if tn != nil {
		go tn.StartPolling(ctx, t.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	// First cycle runs immediately rather than waiting for the schedule.
	go func() {
		if err := t.RunCycle(ctx); err != nil {
			logger.Error().Err(err).Msg("initial cycle failed")
		}
	}()

	logger.Info().Msg("DivergenceSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	logger.Info().Msg("shutdown signal received, stopping...")
	shutdown(t, logger)
	logger.Info().Msg("DivergenceSentinel stopped")
}

// shutdown closes open positions on a fresh context; the run context is already cancelled.
func shutdown(t *trader.Trader, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := t.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func bootLogger() *zerolog.Logger {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return &l
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
