package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alejandrodnm/ticklabel/config"
	"github.com/alejandrodnm/ticklabel/internal/adapters/metrics"
	"github.com/alejandrodnm/ticklabel/internal/adapters/notify"
	"github.com/alejandrodnm/ticklabel/internal/adapters/session"
	"github.com/alejandrodnm/ticklabel/internal/adapters/storage"
	"github.com/alejandrodnm/ticklabel/internal/application/labeler"
	"github.com/prometheus/client_golang/prometheus"
)

// usage: labeler [count] [reset]
//
// El resto de la configuración viene del YAML (ruta en LABELER_CONFIG) y del entorno.
func main() {
	configPath := envOr("LABELER_CONFIG", "config/config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", configPath)
		os.Exit(1)
	}

	count, reset, err := parseArgs(os.Args[1:])
	if err != nil {
		slog.Error("invalid arguments", "err", err, "usage", "labeler [count] [reset]")
		os.Exit(2)
	}
	if count > 0 {
		cfg.Run.MaxLabels = count
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	series, err := storage.NewSeriesStore(cfg.Stream.DSN)
	if err != nil {
		slog.Error("failed to open stream", "err", err, "dsn", cfg.Stream.DSN)
		os.Exit(1)
	}
	defer series.Close()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	calendar, err := session.NewCalendar(cfg.SessionCalendar())
	if err != nil {
		slog.Error("invalid session config", "err", err)
		os.Exit(1)
	}

	checks, err := cfg.CheckSpecs()
	if err != nil {
		slog.Error("invalid checks", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, cfg.Stream.Topic)
	if cfg.Metrics.Addr != "" {
		srv, err := metrics.Serve(cfg.Metrics.Addr, reg)
		if err != nil {
			slog.Error("failed to start metrics endpoint", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
	}

	reader := series.Reader(cfg.Stream.Topic, storage.ReaderConfig{
		BatchSize:        cfg.Stream.BatchSize,
		BatchesPerSecond: cfg.Stream.BatchesPerSecond,
	})
	notifier := notify.NewConsole(cfg.Run.VerboseNotify)

	l := labeler.New(labeler.Config{
		LabelTopic:     cfg.Stream.LabelTopic,
		MaxLabels:      cfg.Run.MaxLabels,
		WarmupSkip:     cfg.Stream.WarmupSkip,
		PublishRetries: cfg.Run.PublishRetries,
		RetryWait:      cfg.RetryWait(),
	}, checks, calendar, reader, series, store, notifier, m)

	slog.Info("labeler starting",
		"config", configPath,
		"topic", cfg.Stream.Topic,
		"label_topic", cfg.Stream.LabelTopic,
		"checks", len(checks),
		"max_labels", cfg.Run.MaxLabels,
		"reset", reset,
	)

	if reset {
		if err := l.ResetLabels(ctx); err != nil {
			slog.Error("reset failed", "err", err)
			os.Exit(1)
		}
	}

	if _, err := l.SeekStart(ctx); err != nil {
		slog.Error("failed to position reader", "err", err)
		os.Exit(1)
	}

	runErr := l.Run(ctx)

	printSummary(store, notifier, l.Stats(), reader.Position(), cfg.Run.SummaryRows)

	if runErr != nil {
		slog.Error("labeler exited with error", "err", runErr)
		os.Exit(1)
	}
	slog.Info("labeler stopped cleanly")
}

// parseArgs reads the optional positional arguments: a run bound and the word
// "reset", in any order.
func parseArgs(args []string) (count int, reset bool, err error) {
	if len(args) > 2 {
		return 0, false, fmt.Errorf("too many arguments: %v", args)
	}
	seenCount := false
	for _, arg := range args {
		if arg == "reset" {
			if reset {
				return 0, false, fmt.Errorf("reset given twice")
			}
			reset = true
			continue
		}
		if seenCount {
			return 0, false, fmt.Errorf("unknown argument %q", arg)
		}
		count, err = strconv.Atoi(arg)
		if err != nil || count < 0 {
			return 0, false, fmt.Errorf("count %q: must be a non-negative integer", arg)
		}
		seenCount = true
	}
	return count, reset, nil
}

func printSummary(store *storage.SQLiteStorage, notifier *notify.Console, st labeler.Stats, next uint64, rows int) {
	// el ctx principal puede estar cancelado por la señal
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recent, err := store.RecentLabels(ctx, rows)
	if err != nil {
		slog.Warn("failed to load recent labels", "err", err)
	}
	stored, err := store.CountLabels(ctx)
	if err != nil {
		slog.Warn("failed to count labels", "err", err)
		stored = -1
	}
	notifier.PrintSummary(notify.Summary{
		Events: st.Events,
		Labels: st.Labels,
		Resets: st.Resets,
		Slides: st.Slides,
		Stored: stored,
		Next:   next,
		Recent: recent,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
