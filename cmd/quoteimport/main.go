package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/ticklabel/config"
	"github.com/alejandrodnm/ticklabel/internal/adapters/storage"
)

// usage: quoteimport <quotes.csv>
//
// Añade quotes al topic de entrada del stream configurado (LABELER_CONFIG).
func main() {
	if len(os.Args) != 2 {
		slog.Error("invalid arguments", "usage", "quoteimport <quotes.csv>")
		os.Exit(2)
	}
	path := os.Args[1]

	configPath := os.Getenv("LABELER_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", configPath)
		os.Exit(1)
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

	n, err := importQuotes(ctx, series, cfg.Stream.Topic, path)
	if err != nil {
		slog.Error("import failed", "err", err, "file", path, "imported", n)
		os.Exit(1)
	}
	slog.Info("quotes imported", "count", n, "topic", cfg.Stream.Topic, "dsn", cfg.Stream.DSN)
}
