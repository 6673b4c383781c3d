// Command calabi watches the GitHub status feed and, the moment an incident
// is reported, bets on the matching Manifold markets for today.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/calabi/internal/app"
	"github.com/alanyoungcy/calabi/internal/config"
	"github.com/alanyoungcy/calabi/internal/crypto"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	encryptKeyOut := flag.String("encrypt-key", "", "encrypt MANIFOLD_API_KEY with CALABI_MANIFOLD_KEY_PASSWORD into this file and exit")
	flag.Parse()

	// Bootstrap logger until the config is loaded.
	logger := newLogger(os.Getenv("LOG_JSON") == "true", slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogJSON, parseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if *encryptKeyOut != "" {
		if err := encryptKey(cfg, *encryptKeyOut); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt key: %v\n", err)
			os.Exit(1)
		}
		logger.Info("encrypted API key written", slog.String("path", *encryptKeyOut))
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("calabi starting",
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = application.Run(ctx)
	application.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("calabi stopped")
}

func newLogger(jsonOutput bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func encryptKey(cfg *config.Config, out string) error {
	if cfg.Manifold.APIKey == "" {
		return errors.New("MANIFOLD_API_KEY is not set")
	}
	if cfg.Manifold.KeyPassword == "" {
		return errors.New("CALABI_MANIFOLD_KEY_PASSWORD is not set")
	}
	blob, err := crypto.EncryptKey(cfg.Manifold.APIKey, cfg.Manifold.KeyPassword)
	if err != nil {
		return err
	}
	return os.WriteFile(out, blob, 0o600)
}
