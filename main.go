package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/facetone/facetone-go/cmd"
	"github.com/facetone/facetone-go/internal/conf"
	"github.com/facetone/facetone-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading settings", "error", err)
	}

	if fileLogger, closeLogger, err := setupFileLogging(settings); err == nil && fileLogger != nil {
		defer func() { _ = closeLogger() }()
	} else if err != nil {
		logging.Warn("file logging disabled", "error", err)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupFileLogging attaches the rotating application log when enabled.
func setupFileLogging(settings *conf.Settings) (*slog.Logger, func() error, error) {
	if !settings.Main.Log.Enabled {
		return nil, nil, nil
	}
	return logging.NewFileLogger(settings.Main.Log.Path, "main", slog.LevelInfo)
}
