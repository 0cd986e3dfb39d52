package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/app"
	"github.com/ykvlv/water-reminder-bot/internal/config"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
	"github.com/ykvlv/water-reminder-bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; exit immediately.
		// We intentionally ignore write errors to avoid shadowing the real cause.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding, cfg.LogFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Fatal("invalid configuration", zap.String("field", cfgErr.Field), zap.Error(cfgErr.Err))
		}
		log.Fatal("app init failed", zap.Error(err))
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatal("app run failed", zap.Error(err))
	}
}
