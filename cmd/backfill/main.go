// Package main reconciles short-forms from summary documents in the object
// store and exits with a report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/config"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/app"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	prefix := flag.String("prefix", cfg.Backfill.SummaryPrefix, "summary document prefix to crawl")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Follow-up tasks go to the Redis queue so a running worker picks them up.
	a, err := app.New(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer a.Close(context.Background())

	report, err := a.Crawler.Reconcile(ctx, *prefix)
	if err != nil {
		logger.Fatal("reconcile", zap.Error(err))
	}
	_ = json.NewEncoder(os.Stdout).Encode(report)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
