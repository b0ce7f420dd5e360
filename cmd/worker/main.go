// Package main runs the background enrichment worker that drains the Redis
// task queue (thumbnails, AI dispatch, tag sync).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/config"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/app"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/worker"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	a, err := app.New(context.Background(), cfg, logger, false)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer a.Close(context.Background())

	consumer := worker.NewConsumer(a.Queue, a.Processor, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
