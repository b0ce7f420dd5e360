// Package main runs the short-form API server: feed, registration, AI
// callbacks and the owner WebSocket, with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/config"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/app"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/auth"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/callback"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/enrichment"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/middleware"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/realtime"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jwtValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}

	callbackSvc := callback.NewService(callback.NewPgTx(a.Pool, a.Assets, a.Jobs), a.Hub, "", logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins, cfg.Server.CORSMaxAge))
	router.Use(middleware.Logger(logger))

	router.GET("/health", app.Health(a.Checks(), 3*time.Second))

	enrichment.NewHandler(a.Enrichment, logger).Register(router,
		middleware.OptionalJWT(jwtService),
		middleware.InternalToken(cfg.AI.InternalToken),
	)
	callback.NewHandler(callbackSvc, cfg.AI.InternalToken, logger).Register(router)
	router.GET("/ws", realtime.ServeWs(a.Hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("task_backend", cfg.Worker.Backend),
			zap.String("ai_transport", cfg.AI.Transport),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
