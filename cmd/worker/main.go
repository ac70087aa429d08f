// Package main runs the notification worker: queued order events to WhatsApp messages.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/notify"
	"github.com/kariyerai/backend/internal/worker"
	"github.com/kariyerai/backend/pkg/queue"
	"github.com/kariyerai/backend/pkg/redis"
)

// concurrency is the number of processors popping from the queue.
const concurrency = 2

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	wa := notify.NewWhatsApp(cfg.WhatsApp)
	if !wa.Configured() {
		logger.Warn("whatsapp not configured, jobs will fail and end in the DLQ")
	}
	if cfg.WhatsApp.AdminPhone == "" {
		logger.Warn("WHATSAPP_ADMIN_PHONE not set, transfer notices will be skipped")
	}
	processor := worker.NewNotificationProcessor(queue.NewQueue(rdb.Client, logger), wa, cfg.WhatsApp.AdminPhone, logger)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			processor.Run(gctx)
			return nil
		})
	}
	logger.Info("worker started", zap.Int("concurrency", concurrency))
	_ = g.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
