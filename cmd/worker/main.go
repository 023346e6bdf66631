// Package main runs the background certificate archive worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ultron-ftp/backend/config"
	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/programs"
	"github.com/ultron-ftp/backend/internal/registrations"
	"github.com/ultron-ftp/backend/internal/worker"
	"github.com/ultron-ftp/backend/pkg/database"
	"github.com/ultron-ftp/backend/pkg/queue"
	"github.com/ultron-ftp/backend/pkg/redis"
	"github.com/ultron-ftp/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		Endpoint:             cfg.AWS.Endpoint,
		MediaBucket:          cfg.AWS.MediaBucket,
		CertificatesBucket:   cfg.AWS.CertificatesBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	registrationRepo := registrations.NewRepository(pool)
	programRepo := programs.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	// No retry queue here: the processor re-enqueues failed jobs itself.
	issuer := certificate.NewIssuer(nil, s3Client, registrationRepo, nil, logger)
	processor := worker.NewCertificateProcessor(jobQueue, registrationRepo, programRepo, issuer, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
