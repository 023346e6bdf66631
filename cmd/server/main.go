// Package main runs the ULTRON FTP HTTP API with graceful shutdown.
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

	"github.com/ultron-ftp/backend/config"
	"github.com/ultron-ftp/backend/internal/admin"
	"github.com/ultron-ftp/backend/internal/auth"
	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/lifecycle"
	"github.com/ultron-ftp/backend/internal/middleware"
	"github.com/ultron-ftp/backend/internal/payment"
	"github.com/ultron-ftp/backend/internal/profiles"
	"github.com/ultron-ftp/backend/internal/programs"
	"github.com/ultron-ftp/backend/internal/registrations"
	"github.com/ultron-ftp/backend/internal/session"
	"github.com/ultron-ftp/backend/internal/worker"
	"github.com/ultron-ftp/backend/pkg/database"
	"github.com/ultron-ftp/backend/pkg/queue"
	"github.com/ultron-ftp/backend/pkg/redis"
	"github.com/ultron-ftp/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var (
		media storage.MediaUploader
		blobs certificate.BlobStore
		links registrations.CertificateLinker
	)
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
		logger.Warn("s3 disabled, uploads unavailable and certificates rendered on demand", zap.Error(err))
	} else {
		media, blobs, links = s3Client, s3Client, s3Client
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Identity
	userRepo := auth.NewRepository(pool)
	profileRepo := profiles.NewRepository(pool)
	limiter := auth.NewRedisLimiter(rdb.Client, cfg.Registration.MaxLoginFailures, cfg.Registration.LoginLockout)
	authHandler := auth.NewHandler(userRepo, profileRepo, jwtService, limiter, logger)
	bootstrapper := auth.NewBootstrapper(userRepo, profileRepo, logger)
	if cfg.Admin.Email != "" {
		if _, err := bootstrapper.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error("admin bootstrap failed", zap.Error(err))
		}
	}
	loader := session.NewLoader(userRepo, profileRepo)
	profileHandler := profiles.NewHandler(profileRepo, media, logger)

	// Programs
	programRepo := programs.NewRepository(pool)
	catalog := programs.NewCatalog(programRepo, cfg.Catalog.CacheTTL, logger)
	programHandler := programs.NewHandler(programRepo, catalog, media, logger)
	paymentHandler := payment.NewHandler(programRepo,
		payment.NewBuilder(cfg.Payment.PayeeName, cfg.Payment.Currency, cfg.Payment.QRSize), logger)

	// Registrations and certificates
	registrationRepo := registrations.NewRepository(pool)
	renderer := certificate.NewRenderer()
	issuer := certificate.NewIssuer(renderer, blobs, registrationRepo, jobQueue, logger)
	lifecycleSvc := lifecycle.NewService(registrationRepo, programRepo, issuer, lifecycle.Policy{
		AllowDuplicates: cfg.Registration.AllowDuplicates,
		EnforceCapacity: cfg.Registration.EnforceCapacity,
	}, logger)
	registrationHandler := registrations.NewHandler(registrationRepo, programRepo, catalog, lifecycleSvc, renderer, links, logger)

	adminHandler := admin.NewHandler(programRepo, registrationRepo, userRepo, bootstrapper,
		admin.Credentials{Email: cfg.Admin.Email, Password: cfg.Admin.Password}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeoutDuration()))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if !rdb.Healthy(c.Request.Context()) {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.Auth(jwtService, loader, logger))
	{
		manage := programs.RequireManager(programRepo, logger)

		// Profile
		api.GET("/me", profileHandler.Me)
		api.PUT("/me/profile", profileHandler.Update)
		api.POST("/me/profile/photo", profileHandler.UploadPhoto)
		api.GET("/me/registrations", registrationHandler.Mine)
		api.GET("/dashboard", registrationHandler.Dashboard)

		// Catalog
		api.GET("/programs", programHandler.List)
		api.GET("/programs/departments", programHandler.Departments)
		api.GET("/programs/:id", programHandler.Get)
		api.POST("/programs", middleware.RequireProfile(), programHandler.Create)
		api.GET("/programs/:id/payment", paymentHandler.Reference)
		api.GET("/programs/:id/payment/qr.png", paymentHandler.QRCode)
		api.POST("/programs/:id/registrations", registrationHandler.Register)

		// Program management (creator or admin)
		api.PATCH("/programs/:id/status", manage, programHandler.UpdateStatus)
		api.POST("/programs/:id/brochure", manage, programHandler.UploadBrochure)
		api.POST("/programs/:id/gallery", manage, programHandler.UploadGallery)
		api.POST("/programs/:id/report", manage, programHandler.UploadReport)
		api.GET("/programs/:id/registrations", manage, registrationHandler.ListByProgram)
		api.GET("/programs/:id/report.csv", manage, registrationHandler.AttendanceReport)
		api.GET("/programs/:id/stats", manage, registrationHandler.Stats)
		api.POST("/registrations/:id/attendance", registrationHandler.Attendance)

		// Certificates
		api.GET("/registrations/:id/certificate", registrationHandler.Certificate)
		api.GET("/registrations/:id/certificate/preview", registrationHandler.Preview)

		// Admin
		adminGroup := api.Group("/admin", middleware.RequireAdmin())
		adminGroup.GET("/overview", adminHandler.Overview)
		adminGroup.GET("/users", adminHandler.Users)
		adminGroup.GET("/programs", adminHandler.Programs)
		adminGroup.GET("/reports/programs.csv", adminHandler.ProgramsCSV)
		adminGroup.POST("/bootstrap", adminHandler.Bootstrap)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (certificate archive retries)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Server.RunWorker && blobs != nil {
		processor := worker.NewCertificateProcessor(jobQueue, registrationRepo, programRepo, issuer, logger)
		go processor.Run(workerCtx)
		logger.Info("certificate worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
