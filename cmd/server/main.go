// Package main runs the KariyerAI HTTP API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/ai"
	"github.com/kariyerai/backend/internal/auth"
	"github.com/kariyerai/backend/internal/chat"
	"github.com/kariyerai/backend/internal/consent"
	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/cvchat"
	"github.com/kariyerai/backend/internal/cvs"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/joblistings"
	"github.com/kariyerai/backend/internal/matching"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/orders"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/internal/users"
	"github.com/kariyerai/backend/pkg/database"
	"github.com/kariyerai/backend/pkg/queue"
	"github.com/kariyerai/backend/pkg/redis"
	"github.com/kariyerai/backend/pkg/response"
	"github.com/kariyerai/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var files cvs.FileStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			CVBucket:             cfg.AWS.CVBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			files = s3Client
		}
	}

	aiClient := ai.New(cfg.AI)
	if cfg.AI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, AI features will return 502")
	}
	jobQueue := queue.NewQueue(rdb.Client, logger)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Audit
	auditRepo := adminlog.NewRepository(pool)
	audit := adminlog.NewRecorder(auditRepo, logger)
	auditHandler := adminlog.NewHandler(auditRepo, audit, logger)

	// Metering
	ents := entitlements.NewPostgresStore(pool)
	meter := entitlements.NewMeter(ents, logger)

	authHandler := auth.NewHandler(auth.NewRepository(pool), jwtService, audit, logger)
	userHandler := users.NewHandler(users.NewRepository(pool), ents, audit, logger)

	// Billing
	couponRepo := coupons.NewRepository(pool)
	resolver := coupons.NewResolver(couponRepo)
	couponHandler := coupons.NewHandler(couponRepo, resolver, audit, logger)
	orderSvc := orders.NewService(orders.NewRepository(pool), resolver, jobQueue, cfg.Billing, logger)
	orderHandler := orders.NewHandler(orderSvc, audit, logger)

	chatHandler := chat.NewHandler(chat.NewService(chat.NewRepository(pool), logger), logger)
	consentHandler := consent.NewHandler(consent.NewRepository(pool), cfg.Consent.TTLDays, logger)

	// CVs, jobs and matching
	jobRepo := joblistings.NewRepository(pool)
	jobHandler := joblistings.NewHandler(jobRepo, audit, logger)
	cvRepo := cvs.NewRepository(pool)
	cvHandler := cvs.NewHandler(cvs.NewService(cvRepo, ents, meter, aiClient, files, cfg.Metering.CVImportCost, logger), logger)
	matchSvc := matching.NewService(matching.NewRepository(pool), cvRepo, jobRepo, meter, aiClient, cfg.Metering.JobMatchCost, logger)
	matchHandler := matching.NewHandler(matchSvc, logger)
	sessions := cvchat.NewRedisSessions(rdb.Client, time.Duration(cfg.Metering.CVChatSessionTTLHour)*time.Hour)
	cvChatHandler := cvchat.NewHandler(cvchat.NewService(sessions, ents, meter, aiClient, cfg.Metering, logger), logger)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("")
	public.Use(limiter.Middleware())
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
		public.GET("/plans", func(c *gin.Context) { response.OK(c, plans.All()) })
		public.GET("/jobs", jobHandler.List)
		public.GET("/jobs/:id", jobHandler.Get)
		public.GET("/api/cookie-consent", consentHandler.Get)
		public.POST("/api/cookie-consent", consentHandler.Save)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService), limiter.Middleware())
	{
		api.GET("/me", userHandler.Me)

		api.POST("/coupons/validate", couponHandler.Validate)
		api.POST("/orders", orderHandler.Create)
		api.GET("/orders", orderHandler.Mine)

		api.GET("/cvs", cvHandler.List)
		api.POST("/cvs", cvHandler.Create)
		api.POST("/cvs/import", cvHandler.Import)
		api.GET("/cvs/:id", cvHandler.Get)
		api.PUT("/cvs/:id", cvHandler.Update)
		api.DELETE("/cvs/:id", cvHandler.Delete)
		api.GET("/cvs/:id/file", cvHandler.File)
		api.POST("/cvs/:id/matches", matchHandler.Create)
		api.GET("/cvs/:id/matches", matchHandler.List)

		api.POST("/cv-chat/sessions", cvChatHandler.Start)
		api.GET("/cv-chat/sessions/:id", cvChatHandler.Get)
		api.POST("/cv-chat/sessions/:id/messages", cvChatHandler.Send)

		api.POST("/chat/rooms", chatHandler.Open)
		api.GET("/chat/rooms", chatHandler.Rooms)
		api.GET("/chat/rooms/:id/messages", chatHandler.Messages)
		api.POST("/chat/rooms/:id/messages", chatHandler.Send)
		api.POST("/chat/rooms/:id/close", chatHandler.Close)
		api.POST("/chat/rooms/:id/restart", chatHandler.Restart)
		api.POST("/chat/rooms/:id/rating", chatHandler.Rate)
		api.POST("/chat/rooms/:id/read", chatHandler.MarkRead)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.PATCH("/users/:id", userHandler.Update)

		admin.GET("/jobs", jobHandler.AdminList)
		admin.POST("/jobs", jobHandler.Create)
		admin.PUT("/jobs/:id", jobHandler.Update)
		admin.DELETE("/jobs/:id", jobHandler.Delete)

		admin.GET("/coupons", couponHandler.List)
		admin.POST("/coupons", couponHandler.Create)
		admin.PUT("/coupons/:id", couponHandler.Update)
		admin.PATCH("/coupons/:id/toggle", couponHandler.Toggle)
		admin.DELETE("/coupons/:id", couponHandler.Delete)

		admin.GET("/orders", orderHandler.List)
		admin.POST("/orders/:id/approve", orderHandler.Approve)
		admin.POST("/orders/:id/reject", orderHandler.Reject)

		admin.GET("/logs", auditHandler.List)
		admin.DELETE("/logs", auditHandler.Purge)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		stop()
		os.Exit(1)
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
