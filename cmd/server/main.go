// Package main runs the live session HTTP server with WebSocket and graceful shutdown.
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

	"github.com/aura-learn/backend/config"
	"github.com/aura-learn/backend/internal/auth"
	"github.com/aura-learn/backend/internal/chat"
	"github.com/aura-learn/backend/internal/live"
	"github.com/aura-learn/backend/internal/livesessions"
	"github.com/aura-learn/backend/internal/mediakey"
	"github.com/aura-learn/backend/internal/middleware"
	"github.com/aura-learn/backend/internal/questions"
	"github.com/aura-learn/backend/internal/realtime"
	"github.com/aura-learn/backend/internal/sessionlog"
	"github.com/aura-learn/backend/internal/streams"
	"github.com/aura-learn/backend/pkg/database"
	"github.com/aura-learn/backend/pkg/queue"
	"github.com/aura-learn/backend/pkg/redis"
	"github.com/aura-learn/backend/pkg/response"
	"github.com/aura-learn/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
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

	var presigner livesessions.Presigner
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			TranscriptsBucket:    cfg.AWS.TranscriptsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			presigner = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)

	// Optional cross-instance mirror of every frame on live:<session id>
	var mirror realtime.Mirror
	if cfg.Redis.MirrorEvents {
		redisMirror := realtime.NewRedisMirror(rdb, logger)
		defer redisMirror.Close()
		mirror = redisMirror
	}
	hub := realtime.NewHub(logger, mirror)

	// Engine: write-behind to Postgres, transcripts archived by the worker
	streamRepo := streams.NewRepository(pool)
	store := live.NewStore(
		streamRepo,
		sessionlog.NewRepository(pool),
		chat.NewRepository(pool),
		questions.NewRepository(pool),
	)
	jobQueue := queue.NewQueue(rdb, logger)
	engine := live.NewEngine(live.Options{
		Store:           store,
		Broadcaster:     hub,
		Archiver:        jobQueue,
		Logger:          logger,
		DefaultCapacity: cfg.Live.DefaultCapacity,
		PersistWorkers:  cfg.Live.PersistWorkers,
		PersistQueue:    cfg.Live.PersistQueue,
		ReconnectGrace:  cfg.Live.ReconnectGrace,
	})
	if err := engine.Warm(ctx); err != nil {
		logger.Fatal("warm live sessions", zap.Error(err))
	}

	sessionHandler := livesessions.NewHandler(engine, mediakey.NewIssuer(cfg.Media.RTMPBaseURL), streamRepo, presigner, logger)
	chatHandler := chat.NewHandler(engine)
	questionHandler := questions.NewHandler(engine)

	wsConfig := realtime.Config{
		SendBuffer:    cfg.Live.SendBuffer,
		IdleTimeout:   cfg.Live.IdleTimeout,
		PingInterval:  cfg.Live.PingInterval,
		WriteTimeout:  cfg.Live.WriteTimeout,
		MaxFrameBytes: cfg.Live.MaxFrameBytes,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// RTMP ingest callback (no JWT; the stream key is the credential)
	router.POST("/media/on_publish", sessionHandler.OnPublish)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Sessions
		api.GET("/live-sessions", sessionHandler.List)
		api.POST("/live-sessions", middleware.RequireRole(auth.RoleInstructor, auth.RoleAdmin), sessionHandler.Create)
		api.GET("/live-sessions/:id", sessionHandler.Get)
		api.PATCH("/live-sessions/:id", sessionHandler.Update)
		api.POST("/live-sessions/:id/start", sessionHandler.Start)
		api.POST("/live-sessions/:id/stop", sessionHandler.Stop)
		api.POST("/live-sessions/:id/cancel", sessionHandler.Cancel)
		api.POST("/live-sessions/:id/stream-key", sessionHandler.RotateKey)
		api.GET("/live-sessions/:id/stats", sessionHandler.Stats)
		api.GET("/live-sessions/:id/transcript", sessionHandler.Transcript)

		// Participation
		api.POST("/live-sessions/:id/join", sessionHandler.Join)
		api.POST("/live-sessions/:id/leave", sessionHandler.Leave)
		api.GET("/live-sessions/:id/participants", sessionHandler.Participants)
		api.PATCH("/live-sessions/:id/participants/:userId", sessionHandler.SetPermissions)

		// Chat
		api.POST("/live-sessions/:id/chat", chatHandler.Post)
		api.GET("/live-sessions/:id/chat", chatHandler.List)
		api.PATCH("/live-sessions/:id/chat/:seq", chatHandler.SetVisibility)

		// Questions
		api.POST("/live-sessions/:id/questions", questionHandler.Ask)
		api.GET("/live-sessions/:id/questions", questionHandler.List)
		api.POST("/live-sessions/:id/questions/:questionId/upvote", questionHandler.Upvote)
		api.POST("/live-sessions/:id/questions/:questionId/answer", questionHandler.Answer)
		api.PATCH("/live-sessions/:id/questions/:questionId", questionHandler.SetVisibility)
	}

	// WebSocket (token in query or Authorization header)
	router.GET("/ws/live/:id", realtime.ServeWs(hub, engine, jwtService.Subject, wsConfig, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background janitor (evicts idle finished rooms)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go engine.RunJanitor(janitorCtx, cfg.Live.JanitorInterval)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	janitorCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	engine.Close()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
