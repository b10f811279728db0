// Package main runs the playtest feedback HTTP server with graceful shutdown.
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

	"github.com/airlog/backend/config"
	"github.com/airlog/backend/internal/join"
	"github.com/airlog/backend/internal/middleware"
	"github.com/airlog/backend/internal/notes"
	"github.com/airlog/backend/internal/notifications"
	"github.com/airlog/backend/internal/pollresponses"
	"github.com/airlog/backend/internal/scenes"
	"github.com/airlog/backend/internal/sessions"
	"github.com/airlog/backend/internal/testers"
	"github.com/airlog/backend/internal/worker"
	"github.com/airlog/backend/pkg/database"
	"github.com/airlog/backend/pkg/queue"
	"github.com/airlog/backend/pkg/redis"
	"github.com/airlog/backend/pkg/response"
	"github.com/airlog/backend/pkg/storage"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			NotesBucket:          cfg.AWS.NotesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Sessions, scenes
	sessionRepo := sessions.NewRepository(pool)
	sceneRepo := scenes.NewRepository(pool)
	sceneHandler := scenes.NewHandler(sceneRepo, logger)

	// Testers
	testerRepo := testers.NewRepository(pool)
	testerHandler := testers.NewHandler(testerRepo, logger)

	// Notes (S3-backed audio attachments when configured)
	noteRepo := notes.NewRepository(pool)
	noteHandler := notes.NewHandler(noteRepo, s3Client, logger)

	sessionHandler := sessions.NewHandler(sessionRepo, sceneRepo, testerRepo, noteRepo, jobQueue, logger)

	// Poll responses
	pollRepo := pollresponses.NewRepository(pool)
	pollHandler := pollresponses.NewHandler(pollRepo, sceneRepo, logger)

	// Notifications (written by the worker)
	notifRepo := notifications.NewRepository(pool)
	notifHandler := notifications.NewHandler(notifRepo, logger)

	// Join (tester-facing poll endpoint)
	joinHandler := join.NewHandler(testerRepo, sessionRepo, pollRepo, logger)

	notifProcessor := worker.NewNotificationProcessor(sessionRepo, testerRepo, notifRepo, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		// Tester-facing: resolve a join token to the session snapshot.
		api.GET("/join/:token", joinHandler.Get)

		// Sessions
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/:id", sessionHandler.GetByID)
		api.PATCH("/sessions/:id", sessionHandler.Update)
		api.DELETE("/sessions/:id", sessionHandler.Delete)

		// Scenes
		api.POST("/sessions/:id/scenes", sceneHandler.Create)
		api.PATCH("/sessions/:id/scenes", sceneHandler.Update)
		api.DELETE("/sessions/:id/scenes", sceneHandler.Delete)
		api.POST("/sessions/:id/scenes/:sceneId/questions", sceneHandler.CreateQuestion)

		// Testers
		api.POST("/sessions/:id/testers", testerHandler.Create)
		api.GET("/sessions/:id/testers", testerHandler.List)
		api.PATCH("/sessions/:id/testers/:testerId", testerHandler.Update)
		api.DELETE("/sessions/:id/testers/:testerId", testerHandler.Delete)

		// Poll responses
		api.POST("/sessions/:id/poll-responses", pollHandler.Save)
		api.GET("/sessions/:id/poll-responses", pollHandler.List)

		// Notes
		api.POST("/sessions/:id/notes", noteHandler.Create)
		api.GET("/sessions/:id/notes", noteHandler.List)
		api.PATCH("/sessions/:id/notes/:noteId", noteHandler.Update)
		api.DELETE("/sessions/:id/notes/:noteId", noteHandler.Delete)
		api.POST("/sessions/:id/notes/upload-url", noteHandler.GenerateUploadURL)
		api.POST("/sessions/:id/notes/:noteId/audio", noteHandler.UploadAudio)

		// Notifications
		api.GET("/testers/:testerId/notifications", notifHandler.ListByTester)
		api.POST("/notifications/:id/read", notifHandler.MarkRead)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (session event fan-out to notifications)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go notifProcessor.Run(workerCtx)
	logger.Info("notification worker started")

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
