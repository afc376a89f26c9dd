package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"labdesk/internal/api"
	"labdesk/internal/app/export"
	"labdesk/internal/app/service"
	"labdesk/internal/app/worker"
	"labdesk/internal/common/security"
	"labdesk/internal/domain/repository"
	"labdesk/internal/platform/config"
	"labdesk/internal/platform/database"
	"labdesk/internal/platform/logger"
	"labdesk/internal/platform/queue"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	config.Load()
	log, err := logger.Init(config.AppConfig.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewUserRepository(database.DB, database.ActiveDialect)
	feedbackRepo := repository.NewFeedbackRepository(database.DB, database.ActiveDialect)
	prefRepo := repository.NewPreferenceRepository(database.DB, database.ActiveDialect)
	jobRepo := repository.NewExportJobRepository(database.DB, database.ActiveDialect)

	// 6. Initialize Services
	sessions := service.NewSessionStore(queue.RDB, config.AppConfig.JWTExp)
	counters := service.NewCounterService(queue.RDB)
	authService := service.NewAuthService(userRepo, sessions)
	prefService := service.NewPreferenceService(prefRepo)
	services := api.Services{
		Sessions:    sessions,
		Auth:        authService,
		Users:       service.NewUserService(userRepo, feedbackRepo, sessions, counters, database.DB),
		Feedback:    service.NewFeedbackService(feedbackRepo),
		Counter:     counters,
		Preferences: prefService,
		Exports:     service.NewExportService(jobRepo, prefService, queue.RDB, database.DB),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := authService.EnsureAdmin(ctx, config.AppConfig.AdminName, config.AppConfig.AdminEmail, config.AppConfig.AdminPassword); err != nil {
		log.Fatal("Failed to create bootstrap admin", zap.Error(err))
	}

	// 7. Export worker and HTTP server share one lifecycle
	exportWorker := worker.NewExportWorker(queue.RDB, jobRepo, export.NewExporter(userRepo, feedbackRepo))

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      api.NewRouter(services),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return exportWorker.Start(gctx)
	})
	g.Go(func() error {
		log.Info("Server starting", zap.String("port", config.AppConfig.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server and worker stopped gracefully.")
}
