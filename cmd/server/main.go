package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dfryer1193/blogapi/blog/application"
	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/blog/events"
	"github.com/dfryer1193/blogapi/blog/persistence"
	"github.com/dfryer1193/blogapi/internal/config"
	"github.com/dfryer1193/blogapi/internal/logger"
	"github.com/dfryer1193/blogapi/internal/rest"
	"github.com/dfryer1193/blogapi/shared/db/sqlite"
	gh "github.com/dfryer1193/blogapi/shared/github"
	webhookhttp "github.com/dfryer1193/blogapi/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := newPostStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("Failed to open post store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Failed to close post store")
		}
	}()

	pubSub := events.NewGoChannel(events.NewZerologAdapter(log.With().Str("component", "events").Logger()))
	defer pubSub.Close()

	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	audit, err := events.NewAuditLog(auditCtx, pubSub, log.With().Str("component", "audit").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start post audit log")
	}
	go func() {
		if err := audit.Run(auditCtx); err != nil {
			log.Error().Err(err).Msg("Post audit log stopped")
		}
	}()

	postService := application.NewPostService(
		store,
		application.NewMarkdownRenderer(cfg.BaseURL),
		application.WritePolicy{WritesEnabled: cfg.WritesEnabled},
		events.NewPublisher(pubSub),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, chimiddleware.RealIP)

	engine := rest.NewEngine(postService)
	r.Handle("/posts", engine)
	r.Handle("/posts/*", engine)
	r.Handle("/healthz", engine)

	if cfg.WebhookEnabled() {
		ghClient := gh.NewClient(nil, cfg.GithubToken)
		sourceRepo := gh.NewGithubSourceRepository(ghClient, cfg.GithubOwner, cfg.GithubRepo)

		syncService := application.NewSyncService(postService, sourceRepo, cfg.GithubBranch)
		defer func() {
			if err := syncService.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to gracefully close sync service")
			}
		}()

		webhookhttp.NewWebhookHandler(cfg.WebhookSecret, syncService).RegisterRoutes(r)
		log.Info().Str("repo", sourceRepo.GetRepoFullName()).Str("branch", cfg.GithubBranch).Msg("Git webhook enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store).
			Bool("writesEnabled", cfg.WritesEnabled).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}

func newPostStore(cfg *config.Config) (domain.PostStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		return persistence.NewMemoryPostStore(cfg.PageSize), noop, nil
	case config.StoreSQLite:
		sqlDB := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.SQLitePath})
		if err := sqlDB.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		return persistence.NewPostRepository(sqlDB.DB(), cfg.PageSize), sqlDB.Close, nil
	default:
		return persistence.NopPostStore{}, noop, nil
	}
}
