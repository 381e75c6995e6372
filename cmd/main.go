package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drainwatch/backend/internal/api"
	"drainwatch/backend/internal/api/handler"
	"drainwatch/backend/internal/complaint"
	"drainwatch/backend/internal/config"
	"drainwatch/backend/internal/identity"
	"drainwatch/backend/internal/logger"
	"drainwatch/backend/internal/ratelimit"
	"drainwatch/backend/internal/session"
	"drainwatch/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// setupDependencies connects the configured backends. Any failure here is
// fatal: the service does not start in a degraded mode.
func setupDependencies(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.Storage, session.Store, ratelimit.Limiter, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return storage.NewMemory(), session.NewMemoryStore(), ratelimit.NewInMemory(cfg.LoginRateWindow), func() {}
	}

	db, err := storage.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb, err := storage.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect Redis")
	}

	log.Info().Msg("database and redis connections established, migrations complete")
	cleanup := func() {
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return storage.NewStorageService(db), session.NewRedisStore(rdb), ratelimit.NewRedis(rdb, cfg.LoginRateWindow), cleanup
}

// newServer builds the services and the HTTP server on top of the connected backends.
func newServer(cfg config.Config, log zerolog.Logger, store storage.Storage, sessionStore session.Store, limiter ratelimit.Limiter) *http.Server {
	sessions := session.NewManager(sessionStore, cfg.Secret(), cfg.SessionTTL)
	ids := identity.NewService(store, sessions,
		identity.WithLoginLimiter(limiter, cfg.LoginRateLimit),
		identity.WithLogger(log.With().Str("component", "identity").Logger()),
	)
	complaints := complaint.NewService(store,
		complaint.WithLogger(log.With().Str("component", "complaint").Logger()),
	)

	h := handler.NewHandler(ids, complaints, log, cfg.CookieSecure)
	return &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        api.NewRouter(h, log, cfg.CORSOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("prod")
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Env)
	log.Info().Str("driver", cfg.StorageDriver).Msg("starting drainwatch backend")

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sessionStore, limiter, cleanup := setupDependencies(ctx, cfg, log)
	defer cleanup()

	server := newServer(cfg, log, store, sessionStore, limiter)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
