// Command server runs the forum HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-forum-backend/internal/auth"
	"github.com/tbourn/go-forum-backend/internal/config"
	"github.com/tbourn/go-forum-backend/internal/events"
	httpapi "github.com/tbourn/go-forum-backend/internal/http"
	"github.com/tbourn/go-forum-backend/internal/media"
	"github.com/tbourn/go-forum-backend/internal/observability"
	"github.com/tbourn/go-forum-backend/internal/repo"
	"github.com/tbourn/go-forum-backend/internal/sysutil"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = time.Hour
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title        Forum API
// @version      1.0
// @description  Topics, rooms and threaded messages with session-based accounts.
// @BasePath     /
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	ctx := context.Background()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(repo.Options{
		Driver:      cfg.DB.Driver,
		SQLitePath:  cfg.DB.Path,
		PostgresDSN: cfg.DB.URL,
		Tracing:     cfg.OTEL.Enabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("database handle")
	}

	// Sessions live in Redis when configured, otherwise in the database.
	var (
		store auth.Store = auth.NewGormStore(db)
		rdb   *redis.Client
	)
	if cfg.Session.RedisURL != "" {
		rdb, err = auth.ConnectRedis(ctx, cfg.Session.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		store = auth.NewRedisStore(rdb, "")
		logger.Info().Msg("sessions stored in redis")
	}
	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: cfg.Session.Secret, TTL: cfg.Session.TTL})
	sessions := auth.NewManager(tokens, store)

	var pub events.Publisher = events.NewLogPublisher(logger)
	if cfg.NATS.URL != "" {
		np, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect nats")
		}
		pub = np
		logger.Info().Str("subject", cfg.NATS.Subject).Msg("publishing events to nats")
	}

	mediaStore, err := newMediaStore(cfg.Media, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("media store")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Hasher:   auth.NewPasswordHasher(cfg.Session.BcryptCost),
		Sessions: sessions,
		Events:   pub,
		Media:    mediaStore,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go repo.RunJanitor(janitorCtx, db, janitorInterval, logger)

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", appVersion).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			// Drain requests before closing what they depend on.
			"http": func(ctx context.Context) error {
				err := srv.Shutdown(ctx)
				stopJanitor()
				err = errors.Join(err, pub.Close())
				if rdb != nil {
					err = errors.Join(err, rdb.Close())
				}
				return errors.Join(err, sqlDB.Close())
			},
			"otel": otelShutdown,
		},
	)

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("server stopped")
	os.Exit(exitCode)
}

func newMediaStore(cfg config.MediaConfig, logger zerolog.Logger) (media.Store, error) {
	if cfg.Cloudinary.Enabled() {
		return media.NewCloudinaryStore(media.CloudinaryConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		}, logger)
	}
	return media.NewLocalStore(cfg.Dir, cfg.URLPrefix)
}
