package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/todo-app/internal/config"
	"github.com/iliyamo/todo-app/internal/database"
	"github.com/iliyamo/todo-app/internal/live"
	"github.com/iliyamo/todo-app/internal/mailer"
	"github.com/iliyamo/todo-app/internal/media"
	"github.com/iliyamo/todo-app/internal/queue"
	"github.com/iliyamo/todo-app/internal/repository"
	"github.com/iliyamo/todo-app/internal/router"
	"github.com/iliyamo/todo-app/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDriver, database.DSN(cfg))
	if err != nil {
		log.Error("database connection failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable: in-process rate limiting, response cache off", "err", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	mediaCfg := config.LoadMediaConfig()
	uploader, err := media.New(mediaCfg)
	if err != nil {
		log.Error("media uploader setup failed", "err", err)
		os.Exit(1)
	}
	if !mediaCfg.Configured() {
		log.Warn("cloudinary credentials missing: avatar uploads will fail")
	}

	mailCfg := config.LoadMailConfig()
	sender, err := mailer.New(mailCfg)
	if err != nil {
		log.Error("mailer setup failed", "err", err)
		os.Exit(1)
	}
	if mailCfg.Delivery == "queue" {
		go func() {
			h := mailer.Deliver(mailer.NewSMTPSender(mailCfg), log)
			if err := queue.StartMailConsumer(ctx, mailCfg.AMQPURL, mailCfg.Queue, h, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mail consumer stopped", "err", err)
			}
		}()
	}

	hub := live.NewHub(log)
	go hub.Run(ctx)

	users := repository.NewUserRepo(db)
	auth := service.NewAuthService(users, repository.NewTokenRepo(db), uploader, sender, service.AuthConfig{
		AccessKey:  cfg.AccessTokenKey,
		RefreshKey: cfg.RefreshTokenKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		ResetTTL:   cfg.ResetTTL,
		BcryptCost: cfg.BcryptCost,
		AppBaseURL: cfg.AppBaseURL,
	}, log)

	var notify service.TodoNotifier
	if cfg.LiveUpdates {
		notify = hub
	}

	e := router.New(router.Deps{
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
		Auth:      auth,
		Profile:   service.NewProfileService(users, uploader),
		Todos:     service.NewTodoService(repository.NewTodoRepo(db), notify, cfg.TodosEmptyAsNotFound),
		Hub:       hub,
		Redis:     rdb,
		Ping:      db.PingContext,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
}

// newLogger writes JSON in production and text during development.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
