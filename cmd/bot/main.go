package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/bot"
	"github.com/Spok95/tool-requests-bot/internal/cache"
	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/config"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/infra/db"
	httpx "github.com/Spok95/tool-requests-bot/internal/infra/http"
	"github.com/Spok95/tool-requests-bot/internal/infra/logger"
	"github.com/Spok95/tool-requests-bot/internal/infra/tracing"
	"github.com/Spok95/tool-requests-bot/internal/notify"
	"github.com/Spok95/tool-requests-bot/internal/review"
	"github.com/Spok95/tool-requests-bot/internal/session"
	"github.com/Spok95/tool-requests-bot/internal/staff"
	"github.com/Spok95/tool-requests-bot/internal/tooladmin"
	"github.com/Spok95/tool-requests-bot/migrations"
)

func runMigrations(dsn string) error {
	goose.SetBaseFS(migrations.FS)
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, ".")
}

// purgeDialogs drops dialogs that outlived the session lifetime.
func purgeDialogs(ctx context.Context, repo *dialog.Repo, ttl time.Duration, log *slog.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.Purge(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn("dialog purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("stale dialogs purged", "count", n)
			}
		}
	}
}

func main() {
	cfgPath := flag.String("config", "config/example.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env, cfg.Log.Level)

	if loc, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		log.Warn("unknown timezone, keeping system default", "tz", cfg.App.Timezone, "err", err)
	} else {
		time.Local = loc
	}

	shutdownTracing, err := tracing.Init(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplerRatio: cfg.Tracing.SamplerRatio,
		Environment:  cfg.App.Env,
	})
	if err != nil {
		log.Error("tracing init failed", "err", err)
		os.Exit(1)
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connect failed", "err", err)
		return
	}
	log.Info("redis connected", "addr", cfg.Redis.Addr)

	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	tg.Debug = cfg.Telegram.Debug
	log.Info("telegram authorized", "bot", tg.Self.UserName)

	api := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, log)
	states := dialog.NewRepo(pool)
	toasts := notify.NewQueue(cfg.UI.ToastTTL, bot.NewToastRenderer(tg), log)
	defer toasts.Close()
	requestsSvc := composer.New(api, cache.NewRecent(rdb, cfg.Redis.RecentTTL), log)
	toolsSvc := tooladmin.New(api, cfg.UI.SearchDebounce, log)
	defer toolsSvc.Close()

	b := bot.New(bot.Deps{
		API:       tg,
		Log:       log,
		States:    states,
		Sessions:  session.NewStore(rdb, cfg.Redis.SessionTTL),
		Backend:   api,
		Composer:  requestsSvc,
		Review:    review.New(api, log),
		Tools:     toolsSvc,
		Staff:     staff.New(api),
		Toasts:    toasts,
		AdminChat: cfg.Telegram.AdminChatID,
	})

	ready := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if err := api.Ping(ctx); err != nil {
			return fmt.Errorf("backend: %w", err)
		}
		return nil
	}
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, ready)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	go purgeDialogs(ctx, states, cfg.Redis.SessionTTL, log)

	if err := b.Run(ctx, cfg.Telegram.TimeoutSec); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "err", err)
	}
	tg.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	requestsSvc.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "err", err)
	}
	log.Info("graceful shutdown complete")
}
