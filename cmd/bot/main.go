package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"

	"github.com/careerbuddy/careerbuddy-bot/internal/bot"
	"github.com/careerbuddy/careerbuddy-bot/internal/config"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/jobs"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/msglog"
	dompay "github.com/careerbuddy/careerbuddy-bot/internal/domain/payments"
	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
	"github.com/careerbuddy/careerbuddy-bot/internal/engine"
	"github.com/careerbuddy/careerbuddy-bot/internal/entitlement"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/ai"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/db"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/httpx"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/idempotency"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/logger"
	paygw "github.com/careerbuddy/careerbuddy-bot/internal/infra/payments"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/render"
	"github.com/careerbuddy/careerbuddy-bot/internal/infra/storage"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
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

	dedupe, err := idempotency.New(cfg.Redis.Addr, log)
	if err != nil {
		log.Error("redis connect failed", "err", err)
		return
	}
	defer func() { _ = dedupe.Close() }()

	artifacts, err := storage.New(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey,
		cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		log.Error("object storage init failed", "err", err)
		return
	}

	usersRepo := users.NewRepo(pool)
	jobsRepo := jobs.NewRepo(pool)
	msgsRepo := msglog.NewRepo(pool)
	paysRepo := dompay.NewRepo(pool)

	ent := entitlement.New(entitlement.DefaultLimits(), entitlement.NewAdminSet(cfg.Telegram.AdminIDs))
	generator := ai.New(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, time.Duration(cfg.AI.TimeoutSec)*time.Second)
	renderer := render.New(cfg.Renderer.BaseURL, time.Duration(cfg.Renderer.TimeoutSec)*time.Second)
	checkout := paygw.NewService(cfg.Paystack.Secret)

	eng := engine.New(log, engine.Config{
		Users:       usersRepo,
		Jobs:        jobsRepo,
		Messages:    msgsRepo,
		Payments:    paysRepo,
		Entitlement: ent,
		Generator:   generator,
		Renderer:    renderer,
		Artifacts:   artifacts,
		Checkout:    checkout,
		CallbackURL: cfg.HTTP.PublicURL + "/paid",
	})

	webhook := paygw.NewWebhookHandler(log, cfg.Paystack.Secret, paysRepo, eng)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, webhook)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	log.Info("telegram connected", "account", api.Self.UserName)

	tg := bot.New(api, log, eng, dedupe)
	eng.SetNotifier(tg)

	go func() {
		if err := tg.Run(ctx, 30); err != nil && ctx.Err() == nil {
			log.Error("bot loop error", "err", err)
			stop()
		}
	}()
	log.Info("bot started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
