package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	subhandler "github.com/webstoer2020/Subscription-bot/internal/api/handlers/subscriber"
	"github.com/webstoer2020/Subscription-bot/internal/api/router"
	"github.com/webstoer2020/Subscription-bot/internal/api/server"
	"github.com/webstoer2020/Subscription-bot/internal/clock"
	"github.com/webstoer2020/Subscription-bot/internal/config"
	"github.com/webstoer2020/Subscription-bot/internal/database"
	tggateway "github.com/webstoer2020/Subscription-bot/internal/gateway/telegram"
	reminderrepo "github.com/webstoer2020/Subscription-bot/internal/repository/reminder"
	subrepo "github.com/webstoer2020/Subscription-bot/internal/repository/subscriber"
	"github.com/webstoer2020/Subscription-bot/internal/scheduler"
	subsvc "github.com/webstoer2020/Subscription-bot/internal/service/subscription"
	"github.com/webstoer2020/Subscription-bot/pkg/email"
	"github.com/webstoer2020/Subscription-bot/pkg/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	if cfg.Telegram.Token == "" {
		zlog.Logger.Fatal().Msg("telegram token is not set")
	}
	if cfg.Telegram.ChannelID == 0 {
		zlog.Logger.Fatal().Msg("telegram channel id is not set")
	}
	if cfg.API.AdminToken == "" {
		zlog.Logger.Warn().Msg("admin token is empty, API auth is disabled")
	}

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load timezone")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := database.Open(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
	}

	emailClient := email.NewClient(
		cfg.Email.SMTPHost,
		smtpPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
	)
	telegramClient := telegram.NewClient(cfg.Telegram.Token)

	channelID := strconv.FormatInt(cfg.Telegram.ChannelID, 10)
	gateway := tggateway.NewGateway(telegramClient, channelID, cfg.Retry)

	subscribers := subrepo.NewRepository(db)
	reminders := reminderrepo.NewRepository(db)

	notifiers := map[string]subsvc.Notifier{
		"email":    emailClient,
		"telegram": telegramClient,
	}

	service := subsvc.NewService(subscribers, reminders, gateway, notifiers, rdb, clk)
	jobs := scheduler.NewJobs(service, reminders, gateway, telegramClient, clk, cfg.Retry)

	sched := scheduler.New(jobs, clk, scheduler.Config{
		NotifySpec: cfg.Schedule.NotifySpec,
		ExpireSpec: cfg.Schedule.ExpireSpec,
	})
	if err := sched.Start(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	handler := subhandler.NewHandler(service, jobs, val, cfg)

	r := router.New(handler, cfg.API.AdminToken)
	s := server.New(":"+cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let an in-flight sweep finish before closing the database.
	<-sched.Stop().Done()

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}
}
