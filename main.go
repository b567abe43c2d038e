package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/bot"
	"surveybot/internal/config"
	"surveybot/internal/database"
	"surveybot/internal/flow"
	logger "surveybot/internal/logging"
	"surveybot/internal/repository"
	"surveybot/internal/server"
)

func main() {
	// Bootstrap logger so config loading itself can log; replaced below
	// once the configured log directory is known.
	log, err := logger.Init("logs", logger.Rotation{})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg := config.Get()
	logConf := cfg.Logging
	log, err = logger.Init(logConf.Directory, logger.Rotation{
		MaxSize:    logConf.MaxSize,
		MaxBackups: logConf.MaxBackups,
		MaxAge:     logConf.MaxAge,
		Compress:   logConf.Compress,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	db, err := database.Init(log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	repo := repository.New(db)

	// isAdmin reads the live config so the admin list follows hot reloads.
	isAdmin := func(userID int64) bool {
		return config.Get().Telegram.IsAdmin(userID)
	}

	engine := flow.NewEngine(repo, flow.NewStateTable(), isAdmin, flow.Limits{
		MaxQuestions: cfg.Limits.MaxQuestions,
		MaxOptions:   cfg.Limits.MaxOptions,
	}, log)

	b, err := bot.New(cfg.Telegram.Token, engine, repo, isAdmin, cfg.Templates.Directory, log)
	if err != nil {
		log.Fatal("Failed to connect to Telegram", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var updates tgbotapi.UpdatesChannel
	if cfg.Telegram.Mode == "webhook" {
		// Webhook mode: Telegram posts updates to the HTTP server, which
		// feeds the same channel the polling path would.
		queue := make(chan tgbotapi.Update, 128)
		updates = queue

		if url := cfg.Telegram.WebhookURL; url != "" {
			if err := b.RegisterWebhook(url); err != nil {
				log.Fatal("Failed to register webhook", zap.Error(err))
			}
		}

		router := server.Setup(log, cfg.Telegram.Token, queue)
		go func() {
			port := ":" + cfg.Server.Port
			log.Info("Webhook server listening", zap.String("port", port))
			if err := router.Run(port); err != nil {
				log.Fatal("Failed to run webhook server", zap.Error(err))
			}
		}()
	} else {
		updates = b.PollingUpdates()
		log.Info("Receiving updates via long polling")
	}

	b.Run(ctx, updates)
	log.Info("Shutting down")
}
