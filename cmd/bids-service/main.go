package main

import (
	"fmt"
	"os"

	"github.com/renolink/bids-service/internal/auth"
	"github.com/renolink/bids-service/internal/codegen"
	"github.com/renolink/bids-service/internal/config"
	"github.com/renolink/bids-service/internal/db"
	"github.com/renolink/bids-service/internal/excel"
	httphandler "github.com/renolink/bids-service/internal/http"
	"github.com/renolink/bids-service/internal/http/middleware"
	"github.com/renolink/bids-service/internal/logger"
	"github.com/renolink/bids-service/internal/notify"
	"github.com/renolink/bids-service/internal/repository"
	"github.com/renolink/bids-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	bidRepo := repository.NewBidRepository(database)
	projectRepo := repository.NewProjectRepository(database)
	contractorRepo := repository.NewContractorRepository(database)

	var sender notify.Sender = notify.NoopSender{}
	if cfg.Notify.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	} else {
		log.Warn().Msg("NOTIFY_WEBHOOK_URL not set, notifications are discarded")
	}
	dispatcher := notify.NewDispatcher(sender, log, cfg.Notify.QueueSize, cfg.Notify.Timeout)
	dispatcher.Start()
	defer dispatcher.Close()

	codes := codegen.New(cfg.Bids.CodePrefix)
	registerGenerator := excel.NewGenerator()

	bidService := service.NewBidService(
		bidRepo,
		projectRepo,
		contractorRepo,
		codes,
		dispatcher,
		registerGenerator,
		cfg,
		log,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(bidService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting bids service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
