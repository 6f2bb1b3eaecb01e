package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatepass-hq/server/internal/chatbot"
	"github.com/gatepass-hq/server/internal/config"
	"github.com/gatepass-hq/server/internal/db"
	"github.com/gatepass-hq/server/internal/gatepass/codes"
	"github.com/gatepass-hq/server/internal/gatepass/service"
	"github.com/gatepass-hq/server/internal/gatepass/store/sqlite"
	"github.com/gatepass-hq/server/internal/httpapi"
)

func main() {
	logger := log.New(os.Stdout, "gatepass-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	credentialStore := sqlite.NewCredentialStore(conn, writer)
	estateStore := sqlite.NewEstateStore(conn)
	linkStore := sqlite.NewLinkStore(conn, writer)
	gateEventStore := sqlite.NewGateEventStore(conn, writer)

	// Services
	policy := service.NewPolicyEngine(credentialStore, estateStore)
	issuer := service.NewIssueService(policy, credentialStore, codes.Mint)
	credentialSvc := service.NewCredentialService(credentialStore)
	gateSvc := service.NewGateService(credentialStore, estateStore, gateEventStore, logger)
	durations := service.NewDurationOptions(estateStore)

	sweeper := service.NewExpirySweeper(credentialStore, service.SweeperConfig{
		IntervalMinutes: cfg.ExpirySweepMinutes,
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Conversational channel
	var sender chatbot.ReplySender
	if cfg.ChatAPIURL != "" {
		sender = chatbot.NewClient(cfg.ChatAPIURL, cfg.ChatAPIToken, logger)
	} else {
		sender = chatbot.NewLogSender(logger)
	}
	router := chatbot.NewRouter(chatbot.RouterDeps{
		Links:       linkStore,
		Estates:     estateStore,
		Policy:      policy,
		Issuer:      issuer,
		Credentials: credentialSvc,
		Durations:   durations,
		Logger:      logger,
	})
	var webhook http.Handler = chatbot.NewWebhook(router, sender, logger)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      logger,
		Addr:        cfg.HTTPAddr,
		Issuer:      issuer,
		Credentials: credentialSvc,
		Gate:        gateSvc,
		Durations:   durations,
		ChatWebhook: webhook,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
