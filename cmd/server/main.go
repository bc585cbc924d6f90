// Package main runs the credit line HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-line-service/internal/config"
	"credit-line-service/internal/handlers"
	"credit-line-service/internal/server"
	"credit-line-service/internal/services/database"
	"credit-line-service/internal/services/ingest"
	"credit-line-service/internal/services/lending"
	"credit-line-service/internal/services/ses"
	"credit-line-service/internal/utils"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLoggerForStage(cfg.LogLevel, cfg.Stage); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, cfg.DatabaseURL()); err != nil {
			logger.Fatal("Failed to run migrations", utils.Error(err))
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", utils.Error(err))
	}
	defer db.Close()

	customers := database.NewCustomerRepository(db)
	loans := database.NewLoanRepository(db)
	ledger := database.NewLedger(db)

	var opts []lending.Option
	if cfg.NotificationsEnabled() {
		notifier, err := ses.NewService(ctx, cfg.AWSRegion, cfg.SESSenderEmail, cfg.SESRecipientEmail)
		if err != nil {
			logger.Warn("Approval emails disabled", utils.Error(err))
		} else {
			opts = append(opts, lending.WithNotifier(notifier))
		}
	}

	lendingSvc := lending.NewService(customers, loans, ledger, lending.Settings{
		LimitMultiplier: cfg.LimitMultiplier,
		LimitRounding:   cfg.LimitRounding,
	}, opts...)

	api := server.New(lendingSvc, ingest.NewService(ledger), handlers.NewHealthHandler(db, cfg.Stage, version))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			utils.String("addr", srv.Addr),
			utils.String("stage", cfg.Stage),
			utils.Bool("notifications", cfg.NotificationsEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", utils.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", utils.Error(err))
	}
}
