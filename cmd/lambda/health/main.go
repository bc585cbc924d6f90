// Health Check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"credit-line-service/internal/config"
	"credit-line-service/internal/handlers"
	"credit-line-service/internal/services/database"
	"credit-line-service/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLoggerForStage(cfg.LogLevel, cfg.Stage)
	defer utils.Sync()

	// A database outage is reported by the handler, not treated as fatal.
	var pinger handlers.Pinger
	db, err := database.NewFromURL(context.Background(), cfg.DatabaseURL())
	if err != nil {
		utils.GetLogger().Warn("Database unavailable", utils.Error(err))
	} else {
		defer db.Close()
		pinger = db
	}

	handler := handlers.NewHealthHandler(pinger, cfg.Stage, "1.0.0")
	lambda.Start(handler.Handle)
}
