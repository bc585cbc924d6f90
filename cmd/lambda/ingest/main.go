// Sheet ingest Lambda entry point, triggered by S3 uploads.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"credit-line-service/internal/config"
	"credit-line-service/internal/handlers"
	"credit-line-service/internal/services/database"
	"credit-line-service/internal/services/ingest"
	s3service "credit-line-service/internal/services/s3"
	"credit-line-service/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLoggerForStage(cfg.LogLevel, cfg.Stage)
	defer utils.Sync()

	ctx := context.Background()

	db, err := database.NewFromURL(ctx, cfg.DatabaseURL())
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer db.Close()

	objects, err := s3service.NewService(ctx, cfg.AWSRegion, cfg.S3Bucket)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	ingester := ingest.NewService(database.NewLedger(db))
	handler := handlers.NewSheetIngestHandler(objects, ingester, cfg.IngestCustomerKey, cfg.IngestLoanKey)

	lambda.Start(handler.Handle)
}
