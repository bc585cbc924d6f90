// Presigned upload URL Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"credit-line-service/internal/config"
	"credit-line-service/internal/handlers"
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

	signer, err := s3service.NewService(context.Background(), cfg.AWSRegion, cfg.S3Bucket)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	handler := handlers.NewPresignedURLHandler(signer, cfg.IngestCustomerKey, cfg.IngestLoanKey)
	lambda.Start(handler.Handle)
}
