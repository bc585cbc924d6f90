// Command ingest loads customer and loan sheets from local files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"credit-line-service/internal/config"
	"credit-line-service/internal/services/database"
	"credit-line-service/internal/services/ingest"
	"credit-line-service/internal/utils"
)

func main() {
	customers := flag.String("customers", "customer_data.xlsx", "customer sheet (.csv or .xlsx)")
	loans := flag.String("loans", "loan_data.xlsx", "loan sheet (.csv or .xlsx)")
	migrate := flag.Bool("migrate", true, "apply migrations before loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := utils.InitLoggerForStage(cfg.LogLevel, cfg.Stage); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx := context.Background()

	if *migrate {
		if err := database.Migrate(ctx, cfg.DatabaseURL()); err != nil {
			logger.Fatal("Failed to run migrations", utils.Error(err))
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", utils.Error(err))
	}
	defer db.Close()

	result, err := ingest.NewService(database.NewLedger(db)).IngestFiles(ctx, *customers, *loans)
	if err != nil {
		logger.Fatal("Ingest failed", utils.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
