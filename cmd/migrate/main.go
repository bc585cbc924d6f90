// Command migrate applies or rolls back the database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"credit-line-service/internal/config"
	"credit-line-service/internal/services/database"
	"credit-line-service/internal/utils"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := utils.InitLoggerForStage(cfg.LogLevel, cfg.Stage); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	url := cfg.DatabaseURL()
	switch flag.Arg(0) {
	case "up":
		err = database.Migrate(ctx, url)
	case "down":
		err = database.MigrateDown(ctx, url, *steps)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = database.MigrationVersion(url)
		if err == nil {
			fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal("Migration failed", utils.String("command", flag.Arg(0)), utils.Error(err))
	}
}
