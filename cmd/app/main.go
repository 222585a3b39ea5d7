package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/internal/di"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("admissions-api: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("admissions-api", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Printf("starting env=%s backend=%s port=%d", cfg.Environment, cfg.Data.Backend, cfg.Server.Port)
	if cfg.Ingest.Enabled {
		log.Printf("kafka intake: brokers=%v topic=%s", cfg.Ingest.Kafka.Brokers, cfg.Ingest.Kafka.Topic)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Blocks until SIGINT or SIGTERM.
	return app.Run()
}
