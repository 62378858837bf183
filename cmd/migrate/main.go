package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rrens/energy-agent/internal/config"
	"github.com/Rrens/energy-agent/internal/logger"
	"github.com/Rrens/energy-agent/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := logger.Setup(cfg.Logging, cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	abs, err := filepath.Abs(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Invalid migrations directory")
	}
	source := "file://" + filepath.ToSlash(abs)

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("source", source).
		Msg("Connecting to database")

	if *down > 0 {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), source, *down)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), source)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
