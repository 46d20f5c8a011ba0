package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/parkozhao/spendscope/internal/api"
	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/logger"
	"github.com/parkozhao/spendscope/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "spendscope.toml", "Path to the TOML config file")
		ledgerPath = flag.String("ledger", "", "Processed ledger CSV (defaults to the config output dir)")
		port       = flag.Int("port", 0, "HTTP port (overrides config)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *ledgerPath == "" {
		*ledgerPath = filepath.Join(cfg.OutputDir, pipeline.ProcessedLedgerName)
	}

	l, err := ledger.ReadCSVFile(*ledgerPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *ledgerPath).Msg("Failed to load processed ledger")
	}
	log.Info().Int("records", l.Len()).Str("path", *ledgerPath).Msg("Ledger loaded")

	server := api.NewServer(cfg.API, log, l)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
