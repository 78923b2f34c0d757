package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"taxflow/internal/config"
	"taxflow/internal/logging"
	"taxflow/internal/server"
	"taxflow/internal/service"
	"taxflow/internal/wallet"
	"taxflow/internal/xrpl"
)

func main() {
	// Wallet credentials live in .env; absence is fine when the
	// environment is configured directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	client, err := xrpl.NewHTTPClient(xrpl.Options{
		URL:     cfg.Ledger.URL,
		Timeout: cfg.Ledger.RequestTimeout,
	})
	if err != nil {
		logger.Error("failed to create ledger client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing ledger client failed", "error", err)
		}
	}()

	registry, err := wallet.NewRegistry(cfg.Wallets)
	if err != nil {
		logger.Error("failed to build wallet registry", "error", err)
		os.Exit(1)
	}
	logger.Info("wallet registry loaded", "parties", len(registry.Parties()), "ledger", cfg.Ledger.URL)

	taxService := service.NewTaxService(registry, client, logger, service.Options{
		TxFetchLimit: cfg.Ledger.TxFetchLimit,
		FetchWorkers: cfg.Ledger.FetchWorkers,
		PartyTimeout: cfg.Ledger.PartyTimeout,
	})

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:         server.LedgerHealthService{Client: client},
		API:            server.NewAPIHandlers(logger, taxService),
		AllowedOrigins: parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(csv, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
