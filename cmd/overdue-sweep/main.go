// Command overdue-sweep flips pending fees past their due date to overdue.
// It is meant to be triggered externally, e.g. from cron.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/service"
	"github.com/noah-isme/campus-ledger/internal/store/open"
	"github.com/noah-isme/campus-ledger/pkg/config"
	"github.com/noah-isme/campus-ledger/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "abort the sweep after this long")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Driver == config.StoreMemory {
		log.Fatalf("overdue-sweep needs a persistent STORE_DRIVER, got %q", cfg.Store.Driver)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ledgerStore, closeStore, err := open.Store(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer closeStore()

	feeSvc := service.NewFeeService(
		repository.NewFeeRepository(ledgerStore),
		repository.NewPaymentRepository(ledgerStore),
		nil,
		logr,
		service.FeeServiceConfig{OverdueSweepRetries: cfg.Ledger.OverdueSweepRetries},
	)

	updated, err := feeSvc.UpdateOverdueFees(ctx)
	if err != nil {
		logr.Error("overdue sweep failed", zap.Error(err))
		closeStore()
		logr.Sync() //nolint:errcheck
		log.Fatalf("overdue sweep failed: %v", err)
	}
	logr.Info("overdue sweep finished", zap.Int("updated", updated))
}
