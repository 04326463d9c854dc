// Package open selects and connects the configured ledger store backend.
package open

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/store"
	"github.com/noah-isme/campus-ledger/internal/store/memory"
	mongostore "github.com/noah-isme/campus-ledger/internal/store/mongo"
	pgstore "github.com/noah-isme/campus-ledger/internal/store/postgres"
	"github.com/noah-isme/campus-ledger/pkg/config"
	"github.com/noah-isme/campus-ledger/pkg/database"
	"github.com/noah-isme/campus-ledger/pkg/mongodb"
)

// Store connects the backend named by cfg.Store.Driver and runs its
// migrations. The returned close func releases the connection.
func Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory ledger store, data is lost on restart")
		return memory.New(), func() {}, nil

	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := pgstore.New(db)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return s, func() {
			if err := db.Close(); err != nil {
				logger.Warn("close postgres", zap.Error(err))
			}
		}, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		s := mongostore.New(client, cfg.Mongo.Database)
		if err := s.Migrate(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("migrate mongo: %w", err)
		}
		return s, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("disconnect mongo", zap.Error(err))
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
