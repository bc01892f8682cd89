// Package storage opens the configured label store backend and exposes it
// through the persistence contracts of the cluster use case.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/config"
	"github.com/kailas-cloud/labeldesk/internal/db"
	dbredis "github.com/kailas-cloud/labeldesk/internal/db/redis"
	"github.com/kailas-cloud/labeldesk/internal/db/sqldb"
	"github.com/kailas-cloud/labeldesk/internal/repository/account"
	"github.com/kailas-cloud/labeldesk/internal/repository/sqlaccount"
	clusteruc "github.com/kailas-cloud/labeldesk/internal/usecase/cluster"
)

// Repository is the full persistence surface of one backend.
type Repository interface {
	clusteruc.Gateway
	clusteruc.Importer
}

// Backend is an opened label store.
type Backend struct {
	Repo   Repository
	pinger db.Pinger
	close  func()
}

// Ping checks connectivity of the underlying store.
func (b *Backend) Ping(ctx context.Context) error {
	return b.pinger.Ping(ctx)
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the driver named in cfg and waits until it answers.
func Open(ctx context.Context, cfg config.DatabaseConfig, keyPrefix string, logger *zap.Logger) (*Backend, error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
		return &Backend{Repo: account.New(store, keyPrefix), pinger: store, close: store.Close}, nil

	case config.DriverPostgres, config.DriverSQLite:
		d, err := sqldb.Open(ctx, sqldb.Config{Dialect: sqldb.Dialect(cfg.Driver), DSN: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		if err := d.WaitForReady(ctx, readiness); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Driver))
		return &Backend{Repo: sqlaccount.New(d), pinger: d, close: func() { _ = d.Close() }}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
