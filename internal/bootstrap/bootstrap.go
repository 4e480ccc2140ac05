// Package bootstrap wires storage backends and use cases from configuration
// so every binary builds them the same way.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/samirrijal/geoquest/internal/adapters/memory"
	"github.com/samirrijal/geoquest/internal/adapters/postgres"
	"github.com/samirrijal/geoquest/internal/adapters/sqlite"
	"github.com/samirrijal/geoquest/internal/adapters/valkey"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/core/usecases"
	"github.com/samirrijal/geoquest/internal/pkg/config"
)

// Stores holds the configured metadata repository and claim ledger.
type Stores struct {
	Metadata ports.MetadataRepository
	Ledger   ports.ClaimLedger
	// Postgres is set only for the postgres driver; it feeds pool metrics.
	Postgres *postgres.DB

	ping   func(ctx context.Context) error
	closer func()
}

// Ping checks the metadata backend.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases backend connections.
func (s *Stores) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// OpenStores opens the backend named by cfg.Store.Driver. With
// cfg.Ledger.Backend set to "valkey" claims are reserved in cache instead,
// which then must be non-nil.
func OpenStores(ctx context.Context, cfg *config.Config, cache *valkey.Cache) (*Stores, error) {
	s := &Stores{}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.Postgres = db
		s.Metadata = postgres.NewMetadataRepo(db)
		s.Ledger = postgres.NewClaimRepo(db)
		s.ping = db.Ping
		s.closer = db.Close

	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		s.Metadata = sqlite.NewMetadataRepo(db)
		s.Ledger = sqlite.NewClaimRepo(db)
		s.ping = func(ctx context.Context) error { return sqlite.Ping(ctx, db) }
		s.closer = func() { closeGorm(db) }

	case "memory":
		s.Metadata = memory.NewMetadataRepository()
		s.Ledger = memory.NewClaimLedger()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Ledger.Backend {
	case "", "store":
	case "valkey":
		if cache == nil {
			s.Close()
			return nil, fmt.Errorf("ledger backend valkey requires a cache connection")
		}
		s.Ledger = valkey.NewClaimLedger(cache.Client(), "claim:")
	default:
		s.Close()
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	slog.Info("stores opened", "driver", cfg.Store.Driver, "ledger", cfg.Ledger.Backend)
	return s, nil
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Services are the use cases shared by the binaries.
type Services struct {
	Metadata *usecases.MetadataService
	Claims   *usecases.ClaimService
}

// NewServices builds the use cases over s. cache and events may be nil.
func NewServices(cfg *config.Config, s *Stores, cache *valkey.Cache, events ports.EventPublisher) *Services {
	var cs ports.CacheService
	if cache != nil {
		cs = cache
	}
	meta := usecases.NewMetadataService(s.Metadata, cs, cfg.Claims.MetadataCacheTTL)
	claims := usecases.NewClaimService(s.Metadata, meta, s.Ledger, events, usecases.ClaimOptions{
		DefaultRadiusMeters: cfg.Claims.DefaultRadiusMeters,
	})
	return &Services{Metadata: meta, Claims: claims}
}
