package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/geoquest/internal/adapters/valkey"
	"github.com/samirrijal/geoquest/internal/bootstrap"
	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/pkg/config"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
)

// Manifest lists quests to load into the metadata store.
type Manifest struct {
	Source       string               `json:"source"`
	CollectionID string               `json:"collection_id"` // default for entries without one
	Quests       []domain.GeoMetadata `json:"quests"`
}

// Stats summarises an import run.
type Stats struct {
	Created    int64
	Duplicates int64
	Invalid    int64
}

// creator is the part of usecases.MetadataService the importer needs.
type creator interface {
	Create(ctx context.Context, m *domain.GeoMetadata) error
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: importer <manifest.json>")
		os.Exit(2)
	}

	cfg, err := config.Load("geoquest-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	manifest, err := readManifest(os.Args[1])
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}

	var cache *valkey.Cache
	if cfg.Ledger.Backend == "valkey" {
		if cache, err = valkey.New(cfg.Valkey.Addr); err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer cache.Close()
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, cache)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	svc := bootstrap.NewServices(cfg, stores, cache, nil)

	stats, err := importQuests(ctx, svc.Metadata, manifest, 8)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	slog.Info("import finished",
		"source", manifest.Source,
		"created", stats.Created,
		"duplicates", stats.Duplicates,
		"invalid", stats.Invalid,
	)
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// importQuests creates every quest with at most concurrency in flight.
// Duplicates and invalid entries are counted and skipped; any other error
// aborts the run.
func importQuests(ctx context.Context, svc creator, m *Manifest, concurrency int) (Stats, error) {
	var created, dups, invalid atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range m.Quests {
		q := m.Quests[i]
		if q.CollectionID == "" {
			q.CollectionID = m.CollectionID
		}
		g.Go(func() error {
			err := svc.Create(gctx, &q)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, domain.ErrDuplicateMetadata):
				dups.Add(1)
			case errors.Is(err, domain.ErrInvalidMetadata),
				errors.Is(err, domain.ErrInvalidCoordinate),
				errors.Is(err, domain.ErrInvalidRadius):
				slog.Warn("skipping invalid quest", "title", q.Title, "error", err)
				invalid.Add(1)
			default:
				return fmt.Errorf("create %q: %w", q.Title, err)
			}
			return nil
		})
	}

	err := g.Wait()
	return Stats{Created: created.Load(), Duplicates: dups.Load(), Invalid: invalid.Load()}, err
}
