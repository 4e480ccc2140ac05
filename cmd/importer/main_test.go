package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samirrijal/geoquest/internal/adapters/memory"
	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/usecases"
)

const manifestJSON = `{
  "source": "jaipur-walk",
  "collection_id": "jaipur",
  "quests": [
    {"title": "Hawa Mahal", "latitude": 26.9239, "longitude": 75.8267, "radius": 200},
    {"title": "Amber Fort", "latitude": 26.9855, "longitude": 75.8513, "radius": 500},
    {"title": "Hawa Mahal again", "latitude": 26.9239, "longitude": 75.8267, "radius": 200},
    {"title": "Bad", "latitude": 95, "longitude": 75.8},
    {"title": "Elsewhere", "collection_id": "delhi", "latitude": 28.6139, "longitude": 77.2090}
  ]
}`

func TestImportQuests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(manifestJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := readManifest(path)
	if err != nil {
		t.Fatal(err)
	}

	repo := memory.NewMetadataRepository()
	svc := usecases.NewMetadataService(repo, nil, 0)

	stats, err := importQuests(context.Background(), svc, m, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Created != 3 || stats.Duplicates != 1 || stats.Invalid != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	_, total, _ := repo.ListByCollection(context.Background(), "jaipur", 0, 10)
	if total != 2 {
		t.Errorf("expected 2 quests in jaipur, got %d", total)
	}
	_, total, _ = repo.ListByCollection(context.Background(), "delhi", 0, 10)
	if total != 1 {
		t.Errorf("expected the explicit collection to be kept, got %d in delhi", total)
	}
}

type failingCreator struct{}

func (failingCreator) Create(ctx context.Context, m *domain.GeoMetadata) error {
	return domain.Unavailable("metadata.create", errors.New("connection reset"))
}

func TestImportQuests_AbortsOnStoreError(t *testing.T) {
	m := &Manifest{Quests: []domain.GeoMetadata{{Title: "a"}, {Title: "b"}}}

	_, err := importQuests(context.Background(), failingCreator{}, m, 1)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestReadManifest_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte("{"), 0o600)
	if _, err := readManifest(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := readManifest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
