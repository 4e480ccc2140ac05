//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	handler "github.com/samirrijal/geoquest/internal/adapters/http"
	"github.com/samirrijal/geoquest/internal/adapters/postgres"
	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/usecases"
	"github.com/samirrijal/geoquest/internal/pkg/config"
)

// setupTestDB connects to the test database. The schema must already be
// migrated (go run ./cmd/migrate up).
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("geoquest-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 10)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// setupTestDeps wires real repositories with no cache.
func setupTestDeps(db *postgres.DB) *handler.Dependencies {
	repo := postgres.NewMetadataRepo(db)
	meta := usecases.NewMetadataService(repo, nil, 0)
	return &handler.Dependencies{
		Claims:      usecases.NewClaimService(repo, meta, postgres.NewClaimRepo(db), nil, usecases.ClaimOptions{DefaultRadiusMeters: 15000}),
		Metadata:    meta,
		DB:          db,
		AdminAPIKey: adminKey,
	}
}

// seedQuest inserts a uniquely-keyed quest near Jaipur and returns its ID.
func seedQuest(t *testing.T, db *postgres.DB) string {
	t.Helper()
	// Offset the latitude by the clock so reruns don't trip the geofence key.
	jitter := float64(time.Now().UnixNano()%1_000_000) / 1e9
	m := &domain.GeoMetadata{
		Title:        "Integration quest",
		CollectionID: "integration",
		Latitude:     f64(26.9124 + jitter),
		Longitude:    f64(75.7873),
		RadiusMeters: intp(15000),
	}
	if err := postgres.NewMetadataRepo(db).Create(context.Background(), m); err != nil {
		t.Fatalf("seed quest: %v", err)
	}
	return m.ID
}

func TestEligibility_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	id := seedQuest(t, db)
	app := setupApp(setupTestDeps(db))

	req := httptest.NewRequest("GET", "/v1/metadata/geofenced-by-id?metadata_id="+id+"&user_lat=26.92&user_lon=75.79", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res handler.EligibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.CanMintAgain || res.MetadataInstance == nil || res.MetadataInstance.ID != id {
		t.Errorf("unexpected eligibility: %+v", res)
	}
}

// TestConcurrentClaims_Integration fires many commits for the same pair and
// expects exactly one row in claims.
func TestConcurrentClaims_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	id := seedQuest(t, db)
	app := setupApp(setupTestDeps(db))
	addr := fmt.Sprintf("0x%040x", time.Now().UnixNano())

	const n = 20
	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"metadata_id":%q,"recipient":%q,"user_lat":26.92,"user_lon":75.79}`, id, addr)
			req := httptest.NewRequest("POST", "/v1/claim-quest-nft", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("request %d: %v", i, err)
				return
			}
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, s := range statuses {
		switch s {
		case 201:
			created++
		case 409:
			conflicts++
		}
	}
	if created != 1 || conflicts != n-1 {
		t.Errorf("expected 1 created and %d conflicts, got %d/%d (%v)", n-1, created, conflicts, statuses)
	}

	var rows int
	if err := db.Pool.QueryRow(context.Background(),
		`SELECT count(*) FROM claims WHERE metadata_id = $1`, id).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("expected 1 claim row, got %d", rows)
	}
}

func TestCreateMetadata_Integration_Duplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	app := setupApp(setupTestDeps(db))

	lat := 10 + float64(time.Now().UnixNano()%1_000_000)/1e7
	body := fmt.Sprintf(`{"title":"dup","collection_id":"integration","latitude":%f,"longitude":76.1,"radius":250}`, lat)

	for i, want := range []int{201, 409} {
		req := httptest.NewRequest("POST", "/v1/metadata", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-Key", adminKey)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Fatalf("attempt %d: expected %d, got %d", i+1, want, resp.StatusCode)
		}
	}
}
