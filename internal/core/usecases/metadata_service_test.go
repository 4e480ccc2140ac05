package usecases_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/core/usecases"
)

// --- Mock MetadataRepository ---

type mockMetadataRepo struct {
	getFn        func(ctx context.Context, id string) (*domain.GeoMetadata, error)
	createFn     func(ctx context.Context, m *domain.GeoMetadata) error
	listFn       func(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error)
	findNearbyFn func(ctx context.Context, center domain.GeoPoint, radius float64, limit int) ([]domain.GeoMetadata, error)
}

func (m *mockMetadataRepo) Get(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrMetadataNotFound
}

func (m *mockMetadataRepo) Create(ctx context.Context, md *domain.GeoMetadata) error {
	if m.createFn != nil {
		return m.createFn(ctx, md)
	}
	return nil
}

func (m *mockMetadataRepo) ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, collectionID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockMetadataRepo) FindNearby(ctx context.Context, center domain.GeoPoint, radius float64, limit int) ([]domain.GeoMetadata, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, center, radius, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// --- Tests ---

func TestMetadataService_Get_Cached(t *testing.T) {
	var calls int32
	repo := &mockMetadataRepo{
		getFn: func(ctx context.Context, id string) (*domain.GeoMetadata, error) {
			atomic.AddInt32(&calls, 1)
			return &domain.GeoMetadata{ID: id, Title: "Amber Fort"}, nil
		},
	}
	svc := usecases.NewMetadataService(repo, newMapCache(), time.Minute)

	for i := 0; i < 3; i++ {
		m, err := svc.Get(context.Background(), "m1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Title != "Amber Fort" {
			t.Errorf("expected Amber Fort, got %s", m.Title)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repo call, got %d", calls)
	}
}

// A caller that gives up must not fail other callers waiting on the same
// store read.
func TestMetadataService_Get_SharedReadSurvivesCancel(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &mockMetadataRepo{
		getFn: func(ctx context.Context, id string) (*domain.GeoMetadata, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)
			}
			select {
			case <-release:
				return &domain.GeoMetadata{ID: id, Title: "Nahargarh"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	svc := usecases.NewMetadataService(repo, nil, 0)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Get(ctxA, "m1")
		errA <- err
	}()
	<-started

	type result struct {
		m   *domain.GeoMetadata
		err error
	}
	resB := make(chan result, 1)
	go func() {
		m, err := svc.Get(context.Background(), "m1")
		resB <- result{m, err}
	}()

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller: expected context.Canceled, got %v", err)
	}

	close(release)
	b := <-resB
	if b.err != nil {
		t.Fatalf("live caller failed: %v", b.err)
	}
	if b.m.Title != "Nahargarh" {
		t.Errorf("unexpected metadata %+v", b.m)
	}
	if n := atomic.LoadInt32(&calls); n > 2 {
		t.Errorf("expected at most 2 store reads, got %d", n)
	}
}

func TestMetadataService_Get_NotFound(t *testing.T) {
	svc := usecases.NewMetadataService(&mockMetadataRepo{}, nil, 0)
	_, err := svc.GetByID(context.Background(), "nope")
	if !errors.Is(err, domain.ErrMetadataNotFound) {
		t.Errorf("expected ErrMetadataNotFound, got %v", err)
	}
	_, err = svc.GetByID(context.Background(), "  ")
	if !errors.Is(err, domain.ErrMetadataNotFound) {
		t.Errorf("expected ErrMetadataNotFound for blank id, got %v", err)
	}
}

func TestMetadataService_Create_Validates(t *testing.T) {
	called := false
	repo := &mockMetadataRepo{
		createFn: func(ctx context.Context, m *domain.GeoMetadata) error {
			called = true
			return nil
		},
	}
	svc := usecases.NewMetadataService(repo, nil, 0)

	bad := &domain.GeoMetadata{Title: "x", Latitude: f64(91), Longitude: f64(0)}
	if err := svc.Create(context.Background(), bad); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
	if called {
		t.Error("repo should not be called for invalid metadata")
	}

	good := &domain.GeoMetadata{Title: "x", Latitude: f64(26.9), Longitude: f64(75.8), RadiusMeters: intp(100)}
	if err := svc.Create(context.Background(), good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("repo was not called")
	}
}

func TestMetadataService_Create_InvalidatesCache(t *testing.T) {
	cache := newMapCache()
	_ = cache.Set(context.Background(), "metadata:id:m1", []byte(`{"id":"m1","title":"old"}`), 30)

	svc := usecases.NewMetadataService(&mockMetadataRepo{}, cache, time.Minute)
	if err := svc.Create(context.Background(), &domain.GeoMetadata{ID: "m1", Title: "new"}); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get(context.Background(), "metadata:id:m1"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Error("expected cache entry to be evicted")
	}
}

func TestMetadataService_FindNearby_ClampLimit(t *testing.T) {
	called := false
	repo := &mockMetadataRepo{
		findNearbyFn: func(ctx context.Context, center domain.GeoPoint, radius float64, limit int) ([]domain.GeoMetadata, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			return nil, nil
		},
	}
	svc := usecases.NewMetadataService(repo, nil, 0)
	_, _ = svc.FindNearby(context.Background(), domain.GeoPoint{Lat: 26.9, Lon: 75.8}, 500, 999)
	if !called {
		t.Error("repo was not called")
	}
}

func TestMetadataService_FindNearby_InvalidInput(t *testing.T) {
	svc := usecases.NewMetadataService(&mockMetadataRepo{}, nil, 0)
	if _, err := svc.FindNearby(context.Background(), domain.GeoPoint{Lat: 95, Lon: 0}, 500, 10); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
	if _, err := svc.FindNearby(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0}, -1, 10); !errors.Is(err, domain.ErrInvalidRadius) {
		t.Errorf("expected ErrInvalidRadius, got %v", err)
	}
}

func TestMetadataService_ListByCollection_Defaults(t *testing.T) {
	repo := &mockMetadataRepo{
		listFn: func(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
			if offset != 0 || limit != 50 {
				t.Errorf("expected offset=0 limit=50, got %d %d", offset, limit)
			}
			return []domain.GeoMetadata{{ID: "a"}}, 1, nil
		},
	}
	svc := usecases.NewMetadataService(repo, nil, 0)
	items, total, err := svc.ListByCollection(context.Background(), "c", -3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("unexpected result: %d %d", total, len(items))
	}
}
