package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/pkg/metrics"
)

// MetadataService handles geofenced-metadata business logic.
type MetadataService struct {
	repo  ports.MetadataRepository
	cache ports.CacheService
	ttl   time.Duration
	group singleflight.Group
}

// NewMetadataService creates a new MetadataService. cache may be nil.
// ttl bounds how stale a cached metadata read may be.
func NewMetadataService(repo ports.MetadataRepository, cache ports.CacheService, ttl time.Duration) *MetadataService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MetadataService{repo: repo, cache: cache, ttl: ttl}
}

func metadataCacheKey(id string) string { return "metadata:id:" + id }

// sharedFetchTimeout bounds a collapsed store read, which outlives the
// caller that started it.
const sharedFetchTimeout = 5 * time.Second

// Get returns metadata by ID through the short-TTL cache.
// It satisfies ports.MetadataStore for read paths that tolerate staleness.
func (s *MetadataService) Get(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, metadataCacheKey(id)); err == nil {
			var m domain.GeoMetadata
			if err := json.Unmarshal(data, &m); err == nil {
				metrics.CacheHits.WithLabelValues("metadata").Inc()
				return &m, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("metadata").Inc()
	}

	// Concurrent misses share one read. The read runs detached from any
	// single caller so one cancellation cannot fail the others; each caller
	// still gives up on its own ctx.
	ch := s.group.DoChan(id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		m, err := s.repo.Get(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(m); err == nil {
				_ = s.cache.Set(fetchCtx, metadataCacheKey(id), data, int(s.ttl/time.Second))
			}
		}
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		m := *res.Val.(*domain.GeoMetadata)
		return &m, nil
	}
}

// GetByID returns a single metadata instance.
func (s *MetadataService) GetByID(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrMetadataNotFound)
	}
	return s.Get(ctx, id)
}

// Create validates and stores a new metadata instance.
func (s *MetadataService) Create(ctx context.Context, m *domain.GeoMetadata) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	if s.cache != nil && m.ID != "" {
		_ = s.cache.Delete(ctx, metadataCacheKey(m.ID))
	}
	return nil
}

// ListByCollection returns a page of metadata for a collection and the total count.
func (s *MetadataService) ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByCollection(ctx, collectionID, offset, limit)
}

// FindNearby returns geofenced metadata within radiusMeters of the given point.
func (s *MetadataService) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.GeoMetadata, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters < 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRadius, radiusMeters)
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.repo.FindNearby(ctx, center, radiusMeters, limit)
}
