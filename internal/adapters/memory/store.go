// Package memory provides process-local MetadataRepository and ClaimLedger
// implementations for development, tests and single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// MetadataRepository is an in-memory ports.MetadataRepository.
type MetadataRepository struct {
	mu    sync.RWMutex
	byID  map[string]domain.GeoMetadata
	byKey map[string]string
	order []string
}

func NewMetadataRepository() *MetadataRepository {
	return &MetadataRepository{
		byID:  make(map[string]domain.GeoMetadata),
		byKey: make(map[string]string),
	}
}

func (r *MetadataRepository) Get(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, id)
	}
	return &m, nil
}

func (r *MetadataRepository) Create(ctx context.Context, m *domain.GeoMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.byID[m.ID]; ok {
		return fmt.Errorf("%w: id %s", domain.ErrDuplicateMetadata, m.ID)
	}
	key := m.GeofenceKey()
	if key != "" {
		if existing, ok := r.byKey[key]; ok {
			return fmt.Errorf("%w: matches %s", domain.ErrDuplicateMetadata, existing)
		}
		r.byKey[key] = m.ID
	}
	r.byID[m.ID] = *m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *MetadataRepository) ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.GeoMetadata
	for _, id := range r.order {
		if m := r.byID[id]; m.CollectionID == collectionID {
			all = append(all, m)
		}
	}
	total := len(all)
	if offset >= total {
		return []domain.GeoMetadata{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MetadataRepository) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.GeoMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	box := domain.BoundsAround(center, radiusMeters)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.GeoMetadata
	for _, id := range r.order {
		m := r.byID[id]
		c, ok := m.Center()
		if !ok || !box.Contains(c) {
			continue
		}
		d, err := domain.DistanceMeters(center, c)
		if err != nil || d > radiusMeters {
			continue
		}
		m.Distance = &d
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type claimKey struct{ metadataID, user string }

// ClaimLedger is an in-memory ports.ClaimLedger. A single mutex makes
// TryReserve a check-and-set.
type ClaimLedger struct {
	mu     sync.Mutex
	claims map[claimKey]domain.ClaimRecord
}

func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{claims: make(map[claimKey]domain.ClaimRecord)}
}

func (l *ClaimLedger) HasClaimed(ctx context.Context, metadataID, userAddress string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.claims[claimKey{metadataID, userAddress}]
	return ok, nil
}

func (l *ClaimLedger) TryReserve(ctx context.Context, metadataID, userAddress string, at time.Time) (*domain.ClaimRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	k := claimKey{metadataID, userAddress}
	if _, ok := l.claims[k]; ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrReservationConflict, metadataID, userAddress)
	}
	rec := domain.ClaimRecord{
		ID:          uuid.NewString(),
		MetadataID:  metadataID,
		UserAddress: userAddress,
		ClaimedAt:   at,
	}
	l.claims[k] = rec
	return &rec, nil
}

func (l *ClaimLedger) Release(ctx context.Context, metadataID, userAddress string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.claims, claimKey{metadataID, userAddress})
	l.mu.Unlock()
	return nil
}

// Len returns the number of recorded claims.
func (l *ClaimLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}
