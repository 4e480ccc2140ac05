package ports

import (
	"context"
	"time"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// MetadataStore looks up geofenced metadata strictly by ID.
// Get returns domain.ErrMetadataNotFound for unknown IDs.
type MetadataStore interface {
	Get(ctx context.Context, id string) (*domain.GeoMetadata, error)
}

// MetadataRepository adds the administrative operations on metadata.
type MetadataRepository interface {
	MetadataStore
	// Create inserts m, assigning ID and CreatedAt when empty. It returns
	// domain.ErrDuplicateMetadata when the geofencing key already exists.
	Create(ctx context.Context, m *domain.GeoMetadata) error
	ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error)
	// FindNearby returns geofenced metadata whose center lies within
	// radiusMeters of center, nearest first, with Distance populated.
	FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.GeoMetadata, error)
}

// ClaimLedger records claims per (metadataID, userAddress).
type ClaimLedger interface {
	HasClaimed(ctx context.Context, metadataID, userAddress string) (bool, error)
	// TryReserve atomically records the claim. Exactly one of many concurrent
	// callers for the same pair succeeds; the rest get domain.ErrReservationConflict.
	TryReserve(ctx context.Context, metadataID, userAddress string, at time.Time) (*domain.ClaimRecord, error)
	// Release removes a reservation. Releasing an absent pair is not an error.
	Release(ctx context.Context, metadataID, userAddress string) error
}
