package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// MetadataRepo implements ports.MetadataRepository with GORM.
type MetadataRepo struct {
	db *gorm.DB
}

func NewMetadataRepo(db *gorm.DB) *MetadataRepo {
	return &MetadataRepo{db: db}
}

func (r *MetadataRepo) Get(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	var mm metadataModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&mm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, id)
	}
	if err != nil {
		return nil, translate("metadata.get", err)
	}
	m := mm.toDomain()
	return &m, nil
}

func (r *MetadataRepo) Create(ctx context.Context, m *domain.GeoMetadata) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	mm := toMetadataModel(m)
	if err := r.db.WithContext(ctx).Create(&mm).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("metadata.create: %w", domain.ErrDuplicateMetadata)
		}
		return translate("metadata.create", err)
	}
	return nil
}

func (r *MetadataRepo) ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
	q := r.db.WithContext(ctx).Model(&metadataModel{}).Where("collection_id = ?", collectionID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("metadata.count", err)
	}

	var rows []metadataModel
	if err := q.Order("created_at, id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, translate("metadata.list", err)
	}
	items := make([]domain.GeoMetadata, 0, len(rows))
	for _, mm := range rows {
		items = append(items, mm.toDomain())
	}
	return items, int(total), nil
}

func (r *MetadataRepo) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.GeoMetadata, error) {
	box := domain.BoundsAround(center, radiusMeters)

	var rows []metadataModel
	err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			box.MinLat, box.MaxLat, box.MinLon, box.MaxLon).
		Find(&rows).Error
	if err != nil {
		return nil, translate("metadata.nearby", err)
	}

	var out []domain.GeoMetadata
	for _, mm := range rows {
		m := mm.toDomain()
		c, ok := m.Center()
		if !ok {
			continue
		}
		d, err := domain.DistanceMeters(center, c)
		if err != nil || d > radiusMeters {
			continue
		}
		m.Distance = &d
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
