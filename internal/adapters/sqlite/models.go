package sqlite

import (
	"time"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

type metadataModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Description  string
	ImageURL     string
	Latitude     *float64 `gorm:"index:idx_geo_metadata_lat_lon"`
	Longitude    *float64 `gorm:"index:idx_geo_metadata_lat_lon"`
	RadiusMeters *int
	CollectionID string         `gorm:"index"`
	Attributes   map[string]any `gorm:"serializer:json;type:text"`
	// GeofenceKey is NULL for metadata without coordinates, so the unique
	// index only constrains geofenced rows.
	GeofenceKey *string `gorm:"uniqueIndex"`
	CreatedAt   time.Time
}

func (metadataModel) TableName() string { return "geo_metadata" }

func toMetadataModel(m *domain.GeoMetadata) metadataModel {
	mm := metadataModel{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		ImageURL:     m.ImageURL,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		RadiusMeters: m.RadiusMeters,
		CollectionID: m.CollectionID,
		Attributes:   m.Attributes,
		CreatedAt:    m.CreatedAt,
	}
	if key := m.GeofenceKey(); key != "" {
		mm.GeofenceKey = &key
	}
	return mm
}

func (mm metadataModel) toDomain() domain.GeoMetadata {
	return domain.GeoMetadata{
		ID:           mm.ID,
		Title:        mm.Title,
		Description:  mm.Description,
		ImageURL:     mm.ImageURL,
		Latitude:     mm.Latitude,
		Longitude:    mm.Longitude,
		RadiusMeters: mm.RadiusMeters,
		CollectionID: mm.CollectionID,
		Attributes:   mm.Attributes,
		CreatedAt:    mm.CreatedAt,
	}
}

type claimModel struct {
	MetadataID  string `gorm:"primaryKey"`
	UserAddress string `gorm:"primaryKey;index"`
	ID          string `gorm:"uniqueIndex;not null"`
	ClaimedAt   time.Time
}

func (claimModel) TableName() string { return "claims" }
