package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

const metadataColumns = `id, title, description, image_url, latitude, longitude,
	radius_meters, collection_id, COALESCE(attributes, '{}'), created_at`

// MetadataRepo implements ports.MetadataRepository with pgx.
type MetadataRepo struct {
	db *DB
}

// NewMetadataRepo creates a new MetadataRepo.
func NewMetadataRepo(db *DB) *MetadataRepo {
	return &MetadataRepo{db: db}
}

func scanMetadata(row pgx.Row) (*domain.GeoMetadata, error) {
	var m domain.GeoMetadata
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.ImageURL,
		&m.Latitude, &m.Longitude, &m.RadiusMeters,
		&m.CollectionID, &m.Attributes, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns metadata by ID.
func (r *MetadataRepo) Get(ctx context.Context, id string) (*domain.GeoMetadata, error) {
	m, err := scanMetadata(r.db.Pool.QueryRow(ctx,
		`SELECT `+metadataColumns+` FROM geo_metadata WHERE id = $1`, id))
	if notFound(err) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, id)
	}
	if err != nil {
		return nil, translate("metadata.get", err)
	}
	return m, nil
}

// Create inserts m. The database assigns id and created_at when m.ID is empty.
func (r *MetadataRepo) Create(ctx context.Context, m *domain.GeoMetadata) error {
	var id any
	if m.ID != "" {
		id = m.ID
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO geo_metadata (id, title, description, image_url, latitude, longitude,
		                          radius_meters, collection_id, attributes)
		VALUES (COALESCE($1, gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, id, m.Title, m.Description, m.ImageURL, m.Latitude, m.Longitude,
		m.RadiusMeters, m.CollectionID, m.Attributes,
	).Scan(&m.ID, &m.CreatedAt)
	return translate("metadata.create", err)
}

// ListByCollection returns one page of a collection ordered by creation time.
func (r *MetadataRepo) ListByCollection(ctx context.Context, collectionID string, offset, limit int) ([]domain.GeoMetadata, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM geo_metadata WHERE collection_id = $1`, collectionID,
	).Scan(&total); err != nil {
		return nil, 0, translate("metadata.count", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+metadataColumns+`
		FROM geo_metadata WHERE collection_id = $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3
	`, collectionID, offset, limit)
	if err != nil {
		return nil, 0, translate("metadata.list", err)
	}
	defer rows.Close()

	items := make([]domain.GeoMetadata, 0, limit)
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, 0, translate("metadata.list", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("metadata.list", err)
	}
	return items, total, nil
}

// FindNearby prefilters on a bounding box in SQL and applies the exact
// Haversine distance in Go, nearest first.
func (r *MetadataRepo) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.GeoMetadata, error) {
	box := domain.BoundsAround(center, radiusMeters)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+metadataColumns+`
		FROM geo_metadata
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, translate("metadata.nearby", err)
	}
	defer rows.Close()

	var out []domain.GeoMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, translate("metadata.nearby", err)
		}
		c, _ := m.Center()
		d, err := domain.DistanceMeters(center, c)
		if err != nil || d > radiusMeters {
			continue
		}
		m.Distance = &d
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("metadata.nearby", err)
	}

	sort.Slice(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
