package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// maxGeoJSONFeatures bounds a single FeatureCollection response.
const maxGeoJSONFeatures = 200

// toFeatureCollection renders geofenced metadata as point features.
// Ungated metadata has no geometry and is skipped.
func toFeatureCollection(items []domain.GeoMetadata) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range items {
		m := &items[i]
		center, ok := m.Center()
		if !ok {
			continue
		}
		f := geojson.NewFeature(orb.Point{center.Lon, center.Lat})
		f.ID = m.ID
		f.Properties["title"] = m.Title
		f.Properties["collection_id"] = m.CollectionID
		if m.RadiusMeters != nil {
			f.Properties["radius"] = *m.RadiusMeters
		}
		if m.ImageURL != "" {
			f.Properties["image_url"] = m.ImageURL
		}
		fc.Append(f)
	}
	return fc
}

// GeoJSONHandler returns a collection's geofences as a GeoJSON FeatureCollection.
func GeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, _, err := deps.Metadata.ListByCollection(c.UserContext(), c.Query("collection_id"), 0, maxGeoJSONFeatures)
		if err != nil {
			return writeDomainError(c, err)
		}

		data, err := toFeatureCollection(items).MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}
