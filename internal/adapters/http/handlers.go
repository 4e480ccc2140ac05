package http

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// EligibilityResponse is the wire shape of an eligibility query.
type EligibilityResponse struct {
	MetadataInstance *domain.GeoMetadata     `json:"metadata_instance"`
	CanMintAgain     bool                    `json:"can_mint_again"`
	LocationEligible bool                    `json:"location_eligible"`
	AlreadyClaimed   bool                    `json:"already_claimed"`
	DistanceMeters   *float64                `json:"distance_meters,omitempty"`
	RadiusMeters     *float64                `json:"radius_meters,omitempty"`
	Reason           domain.IneligibleReason `json:"reason,omitempty"`
}

// ClaimRequest is the body of a claim commit.
type ClaimRequest struct {
	MetadataID string   `json:"metadata_id"`
	Recipient  string   `json:"recipient"`
	UserLat    *float64 `json:"user_lat"`
	UserLon    *float64 `json:"user_lon"`
}

// ClaimResponse is the wire shape of a claim commit. Failures use the same
// shape with success=false plus the error code.
type ClaimResponse struct {
	Success        bool                    `json:"success"`
	Message        string                  `json:"message,omitempty"`
	Code           string                  `json:"code,omitempty"`
	RequestID      string                  `json:"request_id,omitempty"`
	Reason         domain.IneligibleReason `json:"reason,omitempty"`
	DistanceMeters *float64                `json:"distance_meters,omitempty"`
	RadiusMeters   *float64                `json:"radius_meters,omitempty"`
	Claim          *domain.ClaimRecord     `json:"claim,omitempty"`
}

// parseCoord reads a required float query parameter.
func parseCoord(c *fiber.Ctx, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidCoordinate, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidCoordinate, name)
	}
	return v, nil
}

// EligibilityHandler evaluates whether a user at a location may claim a quest NFT.
func EligibilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Query("metadata_id")
		if strings.TrimSpace(id) == "" {
			return errBadRequest(c, "metadata_id is required")
		}
		lat, err := parseCoord(c, "user_lat")
		if err != nil {
			return writeDomainError(c, err)
		}
		lon, err := parseCoord(c, "user_lon")
		if err != nil {
			return writeDomainError(c, err)
		}

		res, err := deps.Claims.EvaluateEligibility(c.UserContext(), id,
			domain.GeoPoint{Lat: lat, Lon: lon}, c.Query("user_address"))
		if err != nil {
			return writeDomainError(c, err)
		}

		return c.JSON(EligibilityResponse{
			MetadataInstance: res.Metadata,
			CanMintAgain:     res.CanClaim,
			LocationEligible: res.LocationEligible,
			AlreadyClaimed:   res.AlreadyClaimed,
			DistanceMeters:   res.DistanceMeters,
			RadiusMeters:     res.RadiusMeters,
			Reason:           res.Reason,
		})
	}
}

// claimFailure writes a failed claim in the claim wire shape.
func claimFailure(c *fiber.Ctx, status int, code, msg string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(ClaimResponse{
		Success:   false,
		Message:   msg,
		Code:      code,
		RequestID: reqID,
	})
}

// ClaimHandler commits a claim after re-checking eligibility. user_lat and
// user_lon may be omitted for quests without a geofence.
func ClaimHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ClaimRequest
		if err := c.BodyParser(&req); err != nil {
			return claimFailure(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
		}
		if strings.TrimSpace(req.MetadataID) == "" {
			return claimFailure(c, fiber.StatusBadRequest, "bad_request", "metadata_id is required")
		}
		var loc *domain.GeoPoint
		switch {
		case req.UserLat != nil && req.UserLon != nil:
			loc = &domain.GeoPoint{Lat: *req.UserLat, Lon: *req.UserLon}
		case req.UserLat != nil || req.UserLon != nil:
			return claimFailure(c, fiber.StatusBadRequest, "invalid_coordinate", "user_lat and user_lon must be given together")
		}

		res, err := deps.Claims.CommitClaim(c.UserContext(), req.MetadataID, req.Recipient, loc)

		var ne *domain.NotEligibleError
		if errors.As(err, &ne) {
			status, code, _ := classifyError(c, err)
			reqID, _ := c.Locals("requestid").(string)
			return c.Status(status).JSON(ClaimResponse{
				Success:        false,
				Message:        ne.Error(),
				Code:           code,
				RequestID:      reqID,
				Reason:         ne.Reason,
				DistanceMeters: ne.DistanceMeters,
				RadiusMeters:   ne.RadiusMeters,
			})
		}
		if err != nil {
			status, code, msg := classifyError(c, err)
			return claimFailure(c, status, code, msg)
		}

		return c.Status(fiber.StatusCreated).JSON(ClaimResponse{
			Success: true,
			Message: "claim recorded, mint pending",
			Claim:   res.Claim,
		})
	}
}

// ReleaseClaimHandler removes a reservation. Admin only.
func ReleaseClaimHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reason := c.Query("reason", "manual release")
		if err := deps.Claims.ReleaseClaim(c.UserContext(), c.Params("metadata_id"), c.Params("user_address"), reason); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreateMetadataHandler stores a new metadata instance. Admin only.
func CreateMetadataHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var m domain.GeoMetadata
		if err := c.BodyParser(&m); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		m.ID = ""
		m.Distance = nil

		if err := deps.Metadata.Create(c.UserContext(), &m); err != nil {
			return writeDomainError(c, err)
		}
		c.Location("/v1/metadata/" + m.ID)
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// GetMetadataHandler returns a single metadata instance by ID.
func GetMetadataHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Metadata.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(m)
	}
}

// ListMetadataHandler returns a page of metadata for a collection.
func ListMetadataHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		items, total, err := deps.Metadata.ListByCollection(c.UserContext(), c.Query("collection_id"), offset, limit)
		if err != nil {
			return writeDomainError(c, err)
		}
		if items == nil {
			items = []domain.GeoMetadata{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: items, Pagination: pg})
	}
}

// NearbyMetadataHandler finds geofenced quests near a location.
func NearbyMetadataHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := parseCoord(c, "lat")
		if err != nil {
			return writeDomainError(c, err)
		}
		lon, err := parseCoord(c, "lon")
		if err != nil {
			return writeDomainError(c, err)
		}
		radius := 5000.0
		if raw := c.Query("radius"); raw != "" {
			if radius, err = strconv.ParseFloat(raw, 64); err != nil {
				return writeDomainError(c, fmt.Errorf("%w: radius must be a number", domain.ErrInvalidRadius))
			}
		}

		items, err := deps.Metadata.FindNearby(c.UserContext(), domain.GeoPoint{Lat: lat, Lon: lon}, radius, c.QueryInt("limit", 20))
		if err != nil {
			return writeDomainError(c, err)
		}
		if items == nil {
			items = []domain.GeoMetadata{}
		}
		return c.JSON(items)
	}
}

// AdminAuth guards routes with a shared key in the X-Admin-Key header.
// An empty key disables the routes entirely.
func AdminAuth(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return newError(c, fiber.StatusNotFound, "not_found", "admin API disabled")
		}
		got := c.Get("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return errUnauthorized(c, "invalid or missing X-Admin-Key")
		}
		return c.Next()
	}
}
