package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// GeoMetadata is a claimable NFT's display attributes and location-gating rule.
type GeoMetadata struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	RadiusMeters *int           `json:"radius,omitempty"`
	CollectionID string         `json:"collection_id"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Distance     *float64       `json:"distance,omitempty"` // computed field
	CreatedAt    time.Time      `json:"created_at"`
}

// Center returns the geofence center, or false when the metadata is not geofenced.
func (m *GeoMetadata) Center() (GeoPoint, bool) {
	if m.Latitude == nil || m.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *m.Latitude, Lon: *m.Longitude}, true
}

// Geofenced reports whether location gating applies.
func (m *GeoMetadata) Geofenced() bool {
	_, ok := m.Center()
	return ok
}

// Validate enforces the coordinate and radius invariants.
func (m *GeoMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidMetadata)
	}
	if (m.Latitude == nil) != (m.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidMetadata)
	}
	if c, ok := m.Center(); ok {
		if err := c.Validate(); err != nil {
			return err
		}
	} else if m.RadiusMeters != nil {
		return fmt.Errorf("%w: radius set without coordinates", ErrInvalidMetadata)
	}
	if m.RadiusMeters != nil && *m.RadiusMeters < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRadius, *m.RadiusMeters)
	}
	return nil
}

// GeofenceKey is the uniqueness key for geofenced metadata:
// (collection_id, latitude, longitude, radius). Empty when not geofenced.
func (m *GeoMetadata) GeofenceKey() string {
	c, ok := m.Center()
	if !ok {
		return ""
	}
	radius := "-"
	if m.RadiusMeters != nil {
		radius = strconv.Itoa(*m.RadiusMeters)
	}
	return fmt.Sprintf("%s|%s|%s|%s", m.CollectionID,
		strconv.FormatFloat(c.Lat, 'f', -1, 64),
		strconv.FormatFloat(c.Lon, 'f', -1, 64),
		radius)
}

// ClaimRecord is a committed claim of a metadata instance by a user.
type ClaimRecord struct {
	ID          string    `json:"id"`
	MetadataID  string    `json:"metadata_id"`
	UserAddress string    `json:"user_address"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// EligibilityResult is the outcome of an eligibility evaluation.
type EligibilityResult struct {
	Metadata         *GeoMetadata     `json:"metadata"`
	LocationEligible bool             `json:"location_eligible"`
	AlreadyClaimed   bool             `json:"already_claimed"`
	CanClaim         bool             `json:"can_claim"`
	DistanceMeters   *float64         `json:"distance_meters,omitempty"`
	RadiusMeters     *float64         `json:"radius_meters,omitempty"`
	Reason           IneligibleReason `json:"reason,omitempty"`
}

// ClaimResult is the outcome of a successful claim commit.
type ClaimResult struct {
	Success     bool               `json:"success"`
	Claim       *ClaimRecord       `json:"claim"`
	Eligibility *EligibilityResult `json:"eligibility,omitempty"`
}

// ClaimEventType distinguishes published claim events.
type ClaimEventType string

const (
	ClaimCommitted ClaimEventType = "committed"
	ClaimReleased  ClaimEventType = "released"
)

// ClaimEvent is published to the broker after a claim changes state.
type ClaimEvent struct {
	Type       ClaimEventType `json:"type"`
	Claim      ClaimRecord    `json:"claim"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Account address widths in bytes: EVM accounts and 32-byte (Move-style)
// accounts.
const (
	evmAddressLen  = 20
	longAddressLen = 32
)

// NormalizeAddress trims and lower-cases a 0x-prefixed hex account address so
// that every spelling of the same account maps to one ledger key.
func NormalizeAddress(addr string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(addr))
	if a == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := hexutil.Decode(a)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if len(b) != evmAddressLen && len(b) != longAddressLen {
		return "", fmt.Errorf("%w: %q: unexpected length %d bytes", ErrInvalidAddress, addr, len(b))
	}
	return a, nil
}
