package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
	"github.com/samirrijal/geoquest/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/geoquest/internal/core/usecases")

// ClaimOptions configures the claim coordinator.
type ClaimOptions struct {
	// DefaultRadiusMeters applies to geofenced metadata stored without a
	// radius. Zero or negative means such metadata cannot be evaluated.
	DefaultRadiusMeters float64
	// Now overrides the clock used for claim timestamps.
	Now func() time.Time
}

// ClaimService decides geofenced claim eligibility and records claims at
// most once per (metadata, user) pair.
type ClaimService struct {
	store  ports.MetadataStore
	reads  ports.MetadataStore
	ledger ports.ClaimLedger
	events ports.EventPublisher
	opts   ClaimOptions
}

// NewClaimService creates a new ClaimService.
//
// store must return fresh reads; it is the only source consulted by
// CommitClaim. cached serves EvaluateEligibility and may be nil, in which
// case store is used. events may be nil.
func NewClaimService(
	store ports.MetadataStore,
	cached ports.MetadataStore,
	ledger ports.ClaimLedger,
	events ports.EventPublisher,
	opts ClaimOptions,
) *ClaimService {
	if cached == nil {
		cached = store
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ClaimService{store: store, reads: cached, ledger: ledger, events: events, opts: opts}
}

// EvaluateEligibility reports whether userAddress at loc may claim metadataID.
// It has no side effects. An empty userAddress skips the ledger lookup.
func (s *ClaimService) EvaluateEligibility(ctx context.Context, metadataID string, loc domain.GeoPoint, userAddress string) (*domain.EligibilityResult, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.EvaluateEligibility")
	defer span.End()
	span.SetAttributes(attribute.String("metadata.id", metadataID))

	var addr string
	if strings.TrimSpace(userAddress) != "" {
		var err error
		if addr, err = domain.NormalizeAddress(userAddress); err != nil {
			return nil, err
		}
	}

	res, err := s.evaluate(ctx, s.reads, metadataID, &loc, addr)
	if err != nil {
		metrics.EligibilityChecks.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.EligibilityChecks.WithLabelValues(outcome(res)).Inc()
	span.SetAttributes(attribute.Bool("claim.can_claim", res.CanClaim))
	return res, nil
}

// CommitClaim re-evaluates eligibility against fresh state and atomically
// reserves the claim. Losing a concurrent race yields an AlreadyClaimed
// NotEligibleError that also matches domain.ErrReservationConflict.
// loc may be nil for metadata without a geofence.
func (s *ClaimService) CommitClaim(ctx context.Context, metadataID, userAddress string, loc *domain.GeoPoint) (*domain.ClaimResult, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.CommitClaim")
	defer span.End()
	span.SetAttributes(attribute.String("metadata.id", metadataID))

	res, err := s.commit(ctx, metadataID, userAddress, loc)
	if err != nil {
		metrics.ClaimsRejected.WithLabelValues(rejectLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.ClaimsCommitted.Inc()
	return res, nil
}

func (s *ClaimService) commit(ctx context.Context, metadataID, userAddress string, loc *domain.GeoPoint) (*domain.ClaimResult, error) {
	addr, err := domain.NormalizeAddress(userAddress)
	if err != nil {
		return nil, err
	}

	elig, err := s.evaluate(ctx, s.store, metadataID, loc, addr)
	if err != nil {
		return nil, err
	}
	if !elig.CanClaim {
		ne := domain.NewNotEligible(elig.Reason, nil)
		ne.DistanceMeters, ne.RadiusMeters = elig.DistanceMeters, elig.RadiusMeters
		return nil, ne
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := s.ledger.TryReserve(ctx, metadataID, addr, s.opts.Now().UTC())
	if errors.Is(err, domain.ErrReservationConflict) {
		return nil, domain.NewNotEligible(domain.ReasonAlreadyClaimed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reserve claim: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishClaimCommitted(ctx, rec); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "publish claim committed failed",
				"metadata_id", rec.MetadataID, "user_address", rec.UserAddress, "error", err)
		}
	}

	return &domain.ClaimResult{Success: true, Claim: rec, Eligibility: elig}, nil
}

// ReleaseClaim removes a reservation after a failed downstream mint.
// Releasing a pair that is not claimed is a no-op.
func (s *ClaimService) ReleaseClaim(ctx context.Context, metadataID, userAddress, reason string) error {
	addr, err := domain.NormalizeAddress(userAddress)
	if err != nil {
		return err
	}
	if err := s.ledger.Release(ctx, metadataID, addr); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	metrics.ClaimsReleased.Inc()

	if s.events != nil {
		rec := &domain.ClaimRecord{MetadataID: metadataID, UserAddress: addr}
		if err := s.events.PublishClaimReleased(ctx, rec, reason); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "publish claim released failed",
				"metadata_id", metadataID, "user_address", addr, "error", err)
		}
	}
	return nil
}

func (s *ClaimService) evaluate(ctx context.Context, store ports.MetadataStore, metadataID string, loc *domain.GeoPoint, addr string) (*domain.EligibilityResult, error) {
	if loc != nil {
		if err := loc.Validate(); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(metadataID) == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrMetadataNotFound)
	}

	meta, err := store.Get(ctx, metadataID)
	if err != nil {
		return nil, fmt.Errorf("get metadata %s: %w", metadataID, err)
	}

	res := &domain.EligibilityResult{Metadata: meta, LocationEligible: true}

	if center, ok := meta.Center(); ok {
		if loc == nil {
			return nil, fmt.Errorf("%w: user location is required for geofenced metadata %s", domain.ErrInvalidCoordinate, metadataID)
		}
		radius, err := s.radiusFor(meta)
		if err != nil {
			return nil, err
		}
		within, err := domain.WithinRadius(*loc, center, radius)
		if err != nil {
			return nil, err
		}
		dist, err := domain.DistanceMeters(*loc, center)
		if err != nil {
			return nil, err
		}
		res.LocationEligible = within
		res.DistanceMeters = &dist
		res.RadiusMeters = &radius
	}

	if addr != "" {
		claimed, err := s.ledger.HasClaimed(ctx, metadataID, addr)
		if err != nil {
			return nil, fmt.Errorf("check claim: %w", err)
		}
		res.AlreadyClaimed = claimed
	}

	res.CanClaim = res.LocationEligible && !res.AlreadyClaimed
	switch {
	case res.AlreadyClaimed:
		res.Reason = domain.ReasonAlreadyClaimed
	case !res.LocationEligible:
		res.Reason = domain.ReasonOutOfRange
	}
	return res, nil
}

func (s *ClaimService) radiusFor(meta *domain.GeoMetadata) (float64, error) {
	if meta.RadiusMeters != nil {
		return float64(*meta.RadiusMeters), nil
	}
	if s.opts.DefaultRadiusMeters > 0 {
		return s.opts.DefaultRadiusMeters, nil
	}
	return 0, fmt.Errorf("%w: metadata %s has no radius and no default is configured", domain.ErrInvalidRadius, meta.ID)
}

func outcome(res *domain.EligibilityResult) string {
	if res.CanClaim {
		return "eligible"
	}
	return string(res.Reason)
}

func rejectLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return string(domain.ReasonAlreadyClaimed)
	case errors.Is(err, domain.ErrOutOfRange):
		return string(domain.ReasonOutOfRange)
	case errors.Is(err, domain.ErrMetadataNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrInvalidRadius), errors.Is(err, domain.ErrInvalidAddress):
		return "invalid_input"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
