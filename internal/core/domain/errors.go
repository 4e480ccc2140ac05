package domain

import (
	"errors"
	"fmt"

	"github.com/samirrijal/geoquest/internal/pkg/geospatial"
)

var (
	// ErrInvalidCoordinate marks malformed or out-of-range lat/lon input.
	ErrInvalidCoordinate = geospatial.ErrInvalidCoordinate
	// ErrInvalidRadius marks a negative radius or a missing radius with no default.
	ErrInvalidRadius = geospatial.ErrInvalidRadius

	ErrInvalidAddress   = errors.New("invalid user address")
	ErrInvalidMetadata  = errors.New("invalid metadata")
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrDuplicateMetadata is returned when a geofencing key already exists.
	ErrDuplicateMetadata = errors.New("duplicate geofenced metadata")

	// ErrNotEligible is the umbrella kind for every eligibility rejection.
	ErrNotEligible    = errors.New("not eligible")
	ErrOutOfRange     = errors.New("out of range")
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrReservationConflict is returned by a ClaimLedger when the pair is
	// already reserved. Callers see it as AlreadyClaimed.
	ErrReservationConflict = errors.New("reservation conflict")

	// ErrStoreUnavailable marks transient MetadataStore/ClaimLedger failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMintRejected is returned when the mint backend refuses a request.
	// Retrying the same request will not help.
	ErrMintRejected = errors.New("mint rejected")
)

// IneligibleReason says why a claim is not allowed.
type IneligibleReason string

const (
	ReasonOutOfRange     IneligibleReason = "out_of_range"
	ReasonAlreadyClaimed IneligibleReason = "already_claimed"
)

// NotEligibleError is returned by CommitClaim when the pair cannot be claimed.
// It matches ErrNotEligible plus ErrOutOfRange or ErrAlreadyClaimed.
type NotEligibleError struct {
	Reason         IneligibleReason
	DistanceMeters *float64
	RadiusMeters   *float64
	cause          error
}

// NewNotEligible builds a NotEligibleError, optionally wrapping a cause
// such as ErrReservationConflict.
func NewNotEligible(reason IneligibleReason, cause error) *NotEligibleError {
	return &NotEligibleError{Reason: reason, cause: cause}
}

func (e *NotEligibleError) Error() string {
	switch e.Reason {
	case ReasonOutOfRange:
		if e.DistanceMeters != nil && e.RadiusMeters != nil {
			return fmt.Sprintf("not eligible: out of range (%.0fm from target, radius %.0fm)", *e.DistanceMeters, *e.RadiusMeters)
		}
		return "not eligible: out of range"
	case ReasonAlreadyClaimed:
		return "not eligible: already claimed"
	}
	return "not eligible: " + string(e.Reason)
}

func (e *NotEligibleError) Unwrap() []error {
	errs := []error{ErrNotEligible}
	switch e.Reason {
	case ReasonOutOfRange:
		errs = append(errs, ErrOutOfRange)
	case ReasonAlreadyClaimed:
		errs = append(errs, ErrAlreadyClaimed)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// StoreError wraps an I/O failure from a store or ledger adapter.
type StoreError struct {
	Op  string
	Err error
}

// Unavailable wraps err as a transient store failure for operation op.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Logical rejections are terminal for the request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
