package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// ClaimRepo implements ports.ClaimLedger on the claims table, whose primary
// key is (metadata_id, user_address).
type ClaimRepo struct {
	db *DB
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(db *DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

func (r *ClaimRepo) HasClaimed(ctx context.Context, metadataID, userAddress string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM claims WHERE metadata_id = $1 AND user_address = $2)
	`, metadataID, userAddress).Scan(&exists)
	if err != nil {
		return false, translate("claims.has_claimed", err)
	}
	return exists, nil
}

// TryReserve inserts the claim in a single statement; an existing row makes
// the insert a no-op and RETURNING yields no rows.
func (r *ClaimRepo) TryReserve(ctx context.Context, metadataID, userAddress string, at time.Time) (*domain.ClaimRecord, error) {
	rec := domain.ClaimRecord{
		ID:          uuid.NewString(),
		MetadataID:  metadataID,
		UserAddress: userAddress,
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO claims (id, metadata_id, user_address, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (metadata_id, user_address) DO NOTHING
		RETURNING claimed_at
	`, rec.ID, metadataID, userAddress, at).Scan(&rec.ClaimedAt)
	if notFound(err) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrReservationConflict, metadataID, userAddress)
	}
	if err != nil {
		return nil, translate("claims.reserve", err)
	}
	return &rec, nil
}

func (r *ClaimRepo) Release(ctx context.Context, metadataID, userAddress string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM claims WHERE metadata_id = $1 AND user_address = $2`,
		metadataID, userAddress)
	return translate("claims.release", err)
}
