package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// ClaimRepo implements ports.ClaimLedger with GORM.
type ClaimRepo struct {
	db *gorm.DB
}

func NewClaimRepo(db *gorm.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

func (r *ClaimRepo) HasClaimed(ctx context.Context, metadataID, userAddress string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&claimModel{}).
		Where("metadata_id = ? AND user_address = ?", metadataID, userAddress).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, translate("claims.has_claimed", err)
	}
	return n > 0, nil
}

// TryReserve relies on INSERT ... ON CONFLICT DO NOTHING; zero rows
// affected means another caller holds the pair.
func (r *ClaimRepo) TryReserve(ctx context.Context, metadataID, userAddress string, at time.Time) (*domain.ClaimRecord, error) {
	cm := claimModel{
		ID:          uuid.NewString(),
		MetadataID:  metadataID,
		UserAddress: userAddress,
		ClaimedAt:   at,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&cm)
	if res.Error != nil {
		return nil, translate("claims.reserve", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrReservationConflict, metadataID, userAddress)
	}
	return &domain.ClaimRecord{
		ID:          cm.ID,
		MetadataID:  cm.MetadataID,
		UserAddress: cm.UserAddress,
		ClaimedAt:   cm.ClaimedAt,
	}, nil
}

func (r *ClaimRepo) Release(ctx context.Context, metadataID, userAddress string) error {
	err := r.db.WithContext(ctx).
		Where("metadata_id = ? AND user_address = ?", metadataID, userAddress).
		Delete(&claimModel{}).Error
	return translate("claims.release", err)
}

// Count returns the number of recorded claims for metadataID.
func (r *ClaimRepo) Count(ctx context.Context, metadataID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&claimModel{}).Where("metadata_id = ?", metadataID).Count(&n).Error
	return n, translate("claims.count", err)
}
