package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// ClaimLedger implements ports.ClaimLedger with one key per claimed pair.
// SET NX makes the reservation a single atomic command.
type ClaimLedger struct {
	client valkey.Client
	prefix string
}

// NewClaimLedger builds a ledger on an existing client. Keys are
// "<prefix><metadataID>:<userAddress>"; prefix defaults to "claim:".
func NewClaimLedger(client valkey.Client, prefix string) *ClaimLedger {
	if prefix == "" {
		prefix = "claim:"
	}
	return &ClaimLedger{client: client, prefix: prefix}
}

func (l *ClaimLedger) key(metadataID, userAddress string) string {
	return l.prefix + metadataID + ":" + userAddress
}

func (l *ClaimLedger) HasClaimed(ctx context.Context, metadataID, userAddress string) (bool, error) {
	n, err := l.client.Do(ctx, l.client.B().Exists().Key(l.key(metadataID, userAddress)).Build()).AsInt64()
	if err != nil {
		return false, unavailable(ctx, "claims.has_claimed", err)
	}
	return n > 0, nil
}

func (l *ClaimLedger) TryReserve(ctx context.Context, metadataID, userAddress string, at time.Time) (*domain.ClaimRecord, error) {
	rec := domain.ClaimRecord{
		ID:          uuid.NewString(),
		MetadataID:  metadataID,
		UserAddress: userAddress,
		ClaimedAt:   at,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode claim: %w", err)
	}

	err = l.client.Do(ctx,
		l.client.B().Set().Key(l.key(metadataID, userAddress)).Value(valkey.BinaryString(data)).Nx().Build(),
	).Error()
	if valkey.IsValkeyNil(err) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrReservationConflict, metadataID, userAddress)
	}
	if err != nil {
		return nil, unavailable(ctx, "claims.reserve", err)
	}
	return &rec, nil
}

func (l *ClaimLedger) Release(ctx context.Context, metadataID, userAddress string) error {
	err := l.client.Do(ctx, l.client.B().Del().Key(l.key(metadataID, userAddress)).Build()).Error()
	if err != nil {
		return unavailable(ctx, "claims.release", err)
	}
	return nil
}

func unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return domain.Unavailable(op, err)
}
