package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/core/usecases"
)

// MintActivities holds the activity implementations for the mint saga.
type MintActivities struct {
	Minter ports.Minter
	Claims *usecases.ClaimService
}

// MintNFT asks the backend to mint the claimed NFT. Rejections are marked
// non-retryable so the saga compensates immediately.
func (a *MintActivities) MintNFT(ctx context.Context, input MintInput) (*ports.MintReceipt, error) {
	receipt, err := a.Minter.Mint(ctx, ports.MintRequest{
		MetadataID: input.MetadataID,
		Recipient:  input.Recipient,
	})
	if errors.Is(err, domain.ErrMintRejected) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeMintRejected, err)
	}
	if err != nil {
		return nil, fmt.Errorf("mint %s for %s: %w", input.MetadataID, input.Recipient, err)
	}
	activity.GetLogger(ctx).Info("NFT minted", "metadata_id", input.MetadataID, "recipient", input.Recipient)
	return receipt, nil
}

// ReleaseClaim drops the reservation after a failed mint (saga compensation).
func (a *MintActivities) ReleaseClaim(ctx context.Context, input MintInput, reason string) error {
	if err := a.Claims.ReleaseClaim(ctx, input.MetadataID, input.Recipient, reason); err != nil {
		return fmt.Errorf("release claim %s/%s: %w", input.MetadataID, input.Recipient, err)
	}
	activity.GetLogger(ctx).Info("claim released (saga compensation)", "metadata_id", input.MetadataID, "recipient", input.Recipient)
	return nil
}
