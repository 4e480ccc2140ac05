package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/geoquest/internal/core/ports"
)

const errTypeMintRejected = "MintRejected"

// MintInput is the input for the mint workflow.
type MintInput struct {
	MetadataID string
	Recipient  string
	ClaimID    string
}

// WorkflowID is deterministic per reservation. A redelivered event maps to
// the same ID; a fresh claim after a release gets a new one.
func WorkflowID(input MintInput) string {
	return "mint-" + input.MetadataID + "-" + input.Recipient + "-" + input.ClaimID
}

// MintClaimWorkflow mints the NFT for a committed claim. If minting fails
// the claim is released (saga compensation) so the user can try again.
func MintClaimWorkflow(ctx workflow.Context, input MintInput) (*ports.MintReceipt, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting mint workflow", "metadataID", input.MetadataID, "recipient", input.Recipient)

	mintCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeMintRejected},
		},
	})

	var receipt ports.MintReceipt
	err := workflow.ExecuteActivity(mintCtx, "MintNFT", input).Get(ctx, &receipt)
	if err == nil {
		logger.Info("Mint completed", "message", receipt.Message)
		return &receipt, nil
	}

	logger.Warn("mint failed, compensating", "error", err)

	releaseCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 10,
		},
	})
	if rerr := workflow.ExecuteActivity(releaseCtx, "ReleaseClaim", input, err.Error()).Get(ctx, nil); rerr != nil {
		logger.Error("claim release failed", "error", rerr)
	}
	return nil, err
}
