package workflows

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
)

// WorkflowStarter is the part of client.Client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Dispatcher starts one mint workflow per committed claim.
type Dispatcher struct {
	Starter   WorkflowStarter
	TaskQueue string
}

// ErrIncompleteEvent marks a committed event that cannot be minted.
var ErrIncompleteEvent = errors.New("claim event missing metadata, recipient or claim id")

// HandleClaimCommitted starts MintClaimWorkflow for the event's claim.
// Workflow IDs are never reused, so an event redelivered after its run has
// closed is absorbed just like one that arrives while it is still running.
func (d *Dispatcher) HandleClaimCommitted(ctx context.Context, event *domain.ClaimEvent) error {
	input := MintInput{
		MetadataID: event.Claim.MetadataID,
		Recipient:  event.Claim.UserAddress,
		ClaimID:    event.Claim.ID,
	}
	if input.MetadataID == "" || input.Recipient == "" || input.ClaimID == "" {
		return ErrIncompleteEvent
	}

	run, err := d.Starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       WorkflowID(input),
		TaskQueue:                                d.TaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, MintClaimWorkflow, input)

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		logging.FromContext(ctx).Debug("mint already started for claim", "workflow_id", WorkflowID(input))
		return nil
	}
	if err != nil {
		return fmt.Errorf("start mint workflow: %w", err)
	}

	logging.FromContext(ctx).Info("mint workflow started",
		"workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
