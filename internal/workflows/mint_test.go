package workflows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/geoquest/internal/adapters/memory"
	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/core/usecases"
)

const recipient = "0x7a1b2c3d4e5f60718293a4b5c6d7e8f901234567"

type fakeMinter struct {
	calls int32
	fn    func() (*ports.MintReceipt, error)
}

func (f *fakeMinter) Mint(ctx context.Context, req ports.MintRequest) (*ports.MintReceipt, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn()
}

// setup commits a claim for recipient and returns the activities and ledger.
func setup(t *testing.T, minter ports.Minter) (*MintActivities, *memory.ClaimLedger) {
	t.Helper()
	repo := memory.NewMetadataRepository()
	lat, lon, radius := 26.9124, 75.7873, 15000
	m := &domain.GeoMetadata{ID: "m1", Title: "Jaipur Quest", Latitude: &lat, Longitude: &lon, RadiusMeters: &radius}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	ledger := memory.NewClaimLedger()
	claims := usecases.NewClaimService(repo, nil, ledger, nil, usecases.ClaimOptions{})
	if _, err := claims.CommitClaim(context.Background(), "m1", recipient, &domain.GeoPoint{Lat: lat, Lon: lon}); err != nil {
		t.Fatal(err)
	}
	return &MintActivities{Minter: minter, Claims: claims}, ledger
}

func runWorkflow(t *testing.T, acts *MintActivities) error {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(MintClaimWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(MintClaimWorkflow, MintInput{MetadataID: "m1", Recipient: recipient})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	return env.GetWorkflowError()
}

func TestMintClaimWorkflow_Success(t *testing.T) {
	minter := &fakeMinter{fn: func() (*ports.MintReceipt, error) {
		return &ports.MintReceipt{Success: true, Message: "NFT minted"}, nil
	}}
	acts, ledger := setup(t, minter)

	if err := runWorkflow(t, acts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.Len() != 1 {
		t.Error("claim must be kept after a successful mint")
	}
	if minter.calls != 1 {
		t.Errorf("expected 1 mint call, got %d", minter.calls)
	}
}

func TestMintClaimWorkflow_RejectedReleasesClaim(t *testing.T) {
	minter := &fakeMinter{fn: func() (*ports.MintReceipt, error) {
		return nil, domain.ErrMintRejected
	}}
	acts, ledger := setup(t, minter)

	if err := runWorkflow(t, acts); err == nil {
		t.Fatal("expected workflow error")
	}
	if ledger.Len() != 0 {
		t.Error("claim must be released after a rejected mint")
	}
	if minter.calls != 1 {
		t.Errorf("rejection must not be retried, got %d calls", minter.calls)
	}
}

func TestMintClaimWorkflow_TransientRetriedThenReleased(t *testing.T) {
	minter := &fakeMinter{fn: func() (*ports.MintReceipt, error) {
		return nil, errors.New("connection reset")
	}}
	acts, ledger := setup(t, minter)

	if err := runWorkflow(t, acts); err == nil {
		t.Fatal("expected workflow error")
	}
	if minter.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", minter.calls)
	}
	if ledger.Len() != 0 {
		t.Error("claim must be released after retries are exhausted")
	}
}

func TestWorkflowID(t *testing.T) {
	got := WorkflowID(MintInput{MetadataID: "m1", Recipient: "0xabc", ClaimID: "c1"})
	if got != "mint-m1-0xabc-c1" {
		t.Errorf("WorkflowID = %q", got)
	}
}
