package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/commitment"
	"github.com/WuodOdhis/trackflow/internal/escrow/contract"
	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/ledger"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// VerifyMilestoneResult is the outcome of a successful milestone verification.
type VerifyMilestoneResult struct {
	Contract  contract.Contract
	Milestone contract.Milestone
	// Released is the amount paid out to the carrier by this verification.
	Released int64
}

// VerifyMilestone checks presented commitment bytes for the milestone at
// index and, on success, marks it complete and releases its payout to the
// carrier.
func (e *Engine) VerifyMilestone(ctx context.Context, contractID int64, index int, presented []byte, caller string) (VerifyMilestoneResult, error) {
	start := time.Now()
	result, err := e.verifyMilestone(ctx, contractID, index, presented, caller)
	e.observeOp(opVerifyMilestone, start, err)
	return result, err
}

func (e *Engine) verifyMilestone(ctx context.Context, contractID int64, index int, presented []byte, caller string) (VerifyMilestoneResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.store.GetContract(ctx, contractID)
	if err != nil {
		return VerifyMilestoneResult{}, err
	}

	milestone, err := contract.CheckVerification(current, index, caller)
	if err != nil {
		return VerifyMilestoneResult{}, err
	}

	if !commitment.Verify(presented, milestone.CommitmentHash) {
		return VerifyMilestoneResult{}, apperrors.WithMetadata(
			apperrors.CodeCommitmentMismatch,
			fmt.Sprintf("presented bytes do not match the commitment for milestone %d", index),
			map[string]string{
				"ContractID": strconv.FormatInt(contractID, 10),
				"Index":      strconv.Itoa(index),
			},
		)
	}

	updated, amount, err := contract.CompleteMilestone(current, index, e.clock)
	if err != nil {
		return VerifyMilestoneResult{}, err
	}
	completed := updated.Milestones[index]

	verifiedJSON, err := json.Marshal(event.MilestoneVerifiedPayload{
		Index:    completed.Index,
		Location: completed.Location,
		Verifier: completed.Verifier,
	})
	if err != nil {
		return VerifyMilestoneResult{}, fmt.Errorf("marshal milestone verified payload: %w", err)
	}
	releasedJSON, err := json.Marshal(event.PaymentReleasedPayload{
		Index:         completed.Index,
		Amount:        amount,
		Carrier:       updated.Carrier,
		TotalReleased: updated.ReleasedAmount,
		Final:         updated.Status == contract.StatusCompleted,
	})
	if err != nil {
		return VerifyMilestoneResult{}, fmt.Errorf("marshal payment released payload: %w", err)
	}

	events := []event.Event{
		{
			ContractID:  updated.ID,
			Timestamp:   updated.UpdatedAt,
			Type:        event.TypeMilestoneVerified,
			ActorType:   event.ActorTypeParty,
			ActorID:     completed.Verifier,
			PayloadJSON: verifiedJSON,
		},
		{
			ContractID:  updated.ID,
			Timestamp:   updated.UpdatedAt,
			Type:        event.TypePaymentReleased,
			ActorType:   event.ActorTypeSystem,
			PayloadJSON: releasedJSON,
		},
	}

	stored, err := e.store.CompleteMilestone(ctx, updated, index, events, func(ctx context.Context) error {
		return e.releasePayout(ctx, updated, amount)
	})
	if err != nil {
		return VerifyMilestoneResult{}, err
	}

	e.publish(ctx, stored...)
	e.metrics.AddReleased(amount)
	return VerifyMilestoneResult{Contract: updated, Milestone: completed, Released: amount}, nil
}

// releasePayout moves a milestone payout from the contract's escrow account
// to the carrier. It runs inside the completion transaction.
//
// Non-final payouts floor to zero when a contract carries more milestones
// than payment units; those verifications release nothing, so there is no
// transfer to make.
func (e *Engine) releasePayout(ctx context.Context, c contract.Contract, amount int64) error {
	if amount == 0 {
		return nil
	}
	err := e.ledger.Transfer(ctx, ledger.EscrowAccount(c.ID), c.Carrier, amount)
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return err
	}
	return apperrors.Wrap(apperrors.CodePaymentTransferFailed, "milestone payout failed", err)
}

// GetMilestone loads one milestone by contract id and index.
func (e *Engine) GetMilestone(ctx context.Context, contractID int64, index int) (contract.Milestone, error) {
	return e.store.GetMilestone(ctx, contractID, index)
}
