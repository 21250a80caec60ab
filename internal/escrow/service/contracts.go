package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/commitment"
	"github.com/WuodOdhis/trackflow/internal/escrow/contract"
	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/ledger"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage"
	"github.com/WuodOdhis/trackflow/internal/platform/pagination"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// CreateContractResult is the outcome of a successful contract creation.
type CreateContractResult struct {
	Contract contract.Contract
	// Commitments holds the canonical payload bytes for each milestone, in
	// milestone order. They are returned exactly once; the engine keeps only
	// the derived hashes.
	Commitments [][]byte
}

// CreateContract registers a new escrow contract and funds its escrow
// account from the shipper's ledger account.
func (e *Engine) CreateContract(ctx context.Context, input contract.CreateContractInput) (CreateContractResult, error) {
	start := time.Now()
	result, err := e.createContract(ctx, input)
	e.observeOp(opCreateContract, start, err)
	return result, err
}

func (e *Engine) createContract(ctx context.Context, input contract.CreateContractInput) (CreateContractResult, error) {
	normalized, err := contract.NormalizeCreateContractInput(input)
	if err != nil {
		return CreateContractResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	contractID, err := e.store.NextContractID(ctx)
	if err != nil {
		return CreateContractResult{}, err
	}

	commitments := make([][]byte, len(normalized.Milestones))
	hashes := make([]string, len(normalized.Milestones))
	for i, milestone := range normalized.Milestones {
		payload, err := commitment.EncodePayload(contractID, milestone.Location, milestone.Verifier)
		if err != nil {
			return CreateContractResult{}, fmt.Errorf("encode milestone %d commitment: %w", i, err)
		}
		hash, err := commitment.Derive(contractID, milestone.Location, milestone.Verifier)
		if err != nil {
			return CreateContractResult{}, fmt.Errorf("derive milestone %d commitment: %w", i, err)
		}
		commitments[i] = payload
		hashes[i] = hash
	}

	created, err := contract.NewContract(normalized, contractID, hashes, e.clock)
	if err != nil {
		return CreateContractResult{}, err
	}

	payloadJSON, err := json.Marshal(event.ContractCreatedPayload{
		Shipper:    created.Shipper,
		Carrier:    created.Carrier,
		Recipient:  created.Recipient,
		Payment:    created.Payment,
		Milestones: len(created.Milestones),
	})
	if err != nil {
		return CreateContractResult{}, fmt.Errorf("marshal contract created payload: %w", err)
	}

	evt := event.Event{
		ContractID:  created.ID,
		Timestamp:   created.CreatedAt,
		Type:        event.TypeContractCreated,
		ActorType:   event.ActorTypeParty,
		ActorID:     created.Shipper,
		PayloadJSON: payloadJSON,
	}

	stored, err := e.store.CreateContract(ctx, created, evt, func(ctx context.Context) error {
		return e.escrowDeposit(ctx, created)
	})
	if err != nil {
		return CreateContractResult{}, err
	}

	e.publish(ctx, stored)
	return CreateContractResult{Contract: created, Commitments: commitments}, nil
}

// escrowDeposit moves the full payment from the shipper into the contract's
// escrow account. It runs inside the creation transaction.
func (e *Engine) escrowDeposit(ctx context.Context, c contract.Contract) error {
	err := e.ledger.Transfer(ctx, c.Shipper, ledger.EscrowAccount(c.ID), c.Payment)
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return err
	}
	return apperrors.Wrap(apperrors.CodePaymentTransferFailed, "escrow deposit failed", err)
}

// AcceptContract records the carrier's acceptance and activates the contract.
func (e *Engine) AcceptContract(ctx context.Context, contractID int64, caller string) (contract.Contract, error) {
	start := time.Now()
	accepted, err := e.acceptContract(ctx, contractID, caller)
	e.observeOp(opAcceptContract, start, err)
	return accepted, err
}

func (e *Engine) acceptContract(ctx context.Context, contractID int64, caller string) (contract.Contract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.store.GetContract(ctx, contractID)
	if err != nil {
		return contract.Contract{}, err
	}

	accepted, err := contract.AcceptContract(current, caller, e.clock)
	if err != nil {
		return contract.Contract{}, err
	}

	payloadJSON, err := json.Marshal(event.ContractAcceptedPayload{Carrier: accepted.Carrier})
	if err != nil {
		return contract.Contract{}, fmt.Errorf("marshal contract accepted payload: %w", err)
	}

	evt := event.Event{
		ContractID:  accepted.ID,
		Timestamp:   accepted.UpdatedAt,
		Type:        event.TypeContractAccepted,
		ActorType:   event.ActorTypeParty,
		ActorID:     accepted.Carrier,
		PayloadJSON: payloadJSON,
	}

	stored, err := e.store.TransitionContractStatus(ctx, accepted, evt)
	if err != nil {
		return contract.Contract{}, err
	}

	e.publish(ctx, stored)
	return accepted, nil
}

// GetContract loads one contract with all milestones.
func (e *Engine) GetContract(ctx context.Context, contractID int64) (contract.Contract, error) {
	return e.store.GetContract(ctx, contractID)
}

// ListContracts pages through contracts in identifier order. A non-empty
// party restricts the listing to contracts naming that party.
func (e *Engine) ListContracts(ctx context.Context, party string, pageSize int, pageToken string) (storage.ContractPage, error) {
	pageSize = pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{
		Default: defaultListContractsPageSize,
		Max:     maxListContractsPageSize,
	})
	return e.store.ListContracts(ctx, party, pageSize, pageToken)
}
