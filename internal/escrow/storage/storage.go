package storage

import (
	"context"

	"github.com/WuodOdhis/trackflow/internal/escrow/contract"
	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ContractPage describes a page of contract records.
type ContractPage struct {
	Contracts     []contract.Contract
	NextPageToken string
}

// ContractStore persists escrow contracts, their milestones, and the journal
// entries each mutation emits.
//
// The fund and transfer callbacks run inside the same transaction as the
// state write, immediately before commit. A callback error rolls the whole
// mutation back, so contract state never advances without its fund movement.
type ContractStore interface {
	// NextContractID allocates the next sequential contract identifier.
	NextContractID(ctx context.Context) (int64, error)
	// CreateContract persists a new contract with its creation event and
	// returns the stored event. fund collects the escrow deposit.
	CreateContract(ctx context.Context, c contract.Contract, evt event.Event, fund func(context.Context) error) (event.Event, error)
	// TransitionContractStatus persists an updated contract status with its
	// event and returns the stored event.
	TransitionContractStatus(ctx context.Context, c contract.Contract, evt event.Event) (event.Event, error)
	// CompleteMilestone persists milestone completion on an updated contract
	// with its events and returns the stored events in order. transfer moves
	// the released amount to the carrier.
	CompleteMilestone(ctx context.Context, c contract.Contract, index int, events []event.Event, transfer func(context.Context) error) ([]event.Event, error)
	// GetContract loads one contract with all milestones.
	GetContract(ctx context.Context, contractID int64) (contract.Contract, error)
	// GetMilestone loads one milestone by contract id and index.
	GetMilestone(ctx context.Context, contractID int64, index int) (contract.Milestone, error)
	// ListContracts pages through contracts in identifier order. A non-empty
	// party restricts the scan to contracts naming that party as shipper,
	// carrier, or recipient. Listed contracts omit milestone details.
	ListContracts(ctx context.Context, party string, pageSize int, pageToken string) (ContractPage, error)
}

// EventStore reads the append-only contract event journal.
type EventStore interface {
	// ListEvents returns events for a contract after the given sequence.
	ListEvents(ctx context.Context, contractID int64, afterSeq uint64, limit int) ([]event.Event, error)
	// GetLatestEventSeq returns the highest stored sequence for a contract.
	GetLatestEventSeq(ctx context.Context, contractID int64) (uint64, error)
	// VerifyEventIntegrity replays every journal chain and reports the first
	// hash, link, or signature mismatch.
	VerifyEventIntegrity(ctx context.Context) error
}
