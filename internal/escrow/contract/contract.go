// Package contract holds the escrow contract domain model and its decisions.
//
// A contract binds a shipper, a carrier, and a recipient to an ordered list
// of delivery milestones. The shipper funds the escrow at creation, the
// carrier accepts, and each milestone releases a slice of the payment once
// its designated verifier presents the matching commitment bytes.
package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

var (
	// ErrPaymentInvalid indicates a non-positive escrow payment.
	ErrPaymentInvalid = apperrors.New(apperrors.CodeContractPaymentInvalid, "escrow payment must be greater than zero")
	// ErrShipperMissing indicates a missing shipper identity.
	ErrShipperMissing = apperrors.New(apperrors.CodeContractShipperMissing, "shipper is required")
	// ErrCarrierMissing indicates a missing carrier identity.
	ErrCarrierMissing = apperrors.New(apperrors.CodeContractCarrierMissing, "carrier is required")
	// ErrRecipientMissing indicates a missing recipient identity.
	ErrRecipientMissing = apperrors.New(apperrors.CodeContractRecipientMissing, "recipient is required")
	// ErrMilestonesEmpty indicates a contract created without milestones.
	ErrMilestonesEmpty = apperrors.New(apperrors.CodeContractMilestonesEmpty, "at least one milestone is required")
)

// Milestone is one ordered delivery checkpoint within a contract.
//
// The commitment hash is fixed at creation; the milestone completes when its
// verifier presents bytes that reproduce the hash. Milestones are never added
// or removed after creation.
type Milestone struct {
	Index          int
	Location       string
	Verifier       string
	CommitmentHash string
	Completed      bool
	// CompletedAt is the timestamp when the milestone was verified.
	CompletedAt *time.Time
	// ReleasedAmount is the payout released by this milestone's verification.
	ReleasedAmount int64
}

// Contract represents one escrowed logistics agreement.
type Contract struct {
	ID        int64
	Shipper   string
	Carrier   string
	Recipient string
	// Payment is the escrowed amount in minor currency units.
	Payment    int64
	Status     Status
	Milestones []Milestone
	// CompletedMilestones counts contiguously verified milestones from index 0.
	CompletedMilestones int
	// ReleasedAmount is the total paid out to the carrier so far.
	ReleasedAmount int64
	// CreatedAt is the timestamp when the contract was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp when contract state last changed.
	UpdatedAt time.Time
	// AcceptedAt is the timestamp when the carrier accepted the contract.
	AcceptedAt *time.Time
	// CompletedAt is the timestamp when the final milestone was verified.
	CompletedAt *time.Time
}

// MilestoneInput describes one milestone requested at creation.
type MilestoneInput struct {
	Location string
	Verifier string
}

// CreateContractInput describes the data needed to create a contract.
type CreateContractInput struct {
	Shipper    string
	Carrier    string
	Recipient  string
	Payment    int64
	Milestones []MilestoneInput
}

// PairMilestones zips parallel location and verifier lists into milestone inputs.
func PairMilestones(locations, verifiers []string) ([]MilestoneInput, error) {
	if len(locations) != len(verifiers) {
		return nil, apperrors.WithMetadata(
			apperrors.CodeContractMilestoneMismatch,
			"locations and verifiers must have the same length",
			map[string]string{
				"Locations": strconv.Itoa(len(locations)),
				"Verifiers": strconv.Itoa(len(verifiers)),
			},
		)
	}
	inputs := make([]MilestoneInput, len(locations))
	for i := range locations {
		inputs[i] = MilestoneInput{Location: locations[i], Verifier: verifiers[i]}
	}
	return inputs, nil
}

// NormalizeCreateContractInput trims and validates contract creation input.
func NormalizeCreateContractInput(input CreateContractInput) (CreateContractInput, error) {
	normalized := CreateContractInput{
		Shipper:   strings.TrimSpace(input.Shipper),
		Carrier:   strings.TrimSpace(input.Carrier),
		Recipient: strings.TrimSpace(input.Recipient),
		Payment:   input.Payment,
	}

	if normalized.Payment <= 0 {
		return CreateContractInput{}, ErrPaymentInvalid
	}
	if normalized.Shipper == "" {
		return CreateContractInput{}, ErrShipperMissing
	}
	if normalized.Carrier == "" {
		return CreateContractInput{}, ErrCarrierMissing
	}
	if normalized.Recipient == "" {
		return CreateContractInput{}, ErrRecipientMissing
	}
	if len(input.Milestones) == 0 {
		return CreateContractInput{}, ErrMilestonesEmpty
	}

	normalized.Milestones = make([]MilestoneInput, len(input.Milestones))
	for i, milestone := range input.Milestones {
		location := strings.TrimSpace(milestone.Location)
		verifier := strings.TrimSpace(milestone.Verifier)
		if location == "" {
			return CreateContractInput{}, apperrors.WithMetadata(
				apperrors.CodeMilestoneLocationMissing,
				fmt.Sprintf("milestone %d location is required", i),
				map[string]string{"Index": strconv.Itoa(i)},
			)
		}
		if verifier == "" {
			return CreateContractInput{}, apperrors.WithMetadata(
				apperrors.CodeMilestoneVerifierMissing,
				fmt.Sprintf("milestone %d verifier is required", i),
				map[string]string{"Index": strconv.Itoa(i)},
			)
		}
		normalized.Milestones[i] = MilestoneInput{Location: location, Verifier: verifier}
	}

	return normalized, nil
}

// NewContract builds a contract from normalized input, an allocated identifier,
// and the per-milestone commitment hashes derived for that identifier.
func NewContract(input CreateContractInput, contractID int64, commitments []string, now func() time.Time) (Contract, error) {
	if now == nil {
		now = time.Now
	}
	if contractID <= 0 {
		return Contract{}, fmt.Errorf("contract id must be positive, got %d", contractID)
	}

	normalized, err := NormalizeCreateContractInput(input)
	if err != nil {
		return Contract{}, err
	}

	if len(commitments) != len(normalized.Milestones) {
		return Contract{}, apperrors.WithMetadata(
			apperrors.CodeContractMilestoneMismatch,
			"commitment hashes must match milestone count",
			map[string]string{
				"Milestones":  strconv.Itoa(len(normalized.Milestones)),
				"Commitments": strconv.Itoa(len(commitments)),
			},
		)
	}

	milestones := make([]Milestone, len(normalized.Milestones))
	for i, milestone := range normalized.Milestones {
		milestones[i] = Milestone{
			Index:          i,
			Location:       milestone.Location,
			Verifier:       milestone.Verifier,
			CommitmentHash: commitments[i],
		}
	}

	createdAt := now().UTC()
	return Contract{
		ID:         contractID,
		Shipper:    normalized.Shipper,
		Carrier:    normalized.Carrier,
		Recipient:  normalized.Recipient,
		Payment:    normalized.Payment,
		Status:     StatusCreated,
		Milestones: milestones,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}

// TransitionStatus applies a status transition and updates timestamps.
func TransitionStatus(c Contract, target Status, now func() time.Time) (Contract, error) {
	if now == nil {
		now = time.Now
	}
	if !IsStatusTransitionAllowed(c.Status, target) {
		fromStatus := StatusLabel(c.Status)
		toStatus := StatusLabel(target)
		return Contract{}, apperrors.WithMetadata(
			apperrors.CodeContractInvalidStatusTransition,
			fmt.Sprintf("contract status transition not allowed: %s -> %s", fromStatus, toStatus),
			map[string]string{"FromStatus": fromStatus, "ToStatus": toStatus},
		)
	}

	updated := c
	updated.Status = target
	updatedAt := now().UTC()
	updated.UpdatedAt = updatedAt
	if target == StatusActive && updated.AcceptedAt == nil {
		updated.AcceptedAt = &updatedAt
	}
	if target == StatusCompleted && updated.CompletedAt == nil {
		updated.CompletedAt = &updatedAt
	}
	return updated, nil
}

// AcceptContract records the carrier's acceptance of a created contract.
//
// Only the designated carrier may accept, and only while the contract is in
// CREATED status.
func AcceptContract(c Contract, caller string, now func() time.Time) (Contract, error) {
	if strings.TrimSpace(caller) != c.Carrier {
		return Contract{}, apperrors.WithMetadata(
			apperrors.CodeContractCallerNotCarrier,
			"only the designated carrier may accept the contract",
			map[string]string{
				"ContractID": strconv.FormatInt(c.ID, 10),
				"Caller":     strings.TrimSpace(caller),
			},
		)
	}
	return TransitionStatus(c, StatusActive, now)
}

// CheckVerification validates that the milestone at index may be verified now
// by caller, and returns the milestone when it may.
//
// Checks run in a fixed order: contract status, index range, milestone order,
// then caller identity. Commitment bytes are checked separately by the caller.
func CheckVerification(c Contract, index int, caller string) (Milestone, error) {
	milestone, err := checkVerifiable(c, index)
	if err != nil {
		return Milestone{}, err
	}
	if strings.TrimSpace(caller) != milestone.Verifier {
		return Milestone{}, apperrors.WithMetadata(
			apperrors.CodeMilestoneCallerNotVerifier,
			fmt.Sprintf("milestone %d may only be verified by its designated verifier", index),
			map[string]string{
				"ContractID": strconv.FormatInt(c.ID, 10),
				"Index":      strconv.Itoa(index),
				"Caller":     strings.TrimSpace(caller),
			},
		)
	}
	return milestone, nil
}

// CompleteMilestone marks the milestone at index verified, releases its payout,
// and completes the contract when the final milestone is reached.
//
// It returns the updated contract and the amount released by this milestone.
func CompleteMilestone(c Contract, index int, now func() time.Time) (Contract, int64, error) {
	if now == nil {
		now = time.Now
	}
	if _, err := checkVerifiable(c, index); err != nil {
		return Contract{}, 0, err
	}

	amount := ReleaseAmount(c.Payment, len(c.Milestones), index, c.ReleasedAmount)
	completedAt := now().UTC()

	updated := c
	updated.Milestones = make([]Milestone, len(c.Milestones))
	copy(updated.Milestones, c.Milestones)
	updated.Milestones[index].Completed = true
	updated.Milestones[index].CompletedAt = &completedAt
	updated.Milestones[index].ReleasedAmount = amount
	updated.CompletedMilestones = c.CompletedMilestones + 1
	updated.ReleasedAmount = c.ReleasedAmount + amount
	updated.UpdatedAt = completedAt

	if updated.CompletedMilestones == len(updated.Milestones) {
		completed, err := TransitionStatus(updated, StatusCompleted, func() time.Time { return completedAt })
		if err != nil {
			return Contract{}, 0, err
		}
		updated = completed
	}

	return updated, amount, nil
}

// checkVerifiable enforces the status, range, and order preconditions for
// verifying the milestone at index.
func checkVerifiable(c Contract, index int) (Milestone, error) {
	if c.Status != StatusActive {
		return Milestone{}, apperrors.WithMetadata(
			apperrors.CodeContractStatusDisallowsOp,
			fmt.Sprintf("milestones can only be verified while the contract is active, status is %s", StatusLabel(c.Status)),
			map[string]string{
				"ContractID": strconv.FormatInt(c.ID, 10),
				"Status":     StatusLabel(c.Status),
			},
		)
	}
	if index < 0 || index >= len(c.Milestones) {
		return Milestone{}, apperrors.WithMetadata(
			apperrors.CodeMilestoneIndexOutOfRange,
			fmt.Sprintf("milestone index %d is out of range", index),
			map[string]string{
				"Index": strconv.Itoa(index),
				"Count": strconv.Itoa(len(c.Milestones)),
			},
		)
	}
	if index != c.CompletedMilestones {
		code := apperrors.CodeMilestoneOutOfOrder
		message := fmt.Sprintf("milestone %d cannot be verified before milestone %d", index, c.CompletedMilestones)
		if index < c.CompletedMilestones {
			code = apperrors.CodeMilestoneAlreadyCompleted
			message = fmt.Sprintf("milestone %d is already completed", index)
		}
		return Milestone{}, apperrors.WithMetadata(code, message, map[string]string{
			"Index":    strconv.Itoa(index),
			"Expected": strconv.Itoa(c.CompletedMilestones),
		})
	}
	return c.Milestones[index], nil
}
