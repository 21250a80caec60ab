package contract

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testCreateInput() CreateContractInput {
	return CreateContractInput{
		Shipper:   "shipper-1",
		Carrier:   "carrier-1",
		Recipient: "recipient-1",
		Payment:   100,
		Milestones: []MilestoneInput{
			{Location: "warehouse-a", Verifier: "verifier-1"},
			{Location: "port-b", Verifier: "verifier-2"},
			{Location: "door-c", Verifier: "verifier-1"},
		},
	}
}

func testCommitments(n int) []string {
	hashes := make([]string, n)
	for i := range hashes {
		hashes[i] = "hash-" + string(rune('a'+i))
	}
	return hashes
}

func TestNewContractNormalizesInput(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	input := testCreateInput()
	input.Shipper = "  shipper-1  "
	input.Milestones[0].Location = "  warehouse-a "

	c, err := NewContract(input, 7, testCommitments(3), fixedClock(createdAt))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	if c.ID != 7 {
		t.Fatalf("expected id 7, got %d", c.ID)
	}
	if c.Shipper != "shipper-1" {
		t.Fatalf("expected trimmed shipper, got %q", c.Shipper)
	}
	if c.Status != StatusCreated {
		t.Fatalf("expected status CREATED, got %s", StatusLabel(c.Status))
	}
	if c.Payment != 100 {
		t.Fatalf("expected payment 100, got %d", c.Payment)
	}
	if c.ReleasedAmount != 0 || c.CompletedMilestones != 0 {
		t.Fatalf("expected zero released state, got released=%d completed=%d", c.ReleasedAmount, c.CompletedMilestones)
	}
	if len(c.Milestones) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(c.Milestones))
	}
	for i, milestone := range c.Milestones {
		if milestone.Index != i {
			t.Fatalf("expected milestone index %d, got %d", i, milestone.Index)
		}
		if milestone.Completed {
			t.Fatalf("expected milestone %d incomplete", i)
		}
	}
	if c.Milestones[0].Location != "warehouse-a" {
		t.Fatalf("expected trimmed location, got %q", c.Milestones[0].Location)
	}
	if c.Milestones[1].CommitmentHash != "hash-b" {
		t.Fatalf("expected commitment hash-b, got %q", c.Milestones[1].CommitmentHash)
	}
	if !c.CreatedAt.Equal(createdAt) || !c.UpdatedAt.Equal(createdAt) {
		t.Fatal("expected timestamps to match fixed time")
	}
	if c.AcceptedAt != nil || c.CompletedAt != nil {
		t.Fatal("expected accepted_at and completed_at unset")
	}
}

func TestNormalizeCreateContractInputValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateContractInput)
		err    error
	}{
		{
			name:   "zero payment",
			mutate: func(input *CreateContractInput) { input.Payment = 0 },
			err:    ErrPaymentInvalid,
		},
		{
			name:   "negative payment",
			mutate: func(input *CreateContractInput) { input.Payment = -5 },
			err:    ErrPaymentInvalid,
		},
		{
			name:   "missing shipper",
			mutate: func(input *CreateContractInput) { input.Shipper = "   " },
			err:    ErrShipperMissing,
		},
		{
			name:   "missing carrier",
			mutate: func(input *CreateContractInput) { input.Carrier = "" },
			err:    ErrCarrierMissing,
		},
		{
			name:   "missing recipient",
			mutate: func(input *CreateContractInput) { input.Recipient = "" },
			err:    ErrRecipientMissing,
		},
		{
			name:   "no milestones",
			mutate: func(input *CreateContractInput) { input.Milestones = nil },
			err:    ErrMilestonesEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := testCreateInput()
			tt.mutate(&input)
			_, err := NormalizeCreateContractInput(input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
		})
	}
}

func TestNormalizeCreateContractInputMilestoneFields(t *testing.T) {
	input := testCreateInput()
	input.Milestones[1].Location = "  "
	if _, err := NormalizeCreateContractInput(input); apperrors.CodeOf(err) != apperrors.CodeMilestoneLocationMissing {
		t.Fatalf("expected milestone location error, got %v", err)
	}

	input = testCreateInput()
	input.Milestones[2].Verifier = ""
	if _, err := NormalizeCreateContractInput(input); apperrors.CodeOf(err) != apperrors.CodeMilestoneVerifierMissing {
		t.Fatalf("expected milestone verifier error, got %v", err)
	}
}

func TestPairMilestones(t *testing.T) {
	inputs, err := PairMilestones([]string{"a", "b"}, []string{"v1", "v2"})
	if err != nil {
		t.Fatalf("pair milestones: %v", err)
	}
	if len(inputs) != 2 || inputs[1].Location != "b" || inputs[1].Verifier != "v2" {
		t.Fatalf("unexpected pairing: %+v", inputs)
	}

	_, err = PairMilestones([]string{"a", "b"}, []string{"v1"})
	if apperrors.CodeOf(err) != apperrors.CodeContractMilestoneMismatch {
		t.Fatalf("expected milestone mismatch error, got %v", err)
	}
}

func TestNewContractCommitmentCountMismatch(t *testing.T) {
	_, err := NewContract(testCreateInput(), 1, testCommitments(2), nil)
	if apperrors.CodeOf(err) != apperrors.CodeContractMilestoneMismatch {
		t.Fatalf("expected milestone mismatch error, got %v", err)
	}
}

func TestNewContractRequiresPositiveID(t *testing.T) {
	if _, err := NewContract(testCreateInput(), 0, testCommitments(3), nil); err == nil {
		t.Fatal("expected error for non-positive contract id")
	}
}

func TestAcceptContract(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	acceptedAt := createdAt.Add(time.Hour)

	c, err := NewContract(testCreateInput(), 1, testCommitments(3), fixedClock(createdAt))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	t.Run("carrier accepts", func(t *testing.T) {
		updated, err := AcceptContract(c, "carrier-1", fixedClock(acceptedAt))
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if updated.Status != StatusActive {
			t.Fatalf("expected status ACTIVE, got %s", StatusLabel(updated.Status))
		}
		if updated.AcceptedAt == nil || !updated.AcceptedAt.Equal(acceptedAt) {
			t.Fatalf("expected accepted_at %v, got %v", acceptedAt, updated.AcceptedAt)
		}
		if !updated.UpdatedAt.Equal(acceptedAt) {
			t.Fatalf("expected updated_at %v, got %v", acceptedAt, updated.UpdatedAt)
		}
	})

	t.Run("non-carrier rejected", func(t *testing.T) {
		_, err := AcceptContract(c, "shipper-1", fixedClock(acceptedAt))
		if apperrors.CodeOf(err) != apperrors.CodeContractCallerNotCarrier {
			t.Fatalf("expected caller-not-carrier error, got %v", err)
		}
	})

	t.Run("accept on active contract rejected", func(t *testing.T) {
		active, err := AcceptContract(c, "carrier-1", fixedClock(acceptedAt))
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		_, err = AcceptContract(active, "carrier-1", fixedClock(acceptedAt))
		if apperrors.CodeOf(err) != apperrors.CodeContractInvalidStatusTransition {
			t.Fatalf("expected invalid transition error, got %v", err)
		}
	})
}

func TestIsStatusTransitionAllowed(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusCreated, StatusActive, true},
		{StatusActive, StatusCompleted, true},
		{StatusCreated, StatusCompleted, false},
		{StatusActive, StatusCreated, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCreated, false},
		{StatusUnspecified, StatusCreated, false},
	}

	for _, tt := range tests {
		if got := IsStatusTransitionAllowed(tt.from, tt.to); got != tt.allowed {
			t.Fatalf("transition %s -> %s: expected %v, got %v",
				StatusLabel(tt.from), StatusLabel(tt.to), tt.allowed, got)
		}
	}
}

func TestCheckVerification(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	c, err := NewContract(testCreateInput(), 1, testCommitments(3), fixedClock(createdAt))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	t.Run("rejected while created", func(t *testing.T) {
		_, err := CheckVerification(c, 0, "verifier-1")
		if apperrors.CodeOf(err) != apperrors.CodeContractStatusDisallowsOp {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	active, err := AcceptContract(c, "carrier-1", fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	t.Run("index out of range", func(t *testing.T) {
		for _, index := range []int{-1, 3, 10} {
			_, err := CheckVerification(active, index, "verifier-1")
			if apperrors.CodeOf(err) != apperrors.CodeMilestoneIndexOutOfRange {
				t.Fatalf("index %d: expected out-of-range error, got %v", index, err)
			}
		}
	})

	t.Run("out of order", func(t *testing.T) {
		_, err := CheckVerification(active, 1, "verifier-2")
		if apperrors.CodeOf(err) != apperrors.CodeMilestoneOutOfOrder {
			t.Fatalf("expected out-of-order error, got %v", err)
		}
	})

	t.Run("wrong verifier", func(t *testing.T) {
		_, err := CheckVerification(active, 0, "verifier-2")
		if apperrors.CodeOf(err) != apperrors.CodeMilestoneCallerNotVerifier {
			t.Fatalf("expected caller-not-verifier error, got %v", err)
		}
	})

	t.Run("allowed in order", func(t *testing.T) {
		milestone, err := CheckVerification(active, 0, "verifier-1")
		if err != nil {
			t.Fatalf("check verification: %v", err)
		}
		if milestone.Location != "warehouse-a" {
			t.Fatalf("expected first milestone, got %+v", milestone)
		}
	})

	t.Run("already completed", func(t *testing.T) {
		completed, _, err := CompleteMilestone(active, 0, fixedClock(createdAt.Add(2*time.Hour)))
		if err != nil {
			t.Fatalf("complete milestone: %v", err)
		}
		_, err = CheckVerification(completed, 0, "verifier-1")
		if apperrors.CodeOf(err) != apperrors.CodeMilestoneAlreadyCompleted {
			t.Fatalf("expected already-completed error, got %v", err)
		}
	})
}

func TestCompleteMilestoneReleasesPayouts(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	c, err := NewContract(testCreateInput(), 1, testCommitments(3), fixedClock(createdAt))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	active, err := AcceptContract(c, "carrier-1", fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	expected := []int64{33, 33, 34}
	current := active
	for i, want := range expected {
		verifiedAt := createdAt.Add(time.Duration(i+2) * time.Hour)
		updated, amount, err := CompleteMilestone(current, i, fixedClock(verifiedAt))
		if err != nil {
			t.Fatalf("complete milestone %d: %v", i, err)
		}
		if amount != want {
			t.Fatalf("milestone %d: expected release %d, got %d", i, want, amount)
		}
		if !updated.Milestones[i].Completed {
			t.Fatalf("milestone %d: expected completed flag", i)
		}
		if updated.Milestones[i].ReleasedAmount != want {
			t.Fatalf("milestone %d: expected recorded release %d, got %d", i, want, updated.Milestones[i].ReleasedAmount)
		}
		if updated.Milestones[i].CompletedAt == nil || !updated.Milestones[i].CompletedAt.Equal(verifiedAt) {
			t.Fatalf("milestone %d: expected completed_at %v", i, verifiedAt)
		}
		if updated.CompletedMilestones != i+1 {
			t.Fatalf("milestone %d: expected %d completed, got %d", i, i+1, updated.CompletedMilestones)
		}
		current = updated
	}

	if current.ReleasedAmount != 100 {
		t.Fatalf("expected total released 100, got %d", current.ReleasedAmount)
	}
	if current.Status != StatusCompleted {
		t.Fatalf("expected status COMPLETED, got %s", StatusLabel(current.Status))
	}
	if current.CompletedAt == nil {
		t.Fatal("expected completed_at set")
	}

	// The input contract must not be mutated through the shared slice.
	if active.Milestones[0].Completed || active.CompletedMilestones != 0 {
		t.Fatal("expected original contract untouched")
	}
}

func TestCompleteMilestoneSingle(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	input := CreateContractInput{
		Shipper:    "shipper-1",
		Carrier:    "carrier-1",
		Recipient:  "recipient-1",
		Payment:    7,
		Milestones: []MilestoneInput{{Location: "door", Verifier: "verifier-1"}},
	}
	c, err := NewContract(input, 2, testCommitments(1), fixedClock(createdAt))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	active, err := AcceptContract(c, "carrier-1", fixedClock(createdAt))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	updated, amount, err := CompleteMilestone(active, 0, fixedClock(createdAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	if amount != 7 {
		t.Fatalf("expected release 7, got %d", amount)
	}
	if updated.ReleasedAmount != 7 {
		t.Fatalf("expected total released 7, got %d", updated.ReleasedAmount)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected status COMPLETED, got %s", StatusLabel(updated.Status))
	}
}

func TestStatusLabelRoundTrip(t *testing.T) {
	for _, status := range []Status{StatusCreated, StatusActive, StatusCompleted} {
		parsed, err := StatusFromLabel(StatusLabel(status))
		if err != nil {
			t.Fatalf("parse %s: %v", StatusLabel(status), err)
		}
		if parsed != status {
			t.Fatalf("expected %v, got %v", status, parsed)
		}
	}

	if _, err := StatusFromLabel(""); err == nil {
		t.Fatal("expected error for empty label")
	}
	if _, err := StatusFromLabel("SHIPPED"); err == nil {
		t.Fatal("expected error for unknown label")
	}
	if parsed, err := StatusFromLabel("contract_status_active"); err != nil || parsed != StatusActive {
		t.Fatalf("expected prefixed lowercase label to parse, got %v (%v)", parsed, err)
	}
}
