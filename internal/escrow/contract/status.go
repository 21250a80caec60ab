package contract

import (
	"fmt"
	"strings"
)

// Status describes the lifecycle of an escrow contract.
type Status int

const (
	// StatusUnspecified represents an invalid contract status value.
	StatusUnspecified Status = iota
	// StatusCreated indicates the contract is funded and awaiting carrier acceptance.
	StatusCreated
	// StatusActive indicates the carrier accepted and milestones may be verified.
	StatusActive
	// StatusCompleted indicates every milestone is verified and all funds released.
	StatusCompleted
)

// IsStatusTransitionAllowed reports whether a status transition is permitted.
//
// The lifecycle is linear: CREATED moves to ACTIVE on acceptance, ACTIVE moves
// to COMPLETED when the final milestone is verified. Nothing moves backward.
func IsStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusActive
	case StatusActive:
		return to == StatusCompleted
	default:
		return false
	}
}

// StatusLabel returns a stable label for a contract status.
func StatusLabel(status Status) string {
	switch status {
	case StatusCreated:
		return "CREATED"
	case StatusActive:
		return "ACTIVE"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel parses a string label into a Status.
// It trims whitespace and matches case-insensitively. Both short ("ACTIVE")
// and prefixed ("CONTRACT_STATUS_ACTIVE") forms are accepted.
func StatusFromLabel(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StatusUnspecified, fmt.Errorf("contract status is required")
	}
	upper := strings.ToUpper(trimmed)
	switch upper {
	case "CREATED", "CONTRACT_STATUS_CREATED":
		return StatusCreated, nil
	case "ACTIVE", "CONTRACT_STATUS_ACTIVE":
		return StatusActive, nil
	case "COMPLETED", "CONTRACT_STATUS_COMPLETED":
		return StatusCompleted, nil
	default:
		return StatusUnspecified, fmt.Errorf("unknown contract status: %s", trimmed)
	}
}
