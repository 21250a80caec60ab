// Package errors provides structured error handling for the escrow engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors (malformed or missing input at creation)
	CodeRequestInvalid            Code = "REQUEST_INVALID"
	CodeContractPaymentInvalid    Code = "CONTRACT_PAYMENT_INVALID"
	CodeContractShipperMissing    Code = "CONTRACT_SHIPPER_MISSING"
	CodeContractCarrierMissing    Code = "CONTRACT_CARRIER_MISSING"
	CodeContractRecipientMissing  Code = "CONTRACT_RECIPIENT_MISSING"
	CodeContractMilestonesEmpty   Code = "CONTRACT_MILESTONES_EMPTY"
	CodeContractMilestoneMismatch Code = "CONTRACT_MILESTONE_MISMATCH"
	CodeMilestoneLocationMissing  Code = "MILESTONE_LOCATION_MISSING"
	CodeMilestoneVerifierMissing  Code = "MILESTONE_VERIFIER_MISSING"
	CodeMilestoneIndexOutOfRange  Code = "MILESTONE_INDEX_OUT_OF_RANGE"

	// Authorization errors (wrong caller for the required role)
	CodeContractCallerNotCarrier   Code = "CONTRACT_CALLER_NOT_CARRIER"
	CodeMilestoneCallerNotVerifier Code = "MILESTONE_CALLER_NOT_VERIFIER"
	CodeContractPartyNotNamed      Code = "CONTRACT_PARTY_NOT_NAMED"
	CodeGrantInvalid               Code = "GRANT_INVALID"
	CodeGrantExpired               Code = "GRANT_EXPIRED"
	CodeGrantSubjectMissing        Code = "GRANT_SUBJECT_MISSING"

	// State errors (operation attempted in a disallowing status)
	CodeContractInvalidStatusTransition Code = "CONTRACT_INVALID_STATUS_TRANSITION"
	CodeContractStatusDisallowsOp       Code = "CONTRACT_STATUS_DISALLOWS_OPERATION"

	// Order errors (milestone verified out of sequence or repeated)
	CodeMilestoneOutOfOrder       Code = "MILESTONE_OUT_OF_ORDER"
	CodeMilestoneAlreadyCompleted Code = "MILESTONE_ALREADY_COMPLETED"

	// Verification errors (commitment hash mismatch)
	CodeCommitmentMismatch Code = "COMMITMENT_MISMATCH"

	// Payment errors (fund movement failed)
	CodePaymentTransferFailed    Code = "PAYMENT_TRANSFER_FAILED"
	CodePaymentInsufficientFunds Code = "PAYMENT_INSUFFICIENT_FUNDS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeRequestInvalid,
		CodeContractPaymentInvalid,
		CodeContractShipperMissing,
		CodeContractCarrierMissing,
		CodeContractRecipientMissing,
		CodeContractMilestonesEmpty,
		CodeContractMilestoneMismatch,
		CodeMilestoneLocationMissing,
		CodeMilestoneVerifierMissing,
		CodeMilestoneIndexOutOfRange:
		return http.StatusBadRequest

	// Unauthorized - caller identity could not be established
	case CodeGrantInvalid,
		CodeGrantExpired,
		CodeGrantSubjectMissing:
		return http.StatusUnauthorized

	// Forbidden - caller lacks the role the operation requires
	case CodeContractCallerNotCarrier,
		CodeMilestoneCallerNotVerifier,
		CodeContractPartyNotNamed:
		return http.StatusForbidden

	// Conflict - current status or milestone ordering disallows the operation
	case CodeContractInvalidStatusTransition,
		CodeContractStatusDisallowsOp,
		CodeMilestoneOutOfOrder,
		CodeMilestoneAlreadyCompleted:
		return http.StatusConflict

	// Unprocessable - presented commitment bytes do not authenticate
	case CodeCommitmentMismatch:
		return http.StatusUnprocessableEntity

	// Payment required - escrow deposit or payout failed
	case CodePaymentTransferFailed,
		CodePaymentInsufficientFunds:
		return http.StatusPaymentRequired

	// Not found - resource doesn't exist
	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
