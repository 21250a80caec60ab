// Package event defines the immutable journal records emitted by the escrow
// engine. Observers consume them to track contract progress without polling.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a contract event.
type Type string

const (
	// TypeContractCreated records the creation and funding of a contract.
	TypeContractCreated Type = "contract.created"
	// TypeContractAccepted records the carrier accepting a contract.
	TypeContractAccepted Type = "contract.accepted"
	// TypeMilestoneVerified records a successful milestone verification.
	TypeMilestoneVerified Type = "milestone.verified"
	// TypePaymentReleased records an escrow payout to the carrier.
	TypePaymentReleased Type = "payment.released"
)

// ActorType identifies who triggered an event.
type ActorType string

const (
	// ActorTypeSystem indicates the event was triggered by the engine itself.
	ActorTypeSystem ActorType = "system"
	// ActorTypeParty indicates the event was triggered by a contract party.
	ActorTypeParty ActorType = "party"
)

// Event represents an immutable entry in the contract event journal.
type Event struct {
	// ContractID is the contract this event belongs to.
	ContractID int64
	// Seq is the event sequence number within the contract (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// PrevHash is the chain hash of the preceding event (empty for seq 1).
	// Assigned by storage on append.
	PrevHash string
	// ChainHash links this event to its predecessor for tamper evidence.
	// Assigned by storage on append.
	ChainHash string
	// Signature is the HMAC over the chain hash. Assigned by storage on append.
	Signature string
	// SignatureKeyID names the keyring entry that produced the signature.
	SignatureKeyID string
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorType identifies who triggered the event.
	ActorType ActorType
	// ActorID is the party identity when ActorType is party.
	ActorID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "contract").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
