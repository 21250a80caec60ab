package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
)

// hashEnvelope fixes the field set and order covered by the content hash.
type hashEnvelope struct {
	ContractID  int64           `json:"contract_id"`
	TimestampMS int64           `json:"timestamp_ms"`
	Type        string          `json:"type"`
	ActorType   string          `json:"actor_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// EventHash computes the content hash for a single event.
//
// The hash covers the event's content, not its sequence position, so a
// replayed append of identical content produces the same identity. The
// digest is SHA-256 truncated to 128 bits, hex encoded.
func EventHash(evt event.Event) (string, error) {
	if evt.ContractID <= 0 {
		return "", fmt.Errorf("event contract id is required")
	}
	if !evt.Type.IsValid() {
		return "", fmt.Errorf("event type is required")
	}
	if evt.Timestamp.IsZero() {
		return "", fmt.Errorf("event timestamp is required")
	}

	envelope := hashEnvelope{
		ContractID:  evt.ContractID,
		TimestampMS: evt.Timestamp.UTC().UnixMilli(),
		Type:        string(evt.Type),
		ActorType:   string(evt.ActorType),
		ActorID:     evt.ActorID,
		Payload:     json.RawMessage(evt.PayloadJSON),
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode hash envelope: %w", err)
	}
	digest := sha256.Sum256(encoded)
	return hex.EncodeToString(digest[:16]), nil
}

// ChainHash computes the SHA-256 hash that links an event to its predecessor.
//
// The chain hash binds the event's sequence position and content hash to the
// previous chain hash, so reordering or dropping journal rows is detectable.
func ChainHash(evt event.Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	input := fmt.Sprintf("%s:%d:%s", prevHash, evt.Seq, evt.Hash)
	digest := sha256.Sum256([]byte(input))
	return hex.EncodeToString(digest[:]), nil
}
