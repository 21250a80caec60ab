// Package commitment derives and checks milestone commitment hashes.
//
// A commitment binds (contract id, location, verifier) into a SHA-256 digest
// fixed at contract creation. The canonical payload bytes are handed to the
// milestone's verifier out of band; presenting them later proves possession
// without the engine storing the payload itself. Fields are length-tagged in
// the preimage so adjacent variable-length values can never be confused.
package commitment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// preimageLabel namespaces commitment digests against other SHA-256 uses.
const preimageLabel = "trackflow:commitment:v1"

// EncodePayload builds the canonical commitment payload for one milestone.
//
// Layout: label, contract id as 8 big-endian bytes, then location and
// verifier each prefixed with a uvarint byte length.
func EncodePayload(contractID int64, location, verifier string) ([]byte, error) {
	if contractID <= 0 {
		return nil, fmt.Errorf("contract id must be positive, got %d", contractID)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return nil, fmt.Errorf("verifier is required")
	}

	payload := make([]byte, 0, len(preimageLabel)+8+2+len(location)+2+len(verifier))
	payload = append(payload, preimageLabel...)
	payload = binary.BigEndian.AppendUint64(payload, uint64(contractID))
	payload = binary.AppendUvarint(payload, uint64(len(location)))
	payload = append(payload, location...)
	payload = binary.AppendUvarint(payload, uint64(len(verifier)))
	payload = append(payload, verifier...)
	return payload, nil
}

// Derive returns the hex commitment hash for one milestone.
func Derive(contractID int64, location, verifier string) (string, error) {
	payload, err := EncodePayload(contractID, location, verifier)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:]), nil
}

// Verify reports whether presented bytes reproduce the stored commitment hash.
//
// This is a pure predicate; callers decide how to treat a negative result.
func Verify(presented []byte, commitmentHash string) bool {
	if len(presented) == 0 || commitmentHash == "" {
		return false
	}
	digest := sha256.Sum256(presented)
	computed := hex.EncodeToString(digest[:])
	return hmac.Equal([]byte(computed), []byte(commitmentHash))
}
