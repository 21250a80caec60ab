package commitment

import (
	"strings"
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	first, err := Derive(42, "warehouse-a", "verifier-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := Derive(42, "warehouse-a", "verifier-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic hash, got %q and %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
	if first != strings.ToLower(first) {
		t.Fatalf("expected lowercase hex, got %q", first)
	}
}

func TestDeriveBindsEveryField(t *testing.T) {
	base, err := Derive(1, "warehouse-a", "verifier-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	tests := []struct {
		name       string
		contractID int64
		location   string
		verifier   string
	}{
		{name: "different contract", contractID: 2, location: "warehouse-a", verifier: "verifier-1"},
		{name: "different location", contractID: 1, location: "warehouse-b", verifier: "verifier-1"},
		{name: "different verifier", contractID: 1, location: "warehouse-a", verifier: "verifier-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := Derive(tt.contractID, tt.location, tt.verifier)
			if err != nil {
				t.Fatalf("derive: %v", err)
			}
			if other == base {
				t.Fatal("expected distinct hash")
			}
		})
	}
}

func TestDeriveResistsFieldBoundaryShifts(t *testing.T) {
	// Without length tags "ab"+"c" and "a"+"bc" would share a preimage.
	first, err := Derive(1, "ab", "c")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := Derive(1, "a", "bc")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first == second {
		t.Fatal("expected boundary-shifted fields to hash differently")
	}
}

func TestEncodePayloadValidation(t *testing.T) {
	if _, err := EncodePayload(0, "warehouse-a", "verifier-1"); err == nil {
		t.Fatal("expected error for non-positive contract id")
	}
	if _, err := EncodePayload(1, "  ", "verifier-1"); err == nil {
		t.Fatal("expected error for blank location")
	}
	if _, err := EncodePayload(1, "warehouse-a", ""); err == nil {
		t.Fatal("expected error for empty verifier")
	}
}

func TestVerify(t *testing.T) {
	payload, err := EncodePayload(9, "port-b", "verifier-2")
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	hash, err := Derive(9, "port-b", "verifier-2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if !Verify(payload, hash) {
		t.Fatal("expected canonical payload to verify")
	}

	tampered := make([]byte, len(payload))
	copy(tampered, payload)
	tampered[len(tampered)-1] ^= 0x01
	if Verify(tampered, hash) {
		t.Fatal("expected tampered payload to fail")
	}

	if Verify(nil, hash) {
		t.Fatal("expected empty payload to fail")
	}
	if Verify(payload, "") {
		t.Fatal("expected empty hash to fail")
	}

	otherHash, err := Derive(10, "port-b", "verifier-2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if Verify(payload, otherHash) {
		t.Fatal("expected mismatched hash to fail")
	}
}
