package partygrant

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/grant"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("TRACKFLOW_GRANT_PRIVATE_KEY", "env-key")
	fs := flag.NewFlagSet("party-grant", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-party", "carrier-1"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Party != "carrier-1" {
		t.Fatalf("expected party carrier-1, got %q", cfg.Party)
	}
	if cfg.TTL != 24*time.Hour {
		t.Fatalf("expected default ttl 24h, got %v", cfg.TTL)
	}
	if cfg.Issuer != "trackflow-escrow" || cfg.Audience != "trackflow-party" {
		t.Fatalf("unexpected defaults: issuer=%q audience=%q", cfg.Issuer, cfg.Audience)
	}
	if cfg.Key != "env-key" {
		t.Fatalf("expected key from environment, got %q", cfg.Key)
	}
}

func TestRunValidation(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encoded := base64.RawStdEncoding.EncodeToString(priv)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing key", cfg: Config{Party: "carrier-1", TTL: time.Hour, Issuer: "i", Audience: "a"}},
		{name: "garbage key", cfg: Config{Party: "carrier-1", TTL: time.Hour, Issuer: "i", Audience: "a", Key: "%%%"}},
		{name: "missing party", cfg: Config{TTL: time.Hour, Issuer: "i", Audience: "a", Key: encoded}},
		{name: "non-positive ttl", cfg: Config{Party: "carrier-1", Issuer: "i", Audience: "a", Key: encoded}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Run(tc.cfg, &bytes.Buffer{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if err := Run(Config{Party: "carrier-1", TTL: time.Hour, Issuer: "i", Audience: "a", Key: encoded}, nil); err == nil {
		t.Fatal("expected error when output is nil")
	}
}

func TestRunMintsVerifiableGrant(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	buf := &bytes.Buffer{}
	cfg := Config{
		Party:    "verifier-1",
		TTL:      time.Hour,
		Issuer:   "trackflow-escrow",
		Audience: "trackflow-party",
		Key:      base64.StdEncoding.EncodeToString(priv),
	}
	if err := Run(cfg, buf); err != nil {
		t.Fatalf("run: %v", err)
	}

	token := strings.TrimSpace(buf.String())
	claims, err := grant.VerifyGrant(token, grant.Config{
		Issuer:   "trackflow-escrow",
		Audience: "trackflow-party",
		Key:      pub,
	})
	if err != nil {
		t.Fatalf("verify minted grant: %v", err)
	}
	if claims.Subject != "verifier-1" {
		t.Fatalf("expected subject verifier-1, got %q", claims.Subject)
	}
}
