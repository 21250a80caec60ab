// Package partygrant mints bearer grant tokens for escrow API parties.
package partygrant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/grant"
)

// Config holds configuration for grant minting.
type Config struct {
	Party    string
	TTL      time.Duration
	Issuer   string
	Audience string
	Key      string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		TTL:      24 * time.Hour,
		Issuer:   "trackflow-escrow",
		Audience: "trackflow-party",
		Key:      os.Getenv("TRACKFLOW_GRANT_PRIVATE_KEY"),
	}
	fs.StringVar(&cfg.Party, "party", "", "party id the grant names (required)")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "grant lifetime")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "grant issuer")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "grant audience")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "base64 ed25519 signing key (default: TRACKFLOW_GRANT_PRIVATE_KEY)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run mints the grant and writes the token to out.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	raw := strings.TrimSpace(cfg.Key)
	if raw == "" {
		return errors.New("signing key is required")
	}
	key, err := decodeKey(raw)
	if err != nil {
		return fmt.Errorf("decode signing key: %w", err)
	}

	token, err := grant.IssueGrant(grant.IssueInput{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Subject:  cfg.Party,
		TTL:      cfg.TTL,
	}, key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// decodeKey accepts raw or padded base64 key material.
func decodeKey(value string) (ed25519.PrivateKey, error) {
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, err
		}
	}
	return ed25519.PrivateKey(decoded), nil
}
