// Package grant verifies the signed bearer tokens that identify contract
// parties. A grant is an EdDSA JWT whose subject claim carries the party
// identity used for authorization decisions.
package grant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
	"github.com/WuodOdhis/trackflow/internal/platform/id"
)

// Environment variables for grant verification.
const (
	// EnvGrantIssuer overrides the expected grant issuer.
	EnvGrantIssuer = "TRACKFLOW_GRANT_ISSUER"
	// EnvGrantAudience overrides the expected grant audience.
	EnvGrantAudience = "TRACKFLOW_GRANT_AUDIENCE"
	// EnvGrantPublicKey holds the base64 Ed25519 verification key.
	EnvGrantPublicKey = "TRACKFLOW_GRANT_PUBLIC_KEY"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer    string `env:"TRACKFLOW_GRANT_ISSUER"     envDefault:"trackflow-escrow"`
	Audience  string `env:"TRACKFLOW_GRANT_AUDIENCE"   envDefault:"trackflow-party"`
	PublicKey string `env:"TRACKFLOW_GRANT_PUBLIC_KEY"`
}

// Config defines how party grants are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Claims captures validated party grant claims.
type Claims struct {
	Issuer    string
	Audience  []string
	Subject   string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
}

// LoadConfigFromEnv reads grant verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("%s is required", EnvGrantIssuer)
	}
	if audience == "" {
		return Config{}, fmt.Errorf("%s is required", EnvGrantAudience)
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("%s is required", EnvGrantPublicKey)
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// IssueInput describes the party grant to mint.
type IssueInput struct {
	Issuer   string
	Audience string
	// Subject is the party identity the grant authenticates.
	Subject string
	// TTL bounds the grant lifetime from issuance.
	TTL time.Duration
	Now func() time.Time
}

// IssueGrant signs a party grant with the Ed25519 private key.
func IssueGrant(input IssueInput, key ed25519.PrivateKey) (string, error) {
	issuer := strings.TrimSpace(input.Issuer)
	if issuer == "" {
		return "", fmt.Errorf("issuer is required")
	}
	audience := strings.TrimSpace(input.Audience)
	if audience == "" {
		return "", fmt.Errorf("audience is required")
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if input.TTL <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	now := input.Now
	if now == nil {
		now = time.Now
	}

	grantID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}
	issuedAt := now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(input.TTL)),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ID:        grantID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign party grant: %w", err)
	}
	return token, nil
}

// VerifyGrant verifies a party grant token and returns its claims.
//
// The subject claim is the authenticated party identity; it is required.
func VerifyGrant(token string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "party grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Claims{}, errors.New("grant verifier is not configured")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"party grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"party grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "party grant exp is required")
	}
	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeGrantExpired, "party grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return Claims{}, apperrors.New(apperrors.CodeGrantInvalid, "party grant not active yet")
		}
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return Claims{}, apperrors.New(apperrors.CodeGrantSubjectMissing, "party grant subject is required")
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		Subject:   subject,
		ExpiresAt: exp,
		JWTID:     parsed.ID,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeGrantInvalid, "party grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "party grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeGrantInvalid, "party grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
