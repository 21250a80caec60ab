package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"
	"github.com/WuodOdhis/trackflow/internal/escrow/grant"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
	"github.com/WuodOdhis/trackflow/internal/platform/requestctx"
)

// RequireParty authenticates the bearer party grant and stores its subject
// in the request context.
func RequireParty(grants grant.Config) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			claims, err := grant.VerifyGrant(token, grants)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			ctx := requestctx.WithParty(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PartyFromContext returns the authenticated party identity, if any.
func PartyFromContext(ctx context.Context) (string, bool) {
	party := strings.TrimSpace(requestctx.PartyFromContext(ctx))
	if party == "" {
		return "", false
	}
	return party, true
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	if r == nil {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "party grant is required")
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "party grant is required")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(strings.TrimSpace(scheme), "Bearer") {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "authorization header must use the Bearer scheme")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "party grant is required")
	}
	return token, nil
}
