package requestctx

import "context"

// partyContextKey is the context key for authenticated party identity.
type partyContextKey struct{}

// WithParty stores a party identifier in context.
func WithParty(ctx context.Context, party string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, partyContextKey{}, party)
}

// PartyFromContext returns the party identifier stored in context.
func PartyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(partyContextKey{}).(string)
	return value
}
