package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"
	"github.com/WuodOdhis/trackflow/internal/escrow/api/routepath"
	"github.com/WuodOdhis/trackflow/internal/escrow/contract"
	"github.com/WuodOdhis/trackflow/internal/escrow/grant"
	"github.com/WuodOdhis/trackflow/internal/escrow/service"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage"
)

// maxRequestBodyBytes caps contract API request bodies.
const maxRequestBodyBytes = 1 << 20

// Handlers serves the escrow contract routes.
type Handlers struct {
	engine *service.Engine
	grants grant.Config
}

// NewHandlers builds the contract route handlers.
func NewHandlers(engine *service.Engine, grants grant.Config) (*Handlers, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	return &Handlers{engine: engine, grants: grants}, nil
}

// Register mounts the contract routes on mux. Every route authenticates the
// caller's party grant before dispatch.
func (h *Handlers) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}

	authed := RequireParty(h.grants)
	handle := func(method, pattern string, handler http.HandlerFunc) {
		mux.Handle(method+" "+pattern, httpx.Chain(handler, authed))
	}

	handle(http.MethodPost, routepath.Contracts, h.handleCreateContract)
	handle(http.MethodGet, routepath.Contracts, h.handleListContracts)
	handle(http.MethodGet, routepath.ContractPattern, h.handleGetContract)
	handle(http.MethodPost, routepath.ContractAcceptPattern, h.handleAcceptContract)
	handle(http.MethodGet, routepath.ContractEventsPattern, h.handleListEvents)
	handle(http.MethodGet, routepath.ContractMilestonePattern, h.handleGetMilestone)
	handle(http.MethodPost, routepath.MilestoneVerifyPattern, h.handleVerifyMilestone)
}

// contractIDFromPath parses the contract id path segment. Unparsable ids
// report not-found so the route never leaks parse internals.
func contractIDFromPath(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("contractID"))
	contractID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || contractID <= 0 {
		return 0, storage.ErrNotFound
	}
	return contractID, nil
}

// milestoneIndexFromPath parses the milestone index path segment.
func milestoneIndexFromPath(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("index"))
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, storage.ErrNotFound
	}
	return index, nil
}

// partyOnContract reports whether party is named on the contract as shipper,
// carrier, recipient, or a milestone verifier.
func partyOnContract(c contract.Contract, party string) bool {
	if party == c.Shipper || party == c.Carrier || party == c.Recipient {
		return true
	}
	for _, milestone := range c.Milestones {
		if party == milestone.Verifier {
			return true
		}
	}
	return false
}
