package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"
	"github.com/WuodOdhis/trackflow/internal/escrow/event"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// eventBody is the JSON shape of one journal event.
type eventBody struct {
	ContractID int64           `json:"contract_id"`
	Seq        uint64          `json:"seq"`
	Type       string          `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	ActorType  string          `json:"actor_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	Hash       string          `json:"hash"`
	PrevHash   string          `json:"prev_hash,omitempty"`
	ChainHash  string          `json:"chain_hash"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func eventToBody(evt event.Event) eventBody {
	return eventBody{
		ContractID: evt.ContractID,
		Seq:        evt.Seq,
		Type:       string(evt.Type),
		Timestamp:  evt.Timestamp,
		ActorType:  string(evt.ActorType),
		ActorID:    evt.ActorID,
		Hash:       evt.Hash,
		PrevHash:   evt.PrevHash,
		ChainHash:  evt.ChainHash,
		Payload:    json.RawMessage(evt.PayloadJSON),
	}
}

// listEventsResponse is a slice of a contract's journal, oldest first.
type listEventsResponse struct {
	Events []eventBody `json:"events"`
}

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	party, ok := PartyFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperrors.New(apperrors.CodeGrantSubjectMissing, "party identity is required"))
		return
	}
	contractID, err := contractIDFromPath(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	afterSeq, err := queryUint(r, "after_seq")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	c, err := h.engine.GetContract(ctx, contractID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !partyOnContract(c, party) {
		httpx.WriteError(w, notNamedError(contractID, party))
		return
	}

	events, err := h.engine.ListEvents(ctx, contractID, afterSeq, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	response := listEventsResponse{Events: make([]eventBody, 0, len(events))}
	for _, evt := range events {
		response.Events = append(response.Events, eventToBody(evt))
	}
	if err := httpx.WriteJSON(w, http.StatusOK, response); err != nil {
		logWriteFailure(r, err)
	}
}

// queryUint parses an optional unsigned integer query parameter.
func queryUint(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.WithMetadata(
			apperrors.CodeRequestInvalid,
			name+" must be a non-negative integer",
			map[string]string{"Value": raw},
		)
	}
	return value, nil
}
