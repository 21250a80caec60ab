package api

import (
	"encoding/base64"
	"net/http"

	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

func (h *Handlers) handleGetMilestone(w http.ResponseWriter, r *http.Request) {
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
	index, err := milestoneIndexFromPath(r)
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

	milestone, err := h.engine.GetMilestone(ctx, contractID, index)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, milestoneToBody(milestone)); err != nil {
		logWriteFailure(r, err)
	}
}

// verifyMilestoneRequest carries the base64 commitment payload bytes.
type verifyMilestoneRequest struct {
	Commitment string `json:"commitment"`
}

// verifyMilestoneResponse reports the released payout and resulting state.
type verifyMilestoneResponse struct {
	Contract  contractBody  `json:"contract"`
	Milestone milestoneBody `json:"milestone"`
	Released  int64         `json:"released"`
}

func (h *Handlers) handleVerifyMilestone(w http.ResponseWriter, r *http.Request) {
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
	index, err := milestoneIndexFromPath(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req verifyMilestoneRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	presented, err := base64.StdEncoding.DecodeString(req.Commitment)
	if err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeRequestInvalid, "commitment must be base64", err))
		return
	}

	result, err := h.engine.VerifyMilestone(httpx.RequestContext(r), contractID, index, presented, party)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	response := verifyMilestoneResponse{
		Contract:  contractToBody(result.Contract),
		Milestone: milestoneToBody(result.Milestone),
		Released:  result.Released,
	}
	if err := httpx.WriteJSON(w, http.StatusOK, response); err != nil {
		logWriteFailure(r, err)
	}
}
