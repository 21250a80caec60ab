package api

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"
	"github.com/WuodOdhis/trackflow/internal/escrow/contract"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// milestoneBody is the JSON shape of one milestone.
type milestoneBody struct {
	Index          int        `json:"index"`
	Location       string     `json:"location"`
	Verifier       string     `json:"verifier"`
	CommitmentHash string     `json:"commitment_hash"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ReleasedAmount int64      `json:"released_amount"`
}

// contractBody is the JSON shape of one contract.
type contractBody struct {
	ID                  int64           `json:"id"`
	Shipper             string          `json:"shipper"`
	Carrier             string          `json:"carrier"`
	Recipient           string          `json:"recipient"`
	Payment             int64           `json:"payment"`
	Status              string          `json:"status"`
	TotalMilestones     int             `json:"total_milestones"`
	CompletedMilestones int             `json:"completed_milestones"`
	ReleasedAmount      int64           `json:"released_amount"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	AcceptedAt          *time.Time      `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	Milestones          []milestoneBody `json:"milestones,omitempty"`
}

func milestoneToBody(m contract.Milestone) milestoneBody {
	return milestoneBody{
		Index:          m.Index,
		Location:       m.Location,
		Verifier:       m.Verifier,
		CommitmentHash: m.CommitmentHash,
		Completed:      m.Completed,
		CompletedAt:    m.CompletedAt,
		ReleasedAmount: m.ReleasedAmount,
	}
}

func contractToBody(c contract.Contract) contractBody {
	body := contractBody{
		ID:                  c.ID,
		Shipper:             c.Shipper,
		Carrier:             c.Carrier,
		Recipient:           c.Recipient,
		Payment:             c.Payment,
		Status:              contract.StatusLabel(c.Status),
		TotalMilestones:     len(c.Milestones),
		CompletedMilestones: c.CompletedMilestones,
		ReleasedAmount:      c.ReleasedAmount,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		AcceptedAt:          c.AcceptedAt,
		CompletedAt:         c.CompletedAt,
	}
	for _, milestone := range c.Milestones {
		body.Milestones = append(body.Milestones, milestoneToBody(milestone))
	}
	return body
}

// createContractRequest is the creation request body. The authenticated
// party becomes the contract's shipper. Milestones arrive either as
// structured objects or as the parallel locations/verifiers lists.
type createContractRequest struct {
	Carrier    string `json:"carrier"`
	Recipient  string `json:"recipient"`
	Payment    int64  `json:"payment"`
	Milestones []struct {
		Location string `json:"location"`
		Verifier string `json:"verifier"`
	} `json:"milestones"`
	Locations []string `json:"locations"`
	Verifiers []string `json:"verifiers"`
}

// milestoneInputs resolves the two accepted milestone shapes.
func (req createContractRequest) milestoneInputs() ([]contract.MilestoneInput, error) {
	if len(req.Milestones) > 0 {
		inputs := make([]contract.MilestoneInput, len(req.Milestones))
		for i, milestone := range req.Milestones {
			inputs[i] = contract.MilestoneInput{
				Location: milestone.Location,
				Verifier: milestone.Verifier,
			}
		}
		return inputs, nil
	}
	return contract.PairMilestones(req.Locations, req.Verifiers)
}

// createContractResponse returns the stored contract and the one-time
// commitment payloads, base64 encoded in milestone order.
type createContractResponse struct {
	Contract    contractBody `json:"contract"`
	Commitments []string     `json:"commitments"`
}

func (h *Handlers) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	party, ok := PartyFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperrors.New(apperrors.CodeGrantSubjectMissing, "party identity is required"))
		return
	}

	var req createContractRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	milestones, err := req.milestoneInputs()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	input := contract.CreateContractInput{
		Shipper:    party,
		Carrier:    req.Carrier,
		Recipient:  req.Recipient,
		Payment:    req.Payment,
		Milestones: milestones,
	}

	result, err := h.engine.CreateContract(httpx.RequestContext(r), input)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	response := createContractResponse{
		Contract:    contractToBody(result.Contract),
		Commitments: make([]string, len(result.Commitments)),
	}
	for i, payload := range result.Commitments {
		response.Commitments[i] = base64.StdEncoding.EncodeToString(payload)
	}
	if err := httpx.WriteJSON(w, http.StatusCreated, response); err != nil {
		logWriteFailure(r, err)
	}
}

// listContractsResponse is a page of the caller's contracts.
type listContractsResponse struct {
	Contracts     []contractBody `json:"contracts"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (h *Handlers) handleListContracts(w http.ResponseWriter, r *http.Request) {
	party, ok := PartyFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperrors.New(apperrors.CodeGrantSubjectMissing, "party identity is required"))
		return
	}

	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	pageToken := strings.TrimSpace(r.URL.Query().Get("page_token"))

	page, err := h.engine.ListContracts(httpx.RequestContext(r), party, pageSize, pageToken)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	response := listContractsResponse{
		Contracts:     make([]contractBody, 0, len(page.Contracts)),
		NextPageToken: page.NextPageToken,
	}
	for _, c := range page.Contracts {
		response.Contracts = append(response.Contracts, contractToBody(c))
	}
	if err := httpx.WriteJSON(w, http.StatusOK, response); err != nil {
		logWriteFailure(r, err)
	}
}

func (h *Handlers) handleGetContract(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.engine.GetContract(httpx.RequestContext(r), contractID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !partyOnContract(c, party) {
		httpx.WriteError(w, notNamedError(contractID, party))
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, contractToBody(c)); err != nil {
		logWriteFailure(r, err)
	}
}

func (h *Handlers) handleAcceptContract(w http.ResponseWriter, r *http.Request) {
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

	accepted, err := h.engine.AcceptContract(httpx.RequestContext(r), contractID, party)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, contractToBody(accepted)); err != nil {
		logWriteFailure(r, err)
	}
}

// notNamedError reports that party has no role on the contract.
func notNamedError(contractID int64, party string) error {
	return apperrors.WithMetadata(
		apperrors.CodeContractPartyNotNamed,
		"party is not named on the contract",
		map[string]string{
			"ContractID": strconv.FormatInt(contractID, 10),
			"Party":      party,
		},
	)
}

// decodeJSONBody decodes a bounded JSON request body.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return apperrors.New(apperrors.CodeRequestInvalid, "request body is required")
	}
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()
	if err := json.NewDecoder(reader).Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeRequestInvalid, "request body must be valid JSON", err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, apperrors.WithMetadata(
			apperrors.CodeRequestInvalid,
			name+" must be a non-negative integer",
			map[string]string{"Value": raw},
		)
	}
	return value, nil
}

// logWriteFailure records response writes that failed after the status line.
func logWriteFailure(r *http.Request, err error) {
	path := "-"
	if r != nil {
		path = r.URL.Path
	}
	log.Printf("write response failed path=%s error=%v", path, err)
}
