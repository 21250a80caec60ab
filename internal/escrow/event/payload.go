package event

// ContractCreatedPayload captures the payload for contract.created events.
type ContractCreatedPayload struct {
	Shipper    string `json:"shipper"`
	Carrier    string `json:"carrier"`
	Recipient  string `json:"recipient"`
	Payment    int64  `json:"payment"`
	Milestones int    `json:"milestones"`
}

// ContractAcceptedPayload captures the payload for contract.accepted events.
type ContractAcceptedPayload struct {
	Carrier string `json:"carrier"`
}

// MilestoneVerifiedPayload captures the payload for milestone.verified events.
type MilestoneVerifiedPayload struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
	Verifier string `json:"verifier"`
}

// PaymentReleasedPayload captures the payload for payment.released events.
type PaymentReleasedPayload struct {
	Index  int   `json:"index"`
	Amount int64 `json:"amount"`
	// Carrier receives the released funds.
	Carrier string `json:"carrier"`
	// TotalReleased is the cumulative amount released after this payout.
	TotalReleased int64 `json:"total_released"`
	// Final reports whether this payout completed the contract.
	Final bool `json:"final"`
}
