// Package routepath stores canonical HTTP paths for the escrow API.
package routepath

const (
	Healthz = "/healthz"
	Metrics = "/metrics"

	Contracts                = "/v1/contracts"
	ContractsPrefix          = "/v1/contracts/"
	ContractPattern          = ContractsPrefix + "{contractID}"
	ContractAcceptPattern    = ContractsPrefix + "{contractID}/accept"
	ContractEventsPattern    = ContractsPrefix + "{contractID}/events"
	ContractMilestonePattern = ContractsPrefix + "{contractID}/milestones/{index}"
	MilestoneVerifyPattern   = ContractsPrefix + "{contractID}/milestones/{index}/verify"
)
