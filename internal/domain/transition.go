package domain

// Transition operation names recorded in the audit log.
const (
	OpCreateConfig   = "CREATE_CONFIG"
	OpUpdateAdmin    = "UPDATE_ADMIN"
	OpUpdateFee      = "UPDATE_FEE"
	OpRequestListing = "REQUEST_LISTING"
	OpApprove        = "APPROVE"
	OpDeny           = "DENY"
	OpSetEnabled     = "SET_ENABLED"
	OpUpdateMetadata = "UPDATE_METADATA"
	OpRequestRefund  = "REQUEST_REFUND"
)

// Transition is one audit record of a workflow state change. Every
// fee/escrow movement is traceable through these rows.
type Transition struct {
	// Signature of the transaction that performed the transition.
	Signature string
	// Operation is one of the Op* constants.
	Operation string
	// Address of the record the transition applied to (listing request
	// or config).
	Address PubKey
	// Actor signed the transaction (admin, requestor, or funder).
	Actor PubKey
	// AdminConfig is the owning registry config.
	AdminConfig PubKey
	// LamportsDelta is the net lamport change of the record's escrow:
	// positive for funding/top-off, negative for payout/refund, zero
	// for pure state changes.
	LamportsDelta int64
	// Slot the transaction landed in, when known.
	Slot int64
	// Timestamp in Unix milliseconds, client-side observation time.
	Timestamp int64
}
