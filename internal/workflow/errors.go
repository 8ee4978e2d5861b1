package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"listing-registry/internal/solana"
)

// Failure taxonomy for registry operations. Callers branch on these
// with errors.Is; the underlying transport or program error stays in
// the chain.
var (
	// ErrAlreadyExists reports a create against an occupied address.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound reports an operation against an absent record.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized reports an actor that is not the required admin
	// or requestor for the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientFunding reports an escrow balance below the
	// required fee plus rent reserve.
	ErrInsufficientFunding = errors.New("insufficient funding")

	// ErrConflict reports an operation that lost a race: a precondition
	// verified locally no longer held when the transaction landed.
	// Callers must re-fetch the record before retrying.
	ErrConflict = errors.New("state conflict")

	// ErrTimeout reports an operation abandoned at its deadline. The
	// transaction may still land; callers must re-read before retrying.
	ErrTimeout = errors.New("operation timed out")
)

// Program error codes surfaced through preflight failures. The has_one
// constraint code fires when a passed account does not match the one
// recorded on the record, which is always an authorization failure here.
const (
	codeConstraintHasOne = 2001
	codeConstraintRaw    = 2003
)

// mapSubmitError folds node-side failures into the taxonomy. Unknown
// failures pass through unchanged.
func mapSubmitError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}

	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		if code, ok := customErrorCode(rpcErr.Data); ok {
			switch code {
			case codeConstraintHasOne, codeConstraintRaw:
				return errors.Join(ErrUnauthorized, err)
			}
		}
		msg := strings.ToLower(rpcErr.Message)
		switch {
		case strings.Contains(msg, "already in use"):
			return errors.Join(ErrAlreadyExists, err)
		case strings.Contains(msg, "already been processed"):
			// Duplicate-submission protection: an identical transaction
			// landed first.
			return errors.Join(ErrConflict, err)
		case strings.Contains(msg, "insufficient"):
			return errors.Join(ErrInsufficientFunding, err)
		}
	}

	return err
}

// customErrorCode digs the program error code out of the RPC error
// payload: {"err": {"InstructionError": [idx, {"Custom": code}]}}.
func customErrorCode(data json.RawMessage) (int, bool) {
	if len(data) == 0 {
		return 0, false
	}

	var payload struct {
		Err struct {
			InstructionError []json.RawMessage `json:"InstructionError"`
		} `json:"err"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, false
	}
	if len(payload.Err.InstructionError) != 2 {
		return 0, false
	}

	var custom struct {
		Custom int `json:"Custom"`
	}
	if err := json.Unmarshal(payload.Err.InstructionError[1], &custom); err != nil {
		return 0, false
	}
	return custom.Custom, true
}
