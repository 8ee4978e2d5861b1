// Package workflow drives the listing request lifecycle: create,
// approve or deny, enable, update, refund. Every operation performs
// client-side authorization and state prechecks before submitting, so
// callers get taxonomy errors instead of opaque preflight failures.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"listing-registry/internal/domain"
	"listing-registry/internal/fees"
	"listing-registry/internal/ledger"
	"listing-registry/internal/pda"
	"listing-registry/internal/program"
	"listing-registry/internal/record"
	"listing-registry/internal/storage"
	"listing-registry/internal/txn"
)

// Workflow executes registry operations against a ledger.
type Workflow struct {
	programID   domain.PubKey
	ledger      ledger.Client
	transitions storage.TransitionStore
	now         func() int64
	logger      *log.Logger
}

// New creates a workflow for the given program.
func New(programID domain.PubKey, client ledger.Client) *Workflow {
	return &Workflow{
		programID: programID,
		ledger:    client,
		now:       func() int64 { return time.Now().UnixMilli() },
		logger:    log.New(os.Stdout, "[workflow] ", log.LstdFlags|log.Lshortfile),
	}
}

// WithTransitions records every successful operation in the audit log.
func (w *Workflow) WithTransitions(store storage.TransitionStore) *Workflow {
	w.transitions = store
	return w
}

// audit appends one transition. Audit failures are logged, never
// propagated; the ledger operation already succeeded.
func (w *Workflow) audit(ctx context.Context, tr domain.Transition) {
	if w.transitions == nil || tr.Signature == "" {
		return
	}
	tr.Timestamp = w.now()
	if err := w.transitions.Insert(ctx, &tr); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		w.logger.Printf("audit insert failed for %s %s: %v", tr.Operation, tr.Address, err)
	}
}

// CreateConfig initializes a new registry settings record. The config
// account is a fresh keypair; both it and the admin sign.
func (w *Workflow) CreateConfig(ctx context.Context, admin txn.Signer, config txn.Signer, fee uint64) (string, error) {
	existing, err := w.ledger.ReadAccount(ctx, config.Public())
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	if existing != nil {
		return "", fmt.Errorf("config %s: %w", config.Public(), ErrAlreadyExists)
	}

	ins := program.InitializeConfig(w.programID, config.Public(), admin.Public(), fee)
	sig, err := w.ledger.Submit(ctx, admin.Public(), []txn.Instruction{ins}, admin, config)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:   sig,
		Operation:   domain.OpCreateConfig,
		Address:     config.Public(),
		Actor:       admin.Public(),
		AdminConfig: config.Public(),
	})
	w.logger.Printf("created config %s fee=%d sig=%s", config.Public(), fee, sig)
	return sig, nil
}

// UpdateAdmin rotates the registry admin to newAdmin.
func (w *Workflow) UpdateAdmin(ctx context.Context, admin txn.Signer, config domain.PubKey, newAdmin domain.PubKey) (string, error) {
	if err := w.requireAdmin(ctx, config, admin.Public()); err != nil {
		return "", err
	}

	ins := program.UpdateAdmin(w.programID, config, admin.Public(), newAdmin)
	sig, err := w.ledger.Submit(ctx, admin.Public(), []txn.Instruction{ins}, admin)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:   sig,
		Operation:   domain.OpUpdateAdmin,
		Address:     config,
		Actor:       admin.Public(),
		AdminConfig: config,
	})
	w.logger.Printf("config %s admin rotated to %s sig=%s", config, newAdmin, sig)
	return sig, nil
}

// UpdateFee changes the fee charged to future listing requests. The fee
// snapshots of existing requests are unaffected.
func (w *Workflow) UpdateFee(ctx context.Context, admin txn.Signer, config domain.PubKey, fee uint64) (string, error) {
	if err := w.requireAdmin(ctx, config, admin.Public()); err != nil {
		return "", err
	}

	ins := program.UpdateFee(w.programID, config, admin.Public(), fee)
	sig, err := w.ledger.Submit(ctx, admin.Public(), []txn.Instruction{ins}, admin)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:   sig,
		Operation:   domain.OpUpdateFee,
		Address:     config,
		Actor:       admin.Public(),
		AdminConfig: config,
	})
	w.logger.Printf("config %s fee=%d sig=%s", config, fee, sig)
	return sig, nil
}

// RequestListing creates and funds a listing request in one
// transaction: a transfer of the fee plus rent reserve, then the
// initialize instruction. Returns the derived record address.
func (w *Workflow) RequestListing(ctx context.Context, requestor txn.Signer, config domain.PubKey, info *domain.ListingInfo) (domain.PubKey, string, error) {
	address, _, err := pda.ListingRequestAddress(w.programID, config, info.Subject())
	if err != nil {
		return domain.PubKey{}, "", err
	}

	existing, err := w.ledger.ReadAccount(ctx, address)
	if err != nil {
		return domain.PubKey{}, "", fmt.Errorf("read request: %w", err)
	}
	if existing != nil {
		return domain.PubKey{}, "", fmt.Errorf("request %s: %w", address, ErrAlreadyExists)
	}

	cfg, err := w.fetchConfig(ctx, config)
	if err != nil {
		return domain.PubKey{}, "", err
	}

	required, err := w.requiredFunding(ctx, cfg.Fee)
	if err != nil {
		return domain.PubKey{}, "", err
	}

	balance, err := w.ledger.Balance(ctx, requestor.Public())
	if err != nil {
		return domain.PubKey{}, "", fmt.Errorf("requestor balance: %w", err)
	}
	if balance < required {
		return domain.PubKey{}, "", fmt.Errorf("requestor %s holds %d of %d lamports: %w",
			requestor.Public(), balance, required, ErrInsufficientFunding)
	}

	instructions := []txn.Instruction{
		txn.Transfer(requestor.Public(), address, required),
		program.InitializeListing(w.programID, address, config, requestor.Public(), info),
	}
	sig, err := w.ledger.Submit(ctx, requestor.Public(), instructions, requestor)
	if err != nil {
		err = mapSubmitError(err)
		// The occupancy precheck passed, so an occupied address at
		// submit time means another request landed first.
		if errors.Is(err, ErrAlreadyExists) {
			err = errors.Join(ErrConflict, err)
		}
		return domain.PubKey{}, "", err
	}

	w.audit(ctx, domain.Transition{
		Signature:     sig,
		Operation:     domain.OpRequestListing,
		Address:       address,
		Actor:         requestor.Public(),
		AdminConfig:   config,
		LamportsDelta: int64(required),
	})
	w.logger.Printf("requested listing %s subject=%s funding=%d sig=%s", address, info.Subject(), required, sig)
	return address, sig, nil
}

// Approve marks a request approved and releases the escrowed fee to the
// admin. Approving an already approved request is a no-op returning an
// empty signature.
func (w *Workflow) Approve(ctx context.Context, admin txn.Signer, config, request domain.PubKey) (string, error) {
	return w.decide(ctx, admin, config, request, true)
}

// Deny marks a request denied and returns the escrowed fee to the
// requestor. Denying an already denied request is a no-op.
func (w *Workflow) Deny(ctx context.Context, admin txn.Signer, config, request domain.PubKey) (string, error) {
	return w.decide(ctx, admin, config, request, false)
}

func (w *Workflow) decide(ctx context.Context, admin txn.Signer, config, request domain.PubKey, approved bool) (string, error) {
	listing, err := w.fetchRequest(ctx, config, request)
	if err != nil {
		return "", err
	}
	if err := w.requireAdmin(ctx, config, admin.Public()); err != nil {
		return "", err
	}

	// Approval is edge-triggered. Denial always executes: the flag is
	// false on pending requests too, and the escrow refund happens in
	// the deny path.
	if approved && listing.IsDaoApproved {
		w.logger.Printf("request %s already approved, skipping", request)
		return "", nil
	}

	required, err := w.requiredFunding(ctx, listing.Fee)
	if err != nil {
		return "", err
	}
	balance, err := w.ledger.Balance(ctx, request)
	if err != nil {
		return "", fmt.Errorf("request balance: %w", err)
	}

	// An admin-funded transfer covers any escrow shortfall in the same
	// transaction, so the decision and its funding land atomically.
	var instructions []txn.Instruction
	if topOff := fees.TopOff(required, balance); topOff > 0 {
		w.logger.Printf("request %s underfunded by %d, topping off", request, topOff)
		instructions = append(instructions, txn.Transfer(admin.Public(), request, topOff))
	}
	instructions = append(instructions, program.ApproveListing(
		w.programID, request, config, admin.Public(), listing.ListingRequestor, approved))

	sig, err := w.ledger.Submit(ctx, admin.Public(), instructions, admin)
	if err != nil {
		return "", mapSubmitError(err)
	}

	// The audit delta is the observed escrow movement, top-off
	// included, falling back to the fee snapshot if the re-read fails.
	delta := -int64(listing.Fee)
	if post, err := w.ledger.Balance(ctx, request); err == nil {
		delta = int64(post) - int64(balance)
	}

	op := domain.OpApprove
	if !approved {
		op = domain.OpDeny
	}
	w.audit(ctx, domain.Transition{
		Signature:     sig,
		Operation:     op,
		Address:       request,
		Actor:         admin.Public(),
		AdminConfig:   config,
		LamportsDelta: delta,
	})
	w.logger.Printf("request %s approved=%v sig=%s", request, approved, sig)
	return sig, nil
}

// requiredFunding is the fee plus the rent reserve of a listing record.
func (w *Workflow) requiredFunding(ctx context.Context, fee uint64) (uint64, error) {
	rent, err := w.ledger.MinimumBalance(ctx, record.ListingRequestSize)
	if err != nil {
		return 0, fmt.Errorf("rent reserve: %w", err)
	}
	return fees.RequiredFunding(fee, rent), nil
}

// SetEnabled toggles a request's visibility flag. The flag is
// independent of approval status; pending records can be hidden or
// shown too.
func (w *Workflow) SetEnabled(ctx context.Context, admin txn.Signer, config, request domain.PubKey, enabled bool) (string, error) {
	if _, err := w.fetchRequest(ctx, config, request); err != nil {
		return "", err
	}
	if err := w.requireAdmin(ctx, config, admin.Public()); err != nil {
		return "", err
	}

	ins := program.EnableListing(w.programID, request, config, admin.Public(), enabled)
	sig, err := w.ledger.Submit(ctx, admin.Public(), []txn.Instruction{ins}, admin)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:   sig,
		Operation:   domain.OpSetEnabled,
		Address:     request,
		Actor:       admin.Public(),
		AdminConfig: config,
	})
	w.logger.Printf("request %s enabled=%v sig=%s", request, enabled, sig)
	return sig, nil
}

// UpdateMetadata rewrites the descriptive fields of a request. Only the
// original requestor may do so.
func (w *Workflow) UpdateMetadata(ctx context.Context, requestor txn.Signer, config, request domain.PubKey, name, metaDataURL, vanityURL, tokenType string) (string, error) {
	listing, err := w.fetchRequest(ctx, config, request)
	if err != nil {
		return "", err
	}
	if listing.ListingRequestor != requestor.Public() {
		return "", fmt.Errorf("%s is not the requestor of %s: %w", requestor.Public(), request, ErrUnauthorized)
	}

	ins := program.UpdateListing(w.programID, request, config, requestor.Public(), name, metaDataURL, vanityURL, tokenType)
	sig, err := w.ledger.Submit(ctx, requestor.Public(), []txn.Instruction{ins}, requestor)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:   sig,
		Operation:   domain.OpUpdateMetadata,
		Address:     request,
		Actor:       requestor.Public(),
		AdminConfig: config,
	})
	w.logger.Printf("request %s metadata updated sig=%s", request, sig)
	return sig, nil
}

// RequestRefund drains the record's entire balance back to the
// requestor and closes it. Only the original requestor may do so.
func (w *Workflow) RequestRefund(ctx context.Context, requestor txn.Signer, config, request domain.PubKey) (string, error) {
	listing, err := w.fetchRequest(ctx, config, request)
	if err != nil {
		return "", err
	}
	if listing.ListingRequestor != requestor.Public() {
		return "", fmt.Errorf("%s is not the requestor of %s: %w", requestor.Public(), request, ErrUnauthorized)
	}

	balance, err := w.ledger.Balance(ctx, request)
	if err != nil {
		return "", fmt.Errorf("request balance: %w", err)
	}

	ins := program.RequestRefund(w.programID, request, config, requestor.Public())
	sig, err := w.ledger.Submit(ctx, requestor.Public(), []txn.Instruction{ins}, requestor)
	if err != nil {
		return "", mapSubmitError(err)
	}

	w.audit(ctx, domain.Transition{
		Signature:     sig,
		Operation:     domain.OpRequestRefund,
		Address:       request,
		Actor:         requestor.Public(),
		AdminConfig:   config,
		LamportsDelta: -int64(balance),
	})
	w.logger.Printf("request %s refunded to %s sig=%s", request, requestor.Public(), sig)
	return sig, nil
}

// Fetch retrieves the listing request for a subject under the config.
func (w *Workflow) Fetch(ctx context.Context, config, subject domain.PubKey) (*domain.Listing, error) {
	address, _, err := pda.ListingRequestAddress(w.programID, config, subject)
	if err != nil {
		return nil, err
	}

	req, err := w.fetchRequest(ctx, config, address)
	if err != nil {
		return nil, err
	}
	return &domain.Listing{Address: address, ListingRequest: *req}, nil
}

// IsApproved reports whether the subject has an approved request under
// the config. Absent requests report false without error.
func (w *Workflow) IsApproved(ctx context.Context, config, subject domain.PubKey) (bool, error) {
	listing, err := w.Fetch(ctx, config, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return listing.IsDaoApproved, nil
}

// IsAdmin reports whether who is the config's admin.
func (w *Workflow) IsAdmin(ctx context.Context, config, who domain.PubKey) (bool, error) {
	cfg, err := w.fetchConfig(ctx, config)
	if err != nil {
		return false, err
	}
	return cfg.Admin == who, nil
}

func (w *Workflow) fetchConfig(ctx context.Context, config domain.PubKey) (*domain.Config, error) {
	acct, err := w.ledger.ReadAccount(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if acct == nil {
		return nil, fmt.Errorf("config %s: %w", config, ErrNotFound)
	}
	return record.DecodeConfig(acct.Data)
}

// fetchRequest reads and decodes a listing request, verifying it
// belongs to the given config.
func (w *Workflow) fetchRequest(ctx context.Context, config, request domain.PubKey) (*domain.ListingRequest, error) {
	acct, err := w.ledger.ReadAccount(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if acct == nil {
		return nil, fmt.Errorf("request %s: %w", request, ErrNotFound)
	}

	req, err := record.DecodeListingRequest(acct.Data)
	if err != nil {
		return nil, err
	}
	if req.AdminConfig != config {
		return nil, fmt.Errorf("request %s belongs to config %s: %w", request, req.AdminConfig, ErrUnauthorized)
	}
	return req, nil
}

// requireAdmin verifies the actor against the config's recorded admin.
func (w *Workflow) requireAdmin(ctx context.Context, config, actor domain.PubKey) error {
	cfg, err := w.fetchConfig(ctx, config)
	if err != nil {
		return err
	}
	if cfg.Admin != actor {
		return fmt.Errorf("%s is not the admin of %s: %w", actor, config, ErrUnauthorized)
	}
	return nil
}
