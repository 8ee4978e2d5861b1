// Package mirror keeps an off-chain copy of the registry's listing
// records. It seeds from a full scan, follows account change
// notifications, rescans on an interval to heal missed updates, and
// derives an audit trail from the observed state changes.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"listing-registry/internal/domain"
	"listing-registry/internal/observability"
	"listing-registry/internal/record"
	"listing-registry/internal/scan"
	"listing-registry/internal/solana"
	"listing-registry/internal/storage"
)

// Mirror replicates listing records into local storage.
type Mirror struct {
	programID      domain.PubKey
	config         domain.PubKey
	scanner        *scan.Engine
	ws             solana.WSClient
	listings       storage.ListingStore
	transitions    storage.TransitionStore
	rescanInterval time.Duration
	now            func() int64
	logger         *log.Logger

	// Last observed state per record, for transition derivation.
	// Touched only from the Run goroutine.
	known map[domain.PubKey]knownState
}

type knownState struct {
	listing  domain.Listing
	lamports uint64
}

// Options contains configuration for creating a Mirror.
type Options struct {
	ProgramID domain.PubKey
	Config    domain.PubKey
	Scanner   *scan.Engine
	WS        solana.WSClient // optional; nil means rescan-only
	Listings  storage.ListingStore
	// Transitions is optional; nil disables the audit trail.
	Transitions    storage.TransitionStore
	RescanInterval time.Duration // Default: 5m
	Now            func() int64  // Unix milliseconds; default time.Now
	Logger         *log.Logger
}

// New creates a new mirror.
func New(opts Options) *Mirror {
	rescanInterval := opts.RescanInterval
	if rescanInterval == 0 {
		rescanInterval = 5 * time.Minute
	}

	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Mirror{
		programID:      opts.ProgramID,
		config:         opts.Config,
		scanner:        opts.Scanner,
		ws:             opts.WS,
		listings:       opts.Listings,
		transitions:    opts.Transitions,
		rescanInterval: rescanInterval,
		now:            now,
		logger:         logger,
		known:          make(map[domain.PubKey]knownState),
	}
}

// Run seeds the mirror and follows updates until the context is
// cancelled.
func (m *Mirror) Run(ctx context.Context) error {
	m.logger.Println("Starting mirror...")

	if err := m.Rescan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	var updates <-chan solana.AccountUpdate
	if m.ws != nil {
		var err error
		updates, err = m.ws.SubscribeProgram(ctx, solana.ProgramFilter{
			ProgramID: m.programID.String(),
			DataSize:  record.ListingRequestSize,
			Memcmp: []solana.Memcmp{
				{Offset: 0, Bytes: record.ListingRequestDiscriminator[:]},
				{Offset: record.AdminConfigOffset, Bytes: m.config.Bytes()},
			},
		})
		if err != nil {
			return fmt.Errorf("subscribe program: %w", err)
		}
		m.logger.Println("Subscribed to program account changes")
	}

	ticker := time.NewTicker(m.rescanInterval)
	defer ticker.Stop()

	m.logger.Printf("Mirror started, rescan interval: %v", m.rescanInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Println("Mirror stopping...")
			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				m.logger.Println("Account updates channel closed")
				return errors.New("account updates channel closed")
			}
			m.handleUpdate(ctx, update)

		case <-ticker.C:
			if err := m.Rescan(ctx); err != nil {
				m.logger.Printf("Rescan failed: %v", err)
				observability.RecordScan("error", 0, 0)
			}
		}
	}
}

// Rescan replaces the mirrored state with a fresh full scan. Records
// present locally but absent from the scan were closed on the ledger
// and are removed.
func (m *Mirror) Rescan(ctx context.Context) error {
	start := time.Now()

	found, err := m.scanner.All(ctx, m.config)
	if err != nil {
		return err
	}

	seen := make(map[domain.PubKey]struct{}, len(found))
	for i := range found {
		l := found[i]
		seen[l.Address] = struct{}{}
		// Scans don't carry lamports, so keep the last known balance.
		lamports := m.known[l.Address].lamports
		if err := m.apply(ctx, l, lamports, 0); err != nil {
			m.logger.Printf("Error applying %s: %v", l.Address, err)
		}
	}

	for address := range m.known {
		if _, ok := seen[address]; !ok {
			if err := m.remove(ctx, address, 0); err != nil {
				m.logger.Printf("Error removing %s: %v", address, err)
			}
		}
	}

	observability.RecordScan("success", time.Since(start).Seconds(), len(found))
	observability.DefaultMetrics.LastSuccessfulScan.Set(float64(m.now()) / 1000)
	m.logger.Printf("Rescan complete: %d records in %v", len(found), time.Since(start))
	return nil
}

// handleUpdate applies one account change notification.
func (m *Mirror) handleUpdate(ctx context.Context, update solana.AccountUpdate) {
	observability.RecordAccountUpdate()
	observability.UpdateHighestSlot(update.Slot)

	address, err := domain.ParsePubKey(update.Pubkey)
	if err != nil {
		m.logger.Printf("Error parsing update address %q: %v", update.Pubkey, err)
		return
	}

	// A drained, empty account is a closed record.
	if update.Account.Lamports == 0 || len(update.Account.Data) == 0 {
		if err := m.remove(ctx, address, update.Slot); err != nil {
			m.logger.Printf("Error removing %s: %v", address, err)
		}
		return
	}

	req, err := record.DecodeListingRequest(update.Account.Data)
	if err != nil {
		observability.RecordDecodeError()
		m.logger.Printf("Error decoding record %s: %v", address, err)
		return
	}
	if req.AdminConfig != m.config {
		return
	}

	l := domain.Listing{Address: address, ListingRequest: *req}
	if err := m.apply(ctx, l, update.Account.Lamports, update.Slot); err != nil {
		m.logger.Printf("Error applying %s: %v", address, err)
	}
}

// apply upserts the snapshot and records the transitions the change
// implies.
func (m *Mirror) apply(ctx context.Context, l domain.Listing, lamports uint64, slot int64) error {
	prev, existed := m.known[l.Address]

	if err := m.listings.Upsert(ctx, &l); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	observability.RecordUpsert()
	m.known[l.Address] = knownState{listing: l, lamports: lamports}

	var old *knownState
	if existed {
		old = &prev
	}
	m.record(ctx, deriveTransitions(old, &l, lamports, slot, m.now()))
	return nil
}

// remove deletes the snapshot of a closed record.
func (m *Mirror) remove(ctx context.Context, address domain.PubKey, slot int64) error {
	prev, existed := m.known[address]
	if !existed {
		return nil
	}

	if err := m.listings.Delete(ctx, address); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	observability.RecordDelete()
	delete(m.known, address)

	m.record(ctx, []*domain.Transition{{
		Signature:     observedSignature(address, slot),
		Operation:     domain.OpRequestRefund,
		Address:       address,
		Actor:         prev.listing.ListingRequestor,
		AdminConfig:   prev.listing.AdminConfig,
		LamportsDelta: -int64(prev.lamports),
		Slot:          slot,
		Timestamp:     m.now(),
	}})
	return nil
}

func (m *Mirror) record(ctx context.Context, trs []*domain.Transition) {
	if m.transitions == nil || len(trs) == 0 {
		return
	}
	for _, tr := range trs {
		if err := m.transitions.Insert(ctx, tr); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				m.logger.Printf("Error recording transition %s for %s: %v", tr.Operation, tr.Address, err)
			}
			continue
		}
		observability.RecordTransition(tr.Operation)
	}
}

// deriveTransitions infers audit operations from two consecutive
// snapshots of a record.
func deriveTransitions(old *knownState, l *domain.Listing, lamports uint64, slot, now int64) []*domain.Transition {
	base := domain.Transition{
		Signature:   observedSignature(l.Address, slot),
		Address:     l.Address,
		AdminConfig: l.AdminConfig,
		Slot:        slot,
		Timestamp:   now,
	}

	if old == nil {
		tr := base
		tr.Operation = domain.OpRequestListing
		tr.Actor = l.ListingRequestor
		tr.LamportsDelta = int64(lamports)
		return []*domain.Transition{&tr}
	}

	var trs []*domain.Transition
	delta := int64(lamports) - int64(old.lamports)

	if !old.listing.IsDaoApproved && l.IsDaoApproved {
		tr := base
		tr.Operation = domain.OpApprove
		tr.LamportsDelta = delta
		trs = append(trs, &tr)
	} else if !l.IsDaoApproved && delta < 0 {
		// The escrow left a still-pending record: the request was denied
		// and the fee refunded.
		tr := base
		tr.Operation = domain.OpDeny
		tr.LamportsDelta = delta
		trs = append(trs, &tr)
	}

	if old.listing.Enabled != l.Enabled {
		tr := base
		tr.Operation = domain.OpSetEnabled
		trs = append(trs, &tr)
	}

	if metadataChanged(&old.listing.ListingRequest, &l.ListingRequest) {
		tr := base
		tr.Operation = domain.OpUpdateMetadata
		tr.Actor = l.ListingRequestor
		trs = append(trs, &tr)
	}

	return trs
}

func metadataChanged(a, b *domain.ListingRequest) bool {
	return a.Name != b.Name ||
		a.MetaDataURL != b.MetaDataURL ||
		a.VanityURL != b.VanityURL ||
		a.TokenType != b.TokenType
}

// observedSignature keys a transition observed from account state.
// Account notifications carry no transaction signature, so the slot
// stands in for it.
func observedSignature(address domain.PubKey, slot int64) string {
	return fmt.Sprintf("obs:%d:%s", slot, address)
}
