// Package scan lists listing requests by status using server-side byte
// filters, so only matching records cross the wire.
package scan

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"listing-registry/internal/domain"
	"listing-registry/internal/ledger"
	"listing-registry/internal/record"
)

// DefaultTimeout bounds one scan round trip.
const DefaultTimeout = 30 * time.Second

// Engine runs filtered scans over the program's listing records.
type Engine struct {
	programID domain.PubKey
	ledger    ledger.Client
	timeout   time.Duration
	logger    *log.Logger
}

// New creates a scan engine for the given program.
func New(programID domain.PubKey, client ledger.Client) *Engine {
	return &Engine{
		programID: programID,
		ledger:    client,
		timeout:   DefaultTimeout,
		logger:    log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile),
	}
}

// WithTimeout overrides the per-scan deadline.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	e.timeout = d
	return e
}

// Approved lists all approved requests under the config.
func (e *Engine) Approved(ctx context.Context, config domain.PubKey) ([]domain.Listing, error) {
	return e.scan(ctx, statusQuery(config, true))
}

// Pending lists all undecided requests under the config.
func (e *Engine) Pending(ctx context.Context, config domain.PubKey) ([]domain.Listing, error) {
	return e.scan(ctx, statusQuery(config, false))
}

// ApprovedBy lists approved requests created by the requestor.
func (e *Engine) ApprovedBy(ctx context.Context, config, requestor domain.PubKey) ([]domain.Listing, error) {
	q := statusQuery(config, true)
	q.Filters = append(q.Filters, ledger.ByteFilter{Offset: record.RequestorOffset, Bytes: requestor.Bytes()})
	return e.scan(ctx, q)
}

// PendingBy lists undecided requests created by the requestor.
func (e *Engine) PendingBy(ctx context.Context, config, requestor domain.PubKey) ([]domain.Listing, error) {
	q := statusQuery(config, false)
	q.Filters = append(q.Filters, ledger.ByteFilter{Offset: record.RequestorOffset, Bytes: requestor.Bytes()})
	return e.scan(ctx, q)
}

// All lists every request under the config regardless of status.
func (e *Engine) All(ctx context.Context, config domain.PubKey) ([]domain.Listing, error) {
	return e.scan(ctx, baseQuery(config))
}

func baseQuery(config domain.PubKey) ledger.ScanQuery {
	return ledger.ScanQuery{
		DataSize: record.ListingRequestSize,
		Filters: []ledger.ByteFilter{
			{Offset: 0, Bytes: record.ListingRequestDiscriminator[:]},
			{Offset: record.AdminConfigOffset, Bytes: config.Bytes()},
		},
	}
}

func statusQuery(config domain.PubKey, approved bool) ledger.ScanQuery {
	flag := byte(0)
	if approved {
		flag = 1
	}
	q := baseQuery(config)
	q.Filters = append(q.Filters, ledger.ByteFilter{Offset: record.ApprovedOffset, Bytes: []byte{flag}})
	return q
}

// scan runs the query under the engine's deadline. A timed-out scan
// degrades to an empty result so status pages render stale-but-alive.
func (e *Engine) scan(ctx context.Context, query ledger.ScanQuery) ([]domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	accounts, err := e.ledger.ScanAccounts(ctx, e.programID, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Printf("scan timed out after %v, returning empty result", e.timeout)
			return []domain.Listing{}, nil
		}
		return nil, err
	}

	listings := make([]domain.Listing, 0, len(accounts))
	for _, ka := range accounts {
		req, err := record.DecodeListingRequest(ka.Account.Data)
		if err != nil {
			// One corrupt record must not poison the whole scan.
			e.logger.Printf("skipping undecodable record %s: %v", ka.Address, err)
			continue
		}
		listings = append(listings, domain.Listing{Address: ka.Address, ListingRequest: *req})
	}
	return listings, nil
}
