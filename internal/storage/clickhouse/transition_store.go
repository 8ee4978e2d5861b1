package clickhouse

import (
	"context"
	"fmt"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

// TransitionStore implements storage.TransitionStore using ClickHouse.
type TransitionStore struct {
	conn *Conn
}

// NewTransitionStore creates a new TransitionStore.
func NewTransitionStore(conn *Conn) *TransitionStore {
	return &TransitionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransitionStore = (*TransitionStore)(nil)

// Insert appends one transition. Returns ErrDuplicateKey when the same
// (signature, address, operation) was already recorded.
func (s *TransitionStore) Insert(ctx context.Context, tr *domain.Transition) error {
	return s.InsertBulk(ctx, []*domain.Transition{tr})
}

// InsertBulk appends multiple transitions. Fails the entire batch on
// duplicate; nothing is written on failure.
func (s *TransitionStore) InsertBulk(ctx context.Context, trs []*domain.Transition) error {
	if len(trs) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		signature string
		address   string
		operation string
	}
	seen := make(map[key]struct{})
	for _, tr := range trs {
		if tr == nil || tr.Signature == "" || tr.Operation == "" {
			return storage.ErrInvalidInput
		}
		k := key{tr.Signature, tr.Address.String(), tr.Operation}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness at insert time, so check
	// against existing rows before writing.
	for _, tr := range trs {
		exists, err := s.exists(ctx, tr)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transitions (
			signature, operation, address, actor, admin_config,
			lamports_delta, slot, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tr := range trs {
		err = batch.Append(
			tr.Signature, tr.Operation, tr.Address.String(), tr.Actor.String(), tr.AdminConfig.String(),
			tr.LamportsDelta, uint64(tr.Slot), uint64(tr.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAddress retrieves all transitions of a record, ordered by timestamp ASC.
func (s *TransitionStore) GetByAddress(ctx context.Context, address domain.PubKey) ([]*domain.Transition, error) {
	query := `
		SELECT signature, operation, address, actor, admin_config,
		       lamports_delta, slot, timestamp_ms
		FROM transitions
		WHERE address = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, address.String())
	if err != nil {
		return nil, fmt.Errorf("query by address: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// GetByTimeRange retrieves transitions within [start, end] (inclusive).
func (s *TransitionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Transition, error) {
	query := `
		SELECT signature, operation, address, actor, admin_config,
		       lamports_delta, slot, timestamp_ms
		FROM transitions
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// exists checks if a transition with the same key was already recorded.
func (s *TransitionStore) exists(ctx context.Context, tr *domain.Transition) (bool, error) {
	query := `
		SELECT count(*) FROM transitions
		WHERE signature = ? AND address = ? AND operation = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tr.Signature, tr.Address.String(), tr.Operation).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTransitions scans multiple rows into a slice.
func scanTransitions(rows chRows) ([]*domain.Transition, error) {
	var transitions []*domain.Transition

	for rows.Next() {
		var tr domain.Transition
		var address, actor, adminConfig string
		var slot, timestampMs uint64

		err := rows.Scan(
			&tr.Signature, &tr.Operation, &address, &actor, &adminConfig,
			&tr.LamportsDelta, &slot, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transition row: %w", err)
		}

		if tr.Address, err = domain.ParsePubKey(address); err != nil {
			return nil, fmt.Errorf("parse address: %w", err)
		}
		if tr.Actor, err = domain.ParsePubKey(actor); err != nil {
			return nil, fmt.Errorf("parse actor: %w", err)
		}
		if tr.AdminConfig, err = domain.ParsePubKey(adminConfig); err != nil {
			return nil, fmt.Errorf("parse admin config: %w", err)
		}
		tr.Slot = int64(slot)
		tr.Timestamp = int64(timestampMs)

		transitions = append(transitions, &tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transition rows: %w", err)
	}

	return transitions, nil
}
