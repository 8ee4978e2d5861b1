package memory

import (
	"context"
	"sort"
	"sync"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

// TransitionStore is an in-memory implementation of storage.TransitionStore.
type TransitionStore struct {
	mu   sync.RWMutex
	data []*domain.Transition
	seen map[transitionKey]struct{}
}

// transitionKey identifies a transition: one operation per transaction
// per record.
type transitionKey struct {
	signature string
	address   domain.PubKey
	operation string
}

// NewTransitionStore creates a new in-memory transition store.
func NewTransitionStore() *TransitionStore {
	return &TransitionStore{
		seen: make(map[transitionKey]struct{}),
	}
}

// Compile-time interface check.
var _ storage.TransitionStore = (*TransitionStore)(nil)

// Insert appends one transition. Returns ErrDuplicateKey when the same
// (signature, address, operation) was already recorded.
func (s *TransitionStore) Insert(_ context.Context, tr *domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(tr)
}

// InsertBulk appends multiple transitions atomically.
func (s *TransitionStore) InsertBulk(_ context.Context, trs []*domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating.
	batch := make(map[transitionKey]struct{}, len(trs))
	for _, tr := range trs {
		if err := validate(tr); err != nil {
			return err
		}
		k := key(tr)
		if _, dup := batch[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := s.seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, tr := range trs {
		if err := s.insertLocked(tr); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransitionStore) insertLocked(tr *domain.Transition) error {
	if err := validate(tr); err != nil {
		return err
	}
	k := key(tr)
	if _, dup := s.seen[k]; dup {
		return storage.ErrDuplicateKey
	}

	cp := *tr
	s.data = append(s.data, &cp)
	s.seen[k] = struct{}{}
	return nil
}

func validate(tr *domain.Transition) error {
	if tr == nil || tr.Signature == "" || tr.Operation == "" {
		return storage.ErrInvalidInput
	}
	return nil
}

func key(tr *domain.Transition) transitionKey {
	return transitionKey{signature: tr.Signature, address: tr.Address, operation: tr.Operation}
}

// GetByAddress retrieves all transitions of a record, timestamp ASC.
func (s *TransitionStore) GetByAddress(_ context.Context, address domain.PubKey) ([]*domain.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transition
	for _, tr := range s.data {
		if tr.Address == address {
			cp := *tr
			result = append(result, &cp)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

// GetByTimeRange retrieves transitions within [start, end] inclusive.
func (s *TransitionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transition
	for _, tr := range s.data {
		if tr.Timestamp >= start && tr.Timestamp <= end {
			cp := *tr
			result = append(result, &cp)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

func sortByTimestamp(trs []*domain.Transition) {
	sort.SliceStable(trs, func(i, j int) bool {
		return trs[i].Timestamp < trs[j].Timestamp
	})
}
