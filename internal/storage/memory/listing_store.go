// Package memory provides in-memory storage implementations for tests
// and single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu   sync.RWMutex
	data map[domain.PubKey]*domain.Listing
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		data: make(map[domain.PubKey]*domain.Listing),
	}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

// Upsert writes or replaces the snapshot at the listing's address.
func (s *ListingStore) Upsert(_ context.Context, l *domain.Listing) error {
	if l == nil || l.Address.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	cp := *l
	s.data[l.Address] = &cp
	return nil
}

// GetByAddress retrieves a snapshot. Returns ErrNotFound if absent.
func (s *ListingStore) GetByAddress(_ context.Context, address domain.PubKey) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *l
	return &cp, nil
}

// ListByConfig retrieves all snapshots under a registry config.
func (s *ListingStore) ListByConfig(_ context.Context, config domain.PubKey) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Listing
	for _, l := range s.data {
		if l.AdminConfig == config {
			cp := *l
			result = append(result, &cp)
		}
	}

	sortByAddress(result)
	return result, nil
}

// ListByStatus retrieves snapshots under a config filtered by approval.
func (s *ListingStore) ListByStatus(_ context.Context, config domain.PubKey, approved bool) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Listing
	for _, l := range s.data {
		if l.AdminConfig == config && l.IsDaoApproved == approved {
			cp := *l
			result = append(result, &cp)
		}
	}

	sortByAddress(result)
	return result, nil
}

// Delete removes a snapshot. Absent snapshots are ignored.
func (s *ListingStore) Delete(_ context.Context, address domain.PubKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, address)
	return nil
}

func sortByAddress(listings []*domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Address.String() < listings[j].Address.String()
	})
}
