package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

const listingColumns = `
	address, name, verified_collection, update_authority, governance,
	auction_house, meta_data_url, vanity_url, token_type,
	is_dao_approved, enabled, admin_config, listing_requestor, fee, request_type
`

// Upsert writes or replaces the snapshot at the listing's address.
func (s *ListingStore) Upsert(ctx context.Context, l *domain.Listing) error {
	if l == nil || l.Address.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			verified_collection = EXCLUDED.verified_collection,
			update_authority = EXCLUDED.update_authority,
			governance = EXCLUDED.governance,
			auction_house = EXCLUDED.auction_house,
			meta_data_url = EXCLUDED.meta_data_url,
			vanity_url = EXCLUDED.vanity_url,
			token_type = EXCLUDED.token_type,
			is_dao_approved = EXCLUDED.is_dao_approved,
			enabled = EXCLUDED.enabled,
			admin_config = EXCLUDED.admin_config,
			listing_requestor = EXCLUDED.listing_requestor,
			fee = EXCLUDED.fee,
			request_type = EXCLUDED.request_type,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		l.Address.String(),
		l.Name,
		optionalKeyText(l.VerifiedCollectionAddress),
		l.CollectionUpdateAuthority.String(),
		optionalKeyText(l.Governance),
		l.AuctionHouse.String(),
		l.MetaDataURL,
		l.VanityURL,
		l.TokenType,
		l.IsDaoApproved,
		l.Enabled,
		l.AdminConfig.String(),
		l.ListingRequestor.String(),
		int64(l.Fee),
		int16(l.RequestType),
	)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

// GetByAddress retrieves a snapshot. Returns ErrNotFound if absent.
func (s *ListingStore) GetByAddress(ctx context.Context, address domain.PubKey) (*domain.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address.String())
	l, err := scanListing(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get listing by address: %w", err)
	}
	return l, nil
}

// ListByConfig retrieves all snapshots under a registry config, ordered by address.
func (s *ListingStore) ListByConfig(ctx context.Context, config domain.PubKey) ([]*domain.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE admin_config = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, config.String())
	if err != nil {
		return nil, fmt.Errorf("list listings by config: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// ListByStatus retrieves snapshots under a config filtered by the approval
// flag, ordered by address.
func (s *ListingStore) ListByStatus(ctx context.Context, config domain.PubKey, approved bool) ([]*domain.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE admin_config = $1 AND is_dao_approved = $2
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, config.String(), approved)
	if err != nil {
		return nil, fmt.Errorf("list listings by status: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// Delete removes a snapshot. Absent snapshots are ignored.
func (s *ListingStore) Delete(ctx context.Context, address domain.PubKey) error {
	query := `DELETE FROM listings WHERE address = $1`

	if _, err := s.pool.Exec(ctx, query, address.String()); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

// optionalKeyText maps an absent optional key to SQL NULL.
func optionalKeyText(k *domain.PubKey) any {
	if k == nil {
		return nil
	}
	return k.String()
}

// scanListing scans a single row into a Listing.
func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var address, updateAuthority, auctionHouse, adminConfig, requestor string
	var verified, governance *string
	var fee int64
	var requestType int16

	err := row.Scan(
		&address,
		&l.Name,
		&verified,
		&updateAuthority,
		&governance,
		&auctionHouse,
		&l.MetaDataURL,
		&l.VanityURL,
		&l.TokenType,
		&l.IsDaoApproved,
		&l.Enabled,
		&adminConfig,
		&requestor,
		&fee,
		&requestType,
	)
	if err != nil {
		return nil, err
	}

	if l.Address, err = domain.ParsePubKey(address); err != nil {
		return nil, err
	}
	if l.VerifiedCollectionAddress, err = parseOptionalKey(verified); err != nil {
		return nil, err
	}
	if l.CollectionUpdateAuthority, err = domain.ParsePubKey(updateAuthority); err != nil {
		return nil, err
	}
	if l.Governance, err = parseOptionalKey(governance); err != nil {
		return nil, err
	}
	if l.AuctionHouse, err = domain.ParsePubKey(auctionHouse); err != nil {
		return nil, err
	}
	if l.AdminConfig, err = domain.ParsePubKey(adminConfig); err != nil {
		return nil, err
	}
	if l.ListingRequestor, err = domain.ParsePubKey(requestor); err != nil {
		return nil, err
	}
	l.Fee = uint64(fee)
	l.RequestType = uint8(requestType)
	return &l, nil
}

func parseOptionalKey(s *string) (*domain.PubKey, error) {
	if s == nil {
		return nil, nil
	}
	k, err := domain.ParsePubKey(*s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// scanListings scans multiple rows into a slice of Listing.
func scanListings(rows pgx.Rows) ([]*domain.Listing, error) {
	var listings []*domain.Listing

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}

	return listings, nil
}
