package domain

// Config is the registry-wide settings record. One per registry instance.
type Config struct {
	// Admin is the only identity allowed to approve, deny, enable
	// listings and to mutate this config.
	Admin PubKey
	// Fee is the current listing fee in lamports. Changing it never
	// affects the fee snapshot of existing listing requests.
	Fee uint64
}

// ListingRequest is one listing request record. Its address is derived
// from (admin_config, subject), so there is at most one live request per
// (registry, subject) pair.
type ListingRequest struct {
	Name string

	// VerifiedCollectionAddress is the subject's canonical address.
	// Nil when the collection has no verified address; the update
	// authority is then the addressing subject.
	VerifiedCollectionAddress *PubKey

	CollectionUpdateAuthority PubKey

	// Governance is an optional delegated authority. Nil encodes as the
	// zero-address sentinel on the wire.
	Governance *PubKey

	AuctionHouse PubKey
	MetaDataURL  string
	VanityURL    string
	TokenType    string

	IsDaoApproved bool
	Enabled       bool

	// AdminConfig is the owning Config address. Authorization checks are
	// local to this association; no global registry index exists.
	AdminConfig PubKey

	// ListingRequestor created and funded the record. Only it may be
	// refunded, and only it may request the refund.
	ListingRequestor PubKey

	// Fee is the listing fee captured when the request was created.
	// It is a snapshot of Config.Fee, not a live reference.
	Fee uint64

	// RequestType discriminates listing categories. Reserved for extension.
	RequestType uint8
}

// Subject returns the addressing subject of the request: the verified
// collection address when present, otherwise the update authority.
func (r *ListingRequest) Subject() PubKey {
	if r.VerifiedCollectionAddress != nil {
		return *r.VerifiedCollectionAddress
	}
	return r.CollectionUpdateAuthority
}

// Listing is a scan/fetch result: a decoded request plus the derived
// address it lives at.
type Listing struct {
	Address PubKey
	ListingRequest
}

// ListingInfo carries the caller-supplied fields of a new listing request.
type ListingInfo struct {
	Name                      string
	VerifiedCollectionAddress *PubKey
	CollectionUpdateAuthority PubKey
	Governance                *PubKey
	AuctionHouse              PubKey
	MetaDataURL               string
	VanityURL                 string
	TokenType                 string
	RequestType               uint8
}

// Subject returns the addressing subject for the new request.
func (i *ListingInfo) Subject() PubKey {
	if i.VerifiedCollectionAddress != nil {
		return *i.VerifiedCollectionAddress
	}
	return i.CollectionUpdateAuthority
}
