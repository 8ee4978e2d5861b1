// Package record encodes and decodes the registry's fixed-layout ledger
// records. Field offsets are part of the wire contract: the scan engine
// filters raw account bytes by offset, so any layout change is a breaking
// change requiring a new discriminator.
package record

import "crypto/sha256"

// Maximum byte lengths of the variable string fields. Each string is
// stored as a 4-byte little-endian length prefix followed by a slot of
// exactly cap bytes, keeping the record fixed-size.
const (
	NameCap        = 100
	MetaDataURLCap = 200
	VanityURLCap   = 40
	TokenTypeCap   = 200
)

// listingField indexes into listingWidths, in wire order.
const (
	listingFieldDiscriminator = iota
	listingFieldVerifiedCollection
	listingFieldUpdateAuthority
	listingFieldIsDaoApproved
	listingFieldEnabled
	listingFieldReserved
	listingFieldAuctionHouse
	listingFieldAdminConfig
	listingFieldListingRequestor
	listingFieldGovernance
	listingFieldFee
	listingFieldName
	listingFieldMetaDataURL
	listingFieldVanityURL
	listingFieldTokenType
	listingFieldRequestType
)

// listingWidths is the single source of truth for the ListingRequest
// layout. All offsets below are prefix sums of this table so the codec
// and the scan filters cannot drift apart.
var listingWidths = []int{
	listingFieldDiscriminator:      8,
	listingFieldVerifiedCollection: 32,
	listingFieldUpdateAuthority:    32,
	listingFieldIsDaoApproved:      1,
	listingFieldEnabled:            1,
	listingFieldReserved:           1,
	listingFieldAuctionHouse:       32,
	listingFieldAdminConfig:        32,
	listingFieldListingRequestor:   32,
	listingFieldGovernance:         32,
	listingFieldFee:                8,
	listingFieldName:               4 + NameCap,
	listingFieldMetaDataURL:        4 + MetaDataURLCap,
	listingFieldVanityURL:          4 + VanityURLCap,
	listingFieldTokenType:          4 + TokenTypeCap,
	listingFieldRequestType:        1,
}

// configField indexes into configWidths, in wire order.
const (
	configFieldDiscriminator = iota
	configFieldAdmin
	configFieldFee
)

var configWidths = []int{
	configFieldDiscriminator: 8,
	configFieldAdmin:         32,
	configFieldFee:           8,
}

func offsetOf(widths []int, field int) int {
	off := 0
	for i := 0; i < field; i++ {
		off += widths[i]
	}
	return off
}

func totalOf(widths []int) int {
	return offsetOf(widths, len(widths))
}

// Record sizes and the offsets the scan engine filters on.
var (
	// ListingRequestSize is the fixed account data size of a listing
	// request record (768 bytes).
	ListingRequestSize = totalOf(listingWidths)

	// ConfigSize is the fixed account data size of a config record (48 bytes).
	ConfigSize = totalOf(configWidths)

	// ApprovedOffset is the byte position of the is_dao_approved flag.
	ApprovedOffset = offsetOf(listingWidths, listingFieldIsDaoApproved)

	// EnabledOffset is the byte position of the enabled flag.
	EnabledOffset = offsetOf(listingWidths, listingFieldEnabled)

	// AdminConfigOffset is the byte position of the owning config address.
	AdminConfigOffset = offsetOf(listingWidths, listingFieldAdminConfig)

	// RequestorOffset is the byte position of the listing requestor address.
	RequestorOffset = offsetOf(listingWidths, listingFieldListingRequestor)
)

// Account discriminators distinguish record kinds sharing the program's
// account namespace: the first 8 bytes of SHA-256("account:<Name>").
var (
	ConfigDiscriminator         = accountDiscriminator("Config")
	ListingRequestDiscriminator = accountDiscriminator("CollectionListingRequest")
)

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
