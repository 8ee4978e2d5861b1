// Package program builds the on-chain registry program's instructions.
// Account ordering here is part of the program's ABI; the positions are
// shared with the in-memory executor used in tests.
package program

import (
	"listing-registry/internal/domain"
	"listing-registry/internal/txn"
)

// Method names, hashed into the 8-byte instruction tags.
const (
	MethodInitializeConfig  = "initialize_config"
	MethodUpdateAdmin       = "update_admin"
	MethodUpdateFee         = "update_fee"
	MethodInitializeListing = "initialize_listing_request"
	MethodApproveListing    = "approve_listing"
	MethodEnableListing     = "enable_listing"
	MethodUpdateListing     = "update_listing"
	MethodRequestRefund     = "request_refund"
)

// InitializeConfig creates the registry settings record. The config is
// a fresh keypair account, so both it and the paying admin sign.
func InitializeConfig(programID, config, admin domain.PubKey, fee uint64) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(config, true, true),
			txn.Meta(admin, true, true),
			txn.Meta(txn.SystemProgramID, false, false),
		},
		Data: txn.NewArgWriter(MethodInitializeConfig).U64(fee).Bytes(),
	}
}

// UpdateAdmin rotates the registry admin. Only the current admin signs.
func UpdateAdmin(programID, config, admin, newAdmin domain.PubKey) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(config, false, true),
			txn.Meta(admin, true, false),
		},
		Data: txn.NewArgWriter(MethodUpdateAdmin).Key(newAdmin).Bytes(),
	}
}

// UpdateFee changes the fee charged to future listing requests.
func UpdateFee(programID, config, admin domain.PubKey, fee uint64) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(config, false, true),
			txn.Meta(admin, true, false),
		},
		Data: txn.NewArgWriter(MethodUpdateFee).U64(fee).Bytes(),
	}
}

// InitializeListing creates a listing request record at its derived
// address. The requestor pays for and funds the record.
func InitializeListing(programID, request, config, requestor domain.PubKey, info *domain.ListingInfo) txn.Instruction {
	data := txn.NewArgWriter(MethodInitializeListing).
		String(info.Name).
		OptionalKey(info.VerifiedCollectionAddress).
		Key(info.CollectionUpdateAuthority).
		OptionalKey(info.Governance).
		Key(info.AuctionHouse).
		String(info.MetaDataURL).
		String(info.VanityURL).
		String(info.TokenType).
		U8(info.RequestType).
		Bytes()

	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(request, false, true),
			txn.Meta(config, false, false),
			txn.Meta(requestor, true, true),
			txn.Meta(txn.SystemProgramID, false, false),
		},
		Data: data,
	}
}

// ApproveListing decides a request. On approval the escrowed fee moves
// to the admin; on denial it returns to the requestor. Both payout
// destinations are writable.
func ApproveListing(programID, request, config, admin, requestor domain.PubKey, approved bool) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(request, false, true),
			txn.Meta(config, false, false),
			txn.Meta(admin, true, true),
			txn.Meta(requestor, false, true),
		},
		Data: txn.NewArgWriter(MethodApproveListing).Bool(approved).Bytes(),
	}
}

// EnableListing toggles the visibility flag of an approved request.
func EnableListing(programID, request, config, admin domain.PubKey, enabled bool) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(request, false, true),
			txn.Meta(config, false, false),
			txn.Meta(admin, true, false),
		},
		Data: txn.NewArgWriter(MethodEnableListing).Bool(enabled).Bytes(),
	}
}

// UpdateListing rewrites the descriptive fields of a request. Only the
// requestor may do so.
func UpdateListing(programID, request, config, requestor domain.PubKey, name, metaDataURL, vanityURL, tokenType string) txn.Instruction {
	data := txn.NewArgWriter(MethodUpdateListing).
		String(name).
		String(metaDataURL).
		String(vanityURL).
		String(tokenType).
		Bytes()

	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(request, false, true),
			txn.Meta(config, false, false),
			txn.Meta(requestor, true, false),
		},
		Data: data,
	}
}

// RequestRefund drains the record's entire balance back to the
// requestor and closes it.
func RequestRefund(programID, request, config, requestor domain.PubKey) txn.Instruction {
	return txn.Instruction{
		ProgramID: programID,
		Accounts: []txn.AccountMeta{
			txn.Meta(request, false, true),
			txn.Meta(config, false, false),
			txn.Meta(requestor, true, true),
		},
		Data: txn.NewArgWriter(MethodRequestRefund).Bytes(),
	}
}
