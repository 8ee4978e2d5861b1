// Package tokengate answers whether a wallet holds a given token, used
// to gate marketplace features on membership tokens.
package tokengate

import (
	"context"
	"log"
	"os"

	"listing-registry/internal/domain"
	"listing-registry/internal/ledger"
	"listing-registry/internal/pda"
	"listing-registry/internal/record"
)

// MarketplaceToken is the default membership mint gating access.
var MarketplaceToken = domain.MustPubKey("2ForzAxeVUUCh7TaQQRudoGkjMbJiQUmjhuyq6mkhyTp")

// Gate checks token holdings through the canonical token account.
type Gate struct {
	ledger ledger.Client
	logger *log.Logger
}

// New creates a gate over the given ledger.
func New(client ledger.Client) *Gate {
	return &Gate{
		ledger: client,
		logger: log.New(os.Stdout, "[tokengate] ", log.LstdFlags|log.Lshortfile),
	}
}

// HasToken reports whether the wallet holds a positive, unfrozen
// balance of the mint. Absent accounts, undecodable data, and lookup
// failures all read as not holding; gating fails closed.
func (g *Gate) HasToken(ctx context.Context, wallet, mint domain.PubKey) bool {
	ata, err := pda.AssociatedTokenAddress(wallet, mint)
	if err != nil {
		g.logger.Printf("derive token account for %s: %v", wallet, err)
		return false
	}

	acct, err := g.ledger.ReadAccount(ctx, ata)
	if err != nil {
		g.logger.Printf("read token account %s: %v", ata, err)
		return false
	}
	if acct == nil {
		return false
	}

	token, err := record.DecodeTokenAccount(acct.Data)
	if err != nil {
		g.logger.Printf("decode token account %s: %v", ata, err)
		return false
	}
	if token.Mint != mint || token.Owner != wallet {
		return false
	}
	return token.Amount > 0 && !token.Frozen
}
