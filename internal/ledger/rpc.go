package ledger

import (
	"context"
	"fmt"

	"listing-registry/internal/domain"
	"listing-registry/internal/solana"
	"listing-registry/internal/txn"
)

// RPCLedger adapts the JSON-RPC client to the Client interface.
type RPCLedger struct {
	rpc solana.RPCClient
}

// NewRPCLedger wraps an RPC client.
func NewRPCLedger(rpc solana.RPCClient) *RPCLedger {
	return &RPCLedger{rpc: rpc}
}

func (l *RPCLedger) ReadAccount(ctx context.Context, address domain.PubKey) (*Account, error) {
	info, err := l.rpc.GetAccountInfo(ctx, address.String())
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	return accountFromInfo(info)
}

func (l *RPCLedger) Balance(ctx context.Context, address domain.PubKey) (uint64, error) {
	return l.rpc.GetBalance(ctx, address.String())
}

func (l *RPCLedger) MinimumBalance(ctx context.Context, dataLen int) (uint64, error) {
	return l.rpc.GetMinimumBalanceForRentExemption(ctx, dataLen)
}

func (l *RPCLedger) ScanAccounts(ctx context.Context, programID domain.PubKey, query ScanQuery) ([]KeyedAccount, error) {
	opts := &solana.ProgramAccountsOpts{DataSize: query.DataSize}
	for _, f := range query.Filters {
		opts.Memcmp = append(opts.Memcmp, solana.Memcmp{Offset: f.Offset, Bytes: f.Bytes})
	}

	raw, err := l.rpc.GetProgramAccounts(ctx, programID.String(), opts)
	if err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, 0, len(raw))
	for _, ka := range raw {
		addr, err := domain.ParsePubKey(ka.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		acct, err := accountFromInfo(&ka.Account)
		if err != nil {
			return nil, fmt.Errorf("scan result %s: %w", ka.Pubkey, err)
		}
		accounts = append(accounts, KeyedAccount{Address: addr, Account: *acct})
	}
	return accounts, nil
}

func (l *RPCLedger) LatestBlockhash(ctx context.Context) (domain.Hash, error) {
	s, err := l.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return domain.Hash{}, err
	}
	return domain.ParseHash(s)
}

func (l *RPCLedger) Submit(ctx context.Context, feePayer domain.PubKey, instructions []txn.Instruction, signers ...txn.Signer) (string, error) {
	blockhash, err := l.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := txn.NewTransaction(feePayer, instructions, blockhash, signers...)
	if err != nil {
		return "", err
	}

	return l.rpc.SendTransaction(ctx, tx.Base64())
}

func accountFromInfo(info *solana.AccountInfo) (*Account, error) {
	owner, err := domain.ParsePubKey(info.Owner)
	if err != nil {
		return nil, fmt.Errorf("account owner: %w", err)
	}
	return &Account{
		Lamports: info.Lamports,
		Owner:    owner,
		Data:     info.Data,
	}, nil
}
