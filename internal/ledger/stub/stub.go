// Package stub provides an in-memory ledger.Client that executes the
// registry program's observable semantics, so lifecycle scenarios run
// in tests without a node.
package stub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"listing-registry/internal/domain"
	"listing-registry/internal/fees"
	"listing-registry/internal/ledger"
	"listing-registry/internal/program"
	"listing-registry/internal/record"
	"listing-registry/internal/solana"
	"listing-registry/internal/txn"
)

// Rent parameters matching the mainnet schedule: two years of
// 3480 lamports per byte-year over data plus 128 bytes of overhead.
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	rentExemptionYears     = 2
)

// Ledger is an in-memory ledger executing registry program semantics.
type Ledger struct {
	ProgramID domain.PubKey

	mu       sync.Mutex
	accounts map[domain.PubKey]*ledger.Account
	slot     int64
	sigSeq   uint64
}

// New creates an empty ledger for the given program.
func New(programID domain.PubKey) *Ledger {
	return &Ledger{
		ProgramID: programID,
		accounts:  make(map[domain.PubKey]*ledger.Account),
		slot:      1,
	}
}

// Fund credits an account with lamports, creating it as a plain wallet
// if absent.
func (l *Ledger) Fund(address domain.PubKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[address]
	if acct == nil {
		acct = &ledger.Account{Owner: txn.SystemProgramID}
		l.accounts[address] = acct
	}
	acct.Lamports += lamports
}

// Drain removes lamports from an account, simulating external spend.
func (l *Ledger) Drain(address domain.PubKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct := l.accounts[address]; acct != nil {
		if acct.Lamports < lamports {
			acct.Lamports = 0
			return
		}
		acct.Lamports -= lamports
	}
}

// SetAccount installs raw account state, for token gating tests.
func (l *Ledger) SetAccount(address domain.PubKey, acct ledger.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data := append([]byte(nil), acct.Data...)
	l.accounts[address] = &ledger.Account{Lamports: acct.Lamports, Owner: acct.Owner, Data: data}
}

// AdvanceSlot moves the clock forward.
func (l *Ledger) AdvanceSlot() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slot++
}

// Slot reports the current slot.
func (l *Ledger) Slot() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

func (l *Ledger) ReadAccount(_ context.Context, address domain.PubKey) (*ledger.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.accounts[address]
	if acct == nil {
		return nil, nil
	}
	cp := *acct
	cp.Data = append([]byte(nil), acct.Data...)
	return &cp, nil
}

func (l *Ledger) Balance(_ context.Context, address domain.PubKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct := l.accounts[address]; acct != nil {
		return acct.Lamports, nil
	}
	return 0, nil
}

func (l *Ledger) MinimumBalance(_ context.Context, dataLen int) (uint64, error) {
	return Rent(dataLen), nil
}

// Rent is the rent-exempt reserve for an account of the given size.
func Rent(dataLen int) uint64 {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * rentExemptionYears
}

func (l *Ledger) ScanAccounts(_ context.Context, programID domain.PubKey, query ledger.ScanQuery) ([]ledger.KeyedAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ledger.KeyedAccount
	for addr, acct := range l.accounts {
		if acct.Owner != programID {
			continue
		}
		if query.DataSize > 0 && len(acct.Data) != query.DataSize {
			continue
		}
		if !matchFilters(acct.Data, query.Filters) {
			continue
		}
		cp := *acct
		cp.Data = append([]byte(nil), acct.Data...)
		out = append(out, ledger.KeyedAccount{Address: addr, Account: cp})
	}
	return out, nil
}

func matchFilters(data []byte, filters []ledger.ByteFilter) bool {
	for _, f := range filters {
		end := f.Offset + len(f.Bytes)
		if end > len(data) || !bytes.Equal(data[f.Offset:end], f.Bytes) {
			return false
		}
	}
	return true
}

func (l *Ledger) LatestBlockhash(_ context.Context) (domain.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := sha256.Sum256(binary.LittleEndian.AppendUint64(nil, uint64(l.slot)))
	return domain.Hash(sum), nil
}

// Submit executes the instructions atomically: all apply or none do.
func (l *Ledger) Submit(_ context.Context, feePayer domain.PubKey, instructions []txn.Instruction, signers ...txn.Signer) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	signed := map[domain.PubKey]bool{}
	for _, s := range signers {
		signed[s.Public()] = true
	}
	if !signed[feePayer] {
		return "", fmt.Errorf("fee payer %s did not sign", feePayer)
	}

	// Work on a deep copy for atomicity.
	work := make(map[domain.PubKey]*ledger.Account, len(l.accounts))
	for addr, acct := range l.accounts {
		cp := *acct
		cp.Data = append([]byte(nil), acct.Data...)
		work[addr] = &cp
	}

	for i, ins := range instructions {
		for _, m := range ins.Accounts {
			if m.Signer && !signed[m.Key] {
				return "", fmt.Errorf("instruction %d: missing signature from %s", i, m.Key)
			}
		}
		if err := l.execute(work, ins); err != nil {
			return "", fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	l.accounts = work
	l.slot++
	l.sigSeq++
	sum := sha256.Sum256(binary.LittleEndian.AppendUint64(nil, l.sigSeq))
	return base58.Encode(sum[:]), nil
}

func (l *Ledger) execute(work map[domain.PubKey]*ledger.Account, ins txn.Instruction) error {
	if ins.ProgramID == txn.SystemProgramID {
		return executeTransfer(work, ins)
	}
	if ins.ProgramID != l.ProgramID {
		return fmt.Errorf("unknown program %s", ins.ProgramID)
	}
	if len(ins.Data) < 8 {
		return fmt.Errorf("instruction data too short")
	}

	var tag [8]byte
	copy(tag[:], ins.Data[:8])
	args := ins.Data[8:]

	switch tag {
	case txn.InstructionTag(program.MethodInitializeConfig):
		return l.initializeConfig(work, ins, args)
	case txn.InstructionTag(program.MethodUpdateAdmin):
		return l.updateAdmin(work, ins, args)
	case txn.InstructionTag(program.MethodUpdateFee):
		return l.updateFee(work, ins, args)
	case txn.InstructionTag(program.MethodInitializeListing):
		return l.initializeListing(work, ins, args)
	case txn.InstructionTag(program.MethodApproveListing):
		return l.approveListing(work, ins, args)
	case txn.InstructionTag(program.MethodEnableListing):
		return l.enableListing(work, ins, args)
	case txn.InstructionTag(program.MethodUpdateListing):
		return l.updateListing(work, ins, args)
	case txn.InstructionTag(program.MethodRequestRefund):
		return l.requestRefund(work, ins)
	default:
		return fmt.Errorf("unknown instruction tag %x", tag)
	}
}

func executeTransfer(work map[domain.PubKey]*ledger.Account, ins txn.Instruction) error {
	if len(ins.Data) != 12 || binary.LittleEndian.Uint32(ins.Data[:4]) != 2 {
		return fmt.Errorf("unsupported system instruction")
	}
	lamports := binary.LittleEndian.Uint64(ins.Data[4:])
	from, to := ins.Accounts[0].Key, ins.Accounts[1].Key

	src := work[from]
	if src == nil || src.Lamports < lamports {
		return &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: insufficient funds for transfer"}
	}
	src.Lamports -= lamports

	dst := work[to]
	if dst == nil {
		dst = &ledger.Account{Owner: txn.SystemProgramID}
		work[to] = dst
	}
	dst.Lamports += lamports
	return nil
}

func (l *Ledger) initializeConfig(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	configKey := ins.Accounts[0].Key
	adminKey := ins.Accounts[1].Key

	if existing := work[configKey]; existing != nil && len(existing.Data) > 0 {
		return &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: account already in use"}
	}
	if len(args) != 8 {
		return fmt.Errorf("initialize_config: bad args")
	}
	fee := binary.LittleEndian.Uint64(args)

	rent := Rent(record.ConfigSize)
	payer := work[adminKey]
	if payer == nil || payer.Lamports < rent {
		return &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: insufficient funds for rent"}
	}
	payer.Lamports -= rent

	work[configKey] = &ledger.Account{
		Lamports: rent,
		Owner:    l.ProgramID,
		Data:     record.EncodeConfig(&domain.Config{Admin: adminKey, Fee: fee}),
	}
	return nil
}

func (l *Ledger) updateAdmin(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	cfg, acct, err := l.loadConfig(work, ins.Accounts[0].Key)
	if err != nil {
		return err
	}
	if cfg.Admin != ins.Accounts[1].Key {
		return hasOneViolation()
	}
	newAdmin, err := domain.PubKeyFromBytes(args)
	if err != nil {
		return err
	}
	cfg.Admin = newAdmin
	acct.Data = record.EncodeConfig(cfg)
	return nil
}

func (l *Ledger) updateFee(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	cfg, acct, err := l.loadConfig(work, ins.Accounts[0].Key)
	if err != nil {
		return err
	}
	if cfg.Admin != ins.Accounts[1].Key {
		return hasOneViolation()
	}
	if len(args) != 8 {
		return fmt.Errorf("update_fee: bad args")
	}
	cfg.Fee = binary.LittleEndian.Uint64(args)
	acct.Data = record.EncodeConfig(cfg)
	return nil
}

func (l *Ledger) initializeListing(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	requestKey := ins.Accounts[0].Key
	configKey := ins.Accounts[1].Key
	requestorKey := ins.Accounts[2].Key

	if existing := work[requestKey]; existing != nil && len(existing.Data) > 0 {
		return &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: account already in use"}
	}

	cfg, _, err := l.loadConfig(work, configKey)
	if err != nil {
		return err
	}

	info, err := decodeListingArgs(args)
	if err != nil {
		return err
	}

	// New records start visible; approval and visibility are
	// independent flags.
	req := &domain.ListingRequest{
		Name:                      info.Name,
		VerifiedCollectionAddress: info.VerifiedCollectionAddress,
		CollectionUpdateAuthority: info.CollectionUpdateAuthority,
		Governance:                info.Governance,
		AuctionHouse:              info.AuctionHouse,
		MetaDataURL:               info.MetaDataURL,
		VanityURL:                 info.VanityURL,
		TokenType:                 info.TokenType,
		Enabled:                   true,
		AdminConfig:               configKey,
		ListingRequestor:          requestorKey,
		Fee:                       cfg.Fee,
		RequestType:               info.RequestType,
	}
	data, err := record.EncodeListingRequest(req)
	if err != nil {
		return err
	}

	acct := work[requestKey]
	if acct == nil {
		acct = &ledger.Account{}
		work[requestKey] = acct
	}
	if acct.Lamports < Rent(record.ListingRequestSize) {
		return &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: insufficient funds for rent"}
	}
	acct.Owner = l.ProgramID
	acct.Data = data
	return nil
}

func (l *Ledger) approveListing(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	req, acct, err := l.loadRequest(work, ins.Accounts[0].Key)
	if err != nil {
		return err
	}
	cfg, _, err := l.loadConfig(work, ins.Accounts[1].Key)
	if err != nil {
		return err
	}
	adminKey := ins.Accounts[2].Key
	requestorKey := ins.Accounts[3].Key

	if req.AdminConfig != ins.Accounts[1].Key || cfg.Admin != adminKey || req.ListingRequestor != requestorKey {
		return hasOneViolation()
	}
	if len(args) != 1 {
		return fmt.Errorf("approve_listing: bad args")
	}
	approved := args[0] != 0

	// Fee escrow payout: to the admin on approval, back to the
	// requestor on denial. The rent reserve stays with the record, and
	// no more than the fee snapshot moves; overfunding stays in escrow.
	payout := fees.Payout(acct.Lamports, Rent(record.ListingRequestSize))
	if payout > req.Fee {
		payout = req.Fee
	}
	dest := requestorKey
	if approved {
		dest = adminKey
	}
	if payout > 0 {
		acct.Lamports -= payout
		destAcct := work[dest]
		if destAcct == nil {
			destAcct = &ledger.Account{Owner: txn.SystemProgramID}
			work[dest] = destAcct
		}
		destAcct.Lamports += payout
	}

	req.IsDaoApproved = approved
	data, err := record.EncodeListingRequest(req)
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (l *Ledger) enableListing(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	req, acct, err := l.loadRequest(work, ins.Accounts[0].Key)
	if err != nil {
		return err
	}
	cfg, _, err := l.loadConfig(work, ins.Accounts[1].Key)
	if err != nil {
		return err
	}
	if req.AdminConfig != ins.Accounts[1].Key || cfg.Admin != ins.Accounts[2].Key {
		return hasOneViolation()
	}
	if len(args) != 1 {
		return fmt.Errorf("enable_listing: bad args")
	}

	req.Enabled = args[0] != 0
	data, err := record.EncodeListingRequest(req)
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (l *Ledger) updateListing(work map[domain.PubKey]*ledger.Account, ins txn.Instruction, args []byte) error {
	req, acct, err := l.loadRequest(work, ins.Accounts[0].Key)
	if err != nil {
		return err
	}
	if req.AdminConfig != ins.Accounts[1].Key || req.ListingRequestor != ins.Accounts[2].Key {
		return hasOneViolation()
	}

	rd := argReader{buf: args}
	req.Name = rd.str()
	req.MetaDataURL = rd.str()
	req.VanityURL = rd.str()
	req.TokenType = rd.str()
	if rd.err != nil {
		return rd.err
	}

	data, err := record.EncodeListingRequest(req)
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (l *Ledger) requestRefund(work map[domain.PubKey]*ledger.Account, ins txn.Instruction) error {
	requestKey := ins.Accounts[0].Key
	req, acct, err := l.loadRequest(work, requestKey)
	if err != nil {
		return err
	}
	requestorKey := ins.Accounts[2].Key
	if req.AdminConfig != ins.Accounts[1].Key || req.ListingRequestor != requestorKey {
		return hasOneViolation()
	}

	// The whole balance returns, rent reserve included, and the record
	// is closed.
	dest := work[requestorKey]
	if dest == nil {
		dest = &ledger.Account{Owner: txn.SystemProgramID}
		work[requestorKey] = dest
	}
	dest.Lamports += acct.Lamports
	delete(work, requestKey)
	return nil
}

func (l *Ledger) loadConfig(work map[domain.PubKey]*ledger.Account, key domain.PubKey) (*domain.Config, *ledger.Account, error) {
	acct := work[key]
	if acct == nil || acct.Owner != l.ProgramID {
		return nil, nil, fmt.Errorf("config %s does not exist", key)
	}
	cfg, err := record.DecodeConfig(acct.Data)
	if err != nil {
		return nil, nil, err
	}
	return cfg, acct, nil
}

func (l *Ledger) loadRequest(work map[domain.PubKey]*ledger.Account, key domain.PubKey) (*domain.ListingRequest, *ledger.Account, error) {
	acct := work[key]
	if acct == nil || acct.Owner != l.ProgramID {
		return nil, nil, fmt.Errorf("request %s does not exist", key)
	}
	req, err := record.DecodeListingRequest(acct.Data)
	if err != nil {
		return nil, nil, err
	}
	return req, acct, nil
}

// hasOneViolation mirrors the node's response to an account constraint
// failure, so error mapping is exercised end to end.
func hasOneViolation() error {
	data, _ := json.Marshal(map[string]interface{}{
		"err": map[string]interface{}{
			"InstructionError": []interface{}{0, map[string]int{"Custom": 2001}},
		},
	})
	return &solana.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x7d1",
		Data:    data,
	}
}

// decodeListingArgs parses initialize_listing_request arguments.
func decodeListingArgs(args []byte) (*domain.ListingInfo, error) {
	rd := argReader{buf: args}
	info := &domain.ListingInfo{}
	info.Name = rd.str()
	info.VerifiedCollectionAddress = rd.optionalKey()
	info.CollectionUpdateAuthority = rd.key()
	info.Governance = rd.optionalKey()
	info.AuctionHouse = rd.key()
	info.MetaDataURL = rd.str()
	info.VanityURL = rd.str()
	info.TokenType = rd.str()
	info.RequestType = rd.u8()
	if rd.err != nil {
		return nil, rd.err
	}
	return info, nil
}

type argReader struct {
	buf []byte
	pos int
	err error
}

func (r *argReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("malformed instruction arguments")
	}
}

func (r *argReader) u8() uint8 {
	if r.pos+1 > len(r.buf) {
		r.fail()
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *argReader) str() string {
	if r.pos+4 > len(r.buf) {
		r.fail()
		return ""
	}
	n := int(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	if r.pos+n > len(r.buf) {
		r.fail()
		return ""
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s
}

func (r *argReader) key() domain.PubKey {
	if r.pos+32 > len(r.buf) {
		r.fail()
		return domain.PubKey{}
	}
	var k domain.PubKey
	copy(k[:], r.buf[r.pos:r.pos+32])
	r.pos += 32
	return k
}

func (r *argReader) optionalKey() *domain.PubKey {
	if r.u8() == 0 {
		return nil
	}
	k := r.key()
	return &k
}
