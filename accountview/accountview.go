// Package accountview exposes a read-only view over host-held accounts,
// the base layer the journaled Substate overlays.
package accountview

import (
	"errors"
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/internal/crypto"
)

func keccak256(data ...[]byte) []byte { return crypto.Keccak256(data...) }

// ErrAccountMissing is returned by ContractChainID when the address has
// no deployed code, mirroring the host's contract_account lookup
// failing for an address that was never finalized as a contract.
var ErrAccountMissing = errors.New("accountview: account missing")

// StorageEntriesInContractAccount is the threshold below which the host
// layout stores a contract's storage slots inline in its account
// record, and above which it indexes into cell-addressed sub-accounts.
// The in-memory AccountView below is backed by a flat map either way,
// so callers observe identical semantics to the two-tier host layout;
// this constant documents the boundary without implementing the
// tiering itself.
const StorageEntriesInContractAccount = 64

// AccountView is the read-only interface the journaled Substate and the
// Handler consult for any address the current transaction has not yet
// overlaid. It never mutates host state.
type AccountView interface {
	Nonce(addr types.Address, chainID uint64) uint64
	Balance(addr types.Address, chainID uint64) *big.Int
	CodeHash(addr types.Address, chainID uint64) types.Hash
	CodeSize(addr types.Address) int
	Code(addr types.Address) []byte
	Storage(addr types.Address, index *big.Int) *big.Int

	BlockNumber() *big.Int
	BlockTimestamp() *big.Int
	// SlotHash looks up the host's rolling slot-hash sysvar; an absent
	// slot reports the zero hash.
	SlotHash(slot uint64) (types.Hash, bool)

	IsValidChainID(chainID uint64) bool
	DefaultChainID() uint64
	// ChainIDToToken resolves the host-native token mint address that
	// backs balances on chainID.
	ChainIDToToken(chainID uint64) types.Address
	// ContractChainID returns the chain ID a deployed contract was
	// created under. It reports ErrAccountMissing when addr has no
	// deployed code.
	ContractChainID(addr types.Address) (uint64, error)

	// ContractPubkey derives the host-side program-derived address and
	// bump seed for addr, following the find-program-address pattern
	// without depending on the Solana SDK.
	ContractPubkey(addr types.Address) (types.Address, byte)

	ProgramID() types.Address
	Operator() types.Address
}

// account is the in-memory record backing MapAccountView.
type account struct {
	nonce    uint64
	balance  *big.Int
	codeHash types.Hash
	code     []byte
	storage  map[string]*big.Int
	chainID  uint64
}

func newAccount() *account {
	return &account{balance: new(big.Int), codeHash: types.EmptyCodeHash, storage: make(map[string]*big.Int)}
}

// MapAccountView is an in-memory reference AccountView: a map of
// accounts, value-receiver lookups returning zero values for missing
// accounts.
type MapAccountView struct {
	accounts map[types.Address]*account
	slotHash map[uint64]types.Hash

	programID types.Address
	operator  types.Address

	blockNumber    *big.Int
	blockTimestamp *big.Int

	defaultChainID uint64
	validChainIDs  map[uint64]bool
	tokens         map[uint64]types.Address
}

// NewMapAccountView constructs an empty MapAccountView rooted at the
// given block context.
func NewMapAccountView(programID, operator types.Address, blockNumber, blockTimestamp *big.Int, defaultChainID uint64) *MapAccountView {
	return &MapAccountView{
		accounts:       make(map[types.Address]*account),
		slotHash:       make(map[uint64]types.Hash),
		programID:      programID,
		operator:       operator,
		blockNumber:    blockNumber,
		blockTimestamp: blockTimestamp,
		defaultChainID: defaultChainID,
		validChainIDs:  map[uint64]bool{defaultChainID: true},
		tokens:         map[uint64]types.Address{defaultChainID: deriveToken(programID, defaultChainID)},
	}
}

// deriveToken derives a deterministic placeholder token mint address
// for chainID, the same keccak-over-tagged-fields stand-in
// ContractPubkey uses in place of an on-chain config table lookup.
func deriveToken(programID types.Address, chainID uint64) types.Address {
	var chainIDBytes [8]byte
	for i := 0; i < 8; i++ {
		chainIDBytes[i] = byte(chainID >> (56 - 8*i))
	}
	return types.BytesToAddress(keccak256(programID.Bytes(), []byte("token"), chainIDBytes[:]))
}

// SetToken registers the token mint address backing chainID, for test
// and scenario setup beyond the default chain's auto-derived token.
func (v *MapAccountView) SetToken(chainID uint64, token types.Address) {
	v.tokens[chainID] = token
	v.validChainIDs[chainID] = true
}

func (v *MapAccountView) get(addr types.Address) *account {
	if a, ok := v.accounts[addr]; ok {
		return a
	}
	return newAccount()
}

// SetAccount installs or replaces the full account record at addr, for
// test and scenario setup.
func (v *MapAccountView) SetAccount(addr types.Address, nonce uint64, balance *big.Int, code []byte, chainID uint64) {
	a := newAccount()
	a.nonce = nonce
	a.balance = new(big.Int).Set(balance)
	a.code = code
	if len(code) > 0 {
		a.codeHash = types.BytesToHash(keccak256(code))
	}
	a.chainID = chainID
	v.accounts[addr] = a
	v.validChainIDs[chainID] = true
	if _, ok := v.tokens[chainID]; !ok {
		v.tokens[chainID] = deriveToken(v.programID, chainID)
	}
}

// SetStorage seeds a storage slot directly, bypassing the Substate
// journal (test/scenario setup only).
func (v *MapAccountView) SetStorage(addr types.Address, index, value *big.Int) {
	a, ok := v.accounts[addr]
	if !ok {
		a = newAccount()
		v.accounts[addr] = a
	}
	a.storage[index.String()] = new(big.Int).Set(value)
}

// SetSlotHash records the hash of historical slot n, for BLOCKHASH test
// fixtures.
func (v *MapAccountView) SetSlotHash(slot uint64, h types.Hash) {
	v.slotHash[slot] = h
}

func (v *MapAccountView) Nonce(addr types.Address, chainID uint64) uint64 {
	return v.get(addr).nonce
}

func (v *MapAccountView) Balance(addr types.Address, chainID uint64) *big.Int {
	return new(big.Int).Set(v.get(addr).balance)
}

func (v *MapAccountView) CodeHash(addr types.Address, chainID uint64) types.Hash {
	return v.get(addr).codeHash
}

func (v *MapAccountView) CodeSize(addr types.Address) int {
	return len(v.get(addr).code)
}

func (v *MapAccountView) Code(addr types.Address) []byte {
	return v.get(addr).code
}

func (v *MapAccountView) Storage(addr types.Address, index *big.Int) *big.Int {
	a := v.get(addr)
	if val, ok := a.storage[index.String()]; ok {
		return new(big.Int).Set(val)
	}
	return new(big.Int)
}

func (v *MapAccountView) BlockNumber() *big.Int    { return v.blockNumber }
func (v *MapAccountView) BlockTimestamp() *big.Int { return v.blockTimestamp }

func (v *MapAccountView) SlotHash(slot uint64) (types.Hash, bool) {
	h, ok := v.slotHash[slot]
	return h, ok
}

func (v *MapAccountView) IsValidChainID(chainID uint64) bool { return v.validChainIDs[chainID] }
func (v *MapAccountView) DefaultChainID() uint64             { return v.defaultChainID }

func (v *MapAccountView) ChainIDToToken(chainID uint64) types.Address { return v.tokens[chainID] }

func (v *MapAccountView) ContractChainID(addr types.Address) (uint64, error) {
	a, ok := v.accounts[addr]
	if !ok || len(a.code) == 0 {
		return 0, ErrAccountMissing
	}
	return a.chainID, nil
}

func (v *MapAccountView) ProgramID() types.Address { return v.programID }
func (v *MapAccountView) Operator() types.Address  { return v.operator }

// ContractPubkey derives a deterministic placeholder program-derived
// address by scanning a bump seed from 255 down, matching the
// find-program-address pattern of the original's
// contract_with_bump_seed without depending on the Solana SDK: it is
// simply keccak(programID ‖ "contract" ‖ addr ‖ bump), taking the first
// bump whose hash has a high bit clear (an "off-curve" stand-in).
func (v *MapAccountView) ContractPubkey(addr types.Address) (types.Address, byte) {
	for bump := 255; bump >= 0; bump-- {
		h := keccak256(v.programID.Bytes(), []byte("contract"), addr.Bytes(), []byte{byte(bump)})
		if h[0]&0x80 == 0 {
			return types.BytesToAddress(h[:types.AddressLength]), byte(bump)
		}
	}
	return types.Address{}, 0
}
