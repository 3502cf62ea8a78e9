package accountview

import (
	"math/big"
	"testing"

	"github.com/WizzyDev/solevm/core/types"
)

func newTestView() *MapAccountView {
	return NewMapAccountView(
		types.HexToAddress("0x01"),
		types.HexToAddress("0x02"),
		big.NewInt(100),
		big.NewInt(1700000000),
		1,
	)
}

func TestMapAccountView_UnsetAccountReadsZero(t *testing.T) {
	v := newTestView()
	addr := types.HexToAddress("0xaa")

	if n := v.Nonce(addr, 1); n != 0 {
		t.Fatalf("Nonce = %d, want 0", n)
	}
	if b := v.Balance(addr, 1); b.Sign() != 0 {
		t.Fatalf("Balance = %s, want 0", b)
	}
	if v.CodeHash(addr, 1) != types.EmptyCodeHash {
		t.Fatalf("CodeHash = %x, want EmptyCodeHash", v.CodeHash(addr, 1))
	}
	if v.CodeSize(addr) != 0 {
		t.Fatal("CodeSize of unset account must be 0")
	}
}

func TestMapAccountView_SetAccountRoundTrip(t *testing.T) {
	v := newTestView()
	addr := types.HexToAddress("0xbb")
	code := []byte{0x60, 0x00, 0x60, 0x01}

	v.SetAccount(addr, 5, big.NewInt(1000), code, 1)

	if n := v.Nonce(addr, 1); n != 5 {
		t.Fatalf("Nonce = %d, want 5", n)
	}
	if b := v.Balance(addr, 1); b.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("Balance = %s, want 1000", b)
	}
	if v.CodeSize(addr) != len(code) {
		t.Fatalf("CodeSize = %d, want %d", v.CodeSize(addr), len(code))
	}
	if string(v.Code(addr)) != string(code) {
		t.Fatalf("Code mismatch")
	}
	if v.CodeHash(addr, 1) == types.EmptyCodeHash {
		t.Fatal("a deployed account must not report EmptyCodeHash")
	}
}

func TestMapAccountView_BalanceIsDefensivelyCopied(t *testing.T) {
	v := newTestView()
	addr := types.HexToAddress("0xcc")
	v.SetAccount(addr, 0, big.NewInt(42), nil, 1)

	got := v.Balance(addr, 1)
	got.SetInt64(999) // mutating the returned value must not affect the view

	if b := v.Balance(addr, 1); b.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("Balance after external mutation = %s, want 42 (unaffected)", b)
	}
}

func TestMapAccountView_SetStorageAndRead(t *testing.T) {
	v := newTestView()
	addr := types.HexToAddress("0xdd")
	index := big.NewInt(7)

	if val := v.Storage(addr, index); val.Sign() != 0 {
		t.Fatalf("unset slot = %s, want 0", val)
	}

	v.SetStorage(addr, index, big.NewInt(123))
	if val := v.Storage(addr, index); val.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("Storage = %s, want 123", val)
	}
}

func TestMapAccountView_SlotHash(t *testing.T) {
	v := newTestView()

	if _, ok := v.SlotHash(10); ok {
		t.Fatal("no slot hash recorded yet, expected ok=false")
	}

	h := types.HexToHash("beef")
	v.SetSlotHash(10, h)
	got, ok := v.SlotHash(10)
	if !ok || got != h {
		t.Fatalf("SlotHash(10) = (%x, %v), want (%x, true)", got, ok, h)
	}
}

func TestMapAccountView_ChainIDValidity(t *testing.T) {
	v := newTestView()
	if !v.IsValidChainID(1) {
		t.Fatal("default chain id must be valid")
	}
	if v.IsValidChainID(2) {
		t.Fatal("unregistered chain id must not be valid")
	}

	addr := types.HexToAddress("0xee")
	v.SetAccount(addr, 0, big.NewInt(0), nil, 2)
	if !v.IsValidChainID(2) {
		t.Fatal("chain id introduced via SetAccount must become valid")
	}
	if v.DefaultChainID() != 1 {
		t.Fatalf("DefaultChainID = %d, want 1", v.DefaultChainID())
	}
}

func TestMapAccountView_ContractPubkeyDeterministicAndDistinct(t *testing.T) {
	v := newTestView()
	a := types.HexToAddress("0x01")
	b := types.HexToAddress("0x02")

	pk1, bump1 := v.ContractPubkey(a)
	pk2, bump2 := v.ContractPubkey(a)
	if pk1 != pk2 || bump1 != bump2 {
		t.Fatal("ContractPubkey must be deterministic for the same address")
	}

	pkB, _ := v.ContractPubkey(b)
	if pkB == pk1 {
		t.Fatal("different addresses must derive different pubkeys")
	}
}

func TestMapAccountView_ChainIDToToken(t *testing.T) {
	v := newTestView()

	defaultToken := v.ChainIDToToken(1)
	if defaultToken == (types.Address{}) {
		t.Fatal("default chain id must resolve to a non-zero token")
	}

	addr := types.HexToAddress("0xff")
	v.SetAccount(addr, 0, big.NewInt(0), nil, 7)
	if tok := v.ChainIDToToken(7); tok == (types.Address{}) {
		t.Fatal("chain id introduced via SetAccount must resolve to a non-zero token")
	}

	custom := types.HexToAddress("0x1234")
	v.SetToken(9, custom)
	if tok := v.ChainIDToToken(9); tok != custom {
		t.Fatalf("ChainIDToToken(9) = %x, want %x", tok, custom)
	}

	if tok := v.ChainIDToToken(99); tok != (types.Address{}) {
		t.Fatalf("unregistered chain id must resolve to the zero address, got %x", tok)
	}
}

func TestMapAccountView_ContractChainID(t *testing.T) {
	v := newTestView()
	addr := types.HexToAddress("0x77")

	if _, err := v.ContractChainID(addr); err != ErrAccountMissing {
		t.Fatalf("ContractChainID on undeployed address: err = %v, want ErrAccountMissing", err)
	}

	v.SetAccount(addr, 0, big.NewInt(0), []byte{0x60, 0x00}, 42)
	chainID, err := v.ContractChainID(addr)
	if err != nil {
		t.Fatalf("ContractChainID: %v", err)
	}
	if chainID != 42 {
		t.Fatalf("ContractChainID = %d, want 42", chainID)
	}

	noCode := types.HexToAddress("0x88")
	v.SetAccount(noCode, 3, big.NewInt(100), nil, 1)
	if _, err := v.ContractChainID(noCode); err != ErrAccountMissing {
		t.Fatalf("ContractChainID on codeless account: err = %v, want ErrAccountMissing", err)
	}
}

func TestMapAccountView_BlockContext(t *testing.T) {
	v := newTestView()
	if v.BlockNumber().Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("BlockNumber = %s, want 100", v.BlockNumber())
	}
	if v.BlockTimestamp().Cmp(big.NewInt(1700000000)) != 0 {
		t.Fatalf("BlockTimestamp = %s, want 1700000000", v.BlockTimestamp())
	}
	if v.ProgramID() != types.HexToAddress("0x01") {
		t.Fatal("ProgramID mismatch")
	}
	if v.Operator() != types.HexToAddress("0x02") {
		t.Fatal("Operator mismatch")
	}
}
