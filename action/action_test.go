package action

import (
	"math/big"
	"testing"

	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/internal/rlp"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{ExternalInstruction, "ExternalInstruction"},
		{NeonTransfer, "NeonTransfer"},
		{SetStorage, "EvmSetStorage"},
		{IncrementNonce, "EvmIncrementNonce"},
		{SetCode, "EvmSetCode"},
		{SelfDestruct, "EvmSelfDestruct"},
		{Kind(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

func TestConstructors_SetExpectedFields(t *testing.T) {
	addr := types.HexToAddress("0x0000000000000000000000000000000000c0de")
	target := types.HexToAddress("0x000000000000000000000000000000000000aa")

	a := NewNeonTransfer(addr, target, big.NewInt(5))
	if a.Kind != NeonTransfer || a.Source != addr || a.Target != target || a.Value.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("NewNeonTransfer produced unexpected action: %+v", a)
	}

	s := NewSetStorage(addr, big.NewInt(7), types.HexToHash("01"))
	if s.Kind != SetStorage || s.Address != addr || s.Index.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("NewSetStorage produced unexpected action: %+v", s)
	}

	n := NewIncrementNonce(addr)
	if n.Kind != IncrementNonce || n.Address != addr {
		t.Fatalf("NewIncrementNonce produced unexpected action: %+v", n)
	}
}

func TestNewNeonTransfer_CopiesValue(t *testing.T) {
	addr := types.Address{}
	v := big.NewInt(10)
	a := NewNeonTransfer(addr, addr, v)

	v.SetInt64(999) // mutate caller's big.Int after construction
	if a.Value.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("Action.Value aliased caller's big.Int: got %s", a.Value)
	}
}

// Action must round trip through the generic RLP struct codec with no
// custom marshal code, since every kind shares one struct shape.
func TestAction_RLPRoundTrip(t *testing.T) {
	addr := types.HexToAddress("0x0000000000000000000000000000000000c0de")
	in := NewSetCode(addr, []byte{0xde, 0xad, 0xbe, 0xef})

	enc, err := rlp.EncodeToBytes(in)
	if err != nil {
		t.Fatal(err)
	}

	var out Action
	if err := rlp.DecodeBytes(enc, &out); err != nil {
		t.Fatal(err)
	}

	if out.Kind != SetCode {
		t.Fatalf("Kind = %v, want SetCode", out.Kind)
	}
	if out.Address != addr {
		t.Fatalf("Address = %x, want %x", out.Address, addr)
	}
	if string(out.Code) != string(in.Code) {
		t.Fatalf("Code = %x, want %x", out.Code, in.Code)
	}
}

func TestActionQueue_OrderPreserved(t *testing.T) {
	addr1 := types.HexToAddress("0x01")
	addr2 := types.HexToAddress("0x02")

	queue := []Action{
		NewIncrementNonce(addr1),
		NewSetCode(addr2, []byte{1}),
		NewSelfDestruct(addr1),
	}

	enc, err := rlp.EncodeToBytes(queue)
	if err != nil {
		t.Fatal(err)
	}

	var out []Action
	if err := rlp.DecodeBytes(enc, &out); err != nil {
		t.Fatal(err)
	}

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	wantKinds := []Kind{IncrementNonce, SetCode, SelfDestruct}
	for i, k := range wantKinds {
		if out[i].Kind != k {
			t.Errorf("out[%d].Kind = %v, want %v", i, out[i].Kind, k)
		}
	}
}
