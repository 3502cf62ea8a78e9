package substate

import (
	"math/big"
	"testing"

	"github.com/WizzyDev/solevm/internal/rlp"
)

// Snapshot/Restore must preserve enough of the overlay and open log
// stack that resuming behaves exactly as if the transaction never
// suspended.
func TestSubstate_SnapshotRestore_PreservesOverlay(t *testing.T) {
	s := newTestSubstate()
	s.Enter(1_000_000, false)
	s.setBalance(addrA, big.NewInt(1000))
	s.SetStorage(addrA, big.NewInt(1), big.NewInt(42))
	s.SetCode(addrB, []byte{0x60, 0x00})
	s.Log(addrA, nil, []byte("hello"))

	snap := s.Snapshot()

	enc, err := rlp.EncodeToBytes(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded Snapshot
	if err := rlp.DecodeBytes(enc, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	restored := Restore(decoded, newTestView(), DefaultPrecompiles(), s.cfg)

	if bal := restored.Balance(addrA); bal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("restored balance = %s, want 1000", bal)
	}
	if v := restored.Storage(addrA, big.NewInt(1)); v.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("restored storage = %s, want 42", v)
	}
	if string(restored.Code(addrB)) != "\x60\x00" {
		t.Fatalf("restored code = %x, want 6000", restored.Code(addrB))
	}
	if len(restored.Logs()) != 1 || string(restored.Logs()[0].Data) != "hello" {
		t.Fatalf("restored logs = %+v", restored.Logs())
	}
	if restored.Depth() != s.Depth() {
		t.Fatalf("restored depth = %d, want %d", restored.Depth(), s.Depth())
	}
}

// A still-open frame's journal must survive the round trip so a revert
// discovered only after resuming undoes exactly what it would have
// undone in the original invocation.
func TestSubstate_SnapshotRestore_OpenFrameStillReverts(t *testing.T) {
	s := newTestSubstate()
	s.Enter(1_000_000, false) // root, committed state below
	s.setBalance(addrA, big.NewInt(100))
	s.ExitCommit()

	s.Enter(500_000, false) // still open at snapshot time
	s.setBalance(addrA, big.NewInt(999))

	snap := s.Snapshot()
	enc, err := rlp.EncodeToBytes(snap)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Snapshot
	if err := rlp.DecodeBytes(enc, &decoded); err != nil {
		t.Fatal(err)
	}

	restored := Restore(decoded, newTestView(), DefaultPrecompiles(), s.cfg)
	if bal := restored.Balance(addrA); bal.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("restored balance = %s, want 999", bal)
	}

	restored.ExitRevert()
	if bal := restored.Balance(addrA); bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("restored balance after revert = %s, want 100", bal)
	}
}

func TestSubstate_SnapshotRestore_ActionsAndRefundPreserved(t *testing.T) {
	s := newTestSubstate()
	s.Enter(1_000_000, false)
	s.SetCode(addrA, []byte{0x01})
	s.AddRefund(15000)
	s.ExitCommit()

	snap := s.Snapshot()
	restored := Restore(snap, newTestView(), DefaultPrecompiles(), s.cfg)

	if restored.Refund() != 15000 {
		t.Fatalf("restored refund = %d, want 15000", restored.Refund())
	}
	if len(restored.Actions()) != 1 {
		t.Fatalf("restored actions = %+v, want 1 entry", restored.Actions())
	}
}
