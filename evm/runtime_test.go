package evm

import (
	"math/big"
	"testing"

	"github.com/WizzyDev/solevm/core/types"
)

// noopHandler is a minimal Handler implementation for exercising the
// Runtime in isolation from any real Substate. Reads return zero
// values; writes and side-effecting calls are no-ops.
type noopHandler struct {
	depth int
}

func (h *noopHandler) Keccak256(data []byte) types.Hash                      { return types.Hash{} }
func (h *noopHandler) Balance(addr types.Address) *big.Int                   { return new(big.Int) }
func (h *noopHandler) Nonce(addr types.Address) uint64                       { return 0 }
func (h *noopHandler) CodeSize(addr types.Address) int                       { return 0 }
func (h *noopHandler) CodeHash(addr types.Address) types.Hash                { return types.EmptyCodeHash }
func (h *noopHandler) Code(addr types.Address) []byte                       { return nil }
func (h *noopHandler) Storage(addr types.Address, index *big.Int) *big.Int  { return new(big.Int) }
func (h *noopHandler) OriginalStorage(addr types.Address, index *big.Int) *big.Int {
	return new(big.Int)
}
func (h *noopHandler) GasLeft() uint64                       { return 0 }
func (h *noopHandler) GasPrice() *big.Int                    { return new(big.Int) }
func (h *noopHandler) Origin() types.Address                 { return types.Address{} }
func (h *noopHandler) BlockHash(number uint64) types.Hash    { return types.Hash{} }
func (h *noopHandler) BlockNumber() *big.Int                 { return new(big.Int) }
func (h *noopHandler) BlockTimestamp() *big.Int              { return new(big.Int) }
func (h *noopHandler) ChainID() uint64                       { return 0 }
func (h *noopHandler) Exists(addr types.Address) bool        { return false }
func (h *noopHandler) Deleted(addr types.Address) bool       { return false }
func (h *noopHandler) SetStorage(addr types.Address, index, value *big.Int) {}
func (h *noopHandler) Log(addr types.Address, topics []types.Hash, data []byte) {}
func (h *noopHandler) SetCode(addr types.Address, code []byte) {}
func (h *noopHandler) MarkDelete(addr, target types.Address) error { return nil }
func (h *noopHandler) Create(caller types.Address, scheme CreateScheme, value *big.Int, initCode []byte) (CreateInterrupt, *ExitReason) {
	return CreateInterrupt{}, nil
}
func (h *noopHandler) Call(codeAddress types.Address, transfer *Transfer, input []byte, targetGas uint64, isStatic bool, ctx Context) (CallInterrupt, *ExitReason, []byte) {
	return CallInterrupt{}, nil, nil
}
func (h *noopHandler) PreValidate(ctx Context, op OpCode, stack *Stack, gasLeft uint64) error {
	return nil
}
func (h *noopHandler) Depth() int { return h.depth }

func newTestFrame(code []byte, gas uint64) *Frame {
	return NewFrame(Context{}, code, nil, gas, CallReason)
}

// ---------------------------------------------------------------------------
// Runtime.Run: basic arithmetic and halting
// ---------------------------------------------------------------------------

func TestRuntime_PushAddStop(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	// PUSH1 3 PUSH1 4 ADD STOP
	code := []byte{byte(PUSH1), 3, byte(PUSH1), 4, byte(ADD), byte(STOP)}
	frame := newTestFrame(code, 100000)

	steps, capture := rt.Run(frame, 100, h)
	if steps != 4 {
		t.Fatalf("steps = %d, want 4", steps)
	}
	if !capture.Exit.IsSucceed() {
		t.Fatalf("expected success exit, got %+v", capture)
	}
	if frame.Stack.Len() != 1 {
		t.Fatalf("stack len = %d, want 1", frame.Stack.Len())
	}
	if frame.Stack.Peek().Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("result = %s, want 7", frame.Stack.Peek())
	}
}

func TestRuntime_Return(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	// PUSH1 0 PUSH1 0 RETURN -> returns 0 bytes of memory at offset 0
	code := []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(RETURN)}
	frame := newTestFrame(code, 100000)

	_, capture := rt.Run(frame, 100, h)
	if !capture.Exit.IsSucceed() {
		t.Fatalf("expected success, got %+v", capture)
	}
	if capture.Exit.Succeed != Returned {
		t.Fatalf("expected Returned, got %v", capture.Exit.Succeed)
	}
}

func TestRuntime_Revert(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	code := []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(REVERT)}
	frame := newTestFrame(code, 100000)

	_, capture := rt.Run(frame, 100, h)
	if !capture.Exit.IsRevert() {
		t.Fatalf("expected revert, got %+v", capture)
	}
}

func TestRuntime_StackUnderflow(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	code := []byte{byte(ADD)} // no operands pushed
	frame := newTestFrame(code, 100000)

	_, capture := rt.Run(frame, 10, h)
	if !capture.Exit.IsError() {
		t.Fatalf("expected error exit, got %+v", capture)
	}
	if capture.Exit.Error != ErrStackUnderflowKind {
		t.Fatalf("error = %v, want ErrStackUnderflowKind", capture.Exit.Error)
	}
}

func TestRuntime_OutOfGas(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	code := []byte{byte(PUSH1), 1, byte(PUSH1), 2, byte(ADD)}
	frame := newTestFrame(code, 1) // not even enough for the first PUSH1

	_, capture := rt.Run(frame, 10, h)
	if !capture.Exit.IsError() || capture.Exit.Error != ErrOutOfGasKind {
		t.Fatalf("expected OutOfGas, got %+v", capture)
	}
}

func TestRuntime_InvalidOpcode(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	code := []byte{0x0c} // unassigned opcode
	frame := newTestFrame(code, 100000)

	_, capture := rt.Run(frame, 10, h)
	if !capture.Exit.IsError() || capture.Exit.Error != ErrInvalidRangeKind {
		t.Fatalf("expected InvalidRange, got %+v", capture)
	}
}

// ---------------------------------------------------------------------------
// Runtime.Run: step-limit suspension (iterative execution)
// ---------------------------------------------------------------------------

func TestRuntime_StepLimitSuspendsWithoutHalting(t *testing.T) {
	tbl := NewIstanbulJumpTable()
	rt := NewRuntime(tbl, DefaultConfig())
	h := &noopHandler{}

	// Two PUSH1/POP pairs then STOP; cap the budget at 3 steps so it must
	// suspend mid-program rather than complete.
	code := []byte{
		byte(PUSH1), 1, byte(POP),
		byte(PUSH1), 2, byte(POP),
		byte(STOP),
	}
	frame := newTestFrame(code, 100000)

	steps, capture := rt.Run(frame, 3, h)
	if steps != 3 {
		t.Fatalf("steps = %d, want 3", steps)
	}
	if !capture.Exit.IsStepLimit() {
		t.Fatalf("expected step-limit capture, got %+v", capture)
	}
	if capture.Trapped {
		t.Fatal("step-limit exhaustion is not a trap")
	}

	// Resuming from where PC left off must complete the program.
	steps2, capture2 := rt.Run(frame, 100, h)
	if steps2 != 2 {
		t.Fatalf("resumed steps = %d, want 2", steps2)
	}
	if !capture2.Exit.IsSucceed() {
		t.Fatalf("expected success after resume, got %+v", capture2)
	}
}

// ---------------------------------------------------------------------------
// calcMemSize / toWordSize
// ---------------------------------------------------------------------------

func TestCalcMemSize(t *testing.T) {
	if got := calcMemSize(big.NewInt(0), big.NewInt(0)); got != 0 {
		t.Fatalf("zero length should need 0 bytes, got %d", got)
	}
	if got := calcMemSize(big.NewInt(10), big.NewInt(20)); got != 30 {
		t.Fatalf("got %d, want 30", got)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	if got := calcMemSize(huge, big.NewInt(1)); got != 1<<62 {
		t.Fatalf("overflowing offset should saturate, got %d", got)
	}
}

func TestToWordSize(t *testing.T) {
	tests := []struct{ size, want uint64 }{
		{0, 0},
		{1, 1},
		{32, 1},
		{33, 2},
		{64, 2},
	}
	for _, tt := range tests {
		if got := toWordSize(tt.size); got != tt.want {
			t.Errorf("toWordSize(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}
