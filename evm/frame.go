package evm

import (
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// Context carries the fixed addressing triple of a Frame for the
// duration of its execution.
type Context struct {
	Address       types.Address
	Caller        types.Address
	ApparentValue *big.Int
}

// CreateReason tags a Frame with why it was pushed: a CALL-family
// message call, or a CREATE/CREATE2 contract construction at the given
// address.
type CreateReason struct {
	IsCreate bool
	Address  types.Address
}

// CallReason is the zero value: the Frame was pushed by call_begin or a
// CALL-family trap.
var CallReason = CreateReason{}

// Frame is one EVM execution context: program counter, operand stack,
// memory, and the fixed addressing/code it executes against. The
// stepwise pc/stack/memory fields are named explicitly, since the
// Runtime must suspend and resume a Frame across host invocations
// rather than run it to completion in one native call.
type Frame struct {
	PC         uint64
	Stack      *Stack
	Memory     *Memory
	Input      []byte
	ReturnData []byte
	Context    Context
	Code       []byte
	CodeHash   types.Hash
	Gas        uint64
	Reason     CreateReason

	jumpdests map[uint64]bool
}

// NewFrame constructs a fresh Frame ready to begin execution at pc=0.
func NewFrame(ctx Context, code, input []byte, gas uint64, reason CreateReason) *Frame {
	return &Frame{
		Stack:   NewStack(),
		Memory:  NewMemory(),
		Input:   input,
		Context: ctx,
		Code:    code,
		Gas:     gas,
		Reason:  reason,
	}
}

// GetOp returns the opcode at position n in the frame's code, or STOP
// past the end (matches the yellow paper's implicit trailing STOPs).
func (f *Frame) GetOp(n uint64) OpCode {
	if n < uint64(len(f.Code)) {
		return OpCode(f.Code[n])
	}
	return STOP
}

// UseGas attempts to consume the given amount of gas from the frame's
// remaining budget. Returns false (and leaves Gas unchanged) if
// insufficient.
func (f *Frame) UseGas(gas uint64) bool {
	if f.Gas < gas {
		return false
	}
	f.Gas -= gas
	return true
}

// validJumpdest reports whether dest is a JUMPDEST opcode position that
// is not inside PUSH immediate data.
func (f *Frame) validJumpdest(dest *big.Int) bool {
	if dest.BitLen() > 63 {
		return false
	}
	udest := dest.Uint64()
	if udest >= uint64(len(f.Code)) {
		return false
	}
	if OpCode(f.Code[udest]) != JUMPDEST {
		return false
	}
	return f.isCode(udest)
}

// isCode reports whether pos is an opcode byte (as opposed to PUSH data).
func (f *Frame) isCode(pos uint64) bool {
	if f.jumpdests == nil {
		f.jumpdests = make(map[uint64]bool)
		f.analyzeJumpdests()
	}
	return f.jumpdests[pos]
}

// analyzeJumpdests scans the code once, recording every valid JUMPDEST.
func (f *Frame) analyzeJumpdests() {
	for i := uint64(0); i < uint64(len(f.Code)); i++ {
		op := OpCode(f.Code[i])
		if op == JUMPDEST {
			f.jumpdests[i] = true
		}
		if op.IsPush() {
			i += uint64(op - PUSH1 + 1)
		}
	}
}
