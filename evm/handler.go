package evm

import (
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// CreateSchemeKind distinguishes the three ways a contract address can
// be derived.
type CreateSchemeKind int

const (
	SchemeLegacy CreateSchemeKind = iota
	SchemeCreate2
	SchemeFixed
)

// CreateScheme parametrizes address derivation for Handler.Create.
type CreateScheme struct {
	Kind     CreateSchemeKind
	Salt     *big.Int      // SchemeCreate2 only
	CodeHash types.Hash    // SchemeCreate2 only: keccak256(init_code)
	Fixed    types.Address // SchemeFixed only
}

// Transfer describes a value movement accompanying a CALL.
type Transfer struct {
	Source types.Address
	Target types.Address
	Value  *big.Int
}

// CallInterrupt is the payload of a Runtime Trap requesting the Machine
// push a child Frame for a CALL-family opcode.
type CallInterrupt struct {
	CodeAddress types.Address
	Transfer    *Transfer
	Input       []byte
	TargetGas   uint64
	IsStatic    bool
	Context     Context

	// RetOffset/RetLength record where in the caller's memory the
	// child's return data must be copied once it exits; the Machine,
	// not the Runtime, performs that copy since the caller Frame is
	// already suspended.
	RetOffset uint64
	RetLength uint64
}

// CreateInterrupt is the payload of a Runtime Trap requesting the
// Machine push a child Frame for a CREATE/CREATE2 opcode.
type CreateInterrupt struct {
	InitCode []byte
	Context  Context
	Address  types.Address
}

// Handler is the set of opcode-level callbacks the Runtime queries on
// every step that touches host-observed state. It is a capability
// interface, not dynamic dispatch, and every read it serves is layered
// over the journaled Substate on top of the read-only AccountView.
type Handler interface {
	Keccak256(data []byte) types.Hash

	Balance(addr types.Address) *big.Int
	Nonce(addr types.Address) uint64
	CodeSize(addr types.Address) int
	CodeHash(addr types.Address) types.Hash
	Code(addr types.Address) []byte
	Storage(addr types.Address, index *big.Int) *big.Int
	OriginalStorage(addr types.Address, index *big.Int) *big.Int

	GasLeft() uint64
	GasPrice() *big.Int
	Origin() types.Address
	BlockHash(number uint64) types.Hash
	BlockNumber() *big.Int
	BlockTimestamp() *big.Int
	ChainID() uint64

	// Exists follows config.EmptyConsideredExists (Istanbul = false):
	// an empty-but-touched account is reported non-existent.
	Exists(addr types.Address) bool
	Deleted(addr types.Address) bool

	SetStorage(addr types.Address, index, value *big.Int)
	Log(addr types.Address, topics []types.Hash, data []byte)

	// SetCode installs deployed code at addr in the substate overlay
	// (so later frames of the same transaction observe it) and queues
	// the corresponding Action for host commit.
	SetCode(addr types.Address, code []byte)

	// MarkDelete transfers addr's full balance to target, zeroes it,
	// and marks it deleted (SELFDESTRUCT). Practically infallible: a
	// transfer of an account's own balance can never under-run.
	MarkDelete(addr, target types.Address) error

	// Create computes the child contract's address per scheme, checks
	// call_stack_limit and collision, increments the caller's nonce,
	// and returns a CreateInterrupt trap for the Machine to act on. It
	// never pushes the Frame itself. If the check fails outright
	// (depth/collision), exit is non-nil and trap is the zero value.
	Create(caller types.Address, scheme CreateScheme, value *big.Int, initCode []byte) (trap CreateInterrupt, exit *ExitReason)

	// Call enforces depth, and either resolves immediately through a
	// precompile extension (exit non-nil) or returns a CallInterrupt
	// trap for the Machine to act on.
	Call(codeAddress types.Address, transfer *Transfer, input []byte, targetGas uint64, isStatic bool, ctx Context) (trap CallInterrupt, exit *ExitReason, exitReturn []byte)

	// PreValidate is the per-opcode gas-cost hook, invoked before each
	// opcode executes. gasLeft is the executing frame's remaining gas at
	// that instant, threaded through so a Handler implementation can
	// answer GasLeft() correctly and reason about cold/warm access
	// without the Runtime exposing the Frame itself. May fail
	// ErrOutOfGasKind.
	PreValidate(ctx Context, op OpCode, stack *Stack, gasLeft uint64) error

	// Depth reports the current call-stack depth: it must always equal
	// the length of the Machine's own frame arena.
	Depth() int
}
