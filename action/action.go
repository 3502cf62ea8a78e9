// Package action defines the ordered queue of deferred host-level side
// effects a transaction accumulates as it runs.
package action

import (
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// Kind tags which variant an Action holds. Go has no tagged union, so
// Action carries a Kind discriminant plus the union of per-kind fields,
// in the struct-of-optional-fields shape internal/rlp expects for this
// kind of encoding.
type Kind int

const (
	// ExternalInstruction requests the host invoke a foreign program
	// instruction (e.g. an SPL token transfer a precompile emitted).
	ExternalInstruction Kind = iota
	// NeonTransfer moves value between two EVM addresses' host-native
	// balances outside the EVM's own accounting.
	NeonTransfer
	// NeonWithdraw debits value from an EVM address back out to the
	// host's native token.
	NeonWithdraw
	// SetStorage persists one contract storage slot.
	SetStorage
	// IncrementNonce persists a nonce bump.
	IncrementNonce
	// SetCode persists newly deployed contract code.
	SetCode
	// SelfDestruct persists an account's deletion.
	SelfDestruct
)

func (k Kind) String() string {
	switch k {
	case ExternalInstruction:
		return "ExternalInstruction"
	case NeonTransfer:
		return "NeonTransfer"
	case NeonWithdraw:
		return "NeonWithdraw"
	case SetStorage:
		return "EvmSetStorage"
	case IncrementNonce:
		return "EvmIncrementNonce"
	case SetCode:
		return "EvmSetCode"
	case SelfDestruct:
		return "EvmSelfDestruct"
	default:
		return "Unknown"
	}
}

// AccountMeta mirrors a Solana-style account reference attached to an
// ExternalInstruction action: the program the host must invoke expects
// a fixed list of accounts with access-mode flags.
type AccountMeta struct {
	Pubkey     types.Address
	IsSigner   bool
	IsWritable bool
}

// Action is one deferred host-level side effect, queued in emission
// order by the Substate and replayed onto the host only once the whole
// transaction commits: emission order on success, dropped wholesale on
// failure.
type Action struct {
	Kind Kind

	// ExternalInstruction fields.
	ProgramID types.Address
	Accounts  []AccountMeta
	Data      []byte
	Seeds     [][]byte
	Fee       uint64

	// NeonTransfer / NeonWithdraw fields.
	Source types.Address
	Target types.Address
	Value  *big.Int

	// EvmSetStorage / EvmIncrementNonce / EvmSetCode / EvmSelfDestruct
	// fields.
	Address types.Address
	Index   *big.Int
	Slot    types.Hash
	Code    []byte
}

// NewExternalInstruction builds an ExternalInstruction action.
func NewExternalInstruction(programID types.Address, accounts []AccountMeta, data []byte, seeds [][]byte, fee uint64) Action {
	return Action{Kind: ExternalInstruction, ProgramID: programID, Accounts: accounts, Data: data, Seeds: seeds, Fee: fee}
}

// NewNeonTransfer builds a NeonTransfer action.
func NewNeonTransfer(source, target types.Address, value *big.Int) Action {
	return Action{Kind: NeonTransfer, Source: source, Target: target, Value: new(big.Int).Set(value)}
}

// NewNeonWithdraw builds a NeonWithdraw action.
func NewNeonWithdraw(source types.Address, value *big.Int) Action {
	return Action{Kind: NeonWithdraw, Source: source, Value: new(big.Int).Set(value)}
}

// NewSetStorage builds an EvmSetStorage action. index is the 256-bit
// storage key; the slot value travels as a 32-byte word, matching the
// original's fixed [u8; 32] wire encoding.
func NewSetStorage(addr types.Address, index *big.Int, slot types.Hash) Action {
	return Action{Kind: SetStorage, Address: addr, Index: new(big.Int).Set(index), Slot: slot}
}

// NewIncrementNonce builds an EvmIncrementNonce action.
func NewIncrementNonce(addr types.Address) Action {
	return Action{Kind: IncrementNonce, Address: addr}
}

// NewSetCode builds an EvmSetCode action.
func NewSetCode(addr types.Address, code []byte) Action {
	return Action{Kind: SetCode, Address: addr, Code: code}
}

// NewSelfDestruct builds an EvmSelfDestruct action.
func NewSelfDestruct(addr types.Address) Action {
	return Action{Kind: SelfDestruct, Address: addr}
}
