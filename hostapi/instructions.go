// Package hostapi documents the wire contract a host entrypoint would
// dispatch into evm.Machine/snapshot/action calls. It intentionally
// contains no account unpacking, fee transfer or Solana-account logic
// of its own — those remain out of scope — only the instruction
// shapes, the exit-status byte table, RLP transaction decoding, and the
// account blocking registry's concurrency model.
package hostapi

import "github.com/WizzyDev/solevm/core/types"

// CreateAccount mirrors EvmInstruction::CreateAccount: derive a
// program-derived address from (ether, nonce), allocate, and
// initialize the Account record. The PDA derivation itself is
// accountview.AccountView.ContractPubkey; CreateAccount here only
// documents the instruction's wire shape.
type CreateAccount struct {
	Lamports uint64
	Ether    types.Address
	Nonce    byte
}

// Write mirrors EvmInstruction::Write: append bytecode into a holder
// account. Fails at the host level if the holder already contains a
// finalized, non-empty contract.
type Write struct {
	Offset uint32
	Bytes  []byte
}

// Finalize mirrors EvmInstruction::Finalize: deploy the holder's
// accumulated bytecode as a new contract, running its constructor
// exactly once via evm.Machine.CreateBegin/Execute.
type Finalize struct{}

// Call mirrors EvmInstruction::Call: a one-shot message call whose
// sender is the Solana-signed caller, with no EVM-level signature
// verification.
type Call struct {
	Bytes []byte
}

// CallFromRawEthereumTX mirrors EvmInstruction::CallFromRawEthereumTX:
// a one-shot call driven by a raw signed Ethereum transaction. The
// host verifies the accompanying secp256k1 precompile instruction,
// recovers the sender via RecoverSender/DecodeTransaction, and must check
// the recovered address against the stored Account's ether field and
// its nonce against the transaction's nonce before running.
type CallFromRawEthereumTX struct {
	PoolIndex   byte
	From        types.Address
	Signature   [65]byte
	UnsignedMsg []byte
}

// ExecuteTrxFromAccountDataIterative mirrors
// EvmInstruction::ExecuteTrxFromAccountDataIterative: start an
// iterative transaction whose payload was previously accumulated in a
// holder account via Write.
type ExecuteTrxFromAccountDataIterative struct {
	PoolIndex byte
	StepCount uint64
}

// PartialCallFromRawEthereumTX mirrors
// EvmInstruction::PartialCallFromRawEthereumTX: start an iterative
// call from an inline signed transaction rather than a holder account.
type PartialCallFromRawEthereumTX struct {
	PoolIndex   byte
	StepCount   uint64
	From        types.Address
	Signature   [65]byte
	UnsignedMsg []byte
}

// Continue mirrors EvmInstruction::Continue: advance an in-progress
// iterative transaction by StepCount further steps, via
// snapshot.Restore + evm.Machine.ExecuteNSteps + snapshot.Capture.
type Continue struct {
	StepCount uint64
}

// Cancel mirrors EvmInstruction::Cancel: abort an in-progress
// iterative transaction, returning its locked lamports to the
// incinerator account and unblocking every account it held via
// BlockRegistry.
type Cancel struct{}

// OnReturn and OnEvent mirror the self-emitted log instructions a host
// records via its own logging facility; receiving either back as an
// instruction is always a no-op.
type OnReturn struct {
	Status byte
	Bytes  []byte
}

type OnEvent struct {
	Address types.Address
	Topics  []types.Hash
	Data    []byte
}
