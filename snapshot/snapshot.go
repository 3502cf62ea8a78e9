// Package snapshot implements the storage-account snapshot protocol:
// serializing a suspended Machine's entire frame arena plus its
// Substate's journaled overlay into one blob a host can persist
// between invocations, and reconstructing them bit for bit on resume.
//
// The wire shape is a tagged, nested, variable-length structure, which
// is exactly what RLP is built for, so encoding goes through
// internal/rlp's reflection-based codec rather than a hand-rolled
// binary format.
package snapshot

import (
	"github.com/WizzyDev/solevm/accountview"
	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/evm"
	"github.com/WizzyDev/solevm/internal/rlp"
	"github.com/WizzyDev/solevm/substate"
)

// Envelope is the RLP-encoded wire form of one suspended transaction:
// the Machine's frame arena plus the Substate's entire journaled
// overlay, tagged with the caller address Machine.Restore needs.
type Envelope struct {
	Caller types.Address
	Frames []evm.FrameSnapshot
	State  substate.Snapshot
}

// encoderPool tracks envelope encoding volume across the lifetime of a
// process: a transaction that runs to completion over N host
// invocations encodes N envelopes, and an operator watching
// EncoderMetrics can see that volume without instrumenting every call
// site individually.
var encoderPool = rlp.NewEncoderPool()

// EncoderMetrics returns a snapshot of envelope encoding volume.
func EncoderMetrics() rlp.EncoderMetricsSnapshot {
	return encoderPool.Metrics().Snapshot()
}

// Capture produces an Envelope from a live Machine/Substate pair, for
// the host to persist across bounded-step execution continuations.
func Capture(caller types.Address, m *evm.Machine, s *substate.Substate) Envelope {
	return Envelope{
		Caller: caller,
		Frames: m.Snapshot(),
		State:  s.Snapshot(),
	}
}

// Encode serializes an Envelope to the wire format a host would write
// into a storage account.
func Encode(env Envelope) ([]byte, error) {
	return encoderPool.EncodeBytes(env)
}

// Decode parses a wire blob back into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := rlp.DecodeBytes(data, &env)
	return env, err
}

// Restore reconstructs a live Machine bound to a freshly-rehydrated
// Substate from an Envelope, the base AccountView, and the precompile
// set and Config the host supplies identically on every invocation.
// Neither travels in the envelope itself: only the transaction's own
// accumulated state needs to survive the boundary.
func Restore(env Envelope, view accountview.AccountView, precompiles map[types.Address]substate.Precompile, table *evm.JumpTable, cfg evm.Config) (*evm.Machine, *substate.Substate) {
	st := substate.Restore(env.State, view, precompiles, cfg)
	m := evm.New(st, st, table, cfg)
	m.Restore(env.Frames, env.Caller)
	return m, st
}
