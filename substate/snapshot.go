package substate

import (
	"math/big"

	"github.com/WizzyDev/solevm/accountview"
	"github.com/WizzyDev/solevm/action"
	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/evm"
)

// entryKind tags a journalEntry variant for wire encoding: the snapshot
// must preserve enough of the open log frames that a still-pending
// revert, discovered in a later host invocation, replays identically to
// one discovered in the same invocation it was opened in.
type entryKind int

const (
	entryBalance entryKind = iota
	entryNonce
	entryCode
	entryStorage
	entryTouch
	entryDelete
	entryRefund
)

// entryWire is the RLP-encodable form of one journalEntry: same
// struct-of-optional-fields shape as action.Action, for the same
// reason (internal/rlp's reflection codec round-trips it unmodified).
type entryWire struct {
	Kind        entryKind
	Addr        types.Address
	Key         string
	PrevBig     *big.Int
	PrevUint    uint64
	PrevBytes   []byte
	PrevHash    types.Hash
	PrevBool    bool
	PrevExisted bool
}

func toWire(e journalEntry) entryWire {
	switch v := e.(type) {
	case balanceChange:
		return entryWire{Kind: entryBalance, Addr: v.addr, PrevBig: v.prev, PrevExisted: v.prevExisted}
	case nonceChange:
		return entryWire{Kind: entryNonce, Addr: v.addr, PrevUint: v.prev, PrevExisted: v.prevExisted}
	case codeChange:
		return entryWire{Kind: entryCode, Addr: v.addr, PrevBytes: v.prevCode, PrevHash: v.prevCodeHash, PrevExisted: v.prevExisted}
	case storageChange:
		return entryWire{Kind: entryStorage, Addr: v.addr, Key: v.key, PrevBig: v.prev, PrevExisted: v.prevExisted}
	case touchChange:
		return entryWire{Kind: entryTouch, Addr: v.addr, PrevExisted: v.prevExisted}
	case deleteChange:
		return entryWire{Kind: entryDelete, Addr: v.addr, PrevBool: v.prev}
	case refundChange:
		return entryWire{Kind: entryRefund, PrevUint: v.prev}
	default:
		panic("substate: unknown journalEntry variant")
	}
}

func fromWire(w entryWire) journalEntry {
	switch w.Kind {
	case entryBalance:
		return balanceChange{addr: w.Addr, prev: w.PrevBig, prevExisted: w.PrevExisted}
	case entryNonce:
		return nonceChange{addr: w.Addr, prev: w.PrevUint, prevExisted: w.PrevExisted}
	case entryCode:
		return codeChange{addr: w.Addr, prevCode: w.PrevBytes, prevCodeHash: w.PrevHash, prevExisted: w.PrevExisted}
	case entryStorage:
		return storageChange{addr: w.Addr, key: w.Key, prev: w.PrevBig, prevExisted: w.PrevExisted}
	case entryTouch:
		return touchChange{addr: w.Addr, prevExisted: w.PrevExisted}
	case entryDelete:
		return deleteChange{addr: w.Addr, prev: w.PrevBool}
	case entryRefund:
		return refundChange{prev: w.PrevUint}
	default:
		panic("substate: unknown entryWire kind")
	}
}

type logFrameWire struct {
	Entries      []entryWire
	GasLimit     uint64
	IsStatic     bool
	LogsStart    int
	ActionsStart int
}

type addrBig struct {
	Addr types.Address
	Val  *big.Int
}

type addrUint struct {
	Addr types.Address
	Val  uint64
}

type addrBytes struct {
	Addr types.Address
	Val  []byte
}

type addrHash struct {
	Addr types.Address
	Val  types.Hash
}

type storageEntry struct {
	Addr types.Address
	Key  string
	Val  *big.Int
}

// Snapshot is the RLP-encodable form of an entire Substate, restyled
// from its map-based overlay into ordered slices (maps have no stable
// RLP encoding). Reconstructing a Substate from a Snapshot and
// resuming from it must behave identically to never having suspended,
// since the overlay is the one part of the state a host invocation
// boundary would otherwise lose.
type Snapshot struct {
	Tx TxContext

	Balances        []addrBig
	Nonces          []addrUint
	Codes           []addrBytes
	CodeHashes      []addrHash
	Storage         []storageEntry
	OriginalStorage []storageEntry
	Touched         []types.Address
	Deleted         []types.Address

	LogsEmitted []types.Log
	Actions     []action.Action
	Refund      uint64

	Logs []logFrameWire
}

// Snapshot captures this Substate's entire overlay and open log stack.
func (s *Substate) Snapshot() Snapshot {
	snap := Snapshot{
		Tx:          s.tx,
		LogsEmitted: s.logsEmitted,
		Actions:     s.actions,
		Refund:      s.refund,
	}
	for addr, v := range s.balances {
		snap.Balances = append(snap.Balances, addrBig{addr, v})
	}
	for addr, v := range s.nonces {
		snap.Nonces = append(snap.Nonces, addrUint{addr, v})
	}
	for addr, v := range s.codes {
		snap.Codes = append(snap.Codes, addrBytes{addr, v})
	}
	for addr, v := range s.codeHashes {
		snap.CodeHashes = append(snap.CodeHashes, addrHash{addr, v})
	}
	for addr, m := range s.storage {
		for key, v := range m {
			snap.Storage = append(snap.Storage, storageEntry{addr, key, v})
		}
	}
	for addr, m := range s.originalStorage {
		for key, v := range m {
			snap.OriginalStorage = append(snap.OriginalStorage, storageEntry{addr, key, v})
		}
	}
	for addr := range s.touched {
		snap.Touched = append(snap.Touched, addr)
	}
	for addr := range s.deleted {
		snap.Deleted = append(snap.Deleted, addr)
	}
	for _, f := range s.logs {
		lw := logFrameWire{GasLimit: f.gasLimit, IsStatic: f.isStatic, LogsStart: f.logsStart, ActionsStart: f.actionsStart}
		for _, e := range f.entries {
			lw.Entries = append(lw.Entries, toWire(e))
		}
		snap.Logs = append(snap.Logs, lw)
	}
	return snap
}

// Restore rebuilds a Substate from a Snapshot taken earlier in this
// transaction's life (possibly in a prior host invocation), bound to
// the given base view and precompile/config set (neither of which
// travels in the snapshot itself: the host re-supplies them identically
// on every invocation).
func Restore(snap Snapshot, view accountview.AccountView, precompiles map[types.Address]Precompile, cfg evm.Config) *Substate {
	s := New(view, precompiles, cfg, snap.Tx)
	s.logsEmitted = snap.LogsEmitted
	s.actions = snap.Actions
	s.refund = snap.Refund

	for _, e := range snap.Balances {
		s.balances[e.Addr] = e.Val
	}
	for _, e := range snap.Nonces {
		s.nonces[e.Addr] = e.Val
	}
	for _, e := range snap.Codes {
		s.codes[e.Addr] = e.Val
	}
	for _, e := range snap.CodeHashes {
		s.codeHashes[e.Addr] = e.Val
	}
	for _, e := range snap.Storage {
		if s.storage[e.Addr] == nil {
			s.storage[e.Addr] = make(map[string]*big.Int)
		}
		s.storage[e.Addr][e.Key] = e.Val
	}
	for _, e := range snap.OriginalStorage {
		if s.originalStorage[e.Addr] == nil {
			s.originalStorage[e.Addr] = make(map[string]*big.Int)
		}
		s.originalStorage[e.Addr][e.Key] = e.Val
	}
	for _, a := range snap.Touched {
		s.touched[a] = true
	}
	for _, a := range snap.Deleted {
		s.deleted[a] = true
	}
	for _, lw := range snap.Logs {
		f := &logFrame{gasLimit: lw.GasLimit, isStatic: lw.IsStatic, logsStart: lw.LogsStart, actionsStart: lw.ActionsStart}
		for _, ew := range lw.Entries {
			f.entries = append(f.entries, fromWire(ew))
		}
		s.logs = append(s.logs, f)
	}
	return s
}
