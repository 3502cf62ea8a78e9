// Package substate implements the journaled Substate: a stack of
// per-frame "logs" layered over a read-only accountview.AccountView,
// where every mutation is journaled so a reverted or discarded frame
// undoes exactly its own writes while a committed frame's writes flow
// up to its parent. Substate also implements evm.Handler directly — the
// capability interface the Runtime calls on every opcode that touches
// host-observed state — since every read Handler needs to serve is
// "overlay, else view" and every write it needs to perform is "journal,
// then overlay", which is exactly what the Substate already has to do
// for Enter/Exit bookkeeping.
package substate

import (
	"math/big"

	"github.com/WizzyDev/solevm/accountview"
	"github.com/WizzyDev/solevm/action"
	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/evm"
	"github.com/WizzyDev/solevm/internal/crypto"
	"github.com/WizzyDev/solevm/internal/log"
	"github.com/WizzyDev/solevm/internal/rlp"
)

var logger = log.Default().Module("substate")

// rlpEncodeCreateTuple RLP-encodes the [sender, nonce] pair the legacy
// CREATE address formula hashes, via the shared generic codec — a
// heterogeneous list is just a []interface{} to it.
func rlpEncodeCreateTuple(caller types.Address, nonce uint64) ([]byte, error) {
	return rlp.EncodeToBytes([]interface{}{caller.Bytes(), nonce})
}

// TxContext carries the fields of a transaction that stay fixed across
// every frame it runs (origin, gas price, chain id) — as distinct from
// the per-frame Context the evm package defines.
type TxContext struct {
	Origin   types.Address
	GasPrice *big.Int
	ChainID  uint64
}

// Substate is the concrete, in-memory journaled state layer. One
// Substate serves exactly one transaction, driven by a single Machine.
type Substate struct {
	view        accountview.AccountView
	precompiles map[types.Address]Precompile
	cfg         evm.Config
	tx          TxContext

	currentGas uint64

	balances   map[types.Address]*big.Int
	nonces     map[types.Address]uint64
	codes      map[types.Address][]byte
	codeHashes map[types.Address]types.Hash

	storage         map[types.Address]map[string]*big.Int
	originalStorage map[types.Address]map[string]*big.Int

	touched map[types.Address]bool
	deleted map[types.Address]bool

	logsEmitted []types.Log
	actions     []action.Action
	refund      uint64

	logs []*logFrame
}

// New constructs a Substate rooted at view, ready for Enter to be
// called by a Machine's CallBegin/CreateBegin.
func New(view accountview.AccountView, precompiles map[types.Address]Precompile, cfg evm.Config, tx TxContext) *Substate {
	return &Substate{
		view:            view,
		precompiles:     precompiles,
		cfg:             cfg,
		tx:              tx,
		balances:        make(map[types.Address]*big.Int),
		nonces:          make(map[types.Address]uint64),
		codes:           make(map[types.Address][]byte),
		codeHashes:      make(map[types.Address]types.Hash),
		storage:         make(map[types.Address]map[string]*big.Int),
		originalStorage: make(map[types.Address]map[string]*big.Int),
		touched:         make(map[types.Address]bool),
		deleted:         make(map[types.Address]bool),
	}
}

// Actions returns the queue of deferred host-level side effects
// accumulated by the transaction so far, in emission order. Only
// meaningful once the whole transaction has terminated (Depth() == 0);
// mid-transaction it also holds actions queued by frames that are still
// open and may yet be reverted.
func (s *Substate) Actions() []action.Action { return s.actions }

// Logs returns the event logs emitted by the transaction so far, same
// caveat as Actions.
func (s *Substate) Logs() []types.Log { return s.logsEmitted }

// Refund returns the accumulated gas refund counter.
func (s *Substate) Refund() uint64 { return s.refund }

func (s *Substate) top() *logFrame {
	if len(s.logs) == 0 {
		return nil
	}
	return s.logs[len(s.logs)-1]
}

func (s *Substate) append(e journalEntry) {
	f := s.top()
	if f == nil {
		return
	}
	f.entries = append(f.entries, e)
}

// --- Substater (evm.Substater): call-depth journal stack ---

// Enter pushes a new log frame, recorded at the Machine's CallBegin/
// CreateBegin and on every resolved Call/Create trap.
func (s *Substate) Enter(gasLimit uint64, isStatic bool) {
	parentStatic := false
	if p := s.top(); p != nil {
		parentStatic = p.isStatic
	}
	s.logs = append(s.logs, &logFrame{
		gasLimit:     gasLimit,
		isStatic:     isStatic || parentStatic,
		logsStart:    len(s.logsEmitted),
		actionsStart: len(s.actions),
	})
}

// ExitCommit pops the top log frame and re-points its journal entries
// onto its parent (if any), so an ancestor that later reverts still
// undoes the child's changes. Emitted logs and queued actions are left
// untouched — they are now part of the parent's own committed history.
func (s *Substate) ExitCommit() {
	n := len(s.logs)
	popped := s.logs[n-1]
	s.logs = s.logs[:n-1]
	if parent := s.top(); parent != nil {
		parent.entries = append(parent.entries, popped.entries...)
	}
}

// ExitRevert pops the top log frame, replays its journal entries in
// reverse to undo every write it recorded, and truncates the emitted
// logs and queued actions back to what existed when the frame was
// entered.
func (s *Substate) ExitRevert() {
	n := len(s.logs)
	popped := s.logs[n-1]
	s.logs = s.logs[:n-1]
	for i := len(popped.entries) - 1; i >= 0; i-- {
		popped.entries[i].revert(s)
	}
	s.logsEmitted = s.logsEmitted[:popped.logsStart]
	s.actions = s.actions[:popped.actionsStart]
}

// ExitDiscard is ExitRevert under a distinct name for the Error/Fatal
// exit paths: the substate-level effect is identical, a failed frame
// leaves no trace, only the caller's intent differs.
func (s *Substate) ExitDiscard() { s.ExitRevert() }

// Depth reports the number of open log frames, which tracks the
// Machine's frame-arena depth exactly (each push/pop is mirrored 1:1).
func (s *Substate) Depth() int { return len(s.logs) }

// --- evm.Handler: reads ---

func (s *Substate) Keccak256(data []byte) types.Hash { return crypto.Keccak256Hash(data) }

func (s *Substate) Balance(addr types.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return s.view.Balance(addr, s.tx.ChainID)
}

func (s *Substate) Nonce(addr types.Address) uint64 {
	if n, ok := s.nonces[addr]; ok {
		return n
	}
	return s.view.Nonce(addr, s.tx.ChainID)
}

func (s *Substate) CodeHash(addr types.Address) types.Hash {
	if h, ok := s.codeHashes[addr]; ok {
		return h
	}
	return s.view.CodeHash(addr, s.tx.ChainID)
}

func (s *Substate) CodeSize(addr types.Address) int {
	if c, ok := s.codes[addr]; ok {
		return len(c)
	}
	return s.view.CodeSize(addr)
}

func (s *Substate) Code(addr types.Address) []byte {
	if c, ok := s.codes[addr]; ok {
		return c
	}
	return s.view.Code(addr)
}

func (s *Substate) Storage(addr types.Address, index *big.Int) *big.Int {
	key := index.String()
	if m, ok := s.storage[addr]; ok {
		if v, ok := m[key]; ok {
			return new(big.Int).Set(v)
		}
	}
	return s.view.Storage(addr, index)
}

func (s *Substate) OriginalStorage(addr types.Address, index *big.Int) *big.Int {
	key := index.String()
	if m, ok := s.originalStorage[addr]; ok {
		if v, ok := m[key]; ok {
			return new(big.Int).Set(v)
		}
	}
	return s.Storage(addr, index)
}

func (s *Substate) GasLeft() uint64 { return s.currentGas }
func (s *Substate) GasPrice() *big.Int {
	return new(big.Int).Set(s.tx.GasPrice)
}
func (s *Substate) Origin() types.Address         { return s.tx.Origin }
func (s *Substate) BlockNumber() *big.Int         { return s.view.BlockNumber() }
func (s *Substate) BlockTimestamp() *big.Int      { return s.view.BlockTimestamp() }
func (s *Substate) ChainID() uint64               { return s.tx.ChainID }

func (s *Substate) BlockHash(number uint64) types.Hash {
	h, _ := s.view.SlotHash(number)
	return h
}

// Exists follows config.EmptyConsideredExists: an empty-but-touched
// account is reported non-existent under Istanbul rules (config false).
// A self-destructed account always reports non-existent, regardless of
// the flag.
func (s *Substate) Exists(addr types.Address) bool {
	if s.deleted[addr] {
		return false
	}
	empty := s.Nonce(addr) == 0 && s.Balance(addr).Sign() == 0 && s.CodeHash(addr) == types.EmptyCodeHash
	if !empty {
		return true
	}
	return s.cfg.EmptyConsideredExists
}

func (s *Substate) Deleted(addr types.Address) bool { return s.deleted[addr] }

// --- evm.Handler: writes ---

func (s *Substate) setBalance(addr types.Address, v *big.Int) {
	prev, had := s.balances[addr]
	s.append(balanceChange{addr: addr, prev: prev, prevExisted: had})
	s.balances[addr] = new(big.Int).Set(v)
	s.touch(addr)
}

// setNonce assigns addr's nonce to an arbitrary value, journaling the
// change for revert but queuing no host action: callers that are not
// themselves bumping a nonce by exactly one (restoring from a
// snapshot, test setup) have no action to report.
func (s *Substate) setNonce(addr types.Address, n uint64) {
	prev, had := s.nonces[addr]
	s.append(nonceChange{addr: addr, prev: prev, prevExisted: had})
	s.nonces[addr] = n
	s.touch(addr)
}

// incrementNonce bumps addr's nonce by one and queues the matching
// IncrementNonce action: the one kind of nonce change the host needs
// to persist.
func (s *Substate) incrementNonce(addr types.Address) {
	s.setNonce(addr, s.Nonce(addr)+1)
	s.actions = append(s.actions, action.NewIncrementNonce(addr))
}

// IncrementNonce bumps addr's nonce by one and queues the matching
// action, for callers outside the EVM step loop that need to charge a
// nonce the way a top-level call charges its sender. Machine.CallBegin
// intentionally leaves that to its caller since Handler exposes no
// direct nonce-increment capability of its own.
func (s *Substate) IncrementNonce(addr types.Address) {
	s.incrementNonce(addr)
}

func (s *Substate) touch(addr types.Address) {
	_, existed := s.touched[addr]
	s.append(touchChange{addr: addr, prevExisted: existed})
	s.touched[addr] = true
}

func (s *Substate) SetStorage(addr types.Address, index, value *big.Int) {
	key := index.String()

	if _, ok := s.originalStorage[addr]; !ok {
		s.originalStorage[addr] = make(map[string]*big.Int)
	}
	if _, ok := s.originalStorage[addr][key]; !ok {
		s.originalStorage[addr][key] = s.Storage(addr, index)
	}

	var prev *big.Int
	prevExisted := false
	if m, ok := s.storage[addr]; ok {
		if v, ok := m[key]; ok {
			prev, prevExisted = v, true
		}
	}
	s.append(storageChange{addr: addr, key: key, prev: prev, prevExisted: prevExisted})

	if s.storage[addr] == nil {
		s.storage[addr] = make(map[string]*big.Int)
	}
	s.storage[addr][key] = new(big.Int).Set(value)
	s.touch(addr)

	var slot types.Hash
	value.FillBytes(slot[:])
	s.actions = append(s.actions, action.NewSetStorage(addr, index, slot))
}

func (s *Substate) Log(addr types.Address, topics []types.Hash, data []byte) {
	s.logsEmitted = append(s.logsEmitted, types.Log{Address: addr, Topics: topics, Data: append([]byte{}, data...)})
}

func (s *Substate) SetCode(addr types.Address, code []byte) {
	prevCode, had := s.codes[addr]
	prevHash := s.codeHashes[addr]
	s.append(codeChange{addr: addr, prevCode: prevCode, prevCodeHash: prevHash, prevExisted: had})
	s.codes[addr] = code
	s.codeHashes[addr] = crypto.Keccak256Hash(code)
	s.touch(addr)
	s.actions = append(s.actions, action.NewSetCode(addr, code))
}

// MarkDelete transfers addr's entire balance to target and marks addr
// deleted (SELFDESTRUCT). Practically infallible: an account's own
// balance can never under-run a transfer of itself.
func (s *Substate) MarkDelete(addr, target types.Address) error {
	bal := s.Balance(addr)
	if bal.Sign() != 0 {
		if addr != target {
			s.setBalance(target, new(big.Int).Add(s.Balance(target), bal))
		}
		s.setBalance(addr, new(big.Int))
	}
	prev := s.deleted[addr]
	s.append(deleteChange{addr: addr, prev: prev})
	s.deleted[addr] = true
	s.actions = append(s.actions, action.NewSelfDestruct(addr))
	return nil
}

// AddRefund accumulates the SSTORE/SELFDESTRUCT gas refund counter.
func (s *Substate) AddRefund(gas uint64) {
	s.append(refundChange{prev: s.refund})
	s.refund += gas
}

// isWriteOp reports whether op mutates host-observed state, for the
// static-call write check PreValidate enforces (EIP-214). CALL
// additionally violates staticness only when it carries a nonzero
// value, checked separately since that depends on the stack.
func isWriteOp(op evm.OpCode) bool {
	switch op {
	case evm.SSTORE, evm.LOG0, evm.LOG1, evm.LOG2, evm.LOG3, evm.LOG4,
		evm.CREATE, evm.CREATE2, evm.SELFDESTRUCT:
		return true
	default:
		return false
	}
}

// PreValidate enforces the one cross-cutting opcode-level rule that
// does not fit cleanly into the JumpTable's per-opcode gas functions:
// static-mode write protection (EIP-214). It also records gasLeft so
// GasLeft() answers correctly for the currently executing
// frame.
func (s *Substate) PreValidate(ctx evm.Context, op evm.OpCode, stack *evm.Stack, gasLeft uint64) error {
	s.currentGas = gasLeft
	f := s.top()
	if f == nil || !f.isStatic {
		return nil
	}
	if isWriteOp(op) {
		return evm.Errored(evm.ErrStaticModeViolationKind).AsError()
	}
	if op == evm.CALL && stack.Len() >= 3 && stack.Back(2).Sign() != 0 {
		return evm.Errored(evm.ErrStaticModeViolationKind).AsError()
	}
	return nil
}

// --- evm.Handler: Create / Call ---

func (s *Substate) Create(caller types.Address, scheme evm.CreateScheme, value *big.Int, initCode []byte) (evm.CreateInterrupt, *evm.ExitReason) {
	if s.Depth() >= evm.CallStackLimit {
		logger.Warn("create rejected: call stack too deep", "caller", caller, "depth", s.Depth())
		r := evm.Errored(evm.ErrCallTooDeepKind)
		return evm.CreateInterrupt{}, &r
	}
	if s.Balance(caller).Cmp(value) < 0 {
		r := evm.Errored(evm.ErrOutOfFundKind)
		return evm.CreateInterrupt{}, &r
	}

	addr := s.deriveCreateAddress(caller, scheme, initCode)

	if s.CodeSize(addr) > 0 || s.Nonce(addr) != 0 {
		logger.Warn("create rejected: address collision", "caller", caller, "address", addr)
		r := evm.Errored(evm.ErrCreateCollisionKind)
		return evm.CreateInterrupt{}, &r
	}

	if s.cfg.CreateIncreaseNonce {
		s.incrementNonce(caller)
	}
	// addr has no prior nonce (checked above), so its first nonce is
	// itself a zero-to-one increment, reported the same as any other.
	s.incrementNonce(addr)

	if value.Sign() != 0 {
		s.setBalance(caller, new(big.Int).Sub(s.Balance(caller), value))
		s.setBalance(addr, new(big.Int).Add(s.Balance(addr), value))
	}

	ctx := evm.Context{Address: addr, Caller: caller, ApparentValue: new(big.Int).Set(value)}
	return evm.CreateInterrupt{InitCode: initCode, Context: ctx, Address: addr}, nil
}

// deriveCreateAddress computes the address a CREATE/CREATE2/fixed
// scheme deploys to. Grounded on the Ethereum yellow paper's
// keccak256(rlp([sender, nonce]))[12:] (legacy) and EIP-1014's
// keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:]
// (CREATE2).
func (s *Substate) deriveCreateAddress(caller types.Address, scheme evm.CreateScheme, initCode []byte) types.Address {
	switch scheme.Kind {
	case evm.SchemeCreate2:
		var salt32 [32]byte
		scheme.Salt.FillBytes(salt32[:])
		payload := append([]byte{0xff}, caller.Bytes()...)
		payload = append(payload, salt32[:]...)
		payload = append(payload, scheme.CodeHash.Bytes()...)
		h := crypto.Keccak256(payload)
		return types.BytesToAddress(h[12:])
	case evm.SchemeFixed:
		return scheme.Fixed
	default:
		nonce := s.Nonce(caller)
		encoded, _ := rlpEncodeCreateTuple(caller, nonce)
		h := crypto.Keccak256(encoded)
		return types.BytesToAddress(h[12:])
	}
}

func (s *Substate) Call(codeAddress types.Address, transfer *evm.Transfer, input []byte, targetGas uint64, isStatic bool, ctx evm.Context) (evm.CallInterrupt, *evm.ExitReason, []byte) {
	if s.Depth() >= evm.CallStackLimit {
		logger.Warn("call rejected: call stack too deep", "codeAddress", codeAddress, "depth", s.Depth())
		r := evm.Errored(evm.ErrCallTooDeepKind)
		return evm.CallInterrupt{}, &r, nil
	}
	if transfer != nil && s.Balance(transfer.Source).Cmp(transfer.Value) < 0 {
		r := evm.Errored(evm.ErrOutOfFundKind)
		return evm.CallInterrupt{}, &r, nil
	}

	if p, ok := s.precompiles[codeAddress]; ok {
		if transfer != nil {
			s.setBalance(transfer.Source, new(big.Int).Sub(s.Balance(transfer.Source), transfer.Value))
			s.setBalance(transfer.Target, new(big.Int).Add(s.Balance(transfer.Target), transfer.Value))
		}
		cost := p.RequiredGas(input)
		if cost > targetGas {
			r := evm.Errored(evm.ErrOutOfGasKind)
			return evm.CallInterrupt{}, &r, nil
		}
		ret, err := p.Run(input)
		if err != nil {
			r := evm.Errored(evm.ErrOutOfGasKind)
			return evm.CallInterrupt{}, &r, nil
		}
		r := evm.Succeeded(evm.Returned)
		return evm.CallInterrupt{}, &r, ret
	}

	if transfer != nil {
		s.setBalance(transfer.Source, new(big.Int).Sub(s.Balance(transfer.Source), transfer.Value))
		s.setBalance(transfer.Target, new(big.Int).Add(s.Balance(transfer.Target), transfer.Value))
	}
	s.touch(codeAddress)

	trap := evm.CallInterrupt{
		CodeAddress: codeAddress,
		Transfer:    transfer,
		Input:       input,
		TargetGas:   targetGas,
		IsStatic:    isStatic,
		Context:     ctx,
	}
	return trap, nil, nil
}
