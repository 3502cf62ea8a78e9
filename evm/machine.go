package evm

import (
	"errors"
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// ErrCreateCollision is returned when a CREATE target address already
// holds code or a non-zero nonce.
var ErrCreateCollision = errors.New("evm: create collision")

// ErrCallTooDeep is returned when call_stack_limit would be exceeded.
var ErrCallTooDeep = errors.New("evm: call stack too deep")

// ErrInvalidDriverUsage is returned by CreateBegin when invoked with a
// non-empty frame stack already present — the host must only ever
// start a transaction at depth zero. Kept distinct from
// ErrCreateCollision since the two causes are unrelated.
var ErrInvalidDriverUsage = errors.New("evm: create_begin called with non-empty call stack")

// frameEntryKind tags why a frame was pushed, so Machine knows how to
// route its exit.
type frameEntryKind int

const (
	entryCall frameEntryKind = iota
	entryCreate
)

// frameEntry is one element of the Machine's frame arena: frames are
// addressed by index in a contiguous slice, never by parent/child
// pointer, so the arena never forms a pointer cycle across suspend and
// resume.
type frameEntry struct {
	frame *Frame
	kind  frameEntryKind

	// populated when kind == entryCall: where to copy the child's
	// return data into this (the PARENT's) memory once it exits. These
	// belong to the parent's call site, recorded at push time.
	retOffset uint64
	retLength uint64
}

// Machine is the call-stack scheduler: it owns the frame arena and the
// Substate exclusively, drives the Runtime's bounded step loop, and
// applies CALL/CREATE/EXIT interrupts between frames.
type Machine struct {
	frames  []frameEntry
	state   Substater
	handler Handler
	rt      *Runtime
	config  Config

	caller types.Address
	nonce  uint64
}

// Substater is the subset of the Substate's Machine-facing surface used
// here; kept as an interface so machine_test.go can exercise Machine
// against a lightweight fake without importing the substate package
// (which itself depends on evm's types).
type Substater interface {
	Enter(gasLimit uint64, isStatic bool)
	ExitCommit()
	ExitRevert()
	ExitDiscard()
	Depth() int
}

// New constructs an empty Machine bound to the given Substate, Handler
// and opcode table.
func New(state Substater, handler Handler, table *JumpTable, cfg Config) *Machine {
	return &Machine{
		state:   state,
		handler: handler,
		rt:      NewRuntime(table, cfg),
		config:  cfg,
	}
}

// Depth reports the number of live frames.
func (m *Machine) Depth() int { return len(m.frames) }

// top returns the currently executing frame, or nil if the call stack
// is empty (transaction terminated).
func (m *Machine) top() *frameEntry {
	if len(m.frames) == 0 {
		return nil
	}
	return &m.frames[len(m.frames)-1]
}

// CallBegin starts a transaction as a top-level message call: enters
// the root substate log and pushes the initial Frame over
// codeAddress's code.
func (m *Machine) CallBegin(caller, codeAddress types.Address, input []byte, gasLimit uint64) {
	m.caller = caller
	m.state.Enter(gasLimit, false)
	code := m.handler.Code(codeAddress)
	ctx := Context{Address: codeAddress, Caller: caller, ApparentValue: new(big.Int)}
	frame := NewFrame(ctx, code, input, gasLimit, CallReason)
	m.frames = append(m.frames, frameEntry{frame: frame, kind: entryCall})
}

// CreateBegin starts a transaction as a top-level contract creation.
// Must be called on an empty Machine; a non-empty call stack indicates
// driver misuse, distinct from a genuine address collision.
func (m *Machine) CreateBegin(caller types.Address, initCode []byte, gasLimit uint64) error {
	if len(m.frames) != 0 {
		return ErrInvalidDriverUsage
	}
	m.caller = caller
	m.state.Enter(gasLimit, false)
	trap, exit := m.handler.Create(caller, CreateScheme{Kind: SchemeLegacy}, new(big.Int), initCode)
	if exit != nil {
		return ErrCreateCollision
	}
	ctx := trap.Context
	frame := NewFrame(ctx, initCode, nil, gasLimit, CreateReason{IsCreate: true, Address: trap.Address})
	m.frames = append(m.frames, frameEntry{frame: frame, kind: entryCreate})
	return nil
}

// RunResult is returned by Execute/ExecuteNSteps: when Done is true the
// transaction has terminated and ReturnData/Exit are meaningful.
type RunResult struct {
	Done       bool
	ReturnData []byte
	Exit       ExitReason
}

// ExecuteNSteps advances the Machine by up to n opcode steps total,
// resolving any number of internal Call/Create/Exit interrupts along
// the way (those never consume the host-visible step budget boundary;
// only step execution does).
func (m *Machine) ExecuteNSteps(n uint64) RunResult {
	var executed uint64
	for executed < n {
		entry := m.top()
		if entry == nil {
			return RunResult{Done: true}
		}
		steps, capture := m.rt.Run(entry.frame, n-executed, m.handler)
		executed += steps

		if capture.Trapped {
			if capture.Call != nil {
				if err := m.applyCall(*capture.Call); err != nil {
					m.applyExit(Errored(mapPushErr(err)))
				}
				continue
			}
			if err := m.applyCreate(*capture.Create); err != nil {
				m.applyExit(Errored(mapPushErr(err)))
			}
			continue
		}

		if capture.Exit.IsStepLimit() {
			return RunResult{Done: false}
		}

		result := m.applyExit(capture.Exit)
		if result != nil {
			return *result
		}
	}
	return RunResult{Done: false}
}

// FrameSnapshot is the serializable form of one frame-arena entry,
// exposed so the snapshot package can persist and restore a suspended
// Machine across host invocations without reaching into Machine's
// unexported frame arena.
type FrameSnapshot struct {
	PC         uint64
	Stack      []*big.Int
	Memory     []byte
	Input      []byte
	ReturnData []byte
	Context    Context
	Code       []byte
	CodeHash   types.Hash
	Gas        uint64
	Reason     CreateReason

	IsCreateEntry bool
	RetOffset     uint64
	RetLength     uint64
}

// Snapshot captures the entire frame arena, bottom (oldest) to top
// (currently executing), for serialization.
func (m *Machine) Snapshot() []FrameSnapshot {
	out := make([]FrameSnapshot, len(m.frames))
	for i, e := range m.frames {
		out[i] = FrameSnapshot{
			PC:            e.frame.PC,
			Stack:         e.frame.Stack.snapshot(),
			Memory:        e.frame.Memory.snapshot(),
			Input:         append([]byte{}, e.frame.Input...),
			ReturnData:    append([]byte{}, e.frame.ReturnData...),
			Context:       e.frame.Context,
			Code:          e.frame.Code,
			CodeHash:      e.frame.CodeHash,
			Gas:           e.frame.Gas,
			Reason:        e.frame.Reason,
			IsCreateEntry: e.kind == entryCreate,
			RetOffset:     e.retOffset,
			RetLength:     e.retLength,
		}
	}
	return out
}

// Restore rebuilds the frame arena from a Snapshot taken earlier in
// this transaction's life, resuming it at exactly the suspended PC of
// every live frame. caller seeds the bookkeeping CallBegin/CreateBegin
// would otherwise have set for a freshly-started transaction.
func (m *Machine) Restore(snaps []FrameSnapshot, caller types.Address) {
	m.caller = caller
	m.frames = make([]frameEntry, len(snaps))
	for i, s := range snaps {
		frame := &Frame{
			PC:         s.PC,
			Stack:      restoreStack(s.Stack),
			Memory:     restoreMemory(s.Memory),
			Input:      s.Input,
			ReturnData: s.ReturnData,
			Context:    s.Context,
			Code:       s.Code,
			CodeHash:   s.CodeHash,
			Gas:        s.Gas,
			Reason:     s.Reason,
		}
		kind := entryCall
		if s.IsCreateEntry {
			kind = entryCreate
		}
		m.frames[i] = frameEntry{frame: frame, kind: kind, retOffset: s.RetOffset, retLength: s.RetLength}
	}
}

func mapPushErr(err error) ExitError {
	switch err {
	case ErrCallTooDeep:
		return ErrCallTooDeepKind
	case ErrCreateCollision:
		return ErrCreateCollisionKind
	default:
		return ErrOutOfGasKind
	}
}

// Execute drives the Machine to completion, looping ExecuteNSteps with
// an effectively unbounded budget. Used by tests and single-slice
// scenarios; iterative host callers use ExecuteNSteps directly across
// invocations.
func (m *Machine) Execute() RunResult {
	for {
		result := m.ExecuteNSteps(^uint64(0))
		if result.Done {
			return result
		}
	}
}

// applyCall resolves a Call trap: enters a child substate log and
// pushes a new Frame over the code address's code. Touching the code
// address is left to the Handler's Call, which ran before the trap.
func (m *Machine) applyCall(in CallInterrupt) error {
	if len(m.frames) >= m.config.MaxCallDepth {
		return ErrCallTooDeep
	}
	m.state.Enter(^uint64(0), in.IsStatic)
	code := m.handler.Code(in.CodeAddress)
	frame := NewFrame(in.Context, code, in.Input, in.TargetGas, CallReason)
	m.frames = append(m.frames, frameEntry{
		frame:     frame,
		kind:      entryCall,
		retOffset: in.RetOffset,
		retLength: in.RetLength,
	})
	return nil
}

// applyCreate resolves a Create trap: enters a child substate log and
// pushes a new Frame over the init code. Storage already held at the
// target address is not cleared.
func (m *Machine) applyCreate(in CreateInterrupt) error {
	if len(m.frames) >= m.config.MaxCallDepth {
		return ErrCallTooDeep
	}
	m.state.Enter(^uint64(0), false)
	frame := NewFrame(in.Context, in.InitCode, nil, ^uint64(0), CreateReason{IsCreate: true, Address: in.Address})
	m.frames = append(m.frames, frameEntry{frame: frame, kind: entryCreate})
	return nil
}

// applyExit pops the top frame, applies the matching substate
// transition, and either terminates the transaction (frame stack now
// empty; a successful top-level Create installs its returned code
// first) or resumes the parent frame with the popped frame's result.
// Returns non-nil only when the whole transaction has terminated.
func (m *Machine) applyExit(reason ExitReason) *RunResult {
	n := len(m.frames)
	popped := m.frames[n-1]
	m.frames = m.frames[:n-1]

	// A successful Create whose deployed code exceeds
	// create_contract_limit is reclassified to CreateContractLimit and
	// discarded before the substate transition is chosen.
	if popped.kind == entryCreate && reason.IsSucceed() &&
		uint64(len(popped.frame.ReturnData)) > m.config.CreateContractLimit {
		reason = Errored(ErrCreateContractLimitKind)
	}

	switch {
	case reason.IsSucceed():
		m.state.ExitCommit()
	case reason.IsRevert():
		m.state.ExitRevert()
	default: // Error or Fatal
		m.state.ExitDiscard()
	}

	if len(m.frames) == 0 {
		if popped.kind == entryCreate && reason.IsSucceed() {
			m.handler.SetCode(popped.frame.Reason.Address, popped.frame.ReturnData)
		}
		return &RunResult{Done: true, ReturnData: popped.frame.ReturnData, Exit: reason}
	}

	parent := m.top()
	switch popped.kind {
	case entryCall:
		m.resumeCall(parent, popped, reason)
	case entryCreate:
		m.resumeCreate(parent, popped, reason)
	}
	return nil
}

// resumeCall copies the child's return data into the parent's memory
// at the call site's recorded offset/length and pushes the call's
// boolean success status onto the parent stack.
func (m *Machine) resumeCall(parent *frameEntry, popped frameEntry, reason ExitReason) {
	ret := popped.frame.ReturnData
	copySize := popped.retLength
	if uint64(len(ret)) < copySize {
		copySize = uint64(len(ret))
	}
	if copySize > 0 {
		parent.frame.Memory.Set(popped.retOffset, copySize, ret[:copySize])
	}
	parent.frame.ReturnData = ret
	result := new(big.Int)
	if reason.IsSucceed() {
		result.SetUint64(1)
	}
	parent.frame.Stack.Push(result)
}

// resumeCreate installs the deployed code at the created address on
// success, and pushes either the created address or zero onto the
// parent stack.
func (m *Machine) resumeCreate(parent *frameEntry, popped frameEntry, reason ExitReason) {
	if !reason.IsSucceed() {
		parent.frame.Stack.Push(new(big.Int))
		return
	}
	code := popped.frame.ReturnData
	addr := popped.frame.Reason.Address
	m.handler.SetCode(addr, code)
	parent.frame.Stack.Push(addressToBig(addr))
}
