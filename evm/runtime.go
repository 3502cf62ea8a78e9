package evm

import "fmt"

// Capture is the outcome of a bounded Runtime.Run call: either the Frame
// terminated (Exit, which subsumes running out of step budget) or it
// suspended mid-execution awaiting a child Frame (Trap).
type Capture struct {
	Trapped bool
	Call    *CallInterrupt
	Create  *CreateInterrupt
	Exit    ExitReason
}

// Config carries the interpreter parameters that vary by deployment:
// whether CREATE bumps the creator's nonce, the code-size ceiling for
// newly deployed contracts, the call-stack depth limit, and whether an
// empty-but-touched account is reported as existing.
type Config struct {
	MaxCallDepth          int
	EmptyConsideredExists bool
	CreateContractLimit   uint64
	CreateIncreaseNonce   bool
}

// DefaultConfig returns the Istanbul-era parameter set this
// interpreter targets.
func DefaultConfig() Config {
	return Config{
		MaxCallDepth:          1024,
		EmptyConsideredExists: false,
		CreateContractLimit:   MaxCodeSize,
		CreateIncreaseNonce:   true,
	}
}

// Runtime steps a single Frame against a JumpTable and Handler. It never
// recurses into a child Frame itself: CALL/CREATE-family opcodes signal
// a trapSignal, which Run converts into a Capture the Machine acts on
// by pushing a new Frame onto its own arena.
type Runtime struct {
	table  *JumpTable
	config Config
}

// NewRuntime constructs a Runtime bound to the given opcode table and
// configuration.
func NewRuntime(table *JumpTable, cfg Config) *Runtime {
	return &Runtime{table: table, config: cfg}
}

// Run executes frame for up to maxSteps opcodes (or until it halts,
// errors, or traps), returning how many steps were actually taken and a
// Capture describing the result.
//
// A trap is reported the instant an opcode requests one, mid-step-
// budget; a step-limit exhaustion reports Capture{Exit:
// stepLimitReached}, which the Machine (not the Runtime) treats as
// "suspend, do not unwind, no journal commit."
func (rt *Runtime) Run(frame *Frame, maxSteps uint64, handler Handler) (stepsExecuted uint64, capture Capture) {
	for stepsExecuted = 0; stepsExecuted < maxSteps; stepsExecuted++ {
		op := frame.GetOp(frame.PC)
		operation := rt.table[op]
		if operation == nil {
			return stepsExecuted + 1, Capture{Exit: Errored(ErrInvalidRangeKind)}
		}

		if err := handler.PreValidate(frame.Context, op, frame.Stack, frame.Gas); err != nil {
			return stepsExecuted + 1, Capture{Exit: reasonFromError(err)}
		}

		if sLen := frame.Stack.Len(); sLen < operation.minStack {
			return stepsExecuted + 1, Capture{Exit: Errored(ErrStackUnderflowKind)}
		} else if sLen > operation.maxStack {
			return stepsExecuted + 1, Capture{Exit: Errored(ErrStackOverflowKind)}
		}

		var memSize uint64
		if operation.memorySize != nil {
			memSize = operation.memorySize(frame.Stack)
			reqWords := toWordSize(memSize)
			curWords := toWordSize(uint64(frame.Memory.Len()))
			if reqWords > curWords {
				expansionCost := memoryGasCost(reqWords) - memoryGasCost(curWords)
				if !frame.UseGas(expansionCost) {
					return stepsExecuted + 1, Capture{Exit: Errored(ErrOutOfGasKind)}
				}
				frame.Memory.Resize(reqWords * 32)
			}
		}

		if !frame.UseGas(operation.constantGas) {
			return stepsExecuted + 1, Capture{Exit: Errored(ErrOutOfGasKind)}
		}

		if operation.dynamicGas != nil {
			dynCost, err := operation.dynamicGas(handler, frame, frame.Stack, memSize)
			if err != nil {
				return stepsExecuted + 1, Capture{Exit: reasonFromError(err)}
			}
			if !frame.UseGas(dynCost) {
				return stepsExecuted + 1, Capture{Exit: Errored(ErrOutOfGasKind)}
			}
		}

		ret, trap, err := operation.execute(&frame.PC, handler, frame)
		if err != nil {
			return stepsExecuted + 1, Capture{Exit: reasonFromError(err)}
		}
		if !operation.jumps {
			frame.PC++
		}
		if trap != nil {
			if trap.call != nil {
				return stepsExecuted + 1, Capture{Trapped: true, Call: trap.call}
			}
			return stepsExecuted + 1, Capture{Trapped: true, Create: trap.create}
		}

		switch {
		case op == RETURN:
			frame.ReturnData = ret
			return stepsExecuted + 1, Capture{Exit: Succeeded(Returned)}
		case op == REVERT:
			frame.ReturnData = ret
			return stepsExecuted + 1, Capture{Exit: Reverted()}
		case op == STOP:
			return stepsExecuted + 1, Capture{Exit: Succeeded(Stopped)}
		case op == SELFDESTRUCT:
			return stepsExecuted + 1, Capture{Exit: Succeeded(Suicided)}
		}
	}
	return maxSteps, Capture{Exit: stepLimitReached}
}

// reasonFromError recovers the ExitReason an opcode's error return was
// constructed from (exitReasonError), or maps an unexpected error to a
// fatal outcome — it should never see anything else, since every
// instruction function in this package returns AsError() of a typed
// ExitReason.
func reasonFromError(err error) ExitReason {
	if e, ok := err.(exitReasonError); ok {
		return e.reason
	}
	panic(fmt.Sprintf("evm: unexpected error type %T: %v", err, err))
}
