package hostapi

// Exit-status byte constants returned to the host via OnReturn. These
// mirror evm.ExitReason.Status() exactly; duplicated here as named
// constants since a host entrypoint consumes the wire byte directly
// and has no reason to depend on the evm package's ExitReason type to
// interpret it.
const (
	StatusStopped  byte = 0x11
	StatusReturned byte = 0x12
	StatusSuicided byte = 0x13
	StatusRevert   byte = 0xd0

	// Error variants occupy 0xe1..0xee, one per evm.ExitError constant
	// in declaration order (StackUnderflow, StackOverflow, InvalidJump,
	// InvalidRange, DesignatedInvalid, CallTooDeep, CreateCollision,
	// CreateContractLimit, OutOfOffset, OutOfGas, OutOfFund,
	// PCUnderflow, CreateEmpty, StaticModeViolation).
	StatusErrorBase byte = 0xe1

	// Fatal variants occupy 0xf1..0xf3.
	StatusFatalBase byte = 0xf1
)
