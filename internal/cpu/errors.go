package cpu

import "errors"

var (
	// ErrUnknownOpcode means the program is invalid: no instruction is
	// defined for the fetched byte.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrNotImplemented means the emulator is unfinished: the opcode is
	// known but has no handler.
	ErrNotImplemented = errors.New("opcode not implemented")

	ErrJammed          = errors.New("cpu jammed")
	ErrHalted          = errors.New("cpu halted")
	ErrStopped         = errors.New("cpu stopped")
	ErrReadOnlyOperand = errors.New("operand is not writable")
)
