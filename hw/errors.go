package hw

import (
	"errors"
	"fmt"
)

// ErrHalted is returned by OnTick once the CPU executed a JAM opcode, until
// the next Reset.
var ErrHalted = errors.New("cpu halted")

// A DecodeError is returned when the fetched opcode has no entry in the
// opcode table and the decode fallback is disabled.
type DecodeError struct {
	Opcode uint8
	PC     uint16 // address of the opcode
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid opcode $%02X at $%04X", e.Opcode, e.PC)
}

// A BusError wraps a failure of the bus or of a memory device during a CPU
// bus transaction.
type BusError struct {
	Op   string // "read" or "write"
	Addr uint16
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s at $%04X: %s", e.Op, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// A ResetError is returned when the reset vector can't be read.
type ResetError struct {
	Err error
}

func (e *ResetError) Error() string {
	return "reset: " + e.Err.Error()
}

func (e *ResetError) Unwrap() error { return e.Err }
