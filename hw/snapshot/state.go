// Package snapshot holds the serializable state of the emulated machine.
package snapshot

// Version is the current snapshot format version.
const Version = 1

type Machine struct {
	Version int
	CPU     CPU
	RAM     []byte
}

type CPU struct {
	PC uint16
	SP uint8
	P  uint8
	A  uint8
	X  uint8
	Y  uint8

	Cycles int64

	// Instruction in flight.
	Inst      uint8
	Mode      uint8
	BaseCycle uint8
	LiveMode  uint8
	OpPC      uint16
	Remaining uint8
	Pending   bool
	Extra     uint8
	Operand   uint8
	Addr      uint16
	Intr      uint16

	IRQLine bool
	NMIEdge bool
	Halted  bool
}
