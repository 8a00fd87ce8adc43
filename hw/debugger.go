package hw

// A Debugger controls and monitors a CPU.
type Debugger interface {
	// Reset is called once the CPU has read the reset vector.
	Reset()

	// Trace is called before each opcode is fetched. This is the main entry
	// point for debugging activity, the debugger can stop the CPU by blocking
	// until user interaction finishes.
	Trace(pc uint16)

	// Interrupt is called when an interrupt sequence has been executed. prevpc
	// is the address of the instruction that was about to be executed, curpc
	// is the address of the interrupt handler.
	Interrupt(prevpc, curpc uint16, isNMI bool)

	// Break can be called by the CPU core to force breaking into the debugger.
	Break(msg string)
}

type nopDebugger struct{}

func (nopDebugger) Reset()                                     {}
func (nopDebugger) Trace(pc uint16)                            {}
func (nopDebugger) Interrupt(prevpc, curpc uint16, isNMI bool) {}
func (nopDebugger) Break(msg string)                           {}
