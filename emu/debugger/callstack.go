package debugger

import (
	"fmt"
	"slices"
)

type frameKind uint8

const (
	frameCall frameKind = iota // JSR
	frameNMI
	frameIRQ
)

// A frame is an entry of the call stack: the call site, the called routine and
// the address it returns to.
type frame struct {
	site  uint16
	entry uint16
	ret   uint16
	kind  frameKind
}

// callStack tracks subroutine calls and interrupts, innermost last.
type callStack []frame

func (cs *callStack) push(site, entry, ret uint16, kind frameKind) {
	*cs = append(*cs, frame{site: site, entry: entry, ret: ret, kind: kind})
}

// unwind is called after RTS or RTI has jumped to pc. It drops the innermost
// frame returning to pc, along with the frames above it, left behind by
// programs discarding return addresses from the stack. Returns not matching
// any frame (RTS used as an indirect jump) leave the stack untouched.
func (cs *callStack) unwind(pc uint16) bool {
	for i := len(*cs) - 1; i >= 0; i-- {
		if (*cs)[i].ret == pc {
			*cs = (*cs)[:i]
			return true
		}
	}
	return false
}

func (cs *callStack) reset() {
	*cs = (*cs)[:0]
}

// frameInfo is the displayed form of a frame: the routine entry point and the
// current address within it.
type frameInfo [2]string

// build returns the frames, innermost first, given the current pc.
func (cs callStack) build(pc uint16) []frameInfo {
	nfos := make([]frameInfo, 0, len(cs)+1)
	nfos = append(nfos, frameInfo{cs.entryPoint(len(cs) - 1), fmt.Sprintf("$%04X", pc)})
	for i, f := range slices.Backward(cs) {
		nfos = append(nfos, frameInfo{cs.entryPoint(i - 1), fmt.Sprintf("$%04X", f.site)})
	}
	return nfos
}

func (cs callStack) entryPoint(i int) string {
	if i < 0 {
		return "[bottom of stack]"
	}

	f := cs[i]
	switch f.kind {
	case frameNMI:
		return fmt.Sprintf("[nmi] $%04X", f.entry)
	case frameIRQ:
		return fmt.Sprintf("[irq] $%04X", f.entry)
	}
	return fmt.Sprintf("%04X", f.entry)
}
