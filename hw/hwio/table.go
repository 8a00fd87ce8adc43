package hwio

import (
	"errors"
	"fmt"

	"sixtyfive/emu/log"
)

// log unmapped accesses (useful for debugging but verbose with programs
// probing open bus)
const logUnmapped = false

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8) error
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr, false)
	hi := b.Read8(addr+1, false)
	return uint16(hi)<<8 | uint16(lo)
}

// A Table maps devices into a 16-bit address space.
//
// Once connected to an address bus, a data bus and a read/write line, the
// table behaves like the memory side of the system bus: a write on the
// address bus while the line signals a read makes the mapped device drive the
// data bus; a write on the data bus while the line signals a write stores the
// value into the device mapped at the latched address.
type Table struct {
	Name string

	// Strict makes accesses to unmapped addresses and writes to read-only
	// memory fail. Otherwise they are ignored, unmapped reads return 0.
	Strict bool

	devs  []BankIO8
	slots [0x10000]uint8 // index in devs+1, 0 means unmapped
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.devs = t.devs[:0]
	clear(t.slots[:])
}

// Map maps io over the [begin, end] inclusive range. It panics if the range
// overlaps an already mapped range.
func (t *Table) Map(begin, end uint16, io BankIO8) {
	if end < begin {
		panic(fmt.Sprintf("hwio: invalid range [%04X-%04X]", begin, end))
	}
	for addr := int(begin); addr <= int(end); addr++ {
		if t.slots[addr] != 0 {
			panic(fmt.Sprintf("hwio: %s: address %04X already mapped", t.Name, addr))
		}
	}
	if len(t.devs) == 0xFF {
		panic("hwio: too many devices")
	}

	t.devs = append(t.devs, io)
	idx := uint8(len(t.devs))
	for addr := int(begin); addr <= int(end); addr++ {
		t.slots[addr] = idx
	}
}

// Unmap clears the [begin, end] inclusive range so that another device can be
// mapped over it. Devices stay mapped at addresses outside the range.
func (t *Table) Unmap(begin, end uint16) {
	for addr := int(begin); addr <= int(end); addr++ {
		t.slots[addr] = 0
	}
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModBus.DebugZ("mapping mem").
		Hex16("addr", addr).
		Int("size", mem.VSize).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	t.Map(addr, uint16(int(addr)+mem.VSize-1), mem.BankIO8())
}

func (t *Table) MapMemorySlice(addr, end uint16, buf []uint8, readonly bool) {
	var flags MemFlags
	if readonly {
		flags |= MemFlagReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  buf,
		Flags: flags,
		VSize: int(end) - int(addr) + 1,
	})
}

func (t *Table) MapDevice(addr uint16, dev *Device) {
	t.Map(addr, uint16(int(addr)+dev.Size-1), dev)
}

func (t *Table) search(addr uint16) BankIO8 {
	idx := t.slots[addr]
	if idx == 0 {
		return nil
	}
	return t.devs[idx-1]
}

// Read8 forwards the read to the device mapped at addr. Unmapped reads
// return 0.
func (t *Table) Read8(addr uint16, peek bool) uint8 {
	val, _ := t.read8(addr, peek)
	return val
}

// Peek8 is a convenience function.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) read8(addr uint16, peek bool) (uint8, error) {
	io := t.search(addr)
	if io == nil {
		if logUnmapped && !peek {
			log.ModBus.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		if t.Strict && !peek {
			return 0, fmt.Errorf("%s: read $%04X: %w", t.Name, addr, ErrUnmapped)
		}
		return 0, nil
	}
	return io.Read8(addr, peek), nil
}

// Write8 forwards the write to the device mapped at addr.
func (t *Table) Write8(addr uint16, val uint8) error {
	io := t.search(addr)
	if io == nil {
		if logUnmapped {
			log.ModBus.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex8("val", val).
				End()
		}
		if t.Strict {
			return fmt.Errorf("%s: write $%04X: %w", t.Name, addr, ErrUnmapped)
		}
		return nil
	}
	if err := io.Write8(addr, val); err != nil {
		if !t.Strict && errors.Is(err, ErrReadOnly) {
			return nil
		}
		return fmt.Errorf("%s: write $%04X: %w", t.Name, addr, err)
	}
	return nil
}

// Connect attaches the table to the system buses so that it answers the bus
// master transactions.
func (t *Table) Connect(addr, data *Bus, rw *Line) {
	addr.Attach(func(a uint16) error {
		if !rw.IsRead() {
			return nil
		}
		val, err := t.read8(a, false)
		if err != nil {
			return err
		}
		return data.Write(uint16(val))
	})
	data.Attach(func(val uint16) error {
		if rw.IsRead() {
			return nil
		}
		return t.Write8(addr.Read(), uint8(val))
	})
}
