package hwio

import "sixtyfive/emu/log"

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Device is a BankIO8 implementation that allows manual management of an
// entire range of memory through callbacks, for memory-mapped I/O.
type Device struct {
	Name  string // name of the memory area (for debugging)
	Size  int    // size of the memory area
	Flags RWFlags

	ReadCb  func(addr uint16) uint8
	PeekCb  func(addr uint16) uint8
	WriteCb func(addr uint16, val uint8)
}

func (d *Device) Read8(addr uint16, peek bool) uint8 {
	if peek {
		if d.PeekCb != nil {
			return d.PeekCb(addr)
		}
		return 0
	}
	switch {
	case d.Flags&WriteOnlyFlag != 0:
		log.ModBus.ErrorZ("invalid Read8 from writeonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		fallthrough
	case d.ReadCb == nil:
		return 0
	}
	return d.ReadCb(addr)
}

func (d *Device) Write8(addr uint16, val uint8) error {
	switch {
	case d.Flags&ReadOnlyFlag != 0:
		log.ModBus.ErrorZ("invalid Write8 to readonly device").
			String("name", d.Name).
			Hex16("addr", addr).
			End()
		return ErrReadOnly
	case d.WriteCb == nil:
		return nil
	}

	d.WriteCb(addr, val)
	return nil
}
