package hwio

import (
	"sixtyfive/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // writes are rejected
	MemFlagNoROLog                          // skip logging rejected writes to read-only memory
)

// Linear memory area that can be mapped into a Table.
//
// Data length must be a power of 2. VSize is the size of the mapped window
// and can be bigger than len(Data), in which case Data is mirrored.
type Mem struct {
	Name  string   // name of the memory area (for debugging)
	Data  []byte   // actual memory buffer
	VSize int      // virtual size of the memory (can be bigger than physical size)
	Flags MemFlags // flags determining how the memory can be accessed
}

func (m *Mem) BankIO8() BankIO8 {
	if len(m.Data) == 0 || len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		name: m.Name,
		buf:  m.Data,
		mask: uint16(len(m.Data) - 1),
		ro:   m.Flags,
	}
}

// mem is the BankIO8 adaptor of a Mem.
type mem struct {
	name string
	buf  []byte
	mask uint16
	ro   MemFlags
}

func (m *mem) Read8(addr uint16, _ bool) uint8 {
	return m.buf[addr&m.mask]
}

func (m *mem) Write8(addr uint16, val uint8) error {
	if m.ro&MemFlagReadOnly != 0 {
		if m.ro&MemFlagNoROLog == 0 {
			log.ModMem.ErrorZ("Write8 to readonly memory").
				String("area", m.name).
				Hex8("val", val).
				Hex16("addr", addr).
				End()
		}
		return ErrReadOnly
	}
	m.buf[addr&m.mask] = val
	return nil
}
