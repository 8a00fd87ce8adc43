// Package ines reads program images in the iNES file format. Only the PRG ROM
// section is of interest to a bare 6502 machine, so only NROM (mapper 0)
// images can be placed in the address space.
package ines

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	Magic      = "NES\x1a"
	headerSize = 16
	prgBank    = 16384
	chrBank    = 8192
)

var ErrBadMagic = errors.New("ines: invalid magic number")

type Rom struct {
	header
	Trainer []byte // Trainer, 512 bytes if present, or empty.
	PRG     []byte // PRG is PRG ROM data (length is multiples of 16k)
	CHR     []byte // CHR is CHR ROM data (length is multiples of 8k)
}

// IsINES reports whether buf starts with the iNES magic number.
func IsINES(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(Magic))
}

// Open loads a rom from file.
func Open(path string) (*Rom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rom := new(Rom)
	if _, err := rom.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rom, nil
}

// ReadFrom implements io.ReaderFrom interface
func (rom *Rom) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	if err := rom.decode(buf); err != nil {
		return 0, fmt.Errorf("failed to decode header: %w", err)
	}
	off := headerSize

	if rom.HasTrainer() {
		if len(buf) < off+512 {
			return 0, fmt.Errorf("incomplete TRAINER section")
		}
		rom.Trainer = buf[off : off+512]
		off += 512
	}

	if len(buf) < off+rom.prgsz {
		return 0, fmt.Errorf("incomplete PRG section")
	}
	rom.PRG = buf[off : off+rom.prgsz]
	off += rom.prgsz

	if len(buf) < off+rom.chrsz {
		return 0, fmt.Errorf("incomplete CHR section")
	}
	rom.CHR = buf[off : off+rom.chrsz]

	return int64(len(buf)), nil
}

// NROM maps PRG ROM in the upper half of the CPU address space. A single 16KB
// bank is mirrored in both quarters.
const (
	ProgramAddr = 0x8000
	ProgramSize = 0x8000
)

// CheckNROM reports whether the rom PRG can be mapped at ProgramAddr.
func (rom *Rom) CheckNROM() error {
	if m := rom.Mapper(); m != 0 {
		return fmt.Errorf("ines: unsupported mapper %d", m)
	}
	switch len(rom.PRG) {
	case prgBank, 2 * prgBank:
		return nil
	}
	return fmt.Errorf("ines: unsupported PRG size %d", len(rom.PRG))
}

func (hdr *header) decode(p []byte) error {
	if len(p) < headerSize {
		return fmt.Errorf("too small, needs %d bytes", headerSize)
	}
	if !IsINES(p) {
		return ErrBadMagic
	}
	copy(hdr.raw[:], p[:headerSize])

	hdr.prgsz = int(hdr.raw[4]) * prgBank
	hdr.chrsz = int(hdr.raw[5]) * chrBank
	return nil
}

type header struct {
	raw   [headerSize]byte
	prgsz int
	chrsz int
}

// HasTrainer indicates the presence of a trainer section in the rom.
func (hdr *header) HasTrainer() bool {
	return hdr.raw[6]&0x04 != 0
}

// Mapper returns the mapper number.
func (hdr *header) Mapper() uint8 {
	return hdr.raw[7]&0xF0 | hdr.raw[6]>>4
}
