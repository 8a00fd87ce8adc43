package emu

import (
	"bytes"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"

	"sixtyfive/ines"
)

const (
	formatBin  = "bin"
	formatINES = "ines"
)

// A segment is a program image ready to be placed in the address space.
type segment struct {
	name  string
	addr  uint16
	data  []byte
	vsize int // size of the mapped window, data is mirrored if bigger
	rom   bool
}

func (s segment) end() int { return int(s.addr) + s.vsize - 1 }

func loadImage(img Image) (segment, error) {
	buf, err := os.ReadFile(img.Path)
	if err != nil {
		return segment{}, err
	}

	format := img.Format
	if format == "" {
		format = formatBin
		if ines.IsINES(buf) {
			format = formatINES
		}
	}

	name := filepath.Base(img.Path)
	if format == formatINES {
		var rom ines.Rom
		if _, err := rom.ReadFrom(bytes.NewReader(buf)); err != nil {
			return segment{}, fmt.Errorf("%s: %w", img.Path, err)
		}
		if err := rom.CheckNROM(); err != nil {
			return segment{}, fmt.Errorf("%s: %w", img.Path, err)
		}
		return segment{
			name:  name,
			addr:  ines.ProgramAddr,
			data:  rom.PRG,
			vsize: ines.ProgramSize,
			rom:   true,
		}, nil
	}

	switch {
	case len(buf) == 0:
		return segment{}, fmt.Errorf("%s: empty image", img.Path)
	case int(img.Addr)+len(buf) > 0x10000:
		return segment{}, fmt.Errorf("%s: %d bytes image doesn't fit at $%04X", img.Path, len(buf), img.Addr)
	}
	return segment{
		name:  name,
		addr:  img.Addr,
		data:  buf,
		vsize: len(buf),
		rom:   img.ROM,
	}, nil
}

// pow2 pads buf with zeroes to the next power of 2 length.
func pow2(buf []byte) []byte {
	n := len(buf)
	if n&(n-1) == 0 {
		return buf
	}
	padded := make([]byte, 1<<bits.Len(uint(n)))
	copy(padded, buf)
	return padded
}
