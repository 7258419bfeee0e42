package elfclass_test

import (
	"encoding/binary"
	"testing"

	"debug/elf"

	"goldsym/pkg/elfclass"
)

func TestSymRoundTrip64LE(t *testing.T) {
	c := elfclass.New(elfclass.Width64, binary.LittleEndian)
	want := elfclass.RawSym{
		NameOff: 0x11223344,
		Info:    elfclass.MakeInfo(elf.STB_GLOBAL, elf.STT_FUNC),
		Other:   elfclass.MakeOther(elf.STV_HIDDEN, 0),
		Shndx:   7,
		Value:   0xdeadbeefcafef00d,
		Size:    0x2a,
	}
	buf := make([]byte, c.SymSize())
	c.EncodeSym(buf, want)
	got := c.DecodeSym(buf)
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.Bind() != elf.STB_GLOBAL || got.Type() != elf.STT_FUNC || got.Vis() != elf.STV_HIDDEN {
		t.Errorf("decoded accessors wrong: bind=%v type=%v vis=%v", got.Bind(), got.Type(), got.Vis())
	}
}

func TestSymRoundTrip32BE(t *testing.T) {
	c := elfclass.New(elfclass.Width32, binary.BigEndian)
	want := elfclass.RawSym{
		NameOff: 42,
		Info:    elfclass.MakeInfo(elf.STB_WEAK, elf.STT_OBJECT),
		Other:   elfclass.MakeOther(elf.STV_PROTECTED, 0),
		Shndx:   uint16(elf.SHN_COMMON),
		Value:   0x1000,
		Size:    4,
	}
	buf := make([]byte, c.SymSize())
	c.EncodeSym(buf, want)
	got := c.DecodeSym(buf)
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestSymSizeAndWordSize(t *testing.T) {
	c64 := elfclass.New(elfclass.Width64, binary.LittleEndian)
	c32 := elfclass.New(elfclass.Width32, binary.LittleEndian)
	if c64.SymSize() != 24 || c64.WordSize() != 8 {
		t.Errorf("64-bit sizes wrong: sym=%d word=%d", c64.SymSize(), c64.WordSize())
	}
	if c32.SymSize() != 16 || c32.WordSize() != 4 {
		t.Errorf("32-bit sizes wrong: sym=%d word=%d", c32.SymSize(), c32.WordSize())
	}
}

func TestWordAndPutWordTruncate32(t *testing.T) {
	c := elfclass.New(elfclass.Width32, binary.LittleEndian)
	buf := make([]byte, 4)
	c.PutWord(buf, 0x1_0000_0001) // truncates to 1 on a 32-bit target
	if got := c.Word(buf); got != 1 {
		t.Errorf("PutWord/Word on a 32-bit class = %d, want 1", got)
	}
}
