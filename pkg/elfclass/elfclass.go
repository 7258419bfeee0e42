// Package elfclass provides the size/endianness abstraction that lets the
// rest of this module stay generic over ELF32/ELF64 and little/big endian
// targets, selected once at the start of a link from the first input
// object observed.
package elfclass

import "encoding/binary"

// Width distinguishes ELFCLASS32 from ELFCLASS64.
type Width int

const (
	Width32 Width = 32
	Width64 Width = 64
)

// Class carries everything about a target's word size and byte order that
// the symbol table needs to interpret raw ELF symbol bytes and to write
// them back out. It is a small value type, not an interface, following
// the shape of an endian+wordsize abstraction seen elsewhere in the
// example pack rather than a heavier Target interface per symbol.
type Class struct {
	width Width
	order binary.ByteOrder
}

func New(width Width, order binary.ByteOrder) Class {
	return Class{width: width, order: order}
}

func (c Class) Width() Width            { return c.width }
func (c Class) Order() binary.ByteOrder { return c.order }
func (c Class) Is64() bool              { return c.width == Width64 }

// WordSize is the size in bytes of an ELF "word" for this class: 4 for
// ELFCLASS32, 8 for ELFCLASS64. Used for value/size fields and alignment.
func (c Class) WordSize() int {
	if c.Is64() {
		return 8
	}
	return 4
}

// SymSize is sizeof(Elf32_Sym) or sizeof(Elf64_Sym).
func (c Class) SymSize() int {
	if c.Is64() {
		return 24
	}
	return 16
}

func (c Class) Uint16(b []byte) uint16 { return c.order.Uint16(b) }
func (c Class) Uint32(b []byte) uint32 { return c.order.Uint32(b) }
func (c Class) Uint64(b []byte) uint64 { return c.order.Uint64(b) }

// Word reads either a 4- or 8-byte unsigned integer depending on width,
// returned widened to uint64 for uniform arithmetic in the core.
func (c Class) Word(b []byte) uint64 {
	if c.Is64() {
		return c.order.Uint64(b)
	}
	return uint64(c.order.Uint32(b))
}

func (c Class) PutUint16(b []byte, v uint16) { c.order.PutUint16(b, v) }
func (c Class) PutUint32(b []byte, v uint32) { c.order.PutUint32(b, v) }
func (c Class) PutUint64(b []byte, v uint64) { c.order.PutUint64(b, v) }

// PutWord writes v truncated to the class's word size.
func (c Class) PutWord(b []byte, v uint64) {
	if c.Is64() {
		c.order.PutUint64(b, v)
		return
	}
	c.order.PutUint32(b, uint32(v))
}
