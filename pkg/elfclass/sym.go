package elfclass

import "debug/elf"

// RawSym is a width-normalized view of an Elf32_Sym or Elf64_Sym entry:
// the fields are widened to their 64-bit form but the semantics (and the
// original st_shndx 16-bit range) are unchanged. This is the only place
// the two wire layouts are reconciled into one shape.
type RawSym struct {
	NameOff uint32
	Info    uint8
	Other   uint8
	Shndx   uint16
	Value   uint64
	Size    uint64
}

func (s RawSym) Bind() elf.SymBind { return elf.SymBind(s.Info >> 4) }
func (s RawSym) Type() elf.SymType { return elf.SymType(s.Info & 0xf) }
func (s RawSym) Vis() elf.SymVis   { return elf.SymVis(s.Other & 0x3) }

// DecodeSym reads one symbol-table entry at b[0:SymSize()].
func (c Class) DecodeSym(b []byte) RawSym {
	if c.Is64() {
		return RawSym{
			NameOff: c.order.Uint32(b[0:4]),
			Info:    b[4],
			Other:   b[5],
			Shndx:   c.order.Uint16(b[6:8]),
			Value:   c.order.Uint64(b[8:16]),
			Size:    c.order.Uint64(b[16:24]),
		}
	}
	return RawSym{
		NameOff: c.order.Uint32(b[0:4]),
		Value:   uint64(c.order.Uint32(b[4:8])),
		Size:    uint64(c.order.Uint32(b[8:12])),
		Info:    b[12],
		Other:   b[13],
		Shndx:   c.order.Uint16(b[14:16]),
	}
}

// EncodeSym writes one symbol-table entry into b[0:SymSize()].
func (c Class) EncodeSym(b []byte, s RawSym) {
	if c.Is64() {
		c.order.PutUint32(b[0:4], s.NameOff)
		b[4] = s.Info
		b[5] = s.Other
		c.order.PutUint16(b[6:8], s.Shndx)
		c.order.PutUint64(b[8:16], s.Value)
		c.order.PutUint64(b[16:24], s.Size)
		return
	}
	c.order.PutUint32(b[0:4], s.NameOff)
	c.order.PutUint32(b[4:8], uint32(s.Value))
	c.order.PutUint32(b[8:12], uint32(s.Size))
	b[12] = s.Info
	b[13] = s.Other
	c.order.PutUint16(b[14:16], s.Shndx)
}

func MakeInfo(bind elf.SymBind, typ elf.SymType) uint8 {
	return uint8(bind)<<4 | uint8(typ)&0xf
}

func MakeOther(vis elf.SymVis, nonvis uint8) uint8 {
	return uint8(vis)&0x3 | nonvis<<2
}
