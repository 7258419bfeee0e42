package symtab

import (
	"debug/elf"

	"goldsym/pkg/elfclass"
	"goldsym/pkg/namepool"
)

// WriteGlobals serializes every live record into the output ELF symbol
// table. It must run after Finalize and must walk the table in the
// same order Finalize did (the arena order,
// post-compaction) so st_name offsets line up with the string pool
// Finalize built.
func (t *SymbolTable) WriteGlobals(strings *namepool.OutputPool, out []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.finalized {
		panic("symtab: WriteGlobals called before Finalize")
	}

	symSize := t.class.SymSize()
	if len(out) < t.outputCount*symSize {
		panic("symtab: output buffer too small")
	}

	for i, rec := range t.arena {
		shndx, err := t.outShndx(rec)
		if err != nil {
			return err
		}
		raw := elfclass.RawSym{
			NameOff: strings.Emit(rec.NameKey, rec.Name),
			Info:    elfclass.MakeInfo(rec.Binding, rec.Type),
			Other:   elfclass.MakeOther(rec.Visibility, rec.NonVis),
			Shndx:   shndx,
			Value:   rec.Value,
			Size:    rec.Size,
		}
		t.class.EncodeSym(out[i*symSize:(i+1)*symSize], raw)
	}
	return nil
}

func (t *SymbolTable) outShndx(rec *SymbolRecord) (uint16, error) {
	switch src := rec.Source.(type) {
	case FromObject:
		switch {
		case src.Object.IsDynamic():
			return uint16(elf.SHN_UNDEF), nil
		case src.SectionIndex == uint16(elf.SHN_UNDEF), src.SectionIndex == uint16(elf.SHN_ABS):
			return src.SectionIndex, nil
		default:
			sec, _, ok := src.Object.OutputSection(src.SectionIndex)
			if !ok {
				return 0, nil // discarded; must already have been skipped at Finalize
			}
			return sec.OutShndx(), nil
		}
	case InOutputData:
		return src.Data.OutShndx(), nil
	case InOutputSegment, Constant:
		return uint16(elf.SHN_ABS), nil
	}
	return 0, nil
}
