package symtab

import (
	"debug/elf"

	"goldsym/pkg/namepool"
)

// Finalize computes every record's final runtime address. It must run
// single-threaded after ingestion completes and layout is known. It
// walks every record once,
// computes its final runtime value, appends its name to the output
// string pool, and compacts out discarded records in place — the Go
// port's stable arena-index identity lets this happen during the same
// pass rather than needing a deferred re-compaction step.
//
// Finalize is idempotent: calling it again on an already-finalized table
// returns the offset computed by the first call without recomputing, so
// values and output_count stay unchanged.
func (t *SymbolTable) Finalize(startOffset uint64, strings *namepool.OutputPool) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return t.finalOffset, nil
	}

	wordSize := uint64(t.class.WordSize())
	offset := alignUp(startOffset, wordSize)
	count := 0

	live := t.arena[:0:0]
	for _, rec := range t.arena {
		if rec.Flags.has(FlagForwarder) {
			continue
		}

		discarded, err := t.finalizeOne(rec)
		if err != nil {
			return 0, err
		}
		if discarded {
			continue
		}

		strings.Emit(rec.NameKey, rec.Name)
		live = append(live, rec)
		count++
		offset += uint64(t.class.SymSize())
	}

	t.arena = live
	t.outputCount = count
	t.finalized = true
	t.finalOffset = alignUp(offset, wordSize)
	return t.finalOffset, nil
}

// OutputCount is the number of records that survived finalize and will
// be written by WriteGlobals.
func (t *SymbolTable) OutputCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outputCount
}

// finalizeOne computes rec.Value in place, dispatching on rec.Source, and
// reports whether the record should be dropped from the output entirely
// (a discarded-section FromObject record).
func (t *SymbolTable) finalizeOne(rec *SymbolRecord) (discarded bool, err error) {
	switch src := rec.Source.(type) {
	case FromObject:
		shnum := src.SectionIndex
		if shnum >= uint16(elf.SHN_LORESERVE) && shnum != uint16(elf.SHN_ABS) {
			return false, t.diag.Fatalf(src.Object.Identity(),
				"unsupported section index 0x%x (extended SHN_XINDEX indices are not handled)", shnum)
		}
		switch {
		case src.Object.IsDynamic():
			rec.Value = 0
		case shnum == uint16(elf.SHN_UNDEF):
			rec.Value = 0
		case shnum == uint16(elf.SHN_ABS):
			// unchanged
		default:
			sec, off, ok := src.Object.OutputSection(shnum)
			if !ok {
				return true, nil
			}
			rec.Value = rec.Value + sec.Address() + off
		}

	case InOutputData:
		rec.Value = rec.Value + src.Data.Address()
		if src.OffsetIsFromEnd {
			rec.Value += src.Data.Size()
		}

	case InOutputSegment:
		rec.Value = rec.Value + src.Segment.VAddr()
		switch src.Base {
		case SegmentStart:
			// unchanged
		case SegmentEnd:
			rec.Value += src.Segment.Memsz()
		case SegmentBSS:
			rec.Value += src.Segment.Filesz()
		}

	case Constant:
		// unchanged
	}
	return false, nil
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
