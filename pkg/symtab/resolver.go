package symtab

import (
	"debug/elf"

	"goldsym/pkg/diag"
	"goldsym/pkg/elfclass"
)

// classification is the five-way strong/weak/common/undef split the
// override table is indexed by, for either side of a resolution.
type classification int

const (
	classStrongDef classification = iota
	classWeakDef
	classCommon
	classUndef
	classWeakUndef
)

func classifyShndx(bind elf.SymBind, shndx uint16) classification {
	switch {
	case shndx == uint16(elf.SHN_COMMON):
		return classCommon
	case shndx == uint16(elf.SHN_UNDEF):
		if bind == elf.STB_WEAK {
			return classWeakUndef
		}
		return classUndef
	default:
		if bind == elf.STB_WEAK {
			return classWeakDef
		}
		return classStrongDef
	}
}

func classifyIncoming(sym elfclass.RawSym) classification {
	return classifyShndx(sym.Bind(), sym.Shndx)
}

// outcome is what the Resolver decided to do with the incoming symbol.
type outcome int

const (
	outcomeKeepExisting outcome = iota
	outcomeOverwrite
	outcomePromoteUndef // weak-undef existing, plain undef incoming
	outcomeMergeCommon  // both common: take the larger size/align
)

// MultipleDefinitionError reports a strong-vs-strong collision between
// two non-dynamic definitions. Unlike the corpus this carries both
// source locations rather than only the first.
type MultipleDefinitionError struct {
	Name     string
	Existing Source
	Incoming Input
}

func (e *MultipleDefinitionError) Error() string {
	return "multiple definition of '" + diag.FormatSymbolName(e.Name) + "'"
}

// Resolver is pure logic with no I/O and no suspension points; it is
// safe to call only while holding the table's ingestion lock.
type Resolver struct{}

// Resolve decides the effect of merging an incoming raw symbol from obj
// into the existing record, per the ELF binding/visibility/common
// precedence rules. It never mutates existing; the caller applies the
// returned outcome.
func (Resolver) Resolve(existing *SymbolRecord, sym elfclass.RawSym, obj Input) (outcome, error) {
	ec := existing.classification()
	ic := classifyIncoming(sym)

	if ec == classStrongDef && ic == classStrongDef {
		return resolveStrongStrong(existing, obj)
	}

	switch ec {
	case classStrongDef:
		return outcomeKeepExisting, nil
	case classWeakDef:
		switch ic {
		case classStrongDef:
			return outcomeOverwrite, nil
		default:
			return outcomeKeepExisting, nil
		}
	case classCommon:
		switch ic {
		case classStrongDef:
			return outcomeOverwrite, nil
		case classCommon:
			return outcomeMergeCommon, nil
		default:
			return outcomeKeepExisting, nil
		}
	case classUndef:
		switch ic {
		case classUndef, classWeakUndef:
			return outcomeKeepExisting, nil
		default:
			return outcomeOverwrite, nil
		}
	case classWeakUndef:
		switch ic {
		case classUndef:
			return outcomePromoteUndef, nil
		case classWeakUndef:
			return outcomeKeepExisting, nil
		default:
			return outcomeOverwrite, nil
		}
	}
	return outcomeKeepExisting, nil
}

// resolveStrongStrong implements the "a definition in a dynamic object
// never overrides a definition in a relocatable object" rule: whichever
// side is non-dynamic wins as the surviving source, and InDyn is set to
// record that a dynamic definition was also observed. Two static strong
// definitions are a genuine multiple-definition error; two dynamic strong
// definitions are treated as first-wins, matching how shared libraries
// are resolved against each other in practice.
func resolveStrongStrong(existing *SymbolRecord, obj Input) (outcome, error) {
	existingDynamic := isDynamicSource(existing)
	incomingDynamic := obj.IsDynamic()

	switch {
	case !existingDynamic && incomingDynamic:
		return outcomeKeepExisting, nil
	case existingDynamic && !incomingDynamic:
		return outcomeOverwrite, nil
	case existingDynamic && incomingDynamic:
		return outcomeKeepExisting, nil
	default:
		return outcomeKeepExisting, &MultipleDefinitionError{
			Name:     existing.Name,
			Existing: existing.Source,
			Incoming: obj,
		}
	}
}

func isDynamicSource(r *SymbolRecord) bool {
	fo, ok := r.Source.(FromObject)
	return ok && fo.Object.IsDynamic()
}

// mergeVisibility updates existing's visibility/nonvis bits to the
// most-restrictive of the two, unconditionally: gold runs this merge on
// every resolve call, even when the resolution outcome otherwise keeps
// the existing definition untouched.
func mergeVisibility(existing *SymbolRecord, vis elf.SymVis, nonvis uint8) {
	if visRank(vis) > visRank(existing.Visibility) {
		existing.Visibility = vis
	}
	existing.NonVis |= nonvis
}

// visRank orders DEFAULT < PROTECTED < HIDDEN < INTERNAL, most
// restrictive last, per the override table's stated ordering.
func visRank(v elf.SymVis) int {
	switch v {
	case elf.STV_DEFAULT:
		return 0
	case elf.STV_PROTECTED:
		return 1
	case elf.STV_HIDDEN:
		return 2
	case elf.STV_INTERNAL:
		return 3
	default:
		return 0
	}
}
