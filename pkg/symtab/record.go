// Package symtab implements the global symbol table of a link editor:
// ingestion from relocatable and dynamic objects, ELF resolution rules,
// linker-defined symbols, address finalization, and serialization of the
// global portion of the output ELF symbol table.
package symtab

import (
	"debug/elf"

	"goldsym/pkg/namepool"
)

// Flags is the per-record bitset described alongside SymbolRecord.
type Flags uint8

const (
	FlagTargetSpecial Flags = 1 << iota
	FlagDef
	FlagForwarder
	FlagInDyn
	FlagHasGotOffset
	FlagHasWarning
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

func (f Flags) HasTargetSpecial() bool { return f.has(FlagTargetSpecial) }
func (f Flags) HasDef() bool           { return f.has(FlagDef) }
func (f Flags) HasForwarder() bool     { return f.has(FlagForwarder) }
func (f Flags) HasInDyn() bool         { return f.has(FlagInDyn) }
func (f Flags) HasGotOffset() bool     { return f.has(FlagHasGotOffset) }
func (f Flags) HasWarning() bool       { return f.has(FlagHasWarning) }

// Key identifies a table slot: (name, version). VersionKey == 0 means
// "no version" and is the key used for unversioned lookups.
type Key struct {
	Name    namepool.Key
	Version namepool.Key
}

// SymbolRecord is the per-symbol value object. Once allocated, its Name
// and Version keys never change, so the table key derived from them is
// immutable for the record's lifetime.
type SymbolRecord struct {
	idx int // stable arena identity; see SymbolTable.forwarders.

	NameKey    namepool.Key
	VersionKey namepool.Key
	Name       string
	Version    string // "" when VersionKey == 0

	Type       elf.SymType
	Binding    elf.SymBind
	Visibility elf.SymVis
	NonVis     uint8 // remaining 6 bits of st_other

	Flags     Flags
	GotOffset uint64

	Source Source

	Value   uint64
	Size    uint64

	// Forward is set only when Flags.has(FlagForwarder): the record
	// no longer carries its own state and redirects to the survivor.
	// No record reachable through the hash table may have this set.
	Forward *SymbolRecord

	inCommonsList bool
}

// Index returns the record's stable arena identity.
func (r *SymbolRecord) Index() int { return r.idx }

func (r *SymbolRecord) resolveForward() *SymbolRecord {
	rec := r
	for rec.Flags.has(FlagForwarder) {
		rec = rec.Forward
	}
	return rec
}

func (r *SymbolRecord) isUndefined() bool {
	fo, ok := r.Source.(FromObject)
	return ok && fo.SectionIndex == uint16(elf.SHN_UNDEF)
}

func (r *SymbolRecord) isCommon() bool {
	fo, ok := r.Source.(FromObject)
	return ok && fo.SectionIndex == uint16(elf.SHN_COMMON)
}

func (r *SymbolRecord) isAbs() bool {
	fo, ok := r.Source.(FromObject)
	return ok && fo.SectionIndex == uint16(elf.SHN_ABS)
}

// classification is used by the Resolver; see resolver.go.
func (r *SymbolRecord) classification() classification {
	fo, ok := r.Source.(FromObject)
	if !ok {
		// Linker-defined sources are always treated as strong
		// definitions for resolution purposes.
		return classStrongDef
	}
	return classifyShndx(r.Binding, fo.SectionIndex)
}
