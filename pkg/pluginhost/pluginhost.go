// Package pluginhost adapts a linker plugin's claimed symbols into the
// same symtab.Input shape a real object provides, standing in for the
// corpus's BFD plugin loader. Per the design notes this must not
// manufacture a fake ".text"/"COMMON" section for synthesized symbols:
// a claimed symbol with no real home simply reports SHN_UNDEF.
package pluginhost

import (
	"debug/elf"

	"goldsym/pkg/elfclass"
	"goldsym/pkg/symtab"
)

// ClaimedSymbol is one symbol a plugin claims to define or reference,
// the Go shape of the corpus's ld_plugin_symbol.
type ClaimedSymbol struct {
	Name       string
	Binding    elf.SymBind
	Visibility elf.SymVis
	Type       elf.SymType
	Defined    bool // false => reported as SHN_UNDEF, never a fake section
	Value      uint64
	Size       uint64
}

// Adapter implements symtab.Input for a plugin's claimed-symbol set. It
// is never dynamic and never reports a section as included beyond
// SHN_UNDEF/SHN_ABS, because it has no real section table to back one.
type Adapter struct {
	name     string
	symbols  []ClaimedSymbol
}

func New(name string, symbols []ClaimedSymbol) *Adapter {
	return &Adapter{name: name, symbols: symbols}
}

func (a *Adapter) IsDynamic() bool { return false }

func (a *Adapter) IsSectionIncluded(shndx uint16) bool {
	return shndx == uint16(elf.SHN_UNDEF) || shndx == uint16(elf.SHN_ABS)
}

// OutputSection always reports absent: the plugin adapter never owns a
// real section, so every claimed symbol resolves through SHN_UNDEF or
// SHN_ABS rather than a manufactured placeholder section.
func (a *Adapter) OutputSection(shndx uint16) (symtab.OutputSection, uint64, bool) {
	return nil, 0, false
}

func (a *Adapter) Identity() string { return a.name }

// Target reports object.target(): the plugin adapter has no real ELF
// class behind it and no target-specific symbol factory.
func (a *Adapter) Target() symtab.Target { return pluginTarget{} }

// pluginTarget is the plugin adapter's Target: no size/endianness of
// its own to report, and HasMakeSymbol is always false.
type pluginTarget struct{}

func (pluginTarget) GetSize() int      { return 0 }
func (pluginTarget) IsBigEndian() bool { return false }
func (pluginTarget) HasMakeSymbol() bool { return false }
func (pluginTarget) MakeSymbol(name, version string, isDefault bool, sym elfclass.RawSym, obj symtab.Input) bool {
	return true
}

// Symbols returns the claimed symbols so a driver can feed them through
// SymbolTable.AddFromRelocatableObject-equivalent ingestion; the plugin
// adapter does not carry raw ELF symbol bytes, so ingestion here is a
// direct per-symbol call rather than a batch decode.
func (a *Adapter) Symbols() []ClaimedSymbol { return a.symbols }

// Shndx reports the section index this claimed symbol should ingest
// with: SHN_UNDEF when not defined, SHN_ABS otherwise, since the plugin
// adapter never has a real section to attach a definition to.
func (s ClaimedSymbol) Shndx() uint16 {
	if !s.Defined {
		return uint16(elf.SHN_UNDEF)
	}
	return uint16(elf.SHN_ABS)
}
