package symtab

import (
	"encoding/binary"

	"goldsym/pkg/elfclass"
)

// Source is the tagged variant describing where a record's final value
// comes from. Modeled as a sum type (an interface with four concrete
// case types) rather than an inheritance hierarchy, so finalize and the
// writer can dispatch on it exhaustively with a type switch.
type Source interface {
	sourceTag()
}

// Input is the external object-reader collaborator: relocatable objects,
// dynamic objects, and the plugin adapter all implement it.
type Input interface {
	IsDynamic() bool
	IsSectionIncluded(shndx uint16) bool
	// OutputSection returns the output section covering shndx, the
	// byte offset of that section's start within it, and whether the
	// section is present at all (false means discarded).
	OutputSection(shndx uint16) (OutputSection, uint64, bool)
	Identity() string
	// Target exposes object.target(): size/endianness info plus the
	// optional target-specific symbol factory new symbols are routed
	// through. May return nil to mean "no target-specific policy,"
	// equivalent to a Target with HasMakeSymbol() == false.
	Target() Target
}

// Target is the architecture policy object an Input reports. Most object
// kinds have no target-specific symbol factory (HasMakeSymbol reports
// false and MakeSymbol is never consulted); a target that does supply
// one can reject a brand-new symbol before it ever occupies a table
// slot — not an error, just a silent drop.
type Target interface {
	GetSize() int
	IsBigEndian() bool
	HasMakeSymbol() bool
	// MakeSymbol decides whether a brand-new (name, version) symbol
	// may be constructed at all. false means reject.
	MakeSymbol(name, version string, isDefault bool, sym elfclass.RawSym, obj Input) bool
}

// GenericTarget is the default Target for object kinds with no
// target-specific symbol factory: it reports size/endianness from the
// object's elfclass.Class and never rejects a symbol.
type GenericTarget struct {
	Class elfclass.Class
}

func (g GenericTarget) GetSize() int {
	if g.Class.Is64() {
		return 64
	}
	return 32
}

func (g GenericTarget) IsBigEndian() bool { return g.Class.Order() == binary.BigEndian }

func (g GenericTarget) HasMakeSymbol() bool { return false }

func (g GenericTarget) MakeSymbol(name, version string, isDefault bool, sym elfclass.RawSym, obj Input) bool {
	return true
}

// OutputSection is the minimal slice of section layout the core reads at
// finalize/write time; real layout and placement are out of scope here.
type OutputSection interface {
	Address() uint64
	OutShndx() uint16
}

// OutputData is an output-data blob a linker-defined symbol can be
// anchored to (e.g. the BSS data blob backing "_edata").
type OutputData interface {
	Address() uint64
	Size() uint64
	OutShndx() uint16
}

// SegmentBase selects which edge of a program header a linker-defined
// symbol anchored to InOutputSegment is measured from.
type SegmentBase int

const (
	SegmentStart SegmentBase = iota
	SegmentEnd
	SegmentBSS
)

// OutputSegment is an output program header a linker-defined symbol can
// be anchored to (e.g. "_end").
type OutputSegment interface {
	VAddr() uint64
	Memsz() uint64
	Filesz() uint64
}

// FromObject: defined by, or undefined in, an input object.
type FromObject struct {
	Object       Input
	SectionIndex uint16 // may be SHN_UNDEF, SHN_ABS, SHN_COMMON, or a real index
}

func (FromObject) sourceTag() {}

// InOutputData: linker-defined, anchored to an output data blob; Value on
// the owning record is the offset within it.
type InOutputData struct {
	Data            OutputData
	OffsetIsFromEnd bool
}

func (InOutputData) sourceTag() {}

// InOutputSegment: linker-defined, anchored to an output segment.
type InOutputSegment struct {
	Segment OutputSegment
	Base    SegmentBase
}

func (InOutputSegment) sourceTag() {}

// Constant: linker-defined absolute constant; Value on the owning record
// is already final.
type Constant struct{}

func (Constant) sourceTag() {}
