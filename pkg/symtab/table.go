package symtab

import (
	"bytes"
	"debug/elf"
	"strings"
	"sync"

	"goldsym/pkg/diag"
	"goldsym/pkg/elfclass"
	"goldsym/pkg/namepool"
)

// LocalSymbolPlaceholder is written into an out_pointers slot for a
// LOCAL-binding symbol in the relocatable ingestion path. It is never
// inserted into the hash table and is distinguishable from "not yet
// processed" (nil), resolving the ambiguity the corpus leaves open for
// locals recorded in out_pointers.
var LocalSymbolPlaceholder = &SymbolRecord{idx: -1}

// SymbolTable is the aggregate: hash table keyed by (name, version),
// ingestion entry points, finalize pass and writer.
type SymbolTable struct {
	class elfclass.Class
	diag  *diag.Diagnostics
	names *namepool.Pool

	mu    sync.Mutex
	table map[Key]*SymbolRecord

	arena      []*SymbolRecord
	forwarders map[int]int // forwarder idx -> survivor idx

	commonsOrder []int // append-only, per Design Notes; filter via CommonsList

	sawUndefinedCount int

	warnings *Warnings

	finalized   bool
	outputCount int
	finalOffset uint64
}

func NewSymbolTable(class elfclass.Class, d *diag.Diagnostics) *SymbolTable {
	st := &SymbolTable{
		class:      class,
		diag:       d,
		names:      namepool.New(),
		table:      make(map[Key]*SymbolRecord),
		forwarders: make(map[int]int),
	}
	st.warnings = newWarnings(st)
	return st
}

// Warnings returns the table's warning side-table.
func (t *SymbolTable) Warnings() *Warnings { return t.warnings }

// AddWarning records a warning association; see Warnings.Add.
func (t *SymbolTable) AddWarning(name string, obj Input, section uint16) {
	t.warnings.Add(name, obj, section)
}

func (t *SymbolTable) newRecord() *SymbolRecord {
	r := &SymbolRecord{idx: len(t.arena)}
	t.arena = append(t.arena, r)
	return r
}

// Lookup returns the canonical (forwarding-resolved) record for
// (name, version). version == "" means the unversioned lookup.
func (t *SymbolTable) Lookup(name, version string) (*SymbolRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(name, version)
}

func (t *SymbolTable) lookupLocked(name, version string) (*SymbolRecord, bool) {
	_, nameKey, ok := t.names.Find(name)
	if !ok {
		return nil, false
	}
	var versionKey namepool.Key
	if version != "" {
		_, versionKey, ok = t.names.Find(version)
		if !ok {
			return nil, false
		}
	}
	rec, ok := t.table[Key{Name: nameKey, Version: versionKey}]
	if !ok {
		return nil, false
	}
	return rec.resolveForward(), true
}

// SawUndefinedCount is the number of add operations that transitioned a
// record from not-undefined to undefined.
func (t *SymbolTable) SawUndefinedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sawUndefinedCount
}

// CommonsList filters the append-only insertion-ordered list down to the
// records whose current classification is still COMMON, deduplicated.
func (t *SymbolTable) CommonsList() []*SymbolRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*SymbolRecord, 0, len(t.commonsOrder))
	for _, idx := range t.commonsOrder {
		rec := t.arena[idx]
		if rec.isCommon() {
			out = append(out, rec)
		}
	}
	return out
}

// --- ingestion ---------------------------------------------------------

// AddFromRelocatableObject ingests every global and weak symbol in a
// relocatable object's symbol table. LOCAL-binding entries are not
// ingested; their outPointers slot receives LocalSymbolPlaceholder.
func (t *SymbolTable) AddFromRelocatableObject(obj Input, symBytes []byte, count int, strtab []byte, outPointers []*SymbolRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	symSize := t.class.SymSize()
	for i := 0; i < count; i++ {
		raw := t.class.DecodeSym(symBytes[i*symSize : (i+1)*symSize])

		if raw.Bind() == elf.STB_LOCAL {
			outPointers[i] = LocalSymbolPlaceholder
			continue
		}

		if int(raw.NameOff) >= len(strtab) {
			return t.diag.Fatalf(obj.Identity(), "symbol name offset %d out of range", raw.NameOff)
		}
		name := cstr(strtab, raw.NameOff)

		if !obj.IsSectionIncluded(raw.Shndx) && raw.Shndx != uint16(elf.SHN_UNDEF) &&
			raw.Shndx != uint16(elf.SHN_ABS) && raw.Shndx != uint16(elf.SHN_COMMON) {
			raw.Shndx = uint16(elf.SHN_UNDEF)
		}

		base, version, isDefault := splitVersionedName(name)

		rec, err := t.addOneLocked(obj, base, version, isDefault, raw)
		if err != nil {
			return err
		}
		outPointers[i] = rec
	}
	return nil
}

// AddFromDynamicObject ingests the exported dynamic symbols of a shared
// object, resolving each against .gnu.version to recover its version
// name and default-version status.
func (t *SymbolTable) AddFromDynamicObject(obj Input, symBytes []byte, count int, strtab []byte, versym []byte, versionMap []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	symSize := t.class.SymSize()
	for i := 0; i < count; i++ {
		raw := t.class.DecodeSym(symBytes[i*symSize : (i+1)*symSize])

		if raw.Bind() == elf.STB_LOCAL {
			continue
		}
		if int(raw.NameOff) >= len(strtab) {
			return t.diag.Fatalf(obj.Identity(), "symbol name offset %d out of range", raw.NameOff)
		}
		name := cstr(strtab, raw.NameOff)

		var version string
		hidden := false
		if versym != nil {
			if (i+1)*2 > len(versym) {
				return t.diag.Fatalf(obj.Identity(), "versym table too small")
			}
			v := t.class.Order().Uint16(versym[i*2 : i*2+2])
			hidden = v&0x8000 != 0
			idx := v &^ 0x8000
			switch idx {
			case 0: // VER_NDX_LOCAL
				continue
			case 1: // VER_NDX_GLOBAL
				version = ""
			default:
				if int(idx) >= len(versionMap) || versionMap[idx] == "" {
					return t.diag.Fatalf(obj.Identity(), "out-of-range version index %d", idx)
				}
				version = versionMap[idx]
			}
		}

		if raw.Shndx == uint16(elf.SHN_ABS) && version == name {
			version = ""
		}

		isDefault := !hidden && raw.Shndx != uint16(elf.SHN_UNDEF)

		if _, err := t.addOneLocked(obj, name, version, isDefault, raw); err != nil {
			return err
		}
	}
	return nil
}

// AddOne exposes add_one directly for input sources that do not carry a
// batch of raw ELF symbol bytes to decode, such as the plugin adapter.
func (t *SymbolTable) AddOne(obj Input, name, version string, isDefault bool, sym elfclass.RawSym) (*SymbolRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addOneLocked(obj, name, version, isDefault, sym)
}

func cstr(tab []byte, off uint32) string {
	end := bytes.IndexByte(tab[off:], 0)
	if end < 0 {
		return string(tab[off:])
	}
	return string(tab[off : off+uint32(end)])
}

// splitVersionedName implements the "name", "name@ver", "name@@ver"
// grammar: exactly one or two '@' characters separate name from version.
func splitVersionedName(s string) (name, version string, isDefault bool) {
	i := strings.IndexByte(s, '@')
	if i < 0 {
		return s, "", false
	}
	if i+1 < len(s) && s[i+1] == '@' {
		return s[:i], s[i+2:], true
	}
	return s[:i], s[i+1:], false
}

// addOneLocked resolves one incoming (name, version) symbol against the
// table, creating, aliasing, or forwarding records as needed. Caller
// holds t.mu.
func (t *SymbolTable) addOneLocked(obj Input, name, version string, isDefault bool, sym elfclass.RawSym) (*SymbolRecord, error) {
	_, nameKey := t.names.Intern(name)
	var versionKey namepool.Key
	if version != "" {
		_, versionKey = t.names.Intern(version)
	}

	k := Key{Name: nameKey, Version: versionKey}
	k0 := Key{Name: nameKey, Version: 0}

	slot, existedK := t.table[k]

	var slot0 *SymbolRecord
	existedK0 := true
	if isDefault {
		slot0, existedK0 = t.table[k0]
	}

	var rec *SymbolRecord
	var resolveErr error
	var wasUndefined bool

	switch {
	case existedK:
		rec = slot
		wasUndefined = rec.isUndefined()
		resolveErr = t.resolveInto(rec, sym, obj)
		if isDefault {
			if !existedK0 {
				t.table[k0] = rec
			} else if slot0 != rec {
				// Two independently-tracked records denote the
				// same symbol: merge slot0 into rec, then turn
				// slot0 into a forwarder.
				if err := t.resolveInto(rec, reconstructRawSym(t.class, slot0), sourceObject(slot0)); err != nil {
					resolveErr = err
				}
				t.makeForwarder(slot0, rec)
				t.table[k0] = rec
			}
		}

	case !isDefault: // new k, not default
		if !t.targetAccepts(obj, name, version, isDefault, sym) {
			return nil, nil
		}
		rec = t.newRecord()
		t.initFromObject(rec, name, nameKey, version, versionKey, sym, obj)
		t.table[k] = rec

	case isDefault && existedK0: // new k, default, k0 pre-existed
		rec = slot0
		wasUndefined = rec.isUndefined()
		t.table[k] = rec
		resolveErr = t.resolveInto(rec, sym, obj)

	default: // new k, default, new k0
		if !t.targetAccepts(obj, name, version, isDefault, sym) {
			return nil, nil
		}
		rec = t.newRecord()
		t.initFromObject(rec, name, nameKey, version, versionKey, sym, obj)
		t.table[k] = rec
		t.table[k0] = rec
	}

	t.trackDerivedState(rec, wasUndefined)

	if resolveErr != nil {
		return rec, resolveErr
	}
	return rec, nil
}

// targetAccepts consults obj's target factory, if it has one, before a
// brand-new record is constructed. Since no table slot is written for
// a brand-new (name, version) key until after this check passes, a
// rejection needs no separate erase step — the slot simply never gets
// inserted, which is the map-delete's end state without the delete.
func (t *SymbolTable) targetAccepts(obj Input, name, version string, isDefault bool, sym elfclass.RawSym) bool {
	tgt := obj.Target()
	if tgt == nil || !tgt.HasMakeSymbol() {
		return true
	}
	return tgt.MakeSymbol(name, version, isDefault, sym, obj)
}

func (t *SymbolTable) initFromObject(rec *SymbolRecord, name string, nameKey namepool.Key, version string, versionKey namepool.Key, sym elfclass.RawSym, obj Input) {
	rec.Name = name
	rec.NameKey = nameKey
	rec.Version = version
	rec.VersionKey = versionKey
	rec.Type = sym.Type()
	rec.Binding = normalizeBinding(sym.Bind())
	rec.Visibility = sym.Vis()
	rec.NonVis = sym.Other >> 2
	rec.Value = sym.Value
	rec.Size = sym.Size
	rec.Source = FromObject{Object: obj, SectionIndex: sym.Shndx}
	rec.Flags |= FlagDef
	if obj.IsDynamic() {
		rec.Flags |= FlagInDyn
	}
}

func normalizeBinding(b elf.SymBind) elf.SymBind {
	if b == elf.STB_LOCAL {
		return elf.STB_GLOBAL
	}
	return b
}

// resolveInto runs the Resolver against rec and applies its outcome.
func (t *SymbolTable) resolveInto(rec *SymbolRecord, sym elfclass.RawSym, obj Input) error {
	var r Resolver
	oc, err := r.Resolve(rec, sym, obj)
	mergeVisibility(rec, sym.Vis(), sym.Other>>2)

	switch oc {
	case outcomeOverwrite, outcomePromoteUndef:
		wasCommon := rec.isCommon()
		rec.Type = sym.Type()
		rec.Binding = normalizeBinding(sym.Bind())
		rec.Value = sym.Value
		rec.Size = sym.Size
		rec.Source = FromObject{Object: obj, SectionIndex: sym.Shndx}
		rec.Flags |= FlagDef
		if obj.IsDynamic() {
			rec.Flags |= FlagInDyn
		}
		_ = wasCommon
	case outcomeMergeCommon:
		if sym.Value > rec.Value { // Value doubles as alignment for commons here
			rec.Value = sym.Value
		}
		if sym.Size > rec.Size {
			rec.Size = sym.Size
		}
		if obj.IsDynamic() {
			rec.Flags |= FlagInDyn
		}
	case outcomeKeepExisting:
		if fo, ok := rec.Source.(FromObject); ok && !fo.Object.IsDynamic() && obj.IsDynamic() {
			rec.Flags |= FlagInDyn
		}
	}
	return err
}

// trackDerivedState maintains saw_undefined_count and commons_list.
// wasUndefined is the record's undefined state before this add's
// resolution ran (false for a brand-new record, which by construction
// had no prior state) — the count must only increment on the
// not-undefined-to-undefined transition, not on every add that merely
// leaves an already-undefined record undefined.
func (t *SymbolTable) trackDerivedState(rec *SymbolRecord, wasUndefined bool) {
	if !wasUndefined && rec.isUndefined() {
		t.sawUndefinedCount++
	}
	if rec.isCommon() && !rec.inCommonsList {
		rec.inCommonsList = true
		t.commonsOrder = append(t.commonsOrder, rec.idx)
	}
}

func (t *SymbolTable) makeForwarder(from, to *SymbolRecord) {
	from.Flags |= FlagForwarder
	from.Forward = to
	t.forwarders[from.idx] = to.idx
}

// reconstructRawSym rebuilds an ELF-shaped raw symbol from an
// already-stored record, for the rare re-resolution path where two
// independently tracked records turn out to be the same symbol.
func reconstructRawSym(class elfclass.Class, rec *SymbolRecord) elfclass.RawSym {
	shndx := uint16(elf.SHN_ABS)
	if fo, ok := rec.Source.(FromObject); ok {
		shndx = fo.SectionIndex
	}
	return elfclass.RawSym{
		Info:  elfclass.MakeInfo(rec.Binding, rec.Type),
		Other: elfclass.MakeOther(rec.Visibility, rec.NonVis),
		Shndx: shndx,
		Value: rec.Value,
		Size:  rec.Size,
	}
}

func sourceObject(rec *SymbolRecord) Input {
	if fo, ok := rec.Source.(FromObject); ok {
		return fo.Object
	}
	return nil
}

// --- linker-defined symbols ---------------------------------------------

// DefineInOutputData defines (or redefines an only-if-referenced
// placeholder for) a symbol whose value tracks an output data blob.
func (t *SymbolTable) DefineInOutputData(name string, data OutputData, value uint64, offsetIsFromEnd, onlyIfRef bool, typ elf.SymType, vis elf.SymVis) (*SymbolRecord, error) {
	return t.defineLinkerSymbol(name, onlyIfRef, func(rec *SymbolRecord) {
		rec.Source = InOutputData{Data: data, OffsetIsFromEnd: offsetIsFromEnd}
		rec.Value = value
		rec.Type = typ
		rec.Binding = elf.STB_GLOBAL
		rec.Visibility = vis
		rec.Flags |= FlagDef
	})
}

// DefineInOutputSegment defines a symbol whose value tracks the start,
// end, or BSS boundary of an output segment.
func (t *SymbolTable) DefineInOutputSegment(name string, seg OutputSegment, value uint64, base SegmentBase, onlyIfRef bool, typ elf.SymType, vis elf.SymVis) (*SymbolRecord, error) {
	return t.defineLinkerSymbol(name, onlyIfRef, func(rec *SymbolRecord) {
		rec.Source = InOutputSegment{Segment: seg, Base: base}
		rec.Value = value
		rec.Type = typ
		rec.Binding = elf.STB_GLOBAL
		rec.Visibility = vis
		rec.Flags |= FlagDef
	})
}

// DefineAsConstant defines a symbol with a fixed, immediately-known value.
func (t *SymbolTable) DefineAsConstant(name string, value uint64, onlyIfRef bool, typ elf.SymType, vis elf.SymVis) (*SymbolRecord, error) {
	return t.defineLinkerSymbol(name, onlyIfRef, func(rec *SymbolRecord) {
		rec.Source = Constant{}
		rec.Value = value
		rec.Type = typ
		rec.Binding = elf.STB_GLOBAL
		rec.Visibility = vis
		rec.Flags |= FlagDef
	})
}

// DefineSymbolsInSection batches DefineInOutputData across descriptors,
// falling back to a zero-value constant when a section is absent from
// this link, per symtab.cc's Define_symbol_in_section helper.
func (t *SymbolTable) DefineSymbolsInSection(defs []OutputDataSymbolDef) error {
	for _, d := range defs {
		if d.Data == nil {
			if _, err := t.DefineAsConstant(d.Name, 0, d.OnlyIfRef, d.Type, d.Visibility); err != nil {
				return err
			}
			continue
		}
		if _, err := t.DefineInOutputData(d.Name, d.Data, d.Value, d.OffsetIsFromEnd, d.OnlyIfRef, d.Type, d.Visibility); err != nil {
			return err
		}
	}
	return nil
}

// OutputDataSymbolDef is one entry of a DefineSymbolsInSection batch.
type OutputDataSymbolDef struct {
	Name            string
	Data            OutputData
	Value           uint64
	OffsetIsFromEnd bool
	OnlyIfRef       bool
	Type            elf.SymType
	Visibility      elf.SymVis
}

func (t *SymbolTable) defineLinkerSymbol(name string, onlyIfRef bool, init func(*SymbolRecord)) (*SymbolRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, nameKey := t.names.Intern(name)
	k := Key{Name: nameKey, Version: 0}

	if onlyIfRef {
		rec, ok := t.table[k]
		if !ok {
			return nil, nil
		}
		rec = rec.resolveForward()
		if !rec.isUndefined() {
			return nil, nil
		}
		init(rec)
		return rec, nil
	}

	if rec, ok := t.table[k]; ok {
		rec = rec.resolveForward()
		if fo, isFO := rec.Source.(FromObject); isFO {
			real := fo.SectionIndex != uint16(elf.SHN_UNDEF) && fo.SectionIndex != uint16(elf.SHN_COMMON) && !fo.Object.IsDynamic()
			if real {
				return nil, &MultipleDefinitionError{Name: name, Existing: rec.Source}
			}
		}
		init(rec)
		return rec, nil
	}

	rec := t.newRecord()
	rec.Name = name
	rec.NameKey = nameKey
	init(rec)
	t.table[k] = rec
	return rec, nil
}
