package symtab

import (
	"sync"

	"goldsym/pkg/diag"
)

// sectionReader is the minimal collaborator Warnings needs to pull the
// byte contents of a warning section out of its owning object; ingestion
// itself never reads section bytes so this is kept separate from Input.
type sectionReader interface {
	SectionContents(shndx uint16) []byte
}

type warningEntry struct {
	name    string
	obj     Input
	section uint16
	text    string
	ready   bool
}

// Warnings is the side table associating a name with warning text.
// Population at finalize time takes a per-object lock because
// reading section contents is not safe concurrently with other object
// operations; emission during relocation is lock-free because the text
// is frozen by the end of finalize.
type Warnings struct {
	table *SymbolTable

	mu      sync.Mutex
	entries []*warningEntry

	objLocks   map[Input]*sync.Mutex
	objLocksMu sync.Mutex
}

func newWarnings(t *SymbolTable) *Warnings {
	return &Warnings{table: t, objLocks: make(map[Input]*sync.Mutex)}
}

// Add implements add_warning: records the association. name is interned
// so that Populate and Issue agree on the exact same canonical string.
func (w *Warnings) Add(name string, obj Input, section uint16) {
	canonical, _ := w.table.names.Intern(name)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, &warningEntry{name: canonical, obj: obj, section: section})
}

// Populate implements note_warnings: for each recorded warning whose name
// still resolves to a record sourced from the same object, reads the
// section contents once under a per-object lock and freezes the text,
// setting the record's HasWarning flag.
func (w *Warnings) Populate(reader sectionReader) {
	w.mu.Lock()
	entries := w.entries
	w.mu.Unlock()

	for _, e := range entries {
		w.table.mu.Lock()
		rec, ok := w.table.lookupLocked(e.name, "")
		w.table.mu.Unlock()
		if !ok {
			continue
		}
		fo, isFO := rec.Source.(FromObject)
		if !isFO || fo.Object != e.obj {
			continue
		}

		lock := w.objectLock(e.obj)
		lock.Lock()
		e.text = string(reader.SectionContents(e.section))
		e.ready = true
		lock.Unlock()

		rec.Flags |= FlagHasWarning
	}
}

func (w *Warnings) objectLock(obj Input) *sync.Mutex {
	w.objLocksMu.Lock()
	defer w.objLocksMu.Unlock()
	l, ok := w.objLocks[obj]
	if !ok {
		l = &sync.Mutex{}
		w.objLocks[obj] = l
	}
	return l
}

// Issue implements issue_warning: invoked by relocation processing when a
// reference to a warned-about record is seen. Lock-free: by the time
// relocation runs, Populate has already completed and entries are frozen.
func (w *Warnings) Issue(d *diag.Diagnostics, rec *SymbolRecord, location string) {
	if !rec.Flags.has(FlagHasWarning) {
		return
	}
	for _, e := range w.entries {
		if e.ready && e.name == rec.Name {
			d.Warnf(location, "%s: %s", diag.FormatSymbolName(rec.Name), e.text)
			return
		}
	}
}
