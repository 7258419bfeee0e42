// Command goldsym is the thin driver that exercises the global symbol
// table end to end: it reads objects named on the command line, ingests
// their global symbols, finalizes addresses, and writes the resulting
// ELF symbol table bytes. It picks its 32/64 and endian specialization
// from the first input observed.
//
// The flag parsing follows the corpus's own hand-rolled style (manual
// argument walking, no "flag" package) rather than introducing a CLI
// framework the example pack itself never reaches for.
package main

import (
	"fmt"
	"os"

	"goldsym/pkg/diag"
	"goldsym/pkg/namepool"
	"goldsym/pkg/object"
	"goldsym/pkg/symtab"
)

type args struct {
	output  string
	inputs  []string
	dynamic map[string]bool
}

func parseArgs(argv []string) *args {
	a := &args{output: "a.out", dynamic: make(map[string]bool)}
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-o" || arg == "-output":
			i++
			a.output = argv[i]
		case arg == "-shared":
			// accepted and ignored: whether an input is dynamic comes
			// from its ELF type when it is opened
		case len(arg) > 0 && arg[0] == '-':
			// ignore unrecognized flags, matching the corpus's
			// permissive driver
		default:
			a.inputs = append(a.inputs, arg)
			if hasSharedSuffix(arg) {
				a.dynamic[arg] = true
			}
		}
	}
	return a
}

func hasSharedSuffix(name string) bool {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:] == ".so" || contains(name[i:], ".so.")
		}
	}
	return false
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func main() {
	d := diag.New("goldsym", os.Stderr)
	a := parseArgs(os.Args[1:])

	if len(a.inputs) == 0 {
		fmt.Fprintln(os.Stderr, "goldsym: no input files")
		os.Exit(1)
	}

	if err := run(d, a); err != nil {
		if fe, ok := err.(*diag.FatalError); ok {
			d.Report(fe)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(d *diag.Diagnostics, a *args) error {
	var objs []*object.ObjectFile
	defer func() {
		for _, o := range objs {
			o.Close()
		}
	}()

	for _, path := range a.inputs {
		o, err := object.Open(path, d)
		if err != nil {
			return err
		}
		objs = append(objs, o)
	}

	class := objs[0].Class()
	for _, o := range objs[1:] {
		if oc := o.Class(); oc.Is64() != class.Is64() || oc.Order() != class.Order() {
			return d.Fatalf(o.Identity(), "word size or endianness disagrees with %s", objs[0].Identity())
		}
	}
	table := symtab.NewSymbolTable(class, d)

	for _, o := range objs {
		outPointers := make([]*symtab.SymbolRecord, o.SymCount())
		var err error
		if o.IsDynamic() {
			err = table.AddFromDynamicObject(o, o.SymBytes(), o.SymCount(), o.Strtab(), o.Versym(), o.VersionMap())
		} else {
			err = table.AddFromRelocatableObject(o, o.SymBytes(), o.SymCount(), o.Strtab(), outPointers)
		}
		if err != nil {
			return err
		}
	}

	strings := namepool.NewOutputPool()
	endOffset, err := table.Finalize(0, strings)
	if err != nil {
		return err
	}
	_ = endOffset

	out := make([]byte, table.OutputCount()*class.SymSize())
	if err := table.WriteGlobals(strings, out); err != nil {
		return err
	}

	return os.WriteFile(a.output, out, 0o644)
}
