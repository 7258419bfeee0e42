// Package diag formats diagnostics the way a link editor reports them:
// "program: object: message" for errors, with fatal errors additionally
// carrying a stack trace for crash reports. Unlike a process-wide
// program_name global, callers thread a *Diagnostics handle through the
// core so the symbol table stays testable.
package diag

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/ianlancetaylor/demangle"
)

// Diagnostics is the sink for link-time messages.
type Diagnostics struct {
	Program string
	Out     io.Writer
}

func New(program string, out io.Writer) *Diagnostics {
	return &Diagnostics{Program: program, Out: out}
}

// FatalError is returned, never panicked, by core operations that cannot
// continue the link. Only the driver's top level turns one into an
// os.Exit; library code must stay testable.
type FatalError struct {
	Program string
	Object  string
	Message string
	Stack   []byte
}

func (e *FatalError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("%s: %s: %s", e.Program, e.Object, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Program, e.Message)
}

// Fatalf builds a *FatalError carrying a captured stack trace, matching
// the crash-report shape of a fatal link error. object may be empty.
func (d *Diagnostics) Fatalf(object, format string, args ...any) *FatalError {
	return &FatalError{
		Program: d.Program,
		Object:  object,
		Message: fmt.Sprintf(format, args...),
		Stack:   debug.Stack(),
	}
}

// Report prints a fatal error in the corpus's register:
// "program:\n\tfatal: <err.Error()>\n" followed by the captured stack.
func (d *Diagnostics) Report(err *FatalError) {
	fmt.Fprintf(d.Out, "%s:\n\t\033[0;1;31mfatal\033[0m: %s\n", err.Program, err.Error())
	d.Out.Write(err.Stack)
}

// Warnf emits a non-fatal diagnostic in the same "program: location:
// warning: text" register relocation-time warning issuance uses.
func (d *Diagnostics) Warnf(location, format string, args ...any) {
	fmt.Fprintf(d.Out, "%s: %s: warning: %s\n", d.Program, location, fmt.Sprintf(format, args...))
}

// FormatSymbolName demangles an Itanium-mangled C++ name for diagnostic
// text, falling back to the raw name when it does not look mangled or
// demangle.Filter declines it.
func FormatSymbolName(name string) string {
	out := demangle.Filter(name, demangle.NoClones)
	if out == "" {
		return name
	}
	return out
}
