package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"goldsym/pkg/diag"
)

func TestFatalfCapturesProgramObjectMessage(t *testing.T) {
	d := diag.New("goldsym", &bytes.Buffer{})
	err := d.Fatalf("a.o", "duplicate definition of %s", "foo")
	if err.Program != "goldsym" || err.Object != "a.o" {
		t.Errorf("got Program=%q Object=%q", err.Program, err.Object)
	}
	if err.Message != "duplicate definition of foo" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("Fatalf must capture a stack trace")
	}
	want := "goldsym: a.o: duplicate definition of foo"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFatalfWithoutObject(t *testing.T) {
	d := diag.New("goldsym", &bytes.Buffer{})
	err := d.Fatalf("", "no input files")
	want := "goldsym: no input files"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestReportWritesFatalAndStack(t *testing.T) {
	var buf bytes.Buffer
	d := diag.New("goldsym", &buf)
	err := d.Fatalf("a.o", "bad")
	d.Report(err)
	out := buf.String()
	if !strings.Contains(out, "goldsym:") || !strings.Contains(out, "fatal") || !strings.Contains(out, "bad") {
		t.Errorf("Report output missing expected parts: %q", out)
	}
	if !strings.HasSuffix(out, string(err.Stack)) {
		t.Error("Report must append the captured stack trace")
	}
}

func TestWarnfFormat(t *testing.T) {
	var buf bytes.Buffer
	d := diag.New("goldsym", &buf)
	d.Warnf("a.o:(.text+0x10)", "relocation against %s", "hidden symbol")
	want := "goldsym: a.o:(.text+0x10): warning: relocation against hidden symbol\n"
	if buf.String() != want {
		t.Errorf("Warnf = %q, want %q", buf.String(), want)
	}
}

func TestFormatSymbolNameFallsBackOnPlainName(t *testing.T) {
	if got := diag.FormatSymbolName("plain_symbol"); got != "plain_symbol" {
		t.Errorf("FormatSymbolName(plain) = %q, want unchanged", got)
	}
}
