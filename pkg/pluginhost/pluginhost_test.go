package pluginhost_test

import (
	"debug/elf"
	"testing"

	"goldsym/pkg/pluginhost"
)

func TestAdapterNeverManufacturesASection(t *testing.T) {
	a := pluginhost.New("plugin.so", nil)
	if a.IsDynamic() {
		t.Error("plugin adapter must not report itself as dynamic")
	}
	sec, addr, ok := a.OutputSection(1)
	if sec != nil || addr != 0 || ok {
		t.Errorf("OutputSection = (%v, %d, %v), want (nil, 0, false)", sec, addr, ok)
	}
}

func TestClaimedSymbolShndx(t *testing.T) {
	undef := pluginhost.ClaimedSymbol{Name: "foo", Defined: false}
	if undef.Shndx() != uint16(elf.SHN_UNDEF) {
		t.Errorf("undefined claimed symbol reported shndx %d, want SHN_UNDEF", undef.Shndx())
	}

	def := pluginhost.ClaimedSymbol{Name: "bar", Defined: true, Value: 0x1000}
	if def.Shndx() != uint16(elf.SHN_ABS) {
		t.Errorf("defined claimed symbol reported shndx %d, want SHN_ABS", def.Shndx())
	}
}

func TestAdapterIdentityAndSymbols(t *testing.T) {
	syms := []pluginhost.ClaimedSymbol{{Name: "foo", Defined: true}}
	a := pluginhost.New("plugin.so", syms)
	if a.Identity() != "plugin.so" {
		t.Errorf("Identity() = %q, want plugin.so", a.Identity())
	}
	if len(a.Symbols()) != 1 || a.Symbols()[0].Name != "foo" {
		t.Errorf("Symbols() = %+v", a.Symbols())
	}
}
