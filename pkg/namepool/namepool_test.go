package namepool_test

import (
	"testing"

	"goldsym/pkg/namepool"
)

func TestInternDedup(t *testing.T) {
	p := namepool.New()
	_, k1 := p.Intern("foo")
	_, k2 := p.Intern("foo")
	_, k3 := p.Intern("bar")

	if k1 != k2 {
		t.Errorf("Intern(\"foo\") twice returned different keys: %d vs %d", k1, k2)
	}
	if k1 == k3 {
		t.Errorf("Intern(\"foo\") and Intern(\"bar\") collided: both %d", k1)
	}
	if k1 == 0 || k3 == 0 {
		t.Error("key 0 is reserved and must never be returned by Intern")
	}
}

func TestInternPrefix(t *testing.T) {
	p := namepool.New()
	raw := []byte("sym@V1")
	s, k := p.InternPrefix(raw, 3)
	if s != "sym" {
		t.Errorf("InternPrefix = %q, want sym", s)
	}
	_, k2 := p.Intern("sym")
	if k != k2 {
		t.Error("InternPrefix(\"sym@V1\", 3) and Intern(\"sym\") must produce the same key")
	}
}

func TestFindNonInserting(t *testing.T) {
	p := namepool.New()
	if _, _, ok := p.Find("absent"); ok {
		t.Error("Find should not report a string that was never interned")
	}
	p.Intern("present")
	if _, _, ok := p.Find("present"); !ok {
		t.Error("Find should report a string that was interned")
	}
}

func TestOutputPoolEmitStable(t *testing.T) {
	op := namepool.NewOutputPool()
	k := namepool.Key(1)
	off1 := op.Emit(k, "hello")
	off2 := op.Emit(k, "hello")
	if off1 != off2 {
		t.Errorf("Emit is not stable across calls for the same key: %d vs %d", off1, off2)
	}
	if op.Size() != len("\x00hello\x00") {
		t.Errorf("pool size = %d, want %d", op.Size(), len("\x00hello\x00"))
	}
}
