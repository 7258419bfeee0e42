package archive_test

import (
	"bytes"
	"fmt"
	"testing"

	"goldsym/pkg/archive"
)

// buildArchive assembles a minimal ar(1) archive in memory with plain
// (non-extended) short member names, for testing without a real ar(1)
// binary available.
func buildArchive(members map[string]string, order []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	for _, name := range order {
		body := members[name]
		header := make([]byte, 60)
		copy(header, []byte(fmt.Sprintf("%-16s", name+"/")))
		copy(header[16:], []byte(fmt.Sprintf("%-12s", "0")))
		copy(header[28:], []byte(fmt.Sprintf("%-6s", "0")))
		copy(header[34:], []byte(fmt.Sprintf("%-6s", "0")))
		copy(header[40:], []byte(fmt.Sprintf("%-8s", "644")))
		copy(header[48:], []byte(fmt.Sprintf("%-10d", len(body))))
		header[58] = '`'
		header[59] = '\n'
		buf.Write(header)
		buf.WriteString(body)
		if len(body)%2 != 0 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func TestExtractMembers(t *testing.T) {
	order := []string{"a.o", "bb.o"}
	data := buildArchive(map[string]string{"a.o": "AAAA", "bb.o": "BBB"}, order)

	members, err := archive.Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Name != "a.o" || string(members[0].Contents) != "AAAA" {
		t.Errorf("member 0 = %+v", members[0])
	}
	if members[1].Name != "bb.o" || string(members[1].Contents) != "BBB" {
		t.Errorf("member 1 = %+v", members[1])
	}
}

func TestExtractRejectsBadMagic(t *testing.T) {
	if _, err := archive.Extract([]byte("not an archive")); err == nil {
		t.Error("expected an error for a non-archive input")
	}
}
