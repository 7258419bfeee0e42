// Package archive extracts members from a System V (".a") archive.
// Archive member *selection* — deciding which members actually get
// pulled into the link — stays an external concern; this package only
// extracts the member byte ranges and names.
package archive

import (
	"fmt"
	"strconv"
	"strings"
)

const magic = "!<arch>\n"

// headerSize is the fixed-width ar(5) member header: name[16] mtime[12]
// uid[6] gid[6] mode[8] size[10] magic[2].
const headerSize = 60

// Member is one extracted archive entry.
type Member struct {
	Name     string
	Contents []byte
}

// Extract parses data as an ar(1) archive and returns its non-symtab,
// non-extended-name-table members with names resolved against the "//"
// extended name table when present.
func Extract(data []byte) ([]Member, error) {
	if len(data) < len(magic) || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("archive: bad magic")
	}
	data = data[len(magic):]

	var extNames []byte
	var members []Member

	for len(data) > 0 {
		if len(data) < headerSize {
			return nil, fmt.Errorf("archive: truncated header")
		}
		h := data[:headerSize]
		rawName := strings.TrimRight(string(h[0:16]), " ")
		sizeStr := strings.TrimSpace(string(h[48:58]))
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("archive: bad size field %q: %w", sizeStr, err)
		}

		data = data[headerSize:]
		if len(data) < size {
			return nil, fmt.Errorf("archive: truncated member body")
		}
		body := data[:size]
		data = data[size:]
		if size%2 != 0 && len(data) > 0 {
			data = data[1:] // 2-byte alignment padding
		}

		switch {
		case rawName == "/":
			// symbol index member; member selection is external.
			continue
		case rawName == "//":
			extNames = body
			continue
		case strings.HasPrefix(rawName, "/"):
			off, err := strconv.Atoi(rawName[1:])
			if err != nil || extNames == nil {
				return nil, fmt.Errorf("archive: bad extended name reference %q", rawName)
			}
			members = append(members, Member{Name: extendedName(extNames, off), Contents: body})
		default:
			members = append(members, Member{Name: strings.TrimSuffix(rawName, "/"), Contents: body})
		}
	}
	return members, nil
}

func extendedName(table []byte, off int) string {
	if off >= len(table) {
		return ""
	}
	end := off
	for end < len(table) && table[end] != '\n' {
		end++
	}
	return strings.TrimSuffix(string(table[off:end]), "/")
}
