package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Mode is the ASCII file mode recorded in a tree entry.
type Mode string

const (
	ModeFile       Mode = "100644"
	ModeExecutable Mode = "100755"
	ModeDir        Mode = "40000"
	ModeSymlink    Mode = "120000"
)

func (m Mode) valid() bool {
	switch m {
	case ModeFile, ModeExecutable, ModeDir, ModeSymlink:
		return true
	}
	return false
}

// Type returns the kind of object an entry with this mode points at.
func (m Mode) Type() ObjectType {
	if m == ModeDir {
		return TypeTree
	}
	return TypeBlob
}

type TreeEntry struct {
	Mode Mode
	Name string
	SHA  string
}

// ValidEntryName rejects names that would break the entry framing or
// escape the directory they describe.
func ValidEntryName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid tree entry name %q", name)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("tree entry name %q contains a separator", name)
	}
	return nil
}

// SortEntries orders entries by name, byte-wise.
func SortEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

// MarshalTree encodes entries as consecutive "<mode> <name>\x00<digest>"
// records. Entries are sorted first; the input slice is reordered.
func MarshalTree(entries []TreeEntry, algo HashAlgo) ([]byte, error) {
	SortEntries(entries)

	var buf bytes.Buffer
	for i, e := range entries {
		if !e.Mode.valid() {
			return nil, fmt.Errorf("tree entry %q: unknown mode %q", e.Name, e.Mode)
		}
		if err := ValidEntryName(e.Name); err != nil {
			return nil, err
		}
		if i > 0 && entries[i-1].Name == e.Name {
			return nil, fmt.Errorf("duplicate tree entry %q", e.Name)
		}
		if err := algo.Validate(e.SHA); err != nil {
			return nil, fmt.Errorf("tree entry %q: %w", e.Name, err)
		}
		raw, _ := hex.DecodeString(e.SHA)

		buf.WriteString(string(e.Mode))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// ParseTree decodes a tree payload. Every field is bounds-checked; any
// structural problem is ErrCorrupt.
func ParseTree(data []byte, algo HashAlgo) ([]TreeEntry, error) {
	width := algo.Size()
	var entries []TreeEntry

	for i := 0; i < len(data); {
		sp := bytes.IndexByte(data[i:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: tree entry at offset %d: missing mode separator", ErrCorrupt, i)
		}
		mode := Mode(data[i : i+sp])
		if !mode.valid() {
			return nil, fmt.Errorf("%w: tree entry at offset %d: unknown mode %q", ErrCorrupt, i, mode)
		}
		i += sp + 1

		nul := bytes.IndexByte(data[i:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry at offset %d: missing name terminator", ErrCorrupt, i)
		}
		name := string(data[i : i+nul])
		if err := ValidEntryName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		i += nul + 1

		if len(data)-i < width {
			return nil, fmt.Errorf("%w: tree entry %q: truncated digest", ErrCorrupt, name)
		}
		sha := hex.EncodeToString(data[i : i+width])
		i += width

		entries = append(entries, TreeEntry{Mode: mode, Name: name, SHA: sha})
	}
	return entries, nil
}
