package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature is an identity plus the moment it acted.
type Signature struct {
	Identity string
	When     time.Time
}

// String renders "<identity> <unix seconds> <+hhmm>".
func (s Signature) String() string {
	_, offset := s.When.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%s %d %c%02d%02d", s.Identity, s.When.Unix(), sign, offset/3600, (offset%3600)/60)
}

// ValidIdentity checks that identity can be stored in a signature line and
// read back unchanged: no line breaks or NULs, and at most one "<email>"
// part, which must close the identity.
func ValidIdentity(identity string) error {
	if strings.ContainsAny(identity, "\n\r\x00") {
		return fmt.Errorf("identity %q contains a line break or NUL", identity)
	}
	lt := strings.Count(identity, "<")
	gt := strings.Count(identity, ">")
	switch {
	case lt == 0 && gt == 0:
		return nil
	case lt != 1 || gt != 1:
		return fmt.Errorf("identity %q must contain at most one <email>", identity)
	case strings.Index(identity, "<") > strings.Index(identity, ">") || !strings.HasSuffix(identity, ">"):
		return fmt.Errorf("identity %q must end with <email>", identity)
	}
	return nil
}

func parseSignature(s string) (Signature, error) {
	zi := strings.LastIndexByte(s, ' ')
	if zi < 0 {
		return Signature{}, fmt.Errorf("signature %q: missing timezone", s)
	}
	ti := strings.LastIndexByte(s[:zi], ' ')
	if ti < 0 {
		return Signature{}, fmt.Errorf("signature %q: missing timestamp", s)
	}

	secs, err := strconv.ParseInt(s[ti+1:zi], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("signature %q: timestamp: %v", s, err)
	}
	tz := s[zi+1:]
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return Signature{}, fmt.Errorf("signature %q: bad timezone %q", s, tz)
	}
	hh, err1 := strconv.Atoi(tz[1:3])
	mm, err2 := strconv.Atoi(tz[3:5])
	if err1 != nil || err2 != nil {
		return Signature{}, fmt.Errorf("signature %q: bad timezone %q", s, tz)
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}

	return Signature{
		Identity: s[:ti],
		When:     time.Unix(secs, 0).In(time.FixedZone(tz, offset)),
	}, nil
}

// Commit is a history node. Parent is empty for a root commit.
type Commit struct {
	Tree      string
	Parent    string
	Author    Signature
	Committer Signature
	Message   string
}

// MarshalCommit renders the textual commit payload:
//
//	tree <sha>
//	parent <sha>        (only when Parent is set)
//	author <signature>
//	committer <signature>
//
//	<message>
func MarshalCommit(c *Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ParseCommit decodes a commit payload produced by MarshalCommit.
func ParseCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: commit: missing header/message separator", ErrCorrupt)
	}
	header := string(data[:idx])
	c := &Commit{Message: strings.TrimSuffix(string(data[idx+2:]), "\n")}

	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: commit: malformed header line %q", ErrCorrupt, line)
		}
		switch key {
		case "tree":
			c.Tree = val
		case "parent":
			if c.Parent != "" {
				return nil, fmt.Errorf("%w: commit: more than one parent", ErrCorrupt)
			}
			c.Parent = val
		case "author", "committer":
			sig, err := parseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("%w: commit: %v", ErrCorrupt, err)
			}
			if key == "author" {
				c.Author = sig
			} else {
				c.Committer = sig
			}
		}
	}
	if c.Tree == "" {
		return nil, fmt.Errorf("%w: commit: missing tree", ErrCorrupt)
	}
	return c, nil
}
