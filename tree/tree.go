// Package tree snapshots directories into tree objects and reads them back.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

const (
	DefaultMetadataDir = ".git"
	DefaultMaxDepth    = 256
)

// ErrTooDeep is returned when a directory is nested deeper than the
// composer's MaxDepth.
var ErrTooDeep = errors.New("directory nesting exceeds limit")

type Options struct {
	// MetadataDir is skipped wherever it appears. Defaults to ".git".
	MetadataDir string
	// MaxDepth bounds directory nesting below the composed root.
	MaxDepth int
	Log      logrus.FieldLogger
}

// Composer writes blobs and trees for a directory hierarchy into a store.
type Composer struct {
	store    store.ObjectStore
	ignore   string
	maxDepth int
	log      logrus.FieldLogger
}

func NewComposer(s store.ObjectStore, opts Options) *Composer {
	c := &Composer{
		store:    s,
		ignore:   opts.MetadataDir,
		maxDepth: opts.MaxDepth,
		log:      opts.Log,
	}
	if c.ignore == "" {
		c.ignore = DefaultMetadataDir
	}
	if c.maxDepth <= 0 {
		c.maxDepth = DefaultMaxDepth
	}
	if c.log == nil {
		c.log = store.Apply().Log
	}
	return c
}

// pending is a directory whose children are still being stored.
type pending struct {
	path     string
	name     string
	depth    int
	children []fs.DirEntry
	next     int
	entries  []object.TreeEntry
}

// Compose stores every file below dir as a blob, every directory as a tree,
// and returns the key of the tree for dir itself. The walk is depth-first
// over an explicit stack, so nesting is limited by MaxDepth rather than by
// the goroutine stack.
func (c *Composer) Compose(dir string) (string, error) {
	root, err := c.open(dir, "", 0)
	if err != nil {
		return "", err
	}
	stack := []*pending{root}

	for {
		top := stack[len(stack)-1]

		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++

			name := child.Name()
			if name == c.ignore {
				continue
			}
			path := filepath.Join(top.path, name)

			if child.IsDir() {
				if top.depth+1 > c.maxDepth {
					return "", fmt.Errorf("%w: %s (max %d)", ErrTooDeep, path, c.maxDepth)
				}
				sub, err := c.open(path, name, top.depth+1)
				if err != nil {
					return "", err
				}
				stack = append(stack, sub)
				continue
			}

			entry, ok, err := c.leaf(path, child)
			if err != nil {
				return "", err
			}
			if ok {
				top.entries = append(top.entries, entry)
			}
			continue
		}

		sha, err := c.write(top)
		if err != nil {
			return "", err
		}
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return sha, nil
		}
		parent := stack[len(stack)-1]
		parent.entries = append(parent.entries, object.TreeEntry{Mode: object.ModeDir, Name: top.name, SHA: sha})
	}
}

func (c *Composer) open(path, name string, depth int) (*pending, error) {
	children, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir %s: %w", object.ErrIO, path, err)
	}
	return &pending{path: path, name: name, depth: depth, children: children}, nil
}

// leaf stores a non-directory entry. ok is false for entries that are
// skipped: sockets, devices and named pipes.
func (c *Composer) leaf(path string, d fs.DirEntry) (entry object.TreeEntry, ok bool, err error) {
	entry.Name = d.Name()

	var data []byte
	switch {
	case d.Type()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return entry, false, fmt.Errorf("%w: readlink %s: %w", object.ErrIO, path, err)
		}
		entry.Mode = object.ModeSymlink
		data = []byte(target)

	case d.Type().IsRegular():
		info, err := d.Info()
		if err != nil {
			return entry, false, fmt.Errorf("%w: stat %s: %w", object.ErrIO, path, err)
		}
		entry.Mode = object.ModeFile
		if info.Mode().Perm()&0o111 != 0 {
			entry.Mode = object.ModeExecutable
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return entry, false, fmt.Errorf("%w: read %s: %w", object.ErrIO, path, err)
		}

	default:
		c.log.WithFields(logrus.Fields{"path": path, "mode": d.Type().String()}).Warn("skipping special file")
		return entry, false, nil
	}

	entry.SHA, err = store.Write(c.store, object.TypeBlob, data)
	if err != nil {
		return entry, false, fmt.Errorf("store %s: %w", path, err)
	}
	return entry, true, nil
}

func (c *Composer) write(p *pending) (string, error) {
	payload, err := object.MarshalTree(p.entries, c.store.Format().Hash)
	if err != nil {
		return "", fmt.Errorf("tree %s: %w", p.path, err)
	}
	sha, err := store.Write(c.store, object.TypeTree, payload)
	if err != nil {
		return "", fmt.Errorf("store tree %s: %w", p.path, err)
	}
	c.log.WithFields(logrus.Fields{"path": p.path, "sha": sha, "entries": len(p.entries)}).Debug("tree written")
	return sha, nil
}

// Read decodes the tree stored under sha. It fails with
// object.ErrInvalidKind if sha names another kind of object.
func Read(s store.ObjectStore, sha string) ([]object.TreeEntry, error) {
	data, err := store.ReadType(s, sha, object.TypeTree)
	if err != nil {
		return nil, err
	}
	entries, err := object.ParseTree(data, s.Format().Hash)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", sha, err)
	}
	return entries, nil
}

// ListNames returns the entry names of a tree in stored order.
func ListNames(s store.ObjectStore, sha string) ([]string, error) {
	entries, err := Read(s, sha)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}
