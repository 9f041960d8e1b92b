// Package commit records history nodes that point at a tree and at most one
// parent commit.
package commit

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

// Config supplies the identity and clock stamped into every commit. A nil
// Clock uses the current time in UTC.
type Config struct {
	Identity string
	Clock    func() time.Time
	Log      logrus.FieldLogger
}

// ErrInvalidIdentity is returned by Compose when the configured identity
// cannot be written into a signature line.
var ErrInvalidIdentity = errors.New("invalid commit identity")

type Composer struct {
	store store.ObjectStore
	cfg   Config
}

func NewComposer(s store.ObjectStore, cfg Config) *Composer {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Log == nil {
		cfg.Log = store.Apply().Log
	}
	return &Composer{store: s, cfg: cfg}
}

// Compose stores a commit of tree with an optional parent ("" for a root
// commit) and returns its key. Neither key is required to exist yet; only
// their form is checked. An identity that could not be parsed back out of
// the commit fails with ErrInvalidIdentity and nothing is written.
func (c *Composer) Compose(tree, parent, message string) (string, error) {
	if err := object.ValidIdentity(c.cfg.Identity); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	algo := c.store.Format().Hash
	if err := algo.Validate(tree); err != nil {
		return "", fmt.Errorf("tree: %w", err)
	}
	if parent != "" {
		if err := algo.Validate(parent); err != nil {
			return "", fmt.Errorf("parent: %w", err)
		}
	}

	sig := object.Signature{Identity: c.cfg.Identity, When: c.cfg.Clock()}
	payload := object.MarshalCommit(&object.Commit{
		Tree:      tree,
		Parent:    parent,
		Author:    sig,
		Committer: sig,
		Message:   message,
	})

	sha, err := store.Write(c.store, object.TypeCommit, payload)
	if err != nil {
		return "", fmt.Errorf("store commit: %w", err)
	}
	c.cfg.Log.WithFields(logrus.Fields{"sha": sha, "tree": tree, "parent": parent}).Debug("commit written")
	return sha, nil
}

// Read decodes the commit stored under sha.
func Read(s store.ObjectStore, sha string) (*object.Commit, error) {
	data, err := store.ReadType(s, sha, object.TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := object.ParseCommit(data)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", sha, err)
	}
	return c, nil
}

// Entry is one step of a history walk.
type Entry struct {
	SHA    string
	Commit *object.Commit
}

// Log follows parent links from sha and returns the chain newest first.
// limit <= 0 walks to the root. Every visited key must resolve to a commit;
// a dangling or mistyped parent fails the walk.
func Log(s store.ObjectStore, sha string, limit int) ([]Entry, error) {
	var out []Entry
	seen := make(map[string]bool)

	for sha != "" {
		if limit > 0 && len(out) >= limit {
			break
		}
		if seen[sha] {
			return out, fmt.Errorf("%w: commit %s: parent cycle", object.ErrCorrupt, sha)
		}
		seen[sha] = true

		c, err := Read(s, sha)
		if err != nil {
			return out, err
		}
		out = append(out, Entry{SHA: sha, Commit: c})
		sha = c.Parent
	}
	return out, nil
}
