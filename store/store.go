package store

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/object"
)

// ObjectStore persists immutable objects under the key derived from their
// frame. Put of an already present object is a no-op that returns the same
// key. Get fails with object.ErrNotFound for an absent key and
// object.ErrCorrupt for an undecodable one.
type ObjectStore interface {
	Put(obj *object.Object) (sha string, err error)
	Get(sha string) (*object.Object, error)
	Exists(sha string) (bool, error)
	Format() object.Format
}

// Options are shared by every backend constructor.
type Options struct {
	Format object.Format
	Log    logrus.FieldLogger
}

type Option func(*Options)

func WithFormat(f object.Format) Option {
	return func(o *Options) { o.Format = f }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Log = l }
}

// Apply resolves opts over the defaults: the git-compatible format and a
// logger that discards everything.
func Apply(opts ...Option) Options {
	o := Options{Format: object.DefaultFormat}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = l
	}
	return o
}

// Write stores payload as an object of the given type and returns its key.
func Write(s ObjectStore, typ object.ObjectType, payload []byte) (string, error) {
	return s.Put(&object.Object{Type: typ, Data: payload})
}

// Read returns the type and payload stored under sha.
func Read(s ObjectStore, sha string) (object.ObjectType, []byte, error) {
	obj, err := s.Get(sha)
	if err != nil {
		return "", nil, err
	}
	return obj.Type, obj.Data, nil
}

// ReadType reads sha and fails with object.ErrInvalidKind unless it has type
// want.
func ReadType(s ObjectStore, sha string, want object.ObjectType) ([]byte, error) {
	obj, err := s.Get(sha)
	if err != nil {
		return nil, err
	}
	if obj.Type != want {
		return nil, fmt.Errorf("%w: object %s is a %s, not a %s", object.ErrInvalidKind, sha, obj.Type, want)
	}
	return obj.Data, nil
}

// Decode decompresses a stored value and checks that its frame hashes back
// to sha. A mismatch is object.ErrCorrupt.
func Decode(f object.Format, sha string, compressed []byte) (*object.Object, error) {
	obj, err := f.Deserialize(compressed)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", sha, err)
	}
	if got := f.Hash.Sum(object.Frame(obj)); got != sha {
		return nil, fmt.Errorf("object %s: %w: content hashes to %s", sha, object.ErrCorrupt, got)
	}
	return obj, nil
}
