// Package repo ties a root directory, its configuration and its object
// store together. Every path is derived from the explicit root; nothing
// depends on the process working directory.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/commit"
	"git.wyat.me/object-store/config"
	"git.wyat.me/object-store/store"
	"git.wyat.me/object-store/store/badger"
	"git.wyat.me/object-store/store/loose"
	ministore "git.wyat.me/object-store/store/minio"
	"git.wyat.me/object-store/store/sqlite"
	"git.wyat.me/object-store/tree"
)

// ErrNotRepository is returned by Open when the metadata directory is absent.
var ErrNotRepository = errors.New("not a repository")

// ObjectStore is a store that owns resources released by Close.
type ObjectStore interface {
	store.ObjectStore
	Close() error
}

type Repo struct {
	Root   string
	Config *config.Config
	Store  ObjectStore
	Log    logrus.FieldLogger
}

// MetaDir returns the metadata directory below the root.
func (r *Repo) MetaDir() string {
	return filepath.Join(r.Root, r.Config.Core.MetadataDir)
}

// Init creates the metadata layout under root: objects/, refs/, HEAD and a
// config file. It reports whether the repository already existed; an
// existing repository is left untouched apart from missing directories.
func Init(root string, cfg *config.Config) (existed bool, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	meta := filepath.Join(root, cfg.Core.MetadataDir)

	if _, err := os.Stat(meta); err == nil {
		existed = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", meta, err)
	}

	for _, dir := range []string{loose.ObjectsDir, "refs"} {
		if err := os.MkdirAll(filepath.Join(meta, dir), 0o755); err != nil {
			return existed, fmt.Errorf("init: %w", err)
		}
	}
	if existed {
		return true, nil
	}

	if err := os.WriteFile(filepath.Join(meta, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return false, fmt.Errorf("init HEAD: %w", err)
	}
	if err := cfg.Write(filepath.Join(meta, config.FileName)); err != nil {
		return false, err
	}
	return false, nil
}

// Open opens the repository at root with cfg, or with the repository's own
// config file when cfg is nil.
func Open(root string, cfg *config.Config, log logrus.FieldLogger) (*Repo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if cfg == nil {
		if cfg, err = config.LoadRepo(abs); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = store.Apply().Log
	}

	r := &Repo{Root: abs, Config: cfg, Log: log}
	if fi, err := os.Stat(r.MetaDir()); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s has no %s directory", ErrNotRepository, abs, cfg.Core.MetadataDir)
	}

	r.Store, err = OpenStore(r.MetaDir(), cfg, log)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenStore constructs the backend selected by cfg.Storage. Relative
// backend paths are resolved against metaDir.
func OpenStore(metaDir string, cfg *config.Config, log logrus.FieldLogger) (ObjectStore, error) {
	format, err := cfg.Format()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = store.Apply().Log
	}
	opts := []store.Option{store.WithFormat(format), store.WithLogger(log)}

	path := cfg.Storage.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(metaDir, path)
	}

	var s ObjectStore
	switch cfg.Storage.Backend {
	case config.BackendLoose, "":
		s, err = loose.New(metaDir, opts...)
	case config.BackendSQLite:
		s, err = sqlite.New(path, opts...)
	case config.BackendBadger:
		s, err = badger.New(path, opts...)
	case config.BackendMinio:
		m := cfg.Storage.Minio
		s, err = ministore.New(ministore.Config{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		}, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.WithField("backend", cfg.Storage.Backend).Debug("store opened")
	return s, nil
}

// TreeComposer returns a tree composer honouring the repository's metadata
// directory and depth limit.
func (r *Repo) TreeComposer() *tree.Composer {
	return tree.NewComposer(r.Store, tree.Options{
		MetadataDir: r.Config.Core.MetadataDir,
		MaxDepth:    r.Config.Core.MaxDepth,
		Log:         r.Log,
	})
}

// WriteTree snapshots the repository root.
func (r *Repo) WriteTree() (string, error) {
	return r.TreeComposer().Compose(r.Root)
}

// CommitComposer returns a commit composer. An empty identity in cfg takes
// the configured user; a nil clock uses the current UTC time.
func (r *Repo) CommitComposer(cfg commit.Config) *commit.Composer {
	if cfg.Identity == "" {
		cfg.Identity = r.Config.Identity()
	}
	if cfg.Log == nil {
		cfg.Log = r.Log
	}
	return commit.NewComposer(r.Store, cfg)
}

func (r *Repo) Close() error {
	return r.Store.Close()
}
