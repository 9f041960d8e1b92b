package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

type SQLiteStore struct {
	db     *sql.DB
	format object.Format
	log    logrus.FieldLogger
}

func New(path string, opts ...store.Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", object.ErrIO, err)
	}

	// SQLite only supports one writer at a time. Limiting to a single
	// connection ensures all goroutines serialize through one connection,
	// keeping PRAGMA settings active and avoiding SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// WAL mode allows concurrent reads, serializes writes
	// busy_timeout makes writers wait instead of immediately erroring
	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %w", object.ErrIO, pragma, err)
		}
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS objects (
            sha  TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            data BLOB NOT NULL
        )
    `)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create table: %w", object.ErrIO, err)
	}

	o := store.Apply(opts...)
	return &SQLiteStore{db: db, format: o.Format, log: o.Log}, nil
}

func (s *SQLiteStore) Format() object.Format { return s.format }

func (s *SQLiteStore) Put(obj *object.Object) (sha string, err error) {
	compressed, sha, err := s.format.Serialize(obj)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO objects (sha, type, data) VALUES (?, ?, ?)`,
		sha, string(obj.Type), compressed,
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert: %w", object.ErrIO, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.WithFields(logrus.Fields{"sha": sha, "type": obj.Type}).Debug("object stored")
	}
	return sha, nil
}

func (s *SQLiteStore) Get(sha string) (*object.Object, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return nil, err
	}

	var compressed []byte
	err := s.db.QueryRow(`SELECT data FROM objects WHERE sha = ?`, sha).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, sha)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select: %w", object.ErrIO, err)
	}

	return store.Decode(s.format, sha, compressed)
}

func (s *SQLiteStore) Exists(sha string) (bool, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM objects WHERE sha = ?`, sha).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: exists query: %w", object.ErrIO, err)
	}
	return count > 0, nil
}

// Count returns the number of stored objects, optionally restricted to one
// type. An empty typ counts everything.
func (s *SQLiteStore) Count(typ object.ObjectType) (int, error) {
	var count int
	var err error
	if typ == "" {
		err = s.db.QueryRow(`SELECT COUNT(1) FROM objects`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(1) FROM objects WHERE type = ?`, string(typ)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count query: %w", object.ErrIO, err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
