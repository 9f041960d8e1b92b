package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
)

type BadgerStore struct {
	db     *badger.DB
	format object.Format
	log    logrus.FieldLogger
}

func New(path string, opts ...store.Option) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %w", object.ErrIO, err)
	}
	o := store.Apply(opts...)
	return &BadgerStore{db: db, format: o.Format, log: o.Log}, nil
}

func (s *BadgerStore) Format() object.Format { return s.format }

func (s *BadgerStore) Put(obj *object.Object) (string, error) {
	compressed, sha, err := s.format.Serialize(obj)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}

	stored := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(sha))
		if err == nil {
			return nil // already exists, nothing to do
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stored = true
		return txn.Set([]byte(sha), compressed)
	})
	if err != nil {
		return "", fmt.Errorf("%w: put: %w", object.ErrIO, err)
	}

	if stored {
		s.log.WithFields(logrus.Fields{"sha": sha, "type": obj.Type}).Debug("object stored")
	}
	return sha, nil
}

func (s *BadgerStore) Get(sha string) (*object.Object, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return nil, err
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sha))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, sha)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", object.ErrIO, sha, err)
	}

	return store.Decode(s.format, sha, compressed)
}

func (s *BadgerStore) Exists(sha string) (bool, error) {
	if err := s.format.Hash.Validate(sha); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(sha))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", object.ErrIO, err)
	}
	return true, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
