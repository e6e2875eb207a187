// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("properties")

// boltOpenTimeout bounds how long opening waits for another process to
// release the database.
const boltOpenTimeout = time.Second

// boltShelf stores every key in a single bbolt bucket. The database is
// opened with NoSync, so commits only reach stable storage on Sync. A
// read-only shelf over a missing database has a nil db.
type boltShelf struct {
	db       *bolt.DB
	readOnly bool
	closed   bool
}

// OpenBoltShelf opens (creating it if needed) the bbolt database at path for
// reading and writing.
func OpenBoltShelf(path string) (Shelf, error) {
	return openBoltShelf(path, false)
}

// OpenBoltShelfReadOnly opens the bbolt database at path for reading. A
// database that does not exist yet reads as empty.
func OpenBoltShelfReadOnly(path string) (Shelf, error) {
	return openBoltShelf(path, true)
}

func openBoltShelf(path string, readOnly bool) (Shelf, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &boltShelf{readOnly: true}, nil
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{
		Timeout:  boltOpenTimeout,
		NoSync:   true,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt shelf %s: %w", path, err)
	}

	if !readOnly {
		err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(boltBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create bucket in %s: %w", path, err)
		}
	}

	return &boltShelf{db: db, readOnly: readOnly}, nil
}

func (s *boltShelf) Get(key string) (value []byte, ok bool, err error) {
	if s.db == nil {
		return nil, false, nil
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		if v := b.Get([]byte(key)); v != nil {
			value, ok = bytes.Clone(v), true
		}
		return nil
	})
	return value, ok, err
}

func (s *boltShelf) Set(key string, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
}

func (s *boltShelf) Delete(key string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

func (s *boltShelf) Keys() ([]string, error) {
	keys := []string{}
	if s.db == nil {
		return keys, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *boltShelf) Sync() error {
	if s.readOnly || s.closed {
		return nil
	}
	return s.db.Sync()
}

func (s *boltShelf) Close() error {
	if s.closed {
		return nil
	}
	defer func() { s.closed = true }()

	var result *multierror.Error
	if err := s.Sync(); err != nil {
		result = multierror.Append(result, err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
