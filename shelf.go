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
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrReadOnly is returned by Set and Delete on a shelf opened read-only.
	ErrReadOnly = errors.New("shelf is read-only")

	errShelfClosed = errors.New("shelf is closed")
)

// A Shelf is a durable key-value file. It only notices changes made through
// Set and Delete: a value that was returned by Get and then modified must be
// Set again under its key.
//
// Changes are only guaranteed to have reached stable storage once Sync
// returns. A Shelf is not safe for concurrent writers; concurrent calls to
// Get and Keys are fine as long as no Set, Delete, Sync or Close runs at the
// same time.
type Shelf interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Sync() error
	Close() error
}

// A ShelfOpener opens the shelf stored at path.
type ShelfOpener func(path string) (Shelf, error)

// fileShelf keeps the whole shelf in memory and rewrites the file atomically
// on Sync. While open, it holds a lock on the companion file path+".lock":
// exclusive when writable, shared when read-only.
type fileShelf struct {
	path     string
	lockf    *os.File
	readOnly bool
	data     map[string][]byte
	dirty    bool
	closed   bool
}

// OpenFileShelf opens (creating it if needed) the file shelf at path for
// reading and writing.
//
// It fails with an error wrapping ErrWouldBlock if the shelf is already open
// elsewhere, be it in this process or another one.
func OpenFileShelf(path string) (Shelf, error) {
	s, err := openFileShelf(path, false)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFileShelfReadOnly opens the file shelf at path for reading. Any number
// of read-only openers may share a shelf, but not with a writable one.
func OpenFileShelfReadOnly(path string) (Shelf, error) {
	s, err := openFileShelf(path, true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openFileShelf(path string, readOnly bool) (_ *fileShelf, err error) {
	flags := os.O_RDWR | os.O_CREATE
	lockfn := TryLock
	if readOnly {
		flags = os.O_RDONLY | os.O_CREATE
		lockfn = TryRLock
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	lockf, err := os.OpenFile(path+".lock", flags, 0o644)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			lockf.Close()
		}
	}()

	if err := lockfn(lockf); err != nil {
		return nil, err
	}

	data := make(map[string][]byte)
	if err := loadFile(path, JSONCodec, &data); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load shelf %s: %w", path, err)
	}
	if data == nil {
		data = make(map[string][]byte)
	}

	return &fileShelf{
		path:     path,
		lockf:    lockf,
		readOnly: readOnly,
		data:     data,
	}, nil
}

func (s *fileShelf) Get(key string) ([]byte, bool, error) {
	if s.closed {
		return nil, false, errShelfClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (s *fileShelf) Set(key string, value []byte) error {
	switch {
	case s.closed:
		return errShelfClosed
	case s.readOnly:
		return ErrReadOnly
	}
	s.data[key] = bytes.Clone(value)
	s.dirty = true
	return nil
}

func (s *fileShelf) Delete(key string) error {
	switch {
	case s.closed:
		return errShelfClosed
	case s.readOnly:
		return ErrReadOnly
	}
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.dirty = true
	}
	return nil
}

func (s *fileShelf) Keys() ([]string, error) {
	if s.closed {
		return nil, errShelfClosed
	}
	return slices.Sorted(maps.Keys(s.data)), nil
}

func (s *fileShelf) Sync() error {
	if s.closed || !s.dirty {
		return nil
	}
	if err := storeFile(s.path, 0o644, JSONCodec, s.data); err != nil {
		return fmt.Errorf("sync shelf %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}

func (s *fileShelf) Close() error {
	if s.closed {
		return nil
	}

	var result *multierror.Error
	if err := s.Sync(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := Unlock(s.lockf); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.lockf.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	s.closed = true
	s.data = nil
	return result.ErrorOrNil()
}
