// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"errors"
	"os"
)

var errWouldBlock = errors.New("acquiring the lock would block")

// OSFile is an interface representing a file from which a file handle
// may be obtained. *os.File implements it.
type OSFile interface {
	Name() string
	Fd() uintptr
}

type lockFlag int

const (
	lockExcl lockFlag = 1 << iota
)

// TryLock attempts to acquire an exclusive lock on the specified file without
// waiting.
//
// If another handle holds a lock on the file, TryLock returns an error
// wrapping ErrWouldBlock. File shelves take this lock on their companion
// lock file for as long as they are open.
func TryLock(f OSFile) error {
	return wrapPathError("exclusive lock (non-blocking)", f.Name(), lock(f, lockExcl))
}

// TryRLock attempts to acquire a shared lock on the specified file without
// waiting.
//
// If another handle holds an exclusive lock on the file, TryRLock returns an
// error wrapping ErrWouldBlock.
func TryRLock(f OSFile) error {
	return wrapPathError("shared lock (non-blocking)", f.Name(), lock(f, 0))
}

// Unlock releases the lock on the specified file.
//
// Closing the file also releases the lock; shelves unlock explicitly so that
// a failure to do so is reported by Close.
func Unlock(f OSFile) error {
	return wrapPathError("unlock", f.Name(), unlock(f))
}

func wrapSyscallError(op string, err error) error {
	if err != nil {
		return &os.SyscallError{Syscall: op, Err: err}
	}
	return nil
}

func wrapPathError(op, path string, err error) error {
	if err != nil {
		return &os.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}
