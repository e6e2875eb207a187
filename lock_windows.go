// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

//go:build windows
// +build windows

package propstore

import (
	"golang.org/x/sys/windows"
)

// ErrWouldBlock is returned (wrapped) when a file lock is already held
// elsewhere.
var ErrWouldBlock = &likeError{Err: errWouldBlock, Like: windows.ERROR_LOCK_VIOLATION}

func lock(f OSFile, flags lockFlag) error {
	// A handle may hold a shared and an exclusive lock at the same time, and
	// then needs to be unlocked twice. We can't query the lock state, so
	// start from a clean slate every time.
	_ = unlock(f)

	sysFlags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if (flags & lockExcl) != 0 {
		sysFlags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	var overlapped windows.Overlapped
	err := windows.LockFileEx(windows.Handle(f.Fd()), sysFlags, 0, ^uint32(0), ^uint32(0), &overlapped)
	switch err {
	case nil:
		return nil
	case windows.ERROR_LOCK_VIOLATION:
		return wrapSyscallError("LockFileEx", ErrWouldBlock)
	default:
		return wrapSyscallError("LockFileEx", err)
	}
}

func unlock(f OSFile) error {
	var overlapped windows.Overlapped
	return wrapSyscallError("UnlockFileEx", windows.UnlockFileEx(windows.Handle(f.Fd()), 0, ^uint32(0), ^uint32(0), &overlapped))
}
