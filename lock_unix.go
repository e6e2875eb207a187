// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

//go:build unix
// +build unix

package propstore

import (
	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned (wrapped) when a file lock is already held
// elsewhere. On unix it also matches unix.EWOULDBLOCK.
var ErrWouldBlock = &likeError{Err: errWouldBlock, Like: unix.EWOULDBLOCK}

func lock(f OSFile, flags lockFlag) error {
	sysFlags := unix.LOCK_NB
	if (flags & lockExcl) != 0 {
		sysFlags |= unix.LOCK_EX
	} else {
		sysFlags |= unix.LOCK_SH
	}

	for {
		err := unix.Flock(int(f.Fd()), sysFlags)
		switch err {
		case nil:
			return nil
		case unix.EWOULDBLOCK:
			return wrapSyscallError("flock", ErrWouldBlock)
		case unix.EINTR:
			// Non-blocking flock can still be interrupted by a signal before
			// it gets to test the lock; just try again.
		default:
			return wrapSyscallError("flock", err)
		}
	}
}

func unlock(f OSFile) error {
	return wrapSyscallError("flock", unix.Flock(int(f.Fd()), unix.LOCK_UN))
}
