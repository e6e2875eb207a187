// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

// rwMutex is the reader/writer lock guarding a Manager's store.
//
// It is a sync.RWMutex, unless the package is built with the lockdebug tag,
// in which case lock-order inversions and locks held for too long are
// reported.
type rwMutex struct {
	internalRWMutex
}
