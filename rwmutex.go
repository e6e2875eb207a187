// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

//go:build !lockdebug
// +build !lockdebug

package propstore

import "sync"

type internalRWMutex struct {
	sync.RWMutex
}
