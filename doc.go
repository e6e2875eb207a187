// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

// The propstore package stores dead properties: arbitrary named values
// attached to resources, which the application hosting them does not manage
// itself.
//
// A Manager keeps them either in memory (NewMemory) or in a durable Shelf
// (NewDurable), behind the same PropertyManager interface. Every Manager is
// safe for concurrent use; its store is opened on first use and must be
// released with Close.
//
// Shelves are single-owner: a file shelf holds an exclusive lock, acquired
// with TryLock, for as long as it is open.
package propstore
