// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"github.com/hashicorp/go-hclog"
)

// An Option configures a Manager.
type Option func(*options)

type options struct {
	logger  hclog.Logger
	verbose int
	codec   Codec
	shelf   ShelfOpener
}

func newOptions(opts []Option) options {
	o := options{
		logger: hclog.NewNullLogger(),
		codec:  JSONCodec,
		shelf:  OpenFileShelf,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger makes the Manager log to l, under the name "propstore".
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithVerbose sets the diagnostic level. From level 2 on, the Manager runs
// its consistency check after opening, after every mutation and before
// closing.
func WithVerbose(level int) Option {
	return func(o *options) { o.verbose = level }
}

// WithCodec sets how durable Managers encode property sets.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c.orDefault() }
}

// WithShelf sets how durable Managers open their shelf.
func WithShelf(open ShelfOpener) Option {
	return func(o *options) {
		if open != nil {
			o.shelf = open
		}
	}
}
