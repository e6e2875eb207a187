// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"fmt"
	"strconv"
)

// likeError is an error that also matches another, usually platform-specific,
// error value with errors.Is.
type likeError struct {
	Err, Like error
}

func (e *likeError) Error() string {
	return e.Err.Error()
}

func (e *likeError) Unwrap() []error {
	return []error{e.Err, e.Like}
}

// PreconditionError is the value Manager operations panic with when called
// with a malformed resource id, an empty property name, or a nil value.
// It signals caller misuse and is never returned as an error.
type PreconditionError struct {
	Op       string
	Resource string
	Property string
	Reason   string
}

func (e *PreconditionError) Error() string {
	return "propstore: " + e.Op + " " + describe(e.Resource, e.Property) + ": " + e.Reason
}

// OpError records a backend failure along with the operation and the
// resource and property it was working on.
type OpError struct {
	Op       string
	Resource string
	Property string
	Err      error
}

func (e *OpError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("propstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("propstore: %s %s: %v", e.Op, describe(e.Resource, e.Property), e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func describe(resource, property string) string {
	if property == "" {
		return strconv.Quote(resource)
	}
	return strconv.Quote(resource) + " " + strconv.Quote(property)
}
