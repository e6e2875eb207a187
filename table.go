// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"fmt"
	"maps"
	"slices"
)

// A PropertySet maps property names to the values stored for one resource.
type PropertySet[V any] map[string]V

// table is the store behind a Manager: a mapping from resource id to
// PropertySet.
//
// Callers must treat a set returned by get as a private copy: changes to it
// only reach the table once the whole set is put back under its resource id.
type table[V any] interface {
	get(resource string) (PropertySet[V], bool, error)
	has(resource string) (bool, error)
	put(resource string, props PropertySet[V]) error
	remove(resource string) error
	resources() ([]string, error)
	sync() error
	close() error
}

type memTable[V any] map[string]PropertySet[V]

func (t memTable[V]) get(resource string) (PropertySet[V], bool, error) {
	props, ok := t[resource]
	return props, ok, nil
}

func (t memTable[V]) has(resource string) (bool, error) {
	_, ok := t[resource]
	return ok, nil
}

func (t memTable[V]) put(resource string, props PropertySet[V]) error {
	t[resource] = props
	return nil
}

func (t memTable[V]) remove(resource string) error {
	delete(t, resource)
	return nil
}

func (t memTable[V]) resources() ([]string, error) {
	return slices.Sorted(maps.Keys(t)), nil
}

func (t memTable[V]) sync() error { return nil }

func (t memTable[V]) close() error {
	clear(t)
	return nil
}

// shelfTable stores every PropertySet encoded under its resource id. A set is
// decoded afresh on every get, so mutating it never affects the shelf until
// it is put back.
type shelfTable[V any] struct {
	shelf Shelf
	codec Codec
}

func (t *shelfTable[V]) get(resource string) (PropertySet[V], bool, error) {
	data, ok, err := t.shelf.Get(resource)
	if err != nil || !ok {
		return nil, false, err
	}
	props := make(PropertySet[V])
	if err := t.codec.Unmarshal(data, &props); err != nil {
		return nil, false, fmt.Errorf("decode properties: %w", err)
	}
	if props == nil {
		props = make(PropertySet[V])
	}
	return props, true, nil
}

func (t *shelfTable[V]) has(resource string) (bool, error) {
	_, ok, err := t.shelf.Get(resource)
	return ok, err
}

func (t *shelfTable[V]) put(resource string, props PropertySet[V]) error {
	data, err := t.codec.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	return t.shelf.Set(resource, data)
}

func (t *shelfTable[V]) remove(resource string) error {
	return t.shelf.Delete(resource)
}

func (t *shelfTable[V]) resources() ([]string, error) {
	return t.shelf.Keys()
}

func (t *shelfTable[V]) sync() error {
	return t.shelf.Sync()
}

func (t *shelfTable[V]) close() error {
	return t.shelf.Close()
}
