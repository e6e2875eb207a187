// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// PropertyManager stores dead properties: values of type V, named by a
// property name, attached to a resource id.
//
// Resource ids are non-empty and begin with "/". Property names are
// non-empty. Values must not be nil. Violating any of these panics with a
// *PreconditionError.
//
// Reading or removing something that was never written is not an error.
// Backend failures are returned as *OpError.
type PropertyManager[V any] interface {
	// Properties returns the sorted property names of resource.
	Properties(resource string) ([]string, error)
	// Property returns the value of property name on resource, and whether
	// it was found.
	Property(resource, name string) (V, bool, error)
	// WriteProperty sets property name of resource to value. If dryRun is
	// set, the arguments are only validated.
	WriteProperty(resource, name string, value V, dryRun bool) error
	// RemoveProperty deletes property name from resource. If dryRun is
	// set, the arguments are only validated.
	RemoveProperty(resource, name string, dryRun bool) error
	// RemoveProperties deletes resource and all its properties.
	RemoveProperties(resource string) error
	// CopyProperties replaces the properties of dst with a copy of those of
	// src. It does nothing if src has no properties.
	CopyProperties(src, dst string) error
	// Resources returns the sorted ids of all resources with properties.
	Resources() ([]string, error)
	// Check runs a best-effort consistency check and reports its outcome.
	Check(msg string) bool
	// Dump writes a listing of every resource and property to w.
	Dump(w io.Writer) error
	// Close releases the backend. The manager reopens it on next use.
	Close() error
}

var _ PropertyManager[any] = (*Manager[any])(nil)

// A Manager is a PropertyManager guarded by a single reader/writer lock.
// Its store is opened lazily, on first use.
//
// Basic usage is:
//
//	m, err := propstore.NewDurable[string]("/var/lib/dav/props")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	if err := m.WriteProperty("/docs/a.txt", "{DAV:}author", "jdoe", false); err != nil {
//	    log.Fatal(err)
//	}
type Manager[V any] struct {
	mu     rwMutex
	loaded bool
	tab    table[V]

	open    func() (table[V], error)
	desc    string
	logger  hclog.Logger
	verbose int
}

// NewMemory returns a Manager keeping its properties in memory.
func NewMemory[V any](opts ...Option) *Manager[V] {
	o := newOptions(opts)
	return &Manager[V]{
		open:    func() (table[V], error) { return make(memTable[V]), nil },
		desc:    "memory",
		logger:  o.logger.Named("propstore"),
		verbose: o.verbose,
	}
}

// NewDurable returns a Manager keeping its properties in the shelf at
// storagePath, which is made absolute right away. The shelf is only opened
// on first use; WithShelf picks the kind of shelf, a file shelf by default.
//
// Values are stored through the Codec set by WithCodec, JSON by default, and
// V must round-trip through it unchanged. An interface-typed V, such as any,
// is refused with the JSON codec; see Codec.
//
// Only one Manager may have a given shelf open at a time.
func NewDurable[V any](storagePath string, opts ...Option) (*Manager[V], error) {
	if storagePath == "" {
		return nil, errors.New("propstore: empty storage path")
	}
	path, err := filepath.Abs(storagePath)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	if t := reflect.TypeFor[V](); o.codec.untyped && t.Kind() == reflect.Interface {
		return nil, fmt.Errorf("propstore: %v values do not round-trip through JSON, use a concrete type or a gob codec", t)
	}
	return &Manager[V]{
		open: func() (table[V], error) {
			shelf, err := o.shelf(path)
			if err != nil {
				return nil, err
			}
			return &shelfTable[V]{shelf: shelf, codec: o.codec}, nil
		},
		desc:    "durable(" + path + ")",
		logger:  o.logger.Named("propstore").With("path", path),
		verbose: o.verbose,
	}, nil
}

func (m *Manager[V]) String() string {
	return m.desc
}

// lazyOpen opens the store unless it already is.
func (m *Manager[V]) lazyOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.openLocked()
}

func (m *Manager[V]) openLocked() error {
	// Test again within the critical section: another caller may have
	// opened the store while we were waiting for the lock.
	if m.loaded {
		return nil
	}

	m.logger.Debug("opening store", "backend", m.desc)
	tab, err := m.open()
	if err != nil {
		return m.fail("open", "", "", err)
	}
	m.tab, m.loaded = tab, true

	if m.verbose >= 2 {
		m.checkLocked("after open")
	}
	return nil
}

// rlock acquires the read lock on an open store. A sync.RWMutex cannot be
// upgraded, so a reader finding the store closed opens it under the write
// lock and tries again.
func (m *Manager[V]) rlock() error {
	for {
		m.mu.RLock()
		if m.loaded {
			return nil
		}
		m.mu.RUnlock()

		if err := m.lazyOpen(); err != nil {
			return err
		}
	}
}

// lock acquires the write lock on an open store.
func (m *Manager[V]) lock() error {
	m.mu.Lock()
	if err := m.openLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Manager[V]) fail(op, resource, property string, err error) error {
	m.logger.Error("backend failure", "op", op, "resource", resource, "property", property, "error", err)
	return &OpError{Op: op, Resource: resource, Property: property, Err: err}
}

// commit flushes the mutation made by op to the backend. Called with the
// write lock held.
func (m *Manager[V]) commit(op, resource, property string) error {
	if err := m.tab.sync(); err != nil {
		return m.fail(op, resource, property, err)
	}
	if m.verbose >= 2 {
		m.checkLocked("after " + op)
	}
	return nil
}

func (m *Manager[V]) Properties(resource string) ([]string, error) {
	m.logger.Trace("Properties", "resource", resource)

	if err := m.rlock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	props, _, err := m.tab.get(resource)
	if err != nil {
		return nil, m.fail("list", resource, "", err)
	}
	if len(props) == 0 {
		return []string{}, nil
	}
	return slices.Sorted(maps.Keys(props)), nil
}

func (m *Manager[V]) Property(resource, name string) (value V, ok bool, err error) {
	m.logger.Trace("Property", "resource", resource, "property", name)

	if err := m.rlock(); err != nil {
		return value, false, err
	}
	defer m.mu.RUnlock()

	props, found, err := m.tab.get(resource)
	if err != nil {
		return value, false, m.fail("get", resource, name, err)
	}
	if !found {
		return value, false, nil
	}
	value, ok = props[name]
	return value, ok, nil
}

func (m *Manager[V]) WriteProperty(resource, name string, value V, dryRun bool) error {
	checkResource("write", resource)
	checkName("write", resource, name)
	if isNil(value) {
		panic(&PreconditionError{Op: "write", Resource: resource, Property: name, Reason: "nil value"})
	}

	m.logger.Trace("WriteProperty", "resource", resource, "property", name, "dry_run", dryRun)
	if dryRun {
		return nil
	}

	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	props, ok, err := m.tab.get(resource)
	if err != nil {
		return m.fail("write", resource, name, err)
	}
	if !ok {
		props = make(PropertySet[V])
	}
	props[name] = value

	// Always put the whole set back: a shelf doesn't see changes made to a
	// set it has already handed out.
	if err := m.tab.put(resource, props); err != nil {
		return m.fail("write", resource, name, err)
	}
	return m.commit("write", resource, name)
}

// RemoveProperty deletes property name from resource. Removing a property
// that does not exist is not an error.
func (m *Manager[V]) RemoveProperty(resource, name string, dryRun bool) error {
	checkResource("remove", resource)
	checkName("remove", resource, name)

	m.logger.Trace("RemoveProperty", "resource", resource, "property", name, "dry_run", dryRun)
	if dryRun {
		return nil
	}

	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	props, ok, err := m.tab.get(resource)
	if err != nil {
		return m.fail("remove", resource, name, err)
	}
	if !ok {
		return nil
	}
	if _, ok := props[name]; !ok {
		return nil
	}
	delete(props, name)

	if err := m.tab.put(resource, props); err != nil {
		return m.fail("remove", resource, name, err)
	}
	return m.commit("remove", resource, name)
}

func (m *Manager[V]) RemoveProperties(resource string) error {
	checkResource("remove all", resource)

	m.logger.Trace("RemoveProperties", "resource", resource)

	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	ok, err := m.tab.has(resource)
	if err != nil {
		return m.fail("remove all", resource, "", err)
	}
	if !ok {
		return nil
	}
	if err := m.tab.remove(resource); err != nil {
		return m.fail("remove all", resource, "", err)
	}
	return m.commit("remove all", resource, "")
}

func (m *Manager[V]) CopyProperties(src, dst string) error {
	checkResource("copy", src)
	checkResource("copy", dst)

	m.logger.Trace("CopyProperties", "resource", src, "destination", dst)

	if err := m.lock(); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if m.verbose >= 2 {
		m.checkLocked("before copy")
	}

	props, ok, err := m.tab.get(src)
	if err != nil {
		return m.fail("copy", src, "", err)
	}
	if !ok {
		return nil
	}
	if err := m.tab.put(dst, maps.Clone(props)); err != nil {
		return m.fail("copy", dst, "", err)
	}
	return m.commit("copy", dst, "")
}

func (m *Manager[V]) Resources() ([]string, error) {
	m.logger.Trace("Resources")

	if err := m.rlock(); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	ids, err := m.tab.resources()
	if err != nil {
		return nil, m.fail("list resources", "", "", err)
	}
	return ids, nil
}

// Sync flushes pending changes to the backend. Mutating operations already
// do this before returning.
func (m *Manager[V]) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return nil
	}
	m.logger.Debug("syncing store", "backend", m.desc)
	if err := m.tab.sync(); err != nil {
		return m.fail("sync", "", "", err)
	}
	return nil
}

// Check iterates over every resource and formats every property value,
// logging the first failure it runs into. A store that was never opened
// checks ok.
//
// The outcome is informational only; Check never fails an operation.
func (m *Manager[V]) Check(msg string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.checkLocked(msg)
}

func (m *Manager[V]) checkLocked(msg string) (ok bool) {
	if !m.loaded {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("consistency check failed", "backend", m.desc, "msg", msg, "panic", r)
			ok = false
		}
	}()

	ids, err := m.tab.resources()
	if err != nil {
		m.logger.Error("consistency check failed", "backend", m.desc, "msg", msg, "error", err)
		return false
	}
	for _, id := range ids {
		props, _, err := m.tab.get(id)
		if err != nil {
			m.logger.Error("consistency check failed", "backend", m.desc, "msg", msg, "resource", id, "error", err)
			return false
		}
		for name, v := range props {
			_ = name + ", " + formatValue(v)
		}
	}

	m.logger.Debug("consistency check ok", "backend", m.desc, "msg", msg)
	return true
}

// Dump writes every resource and its properties to w, opening the store if
// needed.
func (m *Manager[V]) Dump(w io.Writer) error {
	if err := m.rlock(); err != nil {
		return err
	}
	defer m.mu.RUnlock()

	if _, err := fmt.Fprintf(w, "%s:\n", m.desc); err != nil {
		return err
	}
	ids, err := m.tab.resources()
	if err != nil {
		return m.fail("dump", "", "", err)
	}
	for _, id := range ids {
		props, _, err := m.tab.get(id)
		if err != nil {
			return m.fail("dump", id, "", err)
		}
		if _, err := fmt.Fprintf(w, "    %s\n", id); err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(props)) {
			if _, err := fmt.Fprintf(w, "        %s: '%s'\n", name, formatValue(props[name])); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the backend; a durable store is flushed first. Closing a
// Manager that is not open does nothing.
func (m *Manager[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return nil
	}
	if m.verbose >= 2 {
		m.checkLocked("before close")
	}

	m.logger.Debug("closing store", "backend", m.desc)
	err := m.tab.close()
	m.tab, m.loaded = nil, false
	if err != nil {
		return m.fail("close", "", "", err)
	}
	return nil
}

func checkResource(op, resource string) {
	if !strings.HasPrefix(resource, "/") {
		panic(&PreconditionError{Op: op, Resource: resource, Reason: `resource id must begin with "/"`})
	}
}

func checkName(op, resource, name string) {
	if name == "" {
		panic(&PreconditionError{Op: op, Resource: resource, Reason: "empty property name"})
	}
}

// formatValue prints byte slices, such as json.RawMessage, as text.
func formatValue(v any) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return string(rv.Bytes())
	}
	return fmt.Sprint(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
