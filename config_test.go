// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package propstore

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    Config
		wantErr string
	}{
		{
			name: "Empty",
			raw:  map[string]any{},
			want: Config{},
		},
		{
			name: "Durable",
			raw: map[string]any{
				"backend":      "durable",
				"storage_path": "/var/lib/dav/props",
				"shelf":        "bolt",
				"read_only":    "true",
				"verbose":      "2",
			},
			want: Config{
				Backend:     BackendDurable,
				StoragePath: "/var/lib/dav/props",
				Shelf:       ShelfBolt,
				ReadOnly:    true,
				Verbose:     2,
			},
		},
		{
			name:    "UnknownKey",
			raw:     map[string]any{"backend": "memory", "storagePath": "x"},
			wantErr: "storagePath",
		},
		{
			name:    "UnknownBackend",
			raw:     map[string]any{"backend": "shelve"},
			wantErr: `unknown backend "shelve"`,
		},
		{
			name:    "UnknownShelf",
			raw:     map[string]any{"shelf": "dbm"},
			wantErr: `unknown shelf "dbm"`,
		},
		{
			name:    "DurableWithoutPath",
			raw:     map[string]any{"backend": "durable"},
			wantErr: "needs a storage_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig(tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected an error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew(t *testing.T) {
	m, err := New[string](Config{})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.(*Manager[string]).String(); got != "memory" {
		t.Fatalf("expected a memory manager, got %s", got)
	}

	path := filepath.Join(t.TempDir(), "props.db")
	m, err = New[string](Config{Backend: BackendDurable, StoragePath: path, Shelf: ShelfBolt})
	if err != nil {
		t.Fatal(err)
	}
	mustWrite(t, m, "/a", "p", "1")
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	// The bolt shelf is readable as such, read-only.
	m, err = New[string](Config{Backend: BackendDurable, StoragePath: path, Shelf: ShelfBolt, ReadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if v, ok, err := m.Property("/a", "p"); err != nil || !ok || v != "1" {
		t.Fatalf("expected 1, got %q, %v, %v", v, ok, err)
	}
	if err := m.WriteProperty("/a", "p", "2", false); err == nil {
		t.Fatal("expected writing to a read-only store to fail")
	}

	if _, err := New[string](Config{Backend: "shelve"}); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
