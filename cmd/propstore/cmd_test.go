// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	c := &Cmd{Stdout: &stdout, Stderr: &stderr}
	err := c.Run(context.Background(), args)
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("propstore %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCmd(t *testing.T) {
	for _, shelf := range []string{"file", "bolt"} {
		t.Run(shelf, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "props")
			flags := []string{"--path", path, "--shelf", shelf}
			cmd := func(args ...string) []string { return append(args, flags...) }

			mustRun(t, cmd("set", "/a", "{DAV:}author", `{"name":"jdoe"}`)...)
			mustRun(t, cmd("set", "/a", "{DAV:}title", `"notes"`)...)
			mustRun(t, cmd("set", "/a", "{DAV:}title", `"draft"`, "--dry-run")...)
			mustRun(t, cmd("copy", "/a", "/b")...)
			mustRun(t, cmd("rm", "/b", "{DAV:}title")...)

			if diff := cmp.Diff("/a\n/b\n", mustRun(t, cmd("list")...)); diff != "" {
				t.Fatalf("unexpected resources (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff("{DAV:}author\n{DAV:}title\n", mustRun(t, cmd("list", "/a")...)); diff != "" {
				t.Fatalf("unexpected properties (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff("\"notes\"\n", mustRun(t, cmd("get", "/a", "{DAV:}title")...)); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
			if _, err := run(t, cmd("get", "/b", "{DAV:}title")...); err == nil {
				t.Fatal("expected getting a removed property to fail")
			}

			dump := mustRun(t, cmd("dump")...)
			for _, want := range []string{"    /a\n", `        {DAV:}author: '{"name":"jdoe"}'`, "    /b\n"} {
				if !strings.Contains(dump, want) {
					t.Errorf("expected dump to contain %q, got:\n%s", want, dump)
				}
			}

			if diff := cmp.Diff("ok\n", mustRun(t, cmd("check")...)); diff != "" {
				t.Fatalf("unexpected check output (-want +got):\n%s", diff)
			}

			mustRun(t, cmd("rm", "/a")...)
			if diff := cmp.Diff("/b\n", mustRun(t, cmd("list")...)); diff != "" {
				t.Fatalf("unexpected resources (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCmdEmptyStore(t *testing.T) {
	for _, shelf := range []string{"file", "bolt"} {
		t.Run(shelf, func(t *testing.T) {
			flags := []string{"--path", filepath.Join(t.TempDir(), "props"), "--shelf", shelf}

			if diff := cmp.Diff("", mustRun(t, append([]string{"list"}, flags...)...)); diff != "" {
				t.Fatalf("unexpected resources (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff("", mustRun(t, append([]string{"list", "/a"}, flags...)...)); diff != "" {
				t.Fatalf("unexpected properties (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCmdErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "props")

	tests := [][]string{
		{"list"},
		{"set", "a", "p", `"v"`, "--path", path},
		{"set", "/a", "p", "not json", "--path", path},
		{"copy", "/a", "b", "--path", path},
		{"list", "--path", path, "--shelf", "dbm"},
	}
	for _, args := range tests {
		if _, err := run(t, args...); err == nil {
			t.Errorf("propstore %s: expected an error", strings.Join(args, " "))
		}
	}
}

func TestCmdConfig(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "propstore.yaml")
	content := "storage_path: " + filepath.Join(dir, "props") + "\nshelf: bolt\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mustRun(t, "set", "/a", "p", "1", "--config", config)
	if _, err := os.Stat(filepath.Join(dir, "props")); err != nil {
		t.Fatalf("expected the bolt store to be created: %v", err)
	}
	if diff := cmp.Diff("1\n", mustRun(t, "get", "/a", "p", "--config", config)); diff != "" {
		t.Fatalf("unexpected value (-want +got):\n%s", diff)
	}
}
