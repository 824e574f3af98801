// Package testutil provides shared fixtures for testing the compiler
// pipeline: writing query DSL files to a temp directory for Compile-level
// tests, grounded on the teacher's own testutil package for its Go schema
// parser.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteQueryFile writes content to name inside a fresh temp directory and
// returns the absolute path, for tests that exercise dsl.ParseModule or the
// top-level Compile entry point against real files.
func WriteQueryFile(t *testing.T, name, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WriteQueryFiles writes several named query files into one shared temp
// directory, for tests exercising multi-module Compile runs, and returns
// the directory so callers can build a glob against it.
func WriteQueryFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return dir
}
