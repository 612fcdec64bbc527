package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBinaryTempCopyWritesAndCleans(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "program.meowsrc")
	payload := []byte("fake bytecode payload")

	path, cleanup, err := binaryTempCopy(entry, payload)
	if err != nil {
		t.Fatalf("binaryTempCopy: %v", err)
	}
	defer cleanup()

	if filepath.Dir(path) != dir {
		t.Errorf("temp file dir = %q, want %q", filepath.Dir(path), dir)
	}
	if filepath.Ext(path) != ".meowb" {
		t.Errorf("temp file ext = %q, want .meowb", filepath.Ext(path))
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("temp file contents = %q, want %q", got, payload)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed after cleanup")
	}
}
