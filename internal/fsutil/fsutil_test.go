package fsutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteJSONAtomic_ThenReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")

	in := map[string]any{"name": "a", "port": float64(2300)}
	if err := WriteJSONAtomic(path, in, 0o644); err != nil {
		t.Fatal(err)
	}

	var out map[string]any
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("file not found after write")
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: %v != %v", in, out)
	}

	// No temp siblings left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("stray files after atomic write: %v", entries)
	}
}

func TestReadJSON_MissingFileKeepsDefault(t *testing.T) {
	out := map[string]int{"kept": 1}
	found, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if out["kept"] != 1 {
		t.Error("default value was clobbered")
	}
}

func TestReadJSON_ToleratesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := "{\n  // hand-edited\n  \"port\": 2300,\n}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Port int `json:"port"`
	}
	if _, err := ReadJSON(path, &out); err != nil {
		t.Fatalf("comments should be tolerated: %v", err)
	}
	if out.Port != 2300 {
		t.Errorf("port = %d", out.Port)
	}
}

func TestListExecutableFiles(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, mode os.FileMode) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), mode); err != nil {
			t.Fatal(err)
		}
	}
	write("02.sh", 0o755)
	write("01.sh", 0o755)
	write("readme.txt", 0o644)
	write("group-exec", 0o654)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListExecutableFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "01.sh"),
		filepath.Join(dir, "02.sh"),
		filepath.Join(dir, "group-exec"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	if !PathExists(dir) {
		t.Error("existing dir reported missing")
	}
	if PathExists(filepath.Join(dir, "nope")) {
		t.Error("missing path reported present")
	}
}
