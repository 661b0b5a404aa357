package fileutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := AtomicWriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", fi.Mode().Perm())
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("leftover temp file: %s", entry.Name())
		}
	}
}

func TestAtomicWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := AtomicWriteFile(path, []byte("new"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("content = %q, want %q", data, "new")
	}
}

func TestAtomicWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	in := map[string]int{"tasks": 7}

	if err := AtomicWriteJSON(path, in); err != nil {
		t.Fatalf("AtomicWriteJSON() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("JSON output should end with a newline")
	}

	var out map[string]int
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out["tasks"] != 7 {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestReadFileWithLimit(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.md")
	if err := os.WriteFile(small, []byte("fits"), 0600); err != nil {
		t.Fatal(err)
	}
	data, err := ReadFileWithLimit(small)
	if err != nil {
		t.Fatalf("ReadFileWithLimit() error: %v", err)
	}
	if string(data) != "fits" {
		t.Errorf("content = %q", data)
	}

	big := filepath.Join(dir, "big.md")
	if err := os.WriteFile(big, make([]byte, MaxFileSize+1), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFileWithLimit(big); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ReadFileWithLimit() = %v, want ErrFileTooLarge", err)
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := os.MkdirAll(filepath.Join(src, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"tasks.md":          "- [x] Done\n",
		"nested/extra.data": "payload",
	}
	for name, content := range files {
		path := filepath.Join(src, name)
		if err := os.WriteFile(path, []byte(content), 0640); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree() error: %v", err)
	}

	for name, content := range files {
		path := filepath.Join(dst, name)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing copied file %s: %v", name, err)
		}
		if string(data) != content {
			t.Errorf("%s content = %q, want %q", name, data, content)
		}

		fi, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode().Perm() != 0640 {
			t.Errorf("%s perm = %v, want 0640", name, fi.Mode().Perm())
		}
		if !fi.ModTime().Equal(mtime) {
			t.Errorf("%s mtime = %v, want %v", name, fi.ModTime(), mtime)
		}
	}
}

func TestCopyTree_SourceMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := CopyTree(file, filepath.Join(dir, "copy")); err == nil {
		t.Error("expected an error copying a regular file as a tree")
	}
}
