package testsupport

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// WriteCBZ creates a zip archive at path with one file entry per name, each
// filled with a small placeholder payload derived from its name.
func WriteCBZ(t testing.TB, path string, entries ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte("page:" + name)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file %s: %v", path, err)
	}
}

// EntryNames returns the file entry names of the archive at path in archive
// order, skipping directory entries.
func EntryNames(t testing.TB, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive %s: %v", path, err)
	}
	defer r.Close()

	var names []string
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		names = append(names, entry.Name)
	}
	return names
}

// EntryContent returns the content of the named entry in the archive at path.
func EntryContent(t testing.TB, path, name string) string {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive %s: %v", path, err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.Name != name {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read entry %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}
