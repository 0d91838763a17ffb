package cbz

import (
	"archive/zip"
	"cmp"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Extension is the archive suffix this tool reads and writes.
const Extension = ".cbz"

// Unpack extracts every entry of the zip archive at src into destDir,
// preserving the archive's internal directory structure. It returns the
// number of file entries written. Entries that would escape destDir are
// rejected.
func Unpack(src, destDir string) (int, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("open archive %s: %w", filepath.Base(src), err)
	}
	defer reader.Close()

	root := filepath.Clean(destDir)
	count := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		target, err := entryTarget(root, entry.Name)
		if err != nil {
			return count, err
		}
		if err := writeEntry(entry, target); err != nil {
			return count, fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		count++
	}
	return count, nil
}

func entryTarget(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return target, nil
}

func writeEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Build writes a new archive at outputPath containing every file under
// sourceDir, flattened. Files are ordered by their relative path (compared
// component-wise, so ordering does not depend on filesystem iteration or on
// separator byte values), and the Nth file is stored as a zero-padded 4-digit
// name keeping its original extension. An existing archive at outputPath is
// replaced. Returns the number of pages written.
func Build(outputPath, sourceDir string) (int, error) {
	var pages []string
	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", sourceDir, err)
	}

	slices.SortFunc(pages, comparePaths)

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	for i, rel := range pages {
		name := fmt.Sprintf("%04d%s", i+1, filepath.Ext(rel))
		dst, err := writer.Create(name)
		if err != nil {
			return 0, fmt.Errorf("add page %s: %w", name, err)
		}
		src, err := os.Open(filepath.Join(sourceDir, filepath.FromSlash(rel)))
		if err != nil {
			return 0, err
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return 0, fmt.Errorf("write page %s: %w", name, err)
		}
		src.Close()
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return len(pages), nil
}

func comparePaths(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := cmp.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}
