package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIPFile copies the entry called name out of the archive at zipPath
// into destDir, keeping the entry's relative path, and returns the written
// path. The file appears under its final name only once fully written, so a
// reader never sees a truncated dump.
func ExtractZIPFile(zipPath, name, destDir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == name && !f.FileInfo().IsDir() {
			entry = f
			break
		}
	}
	if entry == nil {
		return "", eris.Errorf("zip: file %q not found in %s", name, filepath.Base(zipPath))
	}

	dest, err := entryPath(destDir, entry.Name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}
	if err := copyEntry(entry, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// entryPath joins name onto destDir and rejects names escaping it.
func entryPath(destDir, name string) (string, error) {
	root := filepath.Clean(destDir)
	dest := filepath.Join(root, name)
	if !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", name)
	}
	return dest, nil
}

func copyEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", entry.Name)
	}
	defer rc.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return eris.Wrap(err, "zip: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "zip: extract %s", entry.Name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "zip: close temp file")
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "zip: move %s into place", entry.Name)
	}
	return nil
}
