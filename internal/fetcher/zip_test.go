package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name, body string
}

// writeZIP builds an archive holding entries in order.
func writeZIP(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZIPFile_GeoNamesDump(t *testing.T) {
	archive := writeZIP(t,
		zipEntry{"readme.txt", "GeoNames postal codes"},
		zipEntry{"IT.txt", "IT\t50100\tFirenze\n"},
	)

	dir := t.TempDir()
	path, err := ExtractZIPFile(archive, "IT.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IT.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "IT\t50100\tFirenze\n", string(data))

	// Only the requested entry is written and no temp file is left behind.
	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "IT.txt", names[0].Name())
}

func TestExtractZIPFile_ReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DE.txt"), []byte("stale"), 0o644))

	archive := writeZIP(t, zipEntry{"DE.txt", "DE\t80331\tMünchen\n"})
	path, err := ExtractZIPFile(archive, "DE.txt", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DE\t80331\tMünchen\n", string(data))
}

func TestExtractZIPFile_NestedEntry(t *testing.T) {
	archive := writeZIP(t,
		zipEntry{"full/", ""},
		zipEntry{"full/GB.txt", "GB\tSW1A\tLondon\n"},
	)

	dir := t.TempDir()
	path, err := ExtractZIPFile(archive, "full/GB.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "full", "GB.txt"), path)
	assert.FileExists(t, path)
}

func TestExtractZIPFile_MissingEntry(t *testing.T) {
	archive := writeZIP(t, zipEntry{"readme.txt", "no data"})

	_, err := ExtractZIPFile(archive, "IT.txt", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"IT.txt" not found in dump.zip`)
}

func TestExtractZIPFile_DirectoryEntryIsNotAFile(t *testing.T) {
	archive := writeZIP(t, zipEntry{"IT/", ""})

	_, err := ExtractZIPFile(archive, "IT/", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExtractZIPFile_RejectsZipSlip(t *testing.T) {
	archive := writeZIP(t, zipEntry{"../../IT.txt", "escape"})

	dir := t.TempDir()
	_, err := ExtractZIPFile(archive, "../../IT.txt", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(dir)), "IT.txt"))
}

func TestExtractZIPFile_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IT.zip")
	require.NoError(t, os.WriteFile(path, []byte("<html>404</html>"), 0o644))

	_, err := ExtractZIPFile(path, "IT.txt", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open")
}
