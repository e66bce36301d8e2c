package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Writer writes every document of a run into one directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

type renderer struct {
	name  string
	write func(io.Writer, Document) error
}

var renderers = []renderer{
	{LoadingListFile, WriteLoadingList},
	{SummaryFile, WriteSummary},
	{MapsLinkFile, WriteMapsURL},
	{GeoJSONFile, WriteGeoJSON},
	{StopsFile, WriteStopsCSV},
}

// WriteAll renders every document and returns the written paths.
func (w *Writer) WriteAll(d Document) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create output dir")
	}

	paths := make([]string, 0, len(renderers))
	for _, r := range renderers {
		path := filepath.Join(w.dir, r.name)
		if err := writeFile(path, d, r.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	zap.L().Info("report: documents written", zap.String("dir", w.dir), zap.Int("files", len(paths)))
	return paths, nil
}

func writeFile(path string, d Document, write func(io.Writer, Document) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := write(f, d); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "report: close %s", path)
	}
	return nil
}
