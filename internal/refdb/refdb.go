// Package refdb loads the customer reference database exported as a
// delimited text file.
package refdb

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/greenhaul/route-planner/internal/fetcher"
	"github.com/greenhaul/route-planner/internal/model"
)

// Column headers of the export.
const (
	ColCountryCode = "Naz"
	ColCode        = "Codice"
	ColAcronym     = "Acronimo"
	ColLegalName1  = "Ragione Sociale 1"
	ColLegalName2  = "Ragione Sociale 2"
	ColPostalCode  = "CAP"
	ColLocality    = "Localita'"
	ColCountry     = "Nazione"
	ColStreet      = "Indirizzo"
)

var nameColumns = []string{ColAcronym, ColLegalName1, ColLegalName2}

// Options configures Load.
type Options struct {
	Delimiter rune   // default ';'
	Encoding  string // "utf-8" (default), "latin1" or "windows-1252"
}

// LoadFile opens path and loads every record.
func LoadFile(ctx context.Context, path string, opts Options) ([]model.ReferenceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdb: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	records, err := Load(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	zap.L().Info("refdb: loaded customer database",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// Load parses records from r. Every value is kept as a string; missing
// columns read as empty. At least one name column must be present.
func Load(ctx context.Context, r io.Reader, opts Options) ([]model.ReferenceRecord, error) {
	dec, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		r = dec.Reader(r)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = ';'
	}

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:  delim,
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	var (
		idx     map[string]int
		records []model.ReferenceRecord
	)
	for row := range rowCh {
		if idx == nil {
			idx, err = columnIndex(<-headerCh)
			if err != nil {
				// Drain so the producer goroutine can exit.
				for range rowCh {
				}
				return nil, err
			}
		}
		records = append(records, toRecord(row, idx))
	}
	for e := range errCh {
		if e != nil {
			return nil, eris.Wrap(e, "refdb: parse")
		}
	}

	if idx == nil {
		// Header only, or empty input.
		select {
		case h := <-headerCh:
			if _, err := columnIndex(h); err != nil {
				return nil, err
			}
		default:
			return nil, eris.New("refdb: empty customer database")
		}
	}
	return records, nil
}

func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, eris.Errorf("refdb: unsupported encoding %q", name)
	}
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, c := range nameColumns {
		if _, ok := idx[c]; ok {
			return idx, nil
		}
	}
	return nil, eris.Errorf("refdb: header has none of the name columns %v", nameColumns)
}

func toRecord(row []string, idx map[string]int) model.ReferenceRecord {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return model.ReferenceRecord{
		CountryCode: get(ColCountryCode),
		Code:        get(ColCode),
		Acronym:     get(ColAcronym),
		LegalName1:  get(ColLegalName1),
		LegalName2:  get(ColLegalName2),
		PostalCode:  get(ColPostalCode),
		Locality:    get(ColLocality),
		Country:     get(ColCountry),
		Street:      get(ColStreet),
	}
}
