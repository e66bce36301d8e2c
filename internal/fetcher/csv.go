package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	// Delimiter defaults to ','. Customer exports use ';', GeoNames dumps '\t'.
	Delimiter rune
	// HasHeader skips the first record. It is sent to HeaderCh when set.
	HasHeader bool
	HeaderCh  chan<- []string
	Comment   rune
	// LazyQuotes tolerates stray quotes inside unquoted fields.
	LazyQuotes bool
	TrimSpace  bool
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StreamCSV parses r in a goroutine and delivers records on the returned
// channel. Records may have any number of fields. A leading UTF-8 BOM is
// dropped. The error channel carries at most one error; both channels are
// closed when parsing stops, so callers drain rows first, then errors.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)
		if err := streamRecords(ctx, newCSVReader(r, opts), opts, rowCh); err != nil {
			errCh <- err
		}
	}()

	return rowCh, errCh
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	cr := csv.NewReader(skipBOM(r))
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return cr
}

func streamRecords(ctx context.Context, cr *csv.Reader, opts CSVOptions, rowCh chan<- []string) error {
	headerPending := opts.HasHeader
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}

		out := rowCh
		if headerPending {
			headerPending = false
			if opts.HeaderCh == nil {
				continue
			}
			out = opts.HeaderCh
		}

		select {
		case out <- record:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
	}
}

// skipBOM returns a reader positioned after an optional UTF-8 BOM.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
