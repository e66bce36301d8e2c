package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the sheet to read.
type XLSXOptions struct {
	// SheetName wins over SheetIndex. An exact match is preferred; otherwise
	// names are compared trimmed and case-insensitively ("foglio1 " finds
	// "Foglio1").
	SheetName  string
	SheetIndex int
	SkipRows   int
}

// ReadXLSX returns the formatted cell values of every row of the selected
// sheet after the first SkipRows rows.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	_, sheet, err := OpenXLSX(path, opts)
	if err != nil {
		return nil, err
	}
	if opts.SkipRows >= len(sheet.Rows) {
		return nil, nil
	}

	rows := make([][]string, 0, len(sheet.Rows)-opts.SkipRows)
	for _, row := range sheet.Rows[max(opts.SkipRows, 0):] {
		rows = append(rows, RowStrings(row))
	}
	return rows, nil
}

// OpenXLSX opens a workbook and returns it together with the selected sheet,
// for callers that modify and save the file.
func OpenXLSX(path string, opts XLSXOptions) (*xlsx.File, *xlsx.Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "xlsx: open file %s", path)
	}
	sheet, err := selectSheet(f, opts)
	if err != nil {
		return nil, nil, err
	}
	return f, sheet, nil
}

func selectSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName == "" {
		if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
			return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
		}
		return f.Sheets[opts.SheetIndex], nil
	}

	if sheet, ok := f.Sheet[opts.SheetName]; ok {
		return sheet, nil
	}
	want := strings.TrimSpace(opts.SheetName)
	for _, sheet := range f.Sheets {
		if strings.EqualFold(strings.TrimSpace(sheet.Name), want) {
			return sheet, nil
		}
	}

	names := make([]string, len(f.Sheets))
	for i, s := range f.Sheets {
		names[i] = s.Name
	}
	return nil, eris.Errorf("xlsx: sheet %q not found (have %s)", opts.SheetName, strings.Join(names, ", "))
}

// RowStrings returns the formatted value of every cell in row.
func RowStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}
