// Package ordersheet reads the daily order sheet and writes it back with the
// resolved customer data filled in.
package ordersheet

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/fetcher"
	"github.com/greenhaul/route-planner/internal/model"
)

// Header names.
const (
	ColCustomer = "Cliente"
	ColAddress  = "Indirizzo"
)

// CompletedFile is the default name of the filled-in copy.
const CompletedFile = "Costi_compilato.xlsx"

// Read returns one query per data row with a non-blank customer name.
// Rows are numbered from 1 after the header.
func Read(path, sheetName string) ([]model.CustomerQuery, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: sheetName})
	if err != nil {
		return nil, eris.Wrapf(err, "ordersheet: read %s", path)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ordersheet: %s is empty", path)
	}

	cols := headerIndex(rows[0])
	nameCol, ok := cols[ColCustomer]
	if !ok {
		return nil, eris.Errorf("ordersheet: column %q not found", ColCustomer)
	}
	addrCol, hasAddr := cols[ColAddress]

	var out []model.CustomerQuery
	for i, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			continue
		}
		q := model.CustomerQuery{Name: name, Row: i + 1}
		if hasAddr {
			q.Override = cell(row, addrCol)
		}
		out = append(out, q)
	}

	zap.L().Info("ordersheet: customers read", zap.String("path", path), zap.Int("customers", len(out)))
	return out, nil
}

// fillColumns maps sheet headers to resolved address values. A column is
// only written when the header exists and the value is non-empty.
var fillColumns = []struct {
	header string
	value  func(*model.Address) string
}{
	{"Codice", func(a *model.Address) string { return a.Code }},
	{"CAP", func(a *model.Address) string { return a.PostalCode }},
	{"City", func(a *model.Address) string { return a.Locality }},
	{"Country", func(a *model.Address) string { return a.Country }},
	{"Ragione Sociale", func(a *model.Address) string { return a.LegalName }},
	{ColAddress, func(a *model.Address) string { return a.Street }},
}

// WriteCompleted copies the order sheet at src to dst with the address of
// every resolved customer filled into the matching columns. It returns the
// number of rows updated.
func WriteCompleted(src, sheetName, dst string, customers []model.ResolvedCustomer) (int, error) {
	f, sheet, err := fetcher.OpenXLSX(src, fetcher.XLSXOptions{SheetName: sheetName})
	if err != nil {
		return 0, eris.Wrapf(err, "ordersheet: open %s", src)
	}
	if len(sheet.Rows) == 0 {
		return 0, eris.Errorf("ordersheet: %s is empty", src)
	}

	cols := headerIndex(fetcher.RowStrings(sheet.Rows[0]))
	nameCol, ok := cols[ColCustomer]
	if !ok {
		return 0, eris.Errorf("ordersheet: column %q not found", ColCustomer)
	}

	byName := make(map[string]*model.Address, len(customers))
	for _, c := range customers {
		if c.Address != nil {
			byName[c.Name] = c.Address
		}
	}

	updated := 0
	for _, row := range sheet.Rows[1:] {
		name := strings.TrimSpace(cell(fetcher.RowStrings(row), nameCol))
		addr, ok := byName[name]
		if name == "" || !ok {
			continue
		}
		for _, fc := range fillColumns {
			idx, ok := cols[fc.header]
			v := fc.value(addr)
			if !ok || v == "" {
				continue
			}
			setCell(row, idx, v)
		}
		updated++
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, eris.Wrap(err, "ordersheet: create output dir")
	}
	if err := f.Save(dst); err != nil {
		return 0, eris.Wrapf(err, "ordersheet: save %s", dst)
	}
	zap.L().Info("ordersheet: completed sheet written", zap.String("path", dst), zap.Int("rows", updated))
	return updated, nil
}

func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := m[h]; h != "" && !dup {
			m[h] = i
		}
	}
	return m
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func setCell(row *xlsx.Row, i int, v string) {
	for len(row.Cells) <= i {
		row.AddCell()
	}
	row.Cells[i].SetString(v)
}
