package geocode

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/fetcher"
	"github.com/greenhaul/route-planner/internal/model"
)

// GeoNames dump columns (tab separated).
const (
	colPostalCode = 1
	colPlaceName  = 2
	colLatitude   = 9
	colLongitude  = 10
)

// outwardOnly lists countries whose dumps carry only the outward part of the
// postal code ("SW1A" rather than "SW1A 1AA").
var outwardOnly = map[string]bool{"GB": true, "IE": true, "CA": true}

type location struct {
	lat, lon  float64
	placeName string
}

// dataset maps normalized postal code to the mean location of its places.
type dataset struct {
	country string
	codes   map[string]location
}

func normalizeCode(country, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if outwardOnly[country] {
		if i := strings.IndexByte(code, ' '); i > 0 {
			code = code[:i]
		}
	}
	return code
}

// Lookup implements Client.
func (g *geocoder) Lookup(ctx context.Context, country, postalCode string) (*Result, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	code := normalizeCode(country, postalCode)
	if country == "" || code == "" {
		return &Result{Matched: false, Source: "geonames"}, nil
	}

	if r := g.checkCache(ctx, country, code); r != nil {
		return r, nil
	}

	ds, err := g.dataset(ctx, country)
	if err != nil {
		return nil, err
	}

	loc, ok := ds.codes[code]
	if !ok {
		zap.L().Debug("geocode: postal code not in dataset",
			zap.String("country", country),
			zap.String("postal_code", code),
		)
		return &Result{Matched: false, Source: "geonames"}, nil
	}

	r := &Result{
		Latitude:  loc.lat,
		Longitude: loc.lon,
		PlaceName: loc.placeName,
		Source:    "geonames",
		Matched:   true,
	}
	g.storeCache(ctx, country, code, r)
	return r, nil
}

// Locations implements Client.
func (g *geocoder) Locations(ctx context.Context, country string) ([]model.PostalLocation, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return nil, eris.New("geocode: country is required")
	}
	ds, err := g.dataset(ctx, country)
	if err != nil {
		return nil, err
	}

	out := make([]model.PostalLocation, 0, len(ds.codes))
	for code, loc := range ds.codes {
		out = append(out, model.PostalLocation{
			Country:    country,
			PostalCode: code,
			PlaceName:  loc.placeName,
			Lat:        loc.lat,
			Lon:        loc.lon,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostalCode < out[j].PostalCode })
	return out, nil
}

// dataset returns the parsed dump for country, downloading it on first use.
// An unknown country yields an empty dataset.
func (g *geocoder) dataset(ctx context.Context, country string) (*dataset, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ds, ok := g.datasets[country]; ok {
		return ds, nil
	}

	txtPath := filepath.Join(g.dataDir, country+".txt")
	if _, err := os.Stat(txtPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "geocode: stat %s", txtPath)
		}
		found, err := g.download(ctx, country)
		if err != nil {
			return nil, err
		}
		if !found {
			ds := &dataset{country: country, codes: map[string]location{}}
			g.datasets[country] = ds
			return ds, nil
		}
	}

	ds, err := parseDataset(ctx, country, txtPath)
	if err != nil {
		return nil, err
	}
	g.datasets[country] = ds
	zap.L().Info("geocode: loaded postal codes",
		zap.String("country", country),
		zap.Int("codes", len(ds.codes)),
	)
	return ds, nil
}

// download fetches <country>.zip and extracts <country>.txt into the data
// directory. It reports false when the server has no dump for country.
func (g *geocoder) download(ctx context.Context, country string) (bool, error) {
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return false, eris.Wrap(err, "geocode: create data dir")
	}

	zipPath := filepath.Join(g.dataDir, country+".zip")
	url := g.baseURL + "/" + country + ".zip"
	zap.L().Info("geocode: downloading postal codes", zap.String("country", country), zap.String("url", url))

	if _, err := g.fetcher.DownloadToFile(ctx, url, zipPath); err != nil {
		if fetcher.IsNotFound(err) {
			zap.L().Warn("geocode: no postal dataset for country", zap.String("country", country))
			return false, nil
		}
		return false, eris.Wrapf(err, "geocode: download %s", country)
	}
	defer os.Remove(zipPath) //nolint:errcheck

	if _, err := fetcher.ExtractZIPFile(zipPath, country+".txt", g.dataDir); err != nil {
		return false, eris.Wrapf(err, "geocode: extract %s", country)
	}
	return true, nil
}

func parseDataset(ctx context.Context, country, path string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	type acc struct {
		latSum, lonSum float64
		n              int
		placeName      string
	}
	sums := make(map[string]*acc)

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		Delimiter:  '\t',
		LazyQuotes: true,
	})
	for row := range rowCh {
		if len(row) <= colLongitude {
			continue
		}
		code := normalizeCode(country, row[colPostalCode])
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[colLatitude]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(row[colLongitude]), 64)
		if code == "" || errLat != nil || errLon != nil {
			continue
		}
		a, ok := sums[code]
		if !ok {
			a = &acc{placeName: strings.TrimSpace(row[colPlaceName])}
			sums[code] = a
		}
		a.latSum += lat
		a.lonSum += lon
		a.n++
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "geocode: parse %s", path)
		}
	}

	ds := &dataset{country: country, codes: make(map[string]location, len(sums))}
	for code, a := range sums {
		ds.codes[code] = location{
			lat:       a.latSum / float64(a.n),
			lon:       a.lonSum / float64(a.n),
			placeName: a.placeName,
		}
	}
	return ds, nil
}
