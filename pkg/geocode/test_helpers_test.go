package geocode

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/greenhaul/route-planner/internal/model"
)

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
// All requests matching the target prefix are redirected to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newURL := t.testServer + suffix
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// geonamesZIP builds an in-memory <CC>.zip with a <CC>.txt dump.
func geonamesZIP(t *testing.T, country string, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(country + ".txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	rw, err := w.Create("readme.txt")
	require.NoError(t, err)
	_, err = rw.Write([]byte("test dump"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// geonamesLine formats one dump row.
func geonamesLine(country, code, place, lat, lon string) string {
	return strings.Join([]string{country, code, place, "", "", "", "", "", "", lat, lon, "4"}, "\t")
}

type memCache struct {
	mu   sync.Mutex
	data map[string]model.PostalLocation
	sets int
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]model.PostalLocation)}
}

func (c *memCache) GetCachedPostal(_ context.Context, country, code string) (*model.PostalLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	loc, ok := c.data[country+"|"+code]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (c *memCache) SetCachedPostal(_ context.Context, loc model.PostalLocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[loc.Country+"|"+loc.PostalCode] = loc
	return c.err
}
