package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/pkg/geocode"
)

// DefaultPacing is the minimum interval between two coordinate lookups.
const DefaultPacing = 2 * time.Second

// Geocoder looks up postal-code coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, country, postalCode string) (*geocode.Result, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLimiter sets the limiter every lookup waits on.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) {
		p.limiter = l
	}
}

// WithPacing allows one lookup per interval. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(p *Pipeline) {
		if d <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithConcurrency bounds how many customers are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Pipeline resolves every order-sheet customer to an address and, when
// possible, a coordinate.
type Pipeline struct {
	resolver    *AddressResolver
	geocoder    Geocoder
	limiter     *rate.Limiter
	concurrency int
	depotName   string
	depot       model.Coordinate
}

// NewPipeline creates a Pipeline. The depot opens every coordinate list.
func NewPipeline(resolver *AddressResolver, geocoder Geocoder, depotName string, depot model.Coordinate, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:    resolver,
		geocoder:    geocoder,
		limiter:     rate.NewLimiter(rate.Every(DefaultPacing), 1),
		concurrency: 1,
		depotName:   depotName,
		depot:       depot,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolution is the outcome of a pipeline run.
type Resolution struct {
	// Customers holds one entry per distinct non-blank name, in sheet order.
	Customers []model.ResolvedCustomer
	// Coordinates is the depot followed by every geocoded customer.
	Coordinates *model.CoordinateList
}

// Customer returns the resolved customer with the given name.
func (r *Resolution) Customer(name string) (model.ResolvedCustomer, bool) {
	for _, c := range r.Customers {
		if c.Name == name {
			return c, true
		}
	}
	return model.ResolvedCustomer{}, false
}

// Unmatched lists customers without an address.
func (r *Resolution) Unmatched() []string {
	var out []string
	for _, c := range r.Customers {
		if !c.Resolved() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Ungeocoded lists customers with an address but no usable coordinate.
func (r *Resolution) Ungeocoded() []string {
	var out []string
	for _, c := range r.Customers {
		if c.Resolved() && !c.Geocoded() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Excluded lists every customer left out of the route, in sheet order.
func (r *Resolution) Excluded() []string {
	var out []string
	for _, c := range r.Customers {
		if !c.Geocoded() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Distinct trims names, drops blank ones and keeps the first occurrence of
// each duplicate.
func Distinct(queries []model.CustomerQuery) []model.CustomerQuery {
	seen := make(map[string]bool, len(queries))
	out := make([]model.CustomerQuery, 0, len(queries))
	for _, q := range queries {
		q.Name = strings.TrimSpace(q.Name)
		if q.Name == "" {
			continue
		}
		if seen[q.Name] {
			zap.L().Debug("resolve: duplicate customer ignored", zap.String("customer", q.Name), zap.Int("row", q.Row))
			continue
		}
		seen[q.Name] = true
		out = append(out, q)
	}
	return out
}

// Run resolves queries. Unmatched names and postal codes the geocoder does
// not know are logged and reported in the Resolution. A geocoder error, such
// as a failed dataset download, or cancellation of ctx aborts the run.
func (p *Pipeline) Run(ctx context.Context, queries []model.CustomerQuery) (*Resolution, error) {
	distinct := Distinct(queries)
	slots := make([]model.ResolvedCustomer, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, q := range distinct {
		g.Go(func() error {
			rc := p.resolver.Resolve(q)
			if rc.Address != nil {
				coord, err := p.locate(gctx, rc)
				if err != nil {
					return err
				}
				rc.Coordinate = coord
			}
			slots[i] = rc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve: pipeline")
	}

	coords := model.NewCoordinateList(p.depotName, p.depot)
	for _, c := range slots {
		if c.Geocoded() {
			coords.Append(c.Name, *c.Coordinate)
		}
	}

	res := &Resolution{Customers: slots, Coordinates: coords}
	zap.L().Info("resolve: customers resolved",
		zap.Int("customers", len(slots)),
		zap.Int("geocoded", coords.Customers()),
		zap.Strings("unmatched", res.Unmatched()),
		zap.Strings("ungeocoded", res.Ungeocoded()),
	)
	return res, nil
}

// locate returns the coordinate of a resolved customer, or nil when the
// address has no postal code or the geocoder reports a miss.
func (p *Pipeline) locate(ctx context.Context, rc model.ResolvedCustomer) (*model.Coordinate, error) {
	addr := rc.Address
	if addr.Country == "" || addr.PostalCode == "" {
		zap.L().Warn("resolve: address lacks country or postal code, skipping coordinates",
			zap.String("customer", rc.Name),
			zap.String("country", addr.Country),
			zap.String("postal_code", addr.PostalCode),
		)
		return nil, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "resolve: pacing wait")
	}

	res, err := p.geocoder.Lookup(ctx, addr.Country, addr.PostalCode)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: locate %s (%s-%s)", rc.Name, addr.Country, addr.PostalCode)
	}
	if res == nil || !res.Matched {
		zap.L().Warn("resolve: no coordinates for postal code",
			zap.String("customer", rc.Name),
			zap.String("country", addr.Country),
			zap.String("postal_code", addr.PostalCode),
		)
		return nil, nil
	}

	c := model.Coordinate{Lat: res.Latitude, Lon: res.Longitude}
	if !c.Valid() {
		zap.L().Warn("resolve: discarding invalid coordinate",
			zap.String("customer", rc.Name),
			zap.Float64("lat", c.Lat),
			zap.Float64("lon", c.Lon),
		)
		return nil, nil
	}
	return &c, nil
}
