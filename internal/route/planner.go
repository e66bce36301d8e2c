package route

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/pkg/osrm"
)

// Optimizer computes an open trip starting at the first coordinate.
type Optimizer interface {
	Trip(ctx context.Context, coords []model.Coordinate) (*osrm.TripResponse, error)
}

// Leg is the drive to one stop of the plan.
type Leg struct {
	Rank       int              `json:"rank"`
	Customer   string           `json:"customer"`
	Coordinate model.Coordinate `json:"coordinate"`
	DistanceKm float64          `json:"distance_km"`
	Hours      float64          `json:"hours"`
}

// Plan is a reconciled trip.
type Plan struct {
	DepotName  string
	Depot      model.Coordinate
	Order      model.UnloadingOrder
	Legs       []Leg // visiting order, Legs[i].Rank == i+1
	TotalKm    float64
	TotalHours float64
	Path       *geom.LineString // nil when there is nothing to visit
}

// Empty reports whether the plan has no stops.
func (p *Plan) Empty() bool { return len(p.Legs) == 0 }

// Planner turns a coordinate list into a Plan.
type Planner struct {
	optimizer Optimizer
}

// NewPlanner creates a Planner.
func NewPlanner(optimizer Optimizer) *Planner {
	return &Planner{optimizer: optimizer}
}

// Plan calls the optimizer once and reconciles its answer with coords. A list
// holding only the depot yields an empty plan without a request. Optimizer
// and reconciliation failures are returned unchanged in kind.
func (p *Planner) Plan(ctx context.Context, coords *model.CoordinateList) (*Plan, error) {
	plan := &Plan{DepotName: coords.DepotName, Depot: coords.Depot}
	if coords.Customers() == 0 {
		zap.L().Warn("route: no geocoded customers, nothing to plan")
		return plan, nil
	}

	resp, err := p.optimizer.Trip(ctx, coords.Points())
	if err != nil {
		return nil, eris.Wrap(err, "route: optimize trip")
	}

	order, err := Reconcile(resp, coords.Provenance)
	if err != nil {
		return nil, err
	}

	trip := resp.Trips[0]
	path, err := trip.Path()
	if err != nil {
		return nil, eris.Wrap(err, "route: trip geometry")
	}

	kms := trip.LegKilometers()
	hours := EstimateTransit(kms)
	plan.Order = order
	plan.Path = path
	plan.Legs = make([]Leg, order.Len())
	for i, s := range order.Stops() {
		plan.Legs[i] = Leg{
			Rank:       s.Rank,
			Customer:   s.Customer,
			Coordinate: coords.At(s.InputPosition),
			DistanceKm: kms[i],
			Hours:      hours[i],
		}
		plan.TotalKm += kms[i]
		plan.TotalHours += hours[i]
	}

	zap.L().Info("route: trip planned",
		zap.Int("stops", order.Len()),
		zap.Float64("total_km", plan.TotalKm),
		zap.Float64("total_hours", plan.TotalHours),
	)
	return plan, nil
}
