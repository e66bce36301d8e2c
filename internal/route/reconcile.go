// Package route turns an optimized trip into a customer visiting order with
// per-leg transit estimates.
package route

import (
	"github.com/rotisserie/eris"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/pkg/osrm"
)

// ErrReconcile reports a trip response that does not fit the coordinate
// list it was computed from.
var ErrReconcile = eris.New("route: trip response does not match request")

// Reconcile maps the optimizer's waypoint ranks back to customer names.
// provenance[p-1] names the customer sent at input position p; position 0 is
// the depot. Any inconsistency is returned as ErrReconcile.
func Reconcile(resp *osrm.TripResponse, provenance []string) (model.UnloadingOrder, error) {
	if resp == nil {
		return model.UnloadingOrder{}, eris.Wrap(ErrReconcile, "nil response")
	}
	n := len(provenance)
	if len(resp.Waypoints) != n+1 {
		return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "got %d waypoints for %d coordinates", len(resp.Waypoints), n+1)
	}
	if len(resp.Trips) != 1 {
		return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "expected a single trip, got %d", len(resp.Trips))
	}
	if legs := len(resp.Trips[0].Legs); legs != n {
		return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "got %d legs for %d stops", legs, n)
	}
	if wi := resp.Waypoints[0].WaypointIndex; wi != 0 {
		return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "depot has waypoint index %d", wi)
	}

	stops := make([]model.Stop, n)
	filled := make([]bool, n)
	for p := 1; p <= n; p++ {
		wp := resp.Waypoints[p]
		if wp.TripsIndex != 0 {
			return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "position %d belongs to trip %d", p, wp.TripsIndex)
		}
		k := wp.WaypointIndex
		if k < 1 || k > n {
			return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "position %d has waypoint index %d outside 1..%d", p, k, n)
		}
		if filled[k-1] {
			return model.UnloadingOrder{}, eris.Wrapf(ErrReconcile, "waypoint index %d assigned twice", k)
		}
		filled[k-1] = true
		stops[k-1] = model.Stop{Rank: k, Customer: provenance[p-1], InputPosition: p}
	}
	return model.NewUnloadingOrder(stops), nil
}
