package model

// Stop is one delivery in the visiting order.
type Stop struct {
	Rank          int    `json:"rank"`           // 1..N, visiting order
	Customer      string `json:"customer"`       // customer name
	InputPosition int    `json:"input_position"` // 1..N, position in the coordinate list
}

// UnloadingOrder maps visiting rank to customer for geocoded customers.
// It is immutable once built.
type UnloadingOrder struct {
	stops []Stop
}

// NewUnloadingOrder builds an order from stops already sorted by rank.
func NewUnloadingOrder(stops []Stop) UnloadingOrder {
	cp := make([]Stop, len(stops))
	copy(cp, stops)
	return UnloadingOrder{stops: cp}
}

// Len is the number of stops.
func (o UnloadingOrder) Len() int { return len(o.stops) }

// Customer returns the customer visited at rank (1-based).
func (o UnloadingOrder) Customer(rank int) (string, bool) {
	if rank < 1 || rank > len(o.stops) {
		return "", false
	}
	return o.stops[rank-1].Customer, true
}

// Stops returns a copy of the stops in visiting order.
func (o UnloadingOrder) Stops() []Stop {
	out := make([]Stop, len(o.stops))
	copy(out, o.stops)
	return out
}

// LoadingSequence returns the stops in truck-loading order: last delivered
// is loaded first.
func (o UnloadingOrder) LoadingSequence() []Stop {
	out := make([]Stop, len(o.stops))
	for i, s := range o.stops {
		out[len(o.stops)-1-i] = s
	}
	return out
}
