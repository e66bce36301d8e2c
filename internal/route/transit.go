package route

import (
	"math"
	"strconv"
)

const (
	averageSpeedKmh = 60.0
	breakEveryHours = 4.5
	breakHours      = 0.75
	restEveryHours  = 9.0
	restHours       = 11.0
)

// EstimateLeg returns the driving hours for a leg of km kilometers at an
// average 60 km/h, plus a 45 minute break per 4.5 h block and an 11 h rest
// per 9 h block. Block counts are rounded half to even, independently, and
// so is the result at two decimals.
func EstimateLeg(km float64) float64 {
	if km <= 0 {
		return 0
	}
	t := km / averageSpeedKmh
	t += math.RoundToEven(t/breakEveryHours)*breakHours + math.RoundToEven(t/restEveryHours)*restHours
	return round2(t)
}

// round2 rounds the exact binary value of v to two decimals, ties to even.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// EstimateTransit applies EstimateLeg to every leg, preserving order.
func EstimateTransit(legsKm []float64) []float64 {
	out := make([]float64, len(legsKm))
	for i, km := range legsKm {
		out[i] = EstimateLeg(km)
	}
	return out
}
