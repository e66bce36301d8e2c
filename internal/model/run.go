package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// RunStatus represents the current state of a planning run.
type RunStatus string

const (
	RunStatusPlanning RunStatus = "planning"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single planning run.
type Run struct {
	ID         string           `json:"id" yaml:"id"`
	OrderSheet string           `json:"order_sheet" yaml:"order_sheet"`
	Departure  string           `json:"departure" yaml:"departure"`
	Status     RunStatus        `json:"status" yaml:"status"`
	Summary    *RunSummary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Stops      []RunStop        `json:"stops,omitempty" yaml:"stops,omitempty"`
	Path       *geom.LineString `json:"-" yaml:"-"` // route geometry, EPSG:4326
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" yaml:"updated_at"`
}

// RunSummary holds the totals of a completed run.
type RunSummary struct {
	Customers  int      `json:"customers" yaml:"customers"`
	Stops      int      `json:"stops" yaml:"stops"`
	TotalKm    float64  `json:"total_km" yaml:"total_km"`
	TotalHours float64  `json:"total_hours" yaml:"total_hours"`
	Unmatched  []string `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Ungeocoded []string `json:"ungeocoded,omitempty" yaml:"ungeocoded,omitempty"`
}

// RunStop is one persisted stop of a completed run.
type RunStop struct {
	Rank       int     `json:"rank" yaml:"rank"`
	Customer   string  `json:"customer" yaml:"customer"`
	Country    string  `json:"country,omitempty" yaml:"country,omitempty"`
	PostalCode string  `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Lat        float64 `json:"lat" yaml:"lat"`
	Lon        float64 `json:"lon" yaml:"lon"`
	DistanceKm float64 `json:"distance_km" yaml:"distance_km"`
	Hours      float64 `json:"hours" yaml:"hours"`
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	Status RunStatus
	Limit  int
}
