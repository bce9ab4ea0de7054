// Package forecast defines the contract every irradiance source has to
// satisfy. Providers differ in native resolution and transport, the rest of
// the system only ever sees the common Reading shape.
package forecast

import (
	"context"
	"time"
)

// Reading is one irradiance sample, on the upstream's native grid.
type Reading struct {
	Solar     float64   `json:"solar"` // W/m2
	Timestamp time.Time `json:"timestamp"`
}

// Provider is the pluggable irradiance source. A returned empty/nil series
// means "forecast unavailable", never zero irradiance.
type Provider interface {
	// Name identifies the provider for logs and cache keys.
	Name() string
	// CurrentSolarRadiation returns the reading for the grid bucket "now"
	// falls in.
	CurrentSolarRadiation(ctx context.Context, lat, lon float64) (Reading, error)
	// SolarRadiationForecast returns current plus future readings, typically
	// about 7 days ahead.
	SolarRadiationForecast(ctx context.Context, lat, lon float64) ([]Reading, error)
}
