package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/grid"
)

// Cached wraps a provider with a per-coordinate store-backed cache. A cached
// series is served only while younger than the freshness window, after that
// it is re-fetched and overwritten.
type Cached struct {
	inner     Provider
	db        *database.Database
	freshness time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewCached(inner Provider, db *database.Database, freshness time.Duration) *Cached {
	return &Cached{
		inner:     inner,
		db:        db,
		freshness: freshness,
		logger:    slog.Default().With("module", "forecast", slog.String("provider", inner.Name())),
		now:       time.Now,
	}
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

func (c *Cached) SolarRadiationForecast(ctx context.Context, lat, lon float64) ([]Reading, error) {
	row, err := c.db.GetForecastCache(ctx, c.inner.Name(), lat, lon)
	if err == nil && c.now().Sub(row.FetchedAt) < c.freshness {
		var readings []Reading
		if err := json.Unmarshal(row.Payload, &readings); err == nil {
			c.logger.Debug("serving forecast from cache",
				slog.Float64("lat", lat),
				slog.Float64("lon", lon),
				slog.Time("fetchedAt", row.FetchedAt))
			return readings, nil
		}
		c.logger.Warn("corrupt forecast cache payload, re-fetching", slog.Any("error", err))
	}

	readings, err := c.inner.SolarRadiationForecast(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(readings)
	if err != nil {
		return nil, fmt.Errorf("marshaling forecast for cache: %w", err)
	}
	if err := c.db.SaveForecastCache(ctx, database.ForecastCacheRow{
		Provider:  c.inner.Name(),
		Latitude:  lat,
		Longitude: lon,
		FetchedAt: c.now(),
		Payload:   payload,
	}); err != nil {
		// A cache write failure must not fail the fetch itself.
		c.logger.Warn("failed to cache forecast", slog.Any("error", err))
	}

	return readings, nil
}

func (c *Cached) CurrentSolarRadiation(ctx context.Context, lat, lon float64) (Reading, error) {
	readings, err := c.SolarRadiationForecast(ctx, lat, lon)
	if err != nil {
		return Reading{}, err
	}
	return CurrentFromSeries(readings, c.now())
}

// CurrentFromSeries picks the reading for the grid bucket now falls in.
func CurrentFromSeries(readings []Reading, now time.Time) (Reading, error) {
	bucket := grid.Floor(now)
	for _, r := range readings {
		if r.Timestamp.Equal(bucket) {
			return r, nil
		}
	}
	return Reading{}, fmt.Errorf("no reading for current bucket %s", bucket.Format(time.RFC3339))
}
