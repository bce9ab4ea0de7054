package forecast

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/grid"
)

type countingProvider struct {
	calls    int
	readings []Reading
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) CurrentSolarRadiation(ctx context.Context, lat, lon float64) (Reading, error) {
	readings, err := p.SolarRadiationForecast(ctx, lat, lon)
	if err != nil {
		return Reading{}, err
	}
	return CurrentFromSeries(readings, time.Now())
}

func (p *countingProvider) SolarRadiationForecast(context.Context, float64, float64) ([]Reading, error) {
	p.calls++
	return p.readings, nil
}

func newCached(t *testing.T, inner Provider, freshness time.Duration) *Cached {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewCached(inner, db, freshness)
}

func TestCachedServesFreshEntryWithoutRefetch(t *testing.T) {
	inner := &countingProvider{readings: []Reading{
		{Solar: 100, Timestamp: grid.Floor(time.Now().UTC())},
	}}
	c := newCached(t, inner, 6*time.Hour)
	ctx := context.Background()

	first, err := c.SolarRadiationForecast(ctx, 52.52, 13.41)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, inner.calls)

	second, err := c.SolarRadiationForecast(ctx, 52.52, 13.41)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.InDelta(t, 100.0, second[0].Solar, 1e-9)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedRefetchesStaleEntry(t *testing.T) {
	inner := &countingProvider{readings: []Reading{
		{Solar: 100, Timestamp: grid.Floor(time.Now().UTC())},
	}}
	c := newCached(t, inner, 6*time.Hour)
	ctx := context.Background()

	_, err := c.SolarRadiationForecast(ctx, 52.52, 13.41)
	require.NoError(t, err)

	// Move the clock past the freshness window.
	c.now = func() time.Time { return time.Now().Add(7 * time.Hour) }

	_, err = c.SolarRadiationForecast(ctx, 52.52, 13.41)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedKeysByCoordinate(t *testing.T) {
	inner := &countingProvider{readings: []Reading{
		{Solar: 100, Timestamp: grid.Floor(time.Now().UTC())},
	}}
	c := newCached(t, inner, 6*time.Hour)
	ctx := context.Background()

	_, err := c.SolarRadiationForecast(ctx, 52.52, 13.41)
	require.NoError(t, err)
	_, err = c.SolarRadiationForecast(ctx, 48.13, 11.58)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCurrentFromSeries(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 7, 0, 0, time.UTC)
	bucket := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r, err := CurrentFromSeries([]Reading{
		{Solar: 50, Timestamp: bucket.Add(-grid.Step)},
		{Solar: 75, Timestamp: bucket},
	}, now)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, r.Solar, 1e-9)

	_, err = CurrentFromSeries([]Reading{{Solar: 50, Timestamp: bucket.Add(grid.Step)}}, now)
	assert.Error(t, err)
}
