package plants

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/grid"
)

type fakePowerReader struct {
	power float64
	at    time.Time
	ok    bool
}

func (f *fakePowerReader) LatestPower(string) (float64, time.Time, bool) {
	return f.power, f.at, f.ok
}

func TestRecordSnapshotSkipsExistingSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plant := f.createPlant(t, defaultParams())

	slot := grid.Floor(time.Now().UTC())
	f.provider.current = forecast.Reading{Solar: 100, Timestamp: slot}
	f.provider.forecast = []forecast.Reading{{Solar: 120, Timestamp: slot.Add(grid.Step)}}

	inserted, err := f.plants.RecordSnapshot(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = f.plants.RecordSnapshot(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	rows, err := f.plants.History(ctx, []string{plant.ID}, slot.Add(-time.Hour), slot.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 100.0, rows[0].Solar, 1e-9)
}

func TestRecordSnapshotStoresUpcomingPrediction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plant := f.createPlant(t, defaultParams())

	slot := grid.Floor(time.Now().UTC())
	f.provider.current = forecast.Reading{Solar: 100, Timestamp: slot}
	f.provider.forecast = []forecast.Reading{
		{Solar: 120, Timestamp: slot.Add(grid.Step)},
		{Solar: 140, Timestamp: slot.Add(2 * grid.Step)},
	}

	_, err := f.plants.RecordSnapshot(ctx, 100)
	require.NoError(t, err)

	rows, err := f.plants.History(ctx, []string{plant.ID}, slot.Add(-time.Hour), slot.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Seeded coefficient 5 applied to the 120 W/m2 slot after the snapshot.
	assert.InDelta(t, 600.0, rows[0].PredictedPower, 1e-9)
}

func TestRecordSnapshotUsesRecentMeasuredPower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot := grid.Floor(time.Now().UTC())
	reader := &fakePowerReader{power: 420, at: slot, ok: true}
	svc := NewService(f.db, f.provider, f.users, reader)

	plant := f.createPlant(t, defaultParams())
	f.provider.current = forecast.Reading{Solar: 100, Timestamp: slot}
	f.provider.forecast = []forecast.Reading{{Solar: 120, Timestamp: slot.Add(grid.Step)}}

	_, err := svc.RecordSnapshot(ctx, 100)
	require.NoError(t, err)

	rows, err := svc.History(ctx, []string{plant.ID}, slot.Add(-time.Hour), slot.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 420.0, rows[0].Power, 1e-9)
}

func TestRecordSnapshotIgnoresStaleMeasuredPower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot := grid.Floor(time.Now().UTC())
	reader := &fakePowerReader{power: 420, at: slot.Add(-2 * time.Hour), ok: true}
	svc := NewService(f.db, f.provider, f.users, reader)

	plant := f.createPlant(t, defaultParams())
	f.provider.current = forecast.Reading{Solar: 100, Timestamp: slot}
	f.provider.forecast = []forecast.Reading{{Solar: 120, Timestamp: slot.Add(grid.Step)}}

	_, err := svc.RecordSnapshot(ctx, 100)
	require.NoError(t, err)

	rows, err := svc.History(ctx, []string{plant.ID}, slot.Add(-time.Hour), slot.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].Power)
}
