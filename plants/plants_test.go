package plants

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/grid"
	"github.com/wattshare/wattshare-go/users"
)

type fakeProvider struct {
	current  forecast.Reading
	forecast []forecast.Reading
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CurrentSolarRadiation(context.Context, float64, float64) (forecast.Reading, error) {
	return f.current, nil
}

func (f *fakeProvider) SolarRadiationForecast(context.Context, float64, float64) ([]forecast.Reading, error) {
	return f.forecast, nil
}

type fixture struct {
	db       *database.Database
	provider *fakeProvider
	users    *users.Service
	plants   *Service
	userID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	provider := &fakeProvider{}
	userSvc := users.NewService(db)
	user, err := userSvc.Register(ctx, "auth0|fixture", "owner@example.com")
	require.NoError(t, err)

	return &fixture{
		db:       db,
		provider: provider,
		users:    userSvc,
		plants:   NewService(db, provider, userSvc, nil),
		userID:   user.ID,
	}
}

func (f *fixture) createPlant(t *testing.T, params CreateParams) PowerPlant {
	t.Helper()
	plant, err := f.plants.Create(context.Background(), f.userID, params)
	require.NoError(t, err)
	return plant
}

func defaultParams() CreateParams {
	return CreateParams{
		DisplayName: "roof",
		Latitude:    52.52,
		Longitude:   13.41,
		MaxPower:    100,
		Size:        100,
	}
}

func TestCreateSeedsDefaultCalibration(t *testing.T) {
	f := newFixture(t)

	plant := f.createPlant(t, defaultParams())

	require.Len(t, plant.Calibration, 1)
	assert.InDelta(t, 5.0, plant.Calibration[0].Value, 1e-9)
}

func TestCreateWithoutRatingSkipsSeed(t *testing.T) {
	f := newFixture(t)

	params := defaultParams()
	params.MaxPower = 0
	plant := f.createPlant(t, params)

	assert.Empty(t, plant.Calibration)
}

func TestFirstPlantGrantsOwnerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	roles, err := f.users.Roles(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, users.HasRole(roles, users.RolePowerPlantOwner))

	plant := f.createPlant(t, defaultParams())

	roles, err = f.users.Roles(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, users.HasRole(roles, users.RolePowerPlantOwner))

	require.NoError(t, f.plants.Delete(ctx, f.userID, plant.ID))

	roles, err = f.users.Roles(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, users.HasRole(roles, users.RolePowerPlantOwner))
}

func TestDeleteKeepsRoleWhileOtherPlantsRemain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createPlant(t, defaultParams())
	second := f.createPlant(t, CreateParams{DisplayName: "garage", Latitude: 52, Longitude: 13, MaxPower: 10, Size: 20})

	require.NoError(t, f.plants.Delete(ctx, f.userID, first.ID))

	roles, err := f.users.Roles(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, users.HasRole(roles, users.RolePowerPlantOwner))

	require.NoError(t, f.plants.Delete(ctx, f.userID, second.ID))

	roles, err = f.users.Roles(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, users.HasRole(roles, users.RolePowerPlantOwner))
}

func TestFindForUserHidesForeignPlants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plant := f.createPlant(t, defaultParams())
	stranger, err := f.users.Register(ctx, "auth0|stranger", "stranger@example.com")
	require.NoError(t, err)

	_, err = f.plants.FindForUser(ctx, stranger.ID, plant.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCalibrateRejectsNonPositivePower(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())

	_, err := f.plants.Calibrate(context.Background(), f.userID, plant.ID, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCalibrateRejectsZeroIrradiance(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())
	f.provider.current = forecast.Reading{Solar: 0, Timestamp: grid.Floor(time.Now().UTC())}

	_, err := f.plants.Calibrate(context.Background(), f.userID, plant.ID, 500)
	assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
}

func TestCalibrateAppendsCoefficient(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())
	f.provider.current = forecast.Reading{Solar: 200, Timestamp: grid.Floor(time.Now().UTC())}

	updated, err := f.plants.Calibrate(context.Background(), f.userID, plant.ID, 500)
	require.NoError(t, err)

	require.Len(t, updated.Calibration, 2)
	assert.InDelta(t, 5.0, updated.Calibration[0].Value, 1e-9)
	assert.InDelta(t, 2.5, updated.Calibration[1].Value, 1e-9)
}

func TestPredictRequiresCalibration(t *testing.T) {
	f := newFixture(t)
	params := defaultParams()
	params.MaxPower = 0
	plant := f.createPlant(t, params)

	_, err := f.plants.Predict(context.Background(), plant.ID, 0)
	require.Error(t, err)
	assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
	assert.EqualError(t, err, "no calibration data")
}

func TestPredictAppliesLatestCoefficient(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())

	start := grid.RoundUp(time.Now().UTC()).Add(grid.Step)
	f.provider.forecast = []forecast.Reading{
		{Solar: 100, Timestamp: start},
		{Solar: 200, Timestamp: start.Add(grid.Step)},
	}

	points, err := f.plants.Predict(context.Background(), plant.ID, 0)
	require.NoError(t, err)

	// Seeded coefficient is 5 for maxPower 100 and size 100.
	require.Len(t, points, 2)
	assert.InDelta(t, 500.0, points[0].Power, 1e-9)
	assert.InDelta(t, 1000.0, points[1].Power, 1e-9)
}

func TestPredictDropsPastSlots(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())

	now := time.Now().UTC()
	future := grid.RoundUp(now).Add(grid.Step)
	f.provider.forecast = []forecast.Reading{
		{Solar: 100, Timestamp: grid.Floor(now).Add(-grid.Step)},
		{Solar: 100, Timestamp: future},
	}

	points, err := f.plants.Predict(context.Background(), plant.ID, 0)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.True(t, points[0].Date.Equal(future))
}

func TestPredictShiftsTimezone(t *testing.T) {
	f := newFixture(t)
	plant := f.createPlant(t, defaultParams())

	slot := grid.RoundUp(time.Now().UTC()).Add(grid.Step)
	f.provider.forecast = []forecast.Reading{{Solar: 100, Timestamp: slot}}

	points, err := f.plants.Predict(context.Background(), plant.ID, 2)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.True(t, points[0].Date.Equal(slot.Add(2*time.Hour)))
}

func TestFoldByDays(t *testing.T) {
	day1 := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	points := []PredictionPoint{
		{Date: day1, Power: 400},
		{Date: day1.Add(grid.Step), Power: 400},
		{Date: day2, Power: 1000},
	}

	days := FoldByDays(points)

	require.Len(t, days, 2)
	assert.InDelta(t, 200.0, days[0], 1e-9) // two slots of 400 W, a quarter hour each
	assert.InDelta(t, 250.0, days[1], 1e-9)
}

func TestFoldByDaysEmpty(t *testing.T) {
	assert.Empty(t, FoldByDays(nil))
}
