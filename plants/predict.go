package plants

import (
	"context"
	"time"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/grid"
)

type PredictionPoint struct {
	Date  time.Time `json:"date"`
	Power float64   `json:"power"`
}

type CurrentProduction struct {
	UserID       string          `json:"userId"`
	Email        string          `json:"email"`
	PowerPlantID string          `json:"powerPlantId"`
	DisplayName  string          `json:"displayName"`
	Production   PredictionPoint `json:"production"`
}

// Predict turns the radiation forecast for the plant's position into a
// power series using the latest calibration coefficient. Points before the
// next grid slot are dropped so the series always starts in the future.
// tzOffsetHours shifts the reported timestamps for display only.
func (s *Service) Predict(ctx context.Context, powerPlantID string, tzOffsetHours int) ([]PredictionPoint, error) {
	plant, err := s.Get(ctx, powerPlantID)
	if err != nil {
		return nil, err
	}
	return s.predict(ctx, plant, tzOffsetHours)
}

func (s *Service) predict(ctx context.Context, plant PowerPlant, tzOffsetHours int) ([]PredictionPoint, error) {
	latest, err := s.db.LatestCalibration(ctx, plant.ID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.PreconditionFailed("no calibration data")
		}
		return nil, err
	}

	readings, err := s.provider.SolarRadiationForecast(ctx, plant.Latitude, plant.Longitude)
	if err != nil {
		return nil, domain.Upstream("fetching solar radiation forecast", err)
	}
	if len(readings) == 0 {
		return nil, domain.PreconditionFailed("could not retrieve data for forecasts")
	}

	coefficient := latest.Value
	if coefficient <= 0 {
		return nil, domain.PreconditionFailed("coefficient must be greater than 0")
	}

	cutoff := grid.RoundUp(time.Now().UTC())
	points := make([]PredictionPoint, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		points = append(points, PredictionPoint{
			Date:  grid.Shift(r.Timestamp, tzOffsetHours),
			Power: r.Solar * coefficient,
		})
	}
	return points, nil
}

// PredictByDays folds the prediction series into daily energy totals. Each
// slot contributes power times a quarter hour; a new bucket opens whenever
// the calendar day of the shifted timestamp changes.
func (s *Service) PredictByDays(ctx context.Context, powerPlantID string, tzOffsetHours int) ([]float64, error) {
	points, err := s.Predict(ctx, powerPlantID, tzOffsetHours)
	if err != nil {
		return nil, err
	}
	return FoldByDays(points), nil
}

// FoldByDays buckets an ordered prediction series into per-day energy sums.
func FoldByDays(points []PredictionPoint) []float64 {
	var days []float64
	currentDay := ""
	for _, p := range points {
		key := grid.DayKey(p.Date)
		if key != currentDay {
			currentDay = key
			days = append(days, 0)
		}
		days[len(days)-1] += p.Power * grid.StepHours
	}
	return days
}

// CurrentProductionForUser resolves the prediction point matching the
// current grid slot for every plant the user owns. When the series has no
// point for the current slot the first upcoming point is reported instead.
func (s *Service) CurrentProductionForUser(ctx context.Context, userID string, tzOffsetHours int) ([]CurrentProduction, error) {
	plants, err := s.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(plants))
	for _, plant := range plants {
		ids = append(ids, plant.ID)
	}
	return s.CurrentProductionForPlants(ctx, ids, tzOffsetHours)
}

// CurrentProductionForPlants resolves the current-slot prediction point for
// each listed plant, annotated with its owner.
func (s *Service) CurrentProductionForPlants(ctx context.Context, powerPlantIDs []string, tzOffsetHours int) ([]CurrentProduction, error) {
	slot := grid.Shift(grid.Floor(time.Now().UTC()), tzOffsetHours)
	result := make([]CurrentProduction, 0, len(powerPlantIDs))
	for _, id := range powerPlantIDs {
		plant, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		owner, err := s.users.FindByID(ctx, plant.UserID)
		if err != nil {
			return nil, err
		}
		points, err := s.predict(ctx, plant, tzOffsetHours)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			continue
		}
		point := points[0]
		for _, p := range points {
			if p.Date.Equal(slot) {
				point = p
				break
			}
		}
		result = append(result, CurrentProduction{
			UserID:       owner.ID,
			Email:        owner.Email,
			PowerPlantID: plant.ID,
			DisplayName:  plant.DisplayName,
			Production:   point,
		})
	}
	return result, nil
}
