package plants

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
)

// Calibrate records a measurement of actual output power, converts it to a
// coefficient against the current solar radiation at the plant's position
// and appends it to the calibration history. Earlier entries are never
// rewritten.
func (s *Service) Calibrate(ctx context.Context, userID, powerPlantID string, power float64) (PowerPlant, error) {
	if power <= 0 {
		return PowerPlant{}, domain.Validation("power must be greater than 0")
	}

	plant, err := s.FindForUser(ctx, userID, powerPlantID)
	if err != nil {
		return PowerPlant{}, err
	}

	reading, err := s.provider.CurrentSolarRadiation(ctx, plant.Latitude, plant.Longitude)
	if err != nil {
		return PowerPlant{}, domain.Upstream("fetching current solar radiation", err)
	}
	if reading.Solar <= 0 {
		return PowerPlant{}, domain.PreconditionFailed("please calibrate when solar radiation is greater than 0")
	}

	value := power / reading.Solar
	if err := s.db.AddCalibration(ctx, database.CalibrationRow{
		PowerPlantID: powerPlantID,
		TakenAt:      time.Now().UTC(),
		Value:        value,
	}); err != nil {
		return PowerPlant{}, err
	}

	s.logger.Info("power plant calibrated",
		slog.String("powerPlantId", powerPlantID),
		slog.Float64("power", power),
		slog.Float64("solar", reading.Solar),
		slog.Float64("value", value))

	return s.Get(ctx, powerPlantID)
}
