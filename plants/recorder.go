package plants

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/grid"
)

// RecordSnapshot captures one historical row per plant for the current grid
// slot: the measured solar radiation, the measured power when a gateway
// reported one recently, and the power the latest calibration predicts for
// the upcoming slot. Slots that already have a row, either in the database
// or earlier in the same run, are skipped, so a rerun after a partial
// failure never duplicates data.
func (s *Service) RecordSnapshot(ctx context.Context, batchSize int) (int, error) {
	rows, err := s.db.GetAllPowerPlants(ctx)
	if err != nil {
		return 0, err
	}

	batch := make([]database.HistoricalRow, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		plant, err := s.load(ctx, row)
		if err != nil {
			return 0, err
		}

		reading, err := s.provider.CurrentSolarRadiation(ctx, plant.Latitude, plant.Longitude)
		if err != nil {
			return 0, err
		}
		slot := grid.Floor(reading.Timestamp)

		key := plant.ID + "|" + slot.Format(time.RFC3339)
		if _, dup := seen[key]; dup {
			continue
		}
		exists, err := s.db.HasHistoricalRecord(ctx, plant.ID, slot)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		var predicted float64
		if len(plant.Calibration) > 0 {
			points, err := s.predict(ctx, plant, 0)
			if err != nil {
				return 0, err
			}
			target := slot.Add(grid.Step)
			for _, p := range points {
				if p.Date.Equal(target) {
					predicted = p.Power
					break
				}
			}
		}

		var power float64
		if s.power != nil {
			if p, at, ok := s.power.LatestPower(plant.ID); ok && slot.Sub(at) <= grid.Step && at.Sub(slot) <= grid.Step {
				power = p
			}
		}

		seen[key] = struct{}{}
		batch = append(batch, database.HistoricalRow{
			PowerPlantID:   plant.ID,
			Timestamp:      slot,
			Solar:          reading.Solar,
			Power:          power,
			PredictedPower: predicted,
		})
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.db.InsertHistoricalBatch(ctx, batch, batchSize); err != nil {
		return 0, err
	}

	s.logger.Info("historical snapshot recorded",
		slog.Int("plants", len(rows)),
		slog.Int("rows", len(batch)))
	return len(batch), nil
}
