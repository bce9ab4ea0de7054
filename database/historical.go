package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoricalRow is one realized/predicted pair on the 15-minute grid.
// Rows are append-only, written exclusively by the historical recorder.
type HistoricalRow struct {
	PowerPlantID   string
	Timestamp      time.Time
	Solar          float64
	Power          float64
	PredictedPower float64
}

// InsertHistoricalBatch writes rows in chunks of batchSize inside one
// transaction per chunk. INSERT OR IGNORE keeps a re-run from doubling a
// (plant, timestamp) pair if the pre-insert check raced a retry.
func (d *Database) InsertHistoricalBatch(ctx context.Context, rows []HistoricalRow, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = 1000
	}

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		chunk := rows[start:end]

		tx, err := d.write.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting historical batch transaction: %w", err)
		}

		for _, row := range chunk {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO historical_data
					(power_plant_id, timestamp, solar, power, predicted_power)
				VALUES (?, ?, ?, ?, ?)`,
				row.PowerPlantID, row.Timestamp.Unix(), row.Solar, row.Power, row.PredictedPower)
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					return fmt.Errorf("rolling back historical batch: %w", rbErr)
				}
				return fmt.Errorf("inserting historical row for plant %s: %w", row.PowerPlantID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing historical batch: %w", err)
		}
	}

	return nil
}

// HasHistoricalRecord is the durable half of the recorder's de-duplication
// check.
func (d *Database) HasHistoricalRecord(ctx context.Context, powerPlantID string, timestamp time.Time) (bool, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM historical_data
		WHERE power_plant_id = ? AND timestamp = ?`,
		powerPlantID, timestamp.Unix()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking historical record: %w", err)
	}
	return n > 0, nil
}

func (d *Database) GetHistoricalRange(ctx context.Context, powerPlantIDs []string, from, to time.Time) ([]HistoricalRow, error) {
	if len(powerPlantIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(powerPlantIDs)), ",")
	args := make([]any, 0, len(powerPlantIDs)+2)
	for _, id := range powerPlantIDs {
		args = append(args, id)
	}
	args = append(args, from.Unix(), to.Unix())

	rows, err := d.read.QueryContext(ctx, fmt.Sprintf(`
		SELECT power_plant_id, timestamp, solar, power, predicted_power
		FROM historical_data
		WHERE power_plant_id IN (%s) AND timestamp >= ? AND timestamp <= ?
		ORDER BY power_plant_id, timestamp ASC`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("fetching historical range: %w", err)
	}
	defer rows.Close()

	var result []HistoricalRow
	for rows.Next() {
		var r HistoricalRow
		var ts int64
		if err := rows.Scan(&r.PowerPlantID, &ts, &r.Solar, &r.Power, &r.PredictedPower); err != nil {
			return nil, fmt.Errorf("scanning historical row: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// SumPredictedPower totals predicted power for one plant over [from, to].
func (d *Database) SumPredictedPower(ctx context.Context, powerPlantID string, from, to time.Time) (float64, error) {
	var sum float64
	err := d.read.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(predicted_power), 0) FROM historical_data
		WHERE power_plant_id = ? AND timestamp >= ? AND timestamp <= ?`,
		powerPlantID, from.Unix(), to.Unix()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing predicted power for plant %s: %w", powerPlantID, err)
	}
	return sum, nil
}
