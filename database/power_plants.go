package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PowerPlantRow struct {
	ID          string
	UserID      string
	DisplayName string
	Latitude    float64
	Longitude   float64
	MaxPower    float64
	Size        float64
	Created     time.Time
}

type CalibrationRow struct {
	PowerPlantID string
	TakenAt      time.Time
	Value        float64
}

const powerPlantColumns = `id, user_id, display_name, latitude, longitude, max_power, size, created`

func (d *Database) CreatePowerPlant(ctx context.Context, row PowerPlantRow) (PowerPlantRow, error) {
	row.ID = uuid.New().String()
	row.Created = time.Now().UTC()
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO power_plants (id, user_id, display_name, latitude, longitude, max_power, size, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.DisplayName, row.Latitude, row.Longitude, row.MaxPower, row.Size, row.Created.Unix())
	if err != nil {
		return PowerPlantRow{}, fmt.Errorf("creating power plant: %w", err)
	}
	return row, nil
}

func (d *Database) UpdatePowerPlant(ctx context.Context, id, displayName string, latitude, longitude float64) error {
	_, err := d.write.ExecContext(ctx, `
		UPDATE power_plants SET display_name = ?, latitude = ?, longitude = ?
		WHERE id = ?`,
		displayName, latitude, longitude, id)
	if err != nil {
		return fmt.Errorf("updating power plant %s: %w", id, err)
	}
	return nil
}

func (d *Database) DeletePowerPlant(ctx context.Context, id string) error {
	_, err := d.write.ExecContext(ctx, `DELETE FROM power_plants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting power plant %s: %w", id, err)
	}
	return nil
}

func (d *Database) GetPowerPlant(ctx context.Context, id string) (PowerPlantRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT `+powerPlantColumns+` FROM power_plants WHERE id = ?`, id)
	return scanPowerPlant(row)
}

func (d *Database) GetPowerPlantsByUser(ctx context.Context, userID string) ([]PowerPlantRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT `+powerPlantColumns+` FROM power_plants
		WHERE user_id = ? ORDER BY created ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching power plants for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plants []PowerPlantRow
	for rows.Next() {
		p, err := scanPowerPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

func (d *Database) GetAllPowerPlants(ctx context.Context) ([]PowerPlantRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT `+powerPlantColumns+` FROM power_plants ORDER BY user_id, created ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetching power plants: %w", err)
	}
	defer rows.Close()

	var plants []PowerPlantRow
	for rows.Next() {
		p, err := scanPowerPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

func (d *Database) CountPowerPlants(ctx context.Context, userID string) (int, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM power_plants WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting power plants for user %s: %w", userID, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPowerPlant(r rowScanner) (PowerPlantRow, error) {
	var p PowerPlantRow
	var created int64
	err := r.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Latitude, &p.Longitude, &p.MaxPower, &p.Size, &created)
	if err != nil {
		return PowerPlantRow{}, fmt.Errorf("scanning power plant row: %w", err)
	}
	p.Created = time.Unix(created, 0).UTC()
	return p, nil
}

// AddCalibration appends, earlier entries are never touched. The latest
// entry is the one prediction uses.
func (d *Database) AddCalibration(ctx context.Context, row CalibrationRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO calibrations (power_plant_id, taken_at, value)
		VALUES (?, ?, ?)`,
		row.PowerPlantID, row.TakenAt.UTC().Format(time.RFC3339), row.Value)
	if err != nil {
		return fmt.Errorf("adding calibration for plant %s: %w", row.PowerPlantID, err)
	}
	return nil
}

func (d *Database) GetCalibrations(ctx context.Context, powerPlantID string) ([]CalibrationRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT power_plant_id, taken_at, value
		FROM calibrations WHERE power_plant_id = ?
		ORDER BY rowid ASC`, powerPlantID)
	if err != nil {
		return nil, fmt.Errorf("fetching calibrations for plant %s: %w", powerPlantID, err)
	}
	defer rows.Close()

	var calibrations []CalibrationRow
	for rows.Next() {
		var c CalibrationRow
		var takenAt string
		if err := rows.Scan(&c.PowerPlantID, &takenAt, &c.Value); err != nil {
			return nil, fmt.Errorf("scanning calibration row: %w", err)
		}
		c.TakenAt, err = time.Parse(time.RFC3339, takenAt)
		if err != nil {
			return nil, fmt.Errorf("parsing calibration timestamp %q: %w", takenAt, err)
		}
		calibrations = append(calibrations, c)
	}
	return calibrations, rows.Err()
}

// LatestCalibration returns the newest entry, sql.ErrNoRows when the plant
// has never been calibrated.
func (d *Database) LatestCalibration(ctx context.Context, powerPlantID string) (CalibrationRow, error) {
	var c CalibrationRow
	var takenAt string
	err := d.read.QueryRowContext(ctx, `
		SELECT power_plant_id, taken_at, value
		FROM calibrations WHERE power_plant_id = ?
		ORDER BY rowid DESC LIMIT 1`, powerPlantID).Scan(&c.PowerPlantID, &takenAt, &c.Value)
	if err != nil {
		return CalibrationRow{}, fmt.Errorf("fetching latest calibration for plant %s: %w", powerPlantID, err)
	}
	c.TakenAt, err = time.Parse(time.RFC3339, takenAt)
	if err != nil {
		return CalibrationRow{}, fmt.Errorf("parsing calibration timestamp %q: %w", takenAt, err)
	}
	return c, nil
}
