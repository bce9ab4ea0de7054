package database

import (
	"context"
	"fmt"
	"time"
)

type ForecastCacheRow struct {
	Provider  string
	Latitude  float64
	Longitude float64
	FetchedAt time.Time
	Payload   []byte
}

// SaveForecastCache overwrites the cached series for a coordinate, one row
// per (provider, lat, lon).
func (d *Database) SaveForecastCache(ctx context.Context, row ForecastCacheRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO forecast_cache (provider, latitude, longitude, fetched_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider, latitude, longitude) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			payload = excluded.payload`,
		row.Provider, row.Latitude, row.Longitude, row.FetchedAt.Unix(), string(row.Payload))
	if err != nil {
		return fmt.Errorf("saving forecast cache: %w", err)
	}
	return nil
}

func (d *Database) GetForecastCache(ctx context.Context, provider string, latitude, longitude float64) (ForecastCacheRow, error) {
	var row ForecastCacheRow
	var fetchedAt int64
	var payload string
	err := d.read.QueryRowContext(ctx, `
		SELECT provider, latitude, longitude, fetched_at, payload
		FROM forecast_cache
		WHERE provider = ? AND latitude = ? AND longitude = ?`,
		provider, latitude, longitude).Scan(&row.Provider, &row.Latitude, &row.Longitude, &fetchedAt, &payload)
	if err != nil {
		return ForecastCacheRow{}, fmt.Errorf("fetching forecast cache: %w", err)
	}
	row.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	row.Payload = []byte(payload)
	return row, nil
}

func (d *Database) PurgeForecastCache(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := d.write.ExecContext(ctx, `
		DELETE FROM forecast_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("purging forecast cache: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		d.logger.Debug(fmt.Sprintf("purged %d stale forecast cache rows", rows))
	}
	return nil
}
