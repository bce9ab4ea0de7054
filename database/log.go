package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type LogEntryRow struct {
	Timestamp time.Time `json:"timestamp"`
	Level     int       `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs"`
}

// SaveLogEntry satisfies logging.LogStore.
func (d *Database) SaveLogEntry(ctx context.Context, timestamp time.Time, level int, message, attrs string) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO log (timestamp, level, message, attrs)
		VALUES (?, ?, ?, ?)`,
		timestamp.UTC().Format(time.RFC3339), level, message, attrs)
	if err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

func (d *Database) GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]LogEntryRow, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT timestamp, level, message, attrs
		FROM log WHERE level >= ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`,
		int(minLvl), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	var entries []LogEntryRow
	for rows.Next() {
		var e LogEntryRow
		var ts string
		if err := rows.Scan(&ts, &e.Level, &e.Message, &e.Attrs); err != nil {
			return nil, fmt.Errorf("scanning log entry row: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parsing log timestamp %q: %w", ts, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeLog caps the log table at maxEntries, dropping the oldest rows.
func (d *Database) PurgeLog(ctx context.Context, maxEntries int) error {
	if maxEntries < 1 {
		return nil
	}
	res, err := d.write.ExecContext(ctx, `
		DELETE FROM log WHERE rowid NOT IN (
			SELECT rowid FROM log ORDER BY timestamp DESC LIMIT ?
		)`, maxEntries)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		d.logger.Debug(fmt.Sprintf("purged %d log entries", rows))
	}
	return nil
}
