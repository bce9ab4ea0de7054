package database

import (
	"context"
	"fmt"
	"time"
)

type NotificationRow struct {
	ID         string
	ReceiverID string
	SenderID   string
	Type       string
	Data       []byte
	Processed  bool
	Created    time.Time
}

func (d *Database) InsertNotification(ctx context.Context, row NotificationRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO notifications (id, receiver_id, sender_id, type, data, processed, created)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ReceiverID, row.SenderID, row.Type, string(row.Data), boolToInt(row.Processed), row.Created.Unix())
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (d *Database) GetNotification(ctx context.Context, id string) (NotificationRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT id, receiver_id, sender_id, type, data, processed, created
		FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

func (d *Database) MarkNotificationProcessed(ctx context.Context, id string) error {
	_, err := d.write.ExecContext(ctx, `
		UPDATE notifications SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification %s processed: %w", id, err)
	}
	return nil
}

func (d *Database) GetNotificationsByReceiver(ctx context.Context, receiverID string) ([]NotificationRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT id, receiver_id, sender_id, type, data, processed, created
		FROM notifications WHERE receiver_id = ?
		ORDER BY created DESC`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications for receiver %s: %w", receiverID, err)
	}
	defer rows.Close()

	var result []NotificationRow
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func scanNotification(r rowScanner) (NotificationRow, error) {
	var n NotificationRow
	var data string
	var processed int
	var created int64
	err := r.Scan(&n.ID, &n.ReceiverID, &n.SenderID, &n.Type, &data, &processed, &created)
	if err != nil {
		return NotificationRow{}, fmt.Errorf("scanning notification row: %w", err)
	}
	n.Data = []byte(data)
	n.Processed = processed != 0
	n.Created = time.Unix(created, 0).UTC()
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
