package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRow struct {
	ID         string
	ExternalID string
	Email      string
	Created    time.Time
}

func (d *Database) CreateUser(ctx context.Context, externalID, email string) (UserRow, error) {
	row := UserRow{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		Email:      email,
		Created:    time.Now().UTC(),
	}
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO users (id, external_id, email, created)
		VALUES (?, ?, ?, ?)`,
		row.ID, row.ExternalID, row.Email, row.Created.Unix())
	if err != nil {
		return UserRow{}, fmt.Errorf("creating user: %w", err)
	}
	return row, nil
}

func (d *Database) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	return d.getUser(ctx, "id", id)
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	return d.getUser(ctx, "email", email)
}

func (d *Database) GetUserByExternalID(ctx context.Context, externalID string) (UserRow, error) {
	return d.getUser(ctx, "external_id", externalID)
}

func (d *Database) getUser(ctx context.Context, column, value string) (UserRow, error) {
	var u UserRow
	var created int64
	err := d.read.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, external_id, email, created
		FROM users WHERE %s = ?`, column),
		value).Scan(&u.ID, &u.ExternalID, &u.Email, &created)
	if err != nil {
		return UserRow{}, fmt.Errorf("fetching user by %s: %w", column, err)
	}
	u.Created = time.Unix(created, 0).UTC()
	return u, nil
}

func (d *Database) GetAllUserIDs(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `SELECT id FROM users ORDER BY created ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetching user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddRole is idempotent, adding a role the user already holds is a no-op.
func (d *Database) AddRole(ctx context.Context, userID, role string) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`,
		userID, role)
	if err != nil {
		return fmt.Errorf("adding role %s: %w", role, err)
	}
	return nil
}

// RemoveRole is idempotent, removing a role the user doesn't hold is a no-op.
func (d *Database) RemoveRole(ctx context.Context, userID, role string) error {
	_, err := d.write.ExecContext(ctx, `
		DELETE FROM user_roles WHERE user_id = ? AND role = ?`,
		userID, role)
	if err != nil {
		return fmt.Errorf("removing role %s: %w", role, err)
	}
	return nil
}

func (d *Database) GetRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT role FROM user_roles WHERE user_id = ? ORDER BY role ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("fetching roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// IsNoRows reports whether err stems from an empty query result.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueConstraint reports whether err is a sqlite UNIQUE violation. The
// driver surfaces constraint failures as plain errors, so the message is
// the only reliable marker.
func IsUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
