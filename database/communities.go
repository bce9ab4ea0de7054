package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CommunityRow struct {
	ID      string
	Name    string
	AdminID string
	Created time.Time
}

type CommunityMemberRow struct {
	CommunityID  string
	UserID       string
	PowerPlantID string
}

// MemberDetailRow is a membership pair joined with the user and plant it
// points at, plus the plant's latest calibration value (0 when none).
type MemberDetailRow struct {
	UserID           string
	UserEmail        string
	PowerPlantID     string
	PowerPlantName   string
	CalibrationValue float64
}

func (d *Database) CreateCommunity(ctx context.Context, name, adminID string) (CommunityRow, error) {
	row := CommunityRow{
		ID:      uuid.New().String(),
		Name:    name,
		AdminID: adminID,
		Created: time.Now().UTC(),
	}
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO communities (id, name, admin_id, created)
		VALUES (?, ?, ?, ?)`,
		row.ID, row.Name, row.AdminID, row.Created.Unix())
	if err != nil {
		return CommunityRow{}, fmt.Errorf("creating community: %w", err)
	}
	return row, nil
}

func (d *Database) RenameCommunity(ctx context.Context, id, name string) error {
	_, err := d.write.ExecContext(ctx, `
		UPDATE communities SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("renaming community %s: %w", id, err)
	}
	return nil
}

func (d *Database) DeleteCommunity(ctx context.Context, id string) error {
	_, err := d.write.ExecContext(ctx, `DELETE FROM communities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting community %s: %w", id, err)
	}
	return nil
}

func (d *Database) GetCommunity(ctx context.Context, id string) (CommunityRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT id, name, admin_id, created FROM communities WHERE id = ?`, id)
	return scanCommunity(row)
}

func (d *Database) GetCommunityByName(ctx context.Context, name string) (CommunityRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT id, name, admin_id, created FROM communities
		WHERE name = ? COLLATE NOCASE LIMIT 1`, name)
	return scanCommunity(row)
}

func (d *Database) GetCommunitiesByAdminAndName(ctx context.Context, adminID, name string) ([]CommunityRow, error) {
	return d.queryCommunities(ctx, `
		SELECT id, name, admin_id, created FROM communities
		WHERE admin_id = ? AND name = ?`, adminID, name)
}

// GetCommunitiesForUser returns communities where the user is a member or
// the admin.
func (d *Database) GetCommunitiesForUser(ctx context.Context, userID string) ([]CommunityRow, error) {
	return d.queryCommunities(ctx, `
		SELECT DISTINCT c.id, c.name, c.admin_id, c.created
		FROM communities c
			LEFT OUTER JOIN community_members m ON m.community_id = c.id
		WHERE c.admin_id = ? OR m.user_id = ?
		ORDER BY c.created ASC`, userID, userID)
}

func (d *Database) queryCommunities(ctx context.Context, query string, args ...any) ([]CommunityRow, error) {
	rows, err := d.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching communities: %w", err)
	}
	defer rows.Close()

	var communities []CommunityRow
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

func scanCommunity(r rowScanner) (CommunityRow, error) {
	var c CommunityRow
	var created int64
	if err := r.Scan(&c.ID, &c.Name, &c.AdminID, &created); err != nil {
		return CommunityRow{}, fmt.Errorf("scanning community row: %w", err)
	}
	c.Created = time.Unix(created, 0).UTC()
	return c, nil
}

// AddCommunityMember is the atomic membership push. The primary key on
// (community_id, power_plant_id) makes a duplicate push fail instead of
// silently doubling a member.
func (d *Database) AddCommunityMember(ctx context.Context, row CommunityMemberRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO community_members (community_id, user_id, power_plant_id)
		VALUES (?, ?, ?)`,
		row.CommunityID, row.UserID, row.PowerPlantID)
	if err != nil {
		return fmt.Errorf("adding member to community %s: %w", row.CommunityID, err)
	}
	return nil
}

// RemoveCommunityMember is the atomic membership pull.
func (d *Database) RemoveCommunityMember(ctx context.Context, row CommunityMemberRow) error {
	_, err := d.write.ExecContext(ctx, `
		DELETE FROM community_members
		WHERE community_id = ? AND user_id = ? AND power_plant_id = ?`,
		row.CommunityID, row.UserID, row.PowerPlantID)
	if err != nil {
		return fmt.Errorf("removing member from community %s: %w", row.CommunityID, err)
	}
	return nil
}

// RemoveCommunityMembershipsForPlant drops every membership pair holding
// the plant, across all communities, and reports how many were removed.
func (d *Database) RemoveCommunityMembershipsForPlant(ctx context.Context, powerPlantID string) (int, error) {
	res, err := d.write.ExecContext(ctx, `
		DELETE FROM community_members WHERE power_plant_id = ?`, powerPlantID)
	if err != nil {
		return 0, fmt.Errorf("removing memberships for plant %s: %w", powerPlantID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("removing memberships for plant %s: %w", powerPlantID, err)
	}
	return int(n), nil
}

func (d *Database) GetCommunityMembers(ctx context.Context, communityID string) ([]CommunityMemberRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT community_id, user_id, power_plant_id
		FROM community_members WHERE community_id = ?
		ORDER BY rowid ASC`, communityID)
	if err != nil {
		return nil, fmt.Errorf("fetching members of community %s: %w", communityID, err)
	}
	defer rows.Close()

	var members []CommunityMemberRow
	for rows.Next() {
		var m CommunityMemberRow
		if err := rows.Scan(&m.CommunityID, &m.UserID, &m.PowerPlantID); err != nil {
			return nil, fmt.Errorf("scanning community member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetCommunityMemberDetails joins each membership pair with its user, plant
// and latest calibration, the shape the power-share report needs.
func (d *Database) GetCommunityMemberDetails(ctx context.Context, communityID string) ([]MemberDetailRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT m.user_id, u.email, m.power_plant_id, p.display_name,
			COALESCE((
				SELECT c.value FROM calibrations c
				WHERE c.power_plant_id = m.power_plant_id
				ORDER BY c.rowid DESC LIMIT 1
			), 0)
		FROM community_members m
			JOIN users u ON u.id = m.user_id
			JOIN power_plants p ON p.id = m.power_plant_id
		WHERE m.community_id = ?
		ORDER BY m.rowid ASC`, communityID)
	if err != nil {
		return nil, fmt.Errorf("fetching member details of community %s: %w", communityID, err)
	}
	defer rows.Close()

	var details []MemberDetailRow
	for rows.Next() {
		var m MemberDetailRow
		if err := rows.Scan(&m.UserID, &m.UserEmail, &m.PowerPlantID, &m.PowerPlantName, &m.CalibrationValue); err != nil {
			return nil, fmt.Errorf("scanning member detail row: %w", err)
		}
		details = append(details, m)
	}
	return details, rows.Err()
}

func (d *Database) IsCommunityAdmin(ctx context.Context, communityID, adminID string) (bool, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM communities WHERE id = ? AND admin_id = ?`,
		communityID, adminID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking community admin: %w", err)
	}
	return n > 0, nil
}

// IsMemberOfAdminsCommunity is the combined admin+membership check removal
// authorization runs on.
func (d *Database) IsMemberOfAdminsCommunity(ctx context.Context, memberID, communityID, adminID string) (bool, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM communities c
			JOIN community_members m ON m.community_id = c.id
		WHERE c.id = ? AND c.admin_id = ? AND m.user_id = ?`,
		communityID, adminID, memberID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking community membership: %w", err)
	}
	return n > 0, nil
}

func (d *Database) IsPlantInCommunity(ctx context.Context, communityID, powerPlantID string) (bool, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM community_members
		WHERE community_id = ? AND power_plant_id = ?`,
		communityID, powerPlantID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking plant membership: %w", err)
	}
	return n > 0, nil
}

// CountMemberships counts a user's membership pairs across all communities,
// the number the community member role is derived from.
func (d *Database) CountMemberships(ctx context.Context, userID string) (int, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM community_members WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting memberships for user %s: %w", userID, err)
	}
	return n, nil
}
