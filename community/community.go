// Package community groups power plants from different owners under one
// admin so production can be predicted and accounted for as a whole.
// Membership is tracked per plant: the same user appears once per plant
// they brought in.
package community

import (
	"context"
	"log/slog"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/notify"
	"github.com/wattshare/wattshare-go/plants"
	"github.com/wattshare/wattshare-go/users"
)

type Member struct {
	UserID           string  `json:"userId"`
	Email            string  `json:"email"`
	PowerPlantID     string  `json:"powerPlantId"`
	PowerPlantName   string  `json:"powerPlantName"`
	CalibrationValue float64 `json:"calibrationValue"`
}

type Community struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	AdminID string   `json:"adminId"`
	Members []Member `json:"members"`
}

type Service struct {
	db     *database.Database
	plants *plants.Service
	users  *users.Service
	notify *notify.Service
	logger *slog.Logger
}

func NewService(db *database.Database, plantSvc *plants.Service, userSvc *users.Service, notifySvc *notify.Service) *Service {
	return &Service{
		db:     db,
		plants: plantSvc,
		users:  userSvc,
		notify: notifySvc,
		logger: slog.Default().With("module", "community"),
	}
}

// Create registers a community for the admin and grants the community admin role.
// The name must be unique among the communities this admin already runs.
func (s *Service) Create(ctx context.Context, adminID, name string) (Community, error) {
	if name == "" {
		return Community{}, domain.Validation("community name must not be empty")
	}
	if _, err := s.users.FindByID(ctx, adminID); err != nil {
		return Community{}, err
	}

	existing, err := s.db.GetCommunitiesByAdminAndName(ctx, adminID, name)
	if err != nil {
		return Community{}, err
	}
	if len(existing) > 0 {
		return Community{}, domain.Conflict("community with this name already exists")
	}

	row, err := s.db.CreateCommunity(ctx, name, adminID)
	if err != nil {
		return Community{}, err
	}
	if err := s.users.AddRole(ctx, adminID, users.RoleCommunityAdmin); err != nil {
		return Community{}, err
	}

	s.logger.Info("community created",
		slog.String("communityId", row.ID),
		slog.String("adminId", adminID),
		slog.String("name", name))
	return s.load(ctx, row)
}

// Update renames the community. Only the admin may do this, and the new
// name has to stay unique among the admin's communities.
func (s *Service) Update(ctx context.Context, adminID, communityID, name string) (Community, error) {
	if name == "" {
		return Community{}, domain.Validation("community name must not be empty")
	}
	if err := s.requireAdmin(ctx, communityID, adminID); err != nil {
		return Community{}, err
	}

	existing, err := s.db.GetCommunitiesByAdminAndName(ctx, adminID, name)
	if err != nil {
		return Community{}, err
	}
	for _, c := range existing {
		if c.ID != communityID {
			return Community{}, domain.Conflict("community with this name already exists")
		}
	}

	if err := s.db.RenameCommunity(ctx, communityID, name); err != nil {
		return Community{}, err
	}
	return s.FindByID(ctx, communityID)
}

// Delete removes the community and its memberships. Members who no longer
// belong to any community lose the member role; the admin keeps
// the admin role only while they still run another community.
func (s *Service) Delete(ctx context.Context, adminID, communityID string) error {
	if err := s.requireAdmin(ctx, communityID, adminID); err != nil {
		return err
	}

	members, err := s.db.GetCommunityMembers(ctx, communityID)
	if err != nil {
		return err
	}

	if err := s.db.DeleteCommunity(ctx, communityID); err != nil {
		return err
	}

	seen := map[string]struct{}{}
	for _, m := range members {
		if _, done := seen[m.UserID]; done {
			continue
		}
		seen[m.UserID] = struct{}{}
		if err := s.reconcileMemberRole(ctx, m.UserID); err != nil {
			return err
		}
	}

	stillAdmin, err := s.adminRunsAnyCommunity(ctx, adminID)
	if err != nil {
		return err
	}
	if !stillAdmin {
		if err := s.users.RemoveRole(ctx, adminID, users.RoleCommunityAdmin); err != nil {
			return err
		}
	}

	s.logger.Info("community deleted",
		slog.String("communityId", communityID),
		slog.String("adminId", adminID))
	return nil
}

func (s *Service) FindByID(ctx context.Context, communityID string) (Community, error) {
	row, err := s.db.GetCommunity(ctx, communityID)
	if err != nil {
		if database.IsNoRows(err) {
			return Community{}, domain.NotFound("community not found")
		}
		return Community{}, err
	}
	return s.load(ctx, row)
}

func (s *Service) FindByName(ctx context.Context, name string) (Community, error) {
	row, err := s.db.GetCommunityByName(ctx, name)
	if err != nil {
		if database.IsNoRows(err) {
			return Community{}, domain.NotFound("community not found")
		}
		return Community{}, err
	}
	return s.load(ctx, row)
}

// FindByUser lists the communities the user is involved in, whether as
// admin or as member.
func (s *Service) FindByUser(ctx context.Context, userID string) ([]Community, error) {
	rows, err := s.db.GetCommunitiesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	communities := make([]Community, 0, len(rows))
	for _, row := range rows {
		c, err := s.load(ctx, row)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, nil
}

func (s *Service) load(ctx context.Context, row database.CommunityRow) (Community, error) {
	details, err := s.db.GetCommunityMemberDetails(ctx, row.ID)
	if err != nil {
		return Community{}, err
	}
	members := make([]Member, 0, len(details))
	for _, d := range details {
		members = append(members, Member{
			UserID:           d.UserID,
			Email:            d.UserEmail,
			PowerPlantID:     d.PowerPlantID,
			PowerPlantName:   d.PowerPlantName,
			CalibrationValue: d.CalibrationValue,
		})
	}
	return Community{
		ID:      row.ID,
		Name:    row.Name,
		AdminID: row.AdminID,
		Members: members,
	}, nil
}

func (s *Service) requireAdmin(ctx context.Context, communityID, adminID string) error {
	if _, err := s.FindByID(ctx, communityID); err != nil {
		return err
	}
	isAdmin, err := s.db.IsCommunityAdmin(ctx, communityID, adminID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return domain.PreconditionFailed("only the community admin can perform this action")
	}
	return nil
}

func (s *Service) adminRunsAnyCommunity(ctx context.Context, adminID string) (bool, error) {
	rows, err := s.db.GetCommunitiesForUser(ctx, adminID)
	if err != nil {
		return false, err
	}
	for _, c := range rows {
		if c.AdminID == adminID {
			return true, nil
		}
	}
	return false, nil
}

// reconcileMemberRole grants or revokes the member role from the user's
// total membership count across all communities.
func (s *Service) reconcileMemberRole(ctx context.Context, userID string) error {
	count, err := s.db.CountMemberships(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return s.users.AddRole(ctx, userID, users.RoleCommunityMember)
	}
	return s.users.RemoveRole(ctx, userID, users.RoleCommunityMember)
}
