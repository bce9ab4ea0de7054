package community

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/notify"
	"github.com/wattshare/wattshare-go/users"
)

// RequestToJoin files a join request with the community admin. The caller
// must own every plant named in the request; nothing changes until the
// admin accepts.
func (s *Service) RequestToJoin(ctx context.Context, userID, communityID string, powerPlantIDs []string, message string) (notify.Notification, error) {
	if len(powerPlantIDs) == 0 {
		return notify.Notification{}, domain.Validation("at least one power plant is required")
	}

	comm, err := s.FindByID(ctx, communityID)
	if err != nil {
		return notify.Notification{}, err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return notify.Notification{}, err
	}
	for _, plantID := range powerPlantIDs {
		if _, err := s.plants.FindForUser(ctx, userID, plantID); err != nil {
			if domain.IsNotFound(err) {
				return notify.Notification{}, domain.Validation("you do not own all power plants in the request")
			}
			return notify.Notification{}, err
		}
	}

	return s.notify.Send(ctx, userID, comm.AdminID, notify.TypeJoinRequest, notify.JoinRequestPayload{
		CommunityID: communityID,
		UserID:      userID,
		PowerPlants: powerPlantIDs,
		Message:     message,
	})
}

// ProcessRequest settles a pending join request. Only the admin who
// received the notification can process it; accepting adds the requested
// plants, declining just closes the request.
func (s *Service) ProcessRequest(ctx context.Context, adminID, notificationID string, accept bool) error {
	n, err := s.notify.Process(ctx, adminID, notificationID)
	if err != nil {
		return err
	}
	if n.Type != notify.TypeJoinRequest {
		return domain.Validation("notification is not a join request")
	}

	var payload notify.JoinRequestPayload
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		return domain.Validation("join request payload is malformed")
	}

	if !accept {
		s.logger.Info("join request declined",
			slog.String("notificationId", notificationID),
			slog.String("communityId", payload.CommunityID))
		return nil
	}
	return s.AddPowerPlants(ctx, adminID, payload.CommunityID, payload.UserID, payload.PowerPlants)
}

// AddPowerPlants pushes the member's plants into the community. Each plant
// may be in the community at most once; the first plant added grants the
// member the community member role.
func (s *Service) AddPowerPlants(ctx context.Context, adminID, communityID, memberID string, powerPlantIDs []string) error {
	if err := s.requireAdmin(ctx, communityID, adminID); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, memberID); err != nil {
		return err
	}

	for _, plantID := range powerPlantIDs {
		if _, err := s.plants.FindForUser(ctx, memberID, plantID); err != nil {
			if domain.IsNotFound(err) {
				return domain.Validation("power plant does not belong to the member")
			}
			return err
		}
		inCommunity, err := s.db.IsPlantInCommunity(ctx, communityID, plantID)
		if err != nil {
			return err
		}
		if inCommunity {
			return domain.Conflict("power plant is already in community")
		}
	}

	for _, plantID := range powerPlantIDs {
		err := s.db.AddCommunityMember(ctx, database.CommunityMemberRow{
			CommunityID:  communityID,
			UserID:       memberID,
			PowerPlantID: plantID,
		})
		if err != nil {
			return err
		}
	}
	if err := s.users.AddRole(ctx, memberID, users.RoleCommunityMember); err != nil {
		return err
	}

	s.logger.Info("power plants added to community",
		slog.String("communityId", communityID),
		slog.String("memberId", memberID),
		slog.Int("powerPlants", len(powerPlantIDs)))
	return nil
}

// RemovePowerPlants pulls a member's plants out of the community. The admin
// cannot target themselves here; a membership that ends up empty costs the
// member their community member role.
func (s *Service) RemovePowerPlants(ctx context.Context, adminID, communityID, memberID string, powerPlantIDs []string) error {
	if adminID == memberID {
		return domain.Validation("admin can not remove himself")
	}
	if err := s.requireAdmin(ctx, communityID, adminID); err != nil {
		return err
	}

	isMember, err := s.db.IsMemberOfAdminsCommunity(ctx, memberID, communityID, adminID)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.NotFound("member not found in community")
	}

	return s.removeMemberPlants(ctx, communityID, memberID, powerPlantIDs)
}

// Leave removes all of the caller's plants from the community. The admin
// cannot leave their own community; they have to delete it instead.
func (s *Service) Leave(ctx context.Context, memberID, communityID string) error {
	comm, err := s.FindByID(ctx, communityID)
	if err != nil {
		return err
	}
	if comm.AdminID == memberID {
		return domain.Validation("admin can not remove himself")
	}

	var plantIDs []string
	for _, m := range comm.Members {
		if m.UserID == memberID {
			plantIDs = append(plantIDs, m.PowerPlantID)
		}
	}
	if len(plantIDs) == 0 {
		return domain.NotFound("member not found in community")
	}

	return s.removeMemberPlants(ctx, communityID, memberID, plantIDs)
}

func (s *Service) removeMemberPlants(ctx context.Context, communityID, memberID string, powerPlantIDs []string) error {
	for _, plantID := range powerPlantIDs {
		err := s.db.RemoveCommunityMember(ctx, database.CommunityMemberRow{
			CommunityID:  communityID,
			UserID:       memberID,
			PowerPlantID: plantID,
		})
		if err != nil {
			return err
		}
	}
	if err := s.reconcileMemberRole(ctx, memberID); err != nil {
		return err
	}

	s.logger.Info("power plants removed from community",
		slog.String("communityId", communityID),
		slog.String("memberId", memberID),
		slog.Int("powerPlants", len(powerPlantIDs)))
	return nil
}
