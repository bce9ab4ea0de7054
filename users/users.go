// Package users owns the user entity and its role ledger.
package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
)

type User struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
	Roles      []Role `json:"roles"`
}

type Service struct {
	db     *database.Database
	logger *slog.Logger
}

func NewService(db *database.Database) *Service {
	return &Service{
		db:     db,
		logger: slog.Default().With("module", "users"),
	}
}

// Register creates a user from a verified identity principal. The baseline
// role is stored immediately so a fresh user's ledger is never empty.
// Email uniqueness rides on the database constraint, so two concurrent
// registrations for the same address can not both slip through.
func (s *Service) Register(ctx context.Context, externalID, email string) (User, error) {
	row, err := s.db.CreateUser(ctx, externalID, email)
	if err != nil {
		if database.IsUniqueConstraint(err) {
			return User{}, domain.Conflict("user with this email already exists")
		}
		return User{}, fmt.Errorf("creating user: %w", err)
	}
	if err := s.db.AddRole(ctx, row.ID, string(RoleBasicUser)); err != nil {
		return User{}, err
	}

	s.logger.Info("user registered", slog.String("userId", row.ID), slog.String("email", email))
	return s.load(ctx, row)
}

func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	row, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			return User{}, domain.NotFound("user not found")
		}
		return User{}, err
	}
	return s.load(ctx, row)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	row, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if database.IsNoRows(err) {
			return User{}, domain.NotFound("user not found")
		}
		return User{}, err
	}
	return s.load(ctx, row)
}

func (s *Service) FindByExternalID(ctx context.Context, externalID string) (User, error) {
	row, err := s.db.GetUserByExternalID(ctx, externalID)
	if err != nil {
		if database.IsNoRows(err) {
			return User{}, domain.NotFound("user not found")
		}
		return User{}, err
	}
	return s.load(ctx, row)
}

func (s *Service) load(ctx context.Context, row database.UserRow) (User, error) {
	roles, err := s.Roles(ctx, row.ID)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		Email:      row.Email,
		Roles:      roles,
	}, nil
}

func (s *Service) AddRole(ctx context.Context, userID string, role Role) error {
	s.logger.Debug("granting role", slog.String("userId", userID), slog.String("role", string(role)))
	return s.db.AddRole(ctx, userID, string(role))
}

func (s *Service) RemoveRole(ctx context.Context, userID string, role Role) error {
	s.logger.Debug("revoking role", slog.String("userId", userID), slog.String("role", string(role)))
	return s.db.RemoveRole(ctx, userID, string(role))
}

// Roles returns the ledger. The basic role is baseline semantics, present even
// if a grant was somehow never stored.
func (s *Service) Roles(ctx context.Context, userID string) ([]Role, error) {
	stored, err := s.db.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles := make([]Role, 0, len(stored)+1)
	for _, r := range stored {
		roles = append(roles, Role(r))
	}
	if !HasRole(roles, RoleBasicUser) {
		roles = append([]Role{RoleBasicUser}, roles...)
	}
	return roles, nil
}

// ReconcileRoles recomputes the derived roles from first principles (plant
// count, membership count) and repairs any drift, e.g. after a crash
// between a membership mutation and its role update. Returns what changed.
func (s *Service) ReconcileRoles(ctx context.Context, userID string) (granted, revoked []Role, err error) {
	if _, err := s.db.GetUserByID(ctx, userID); err != nil {
		if database.IsNoRows(err) {
			return nil, nil, domain.NotFound("user not found")
		}
		return nil, nil, err
	}

	plants, err := s.db.CountPowerPlants(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	memberships, err := s.db.CountMemberships(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	current, err := s.Roles(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	expect := func(role Role, want bool) error {
		has := HasRole(current, role)
		switch {
		case want && !has:
			granted = append(granted, role)
			return s.db.AddRole(ctx, userID, string(role))
		case !want && has:
			revoked = append(revoked, role)
			return s.db.RemoveRole(ctx, userID, string(role))
		}
		return nil
	}

	if err := expect(RolePowerPlantOwner, plants > 0); err != nil {
		return granted, revoked, err
	}
	if err := expect(RoleCommunityMember, memberships > 0); err != nil {
		return granted, revoked, err
	}

	if len(granted) > 0 || len(revoked) > 0 {
		s.logger.Warn("role ledger drift repaired",
			slog.String("userId", userID),
			slog.Any("granted", granted),
			slog.Any("revoked", revoked))
	}

	return granted, revoked, nil
}
