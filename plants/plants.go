// Package plants owns the power-plant entity: lifecycle, calibration,
// prediction, realized production and the historical snapshot the recorder
// task persists.
package plants

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/users"
)

// Assumed panel efficiency when seeding a default calibration from the
// plant's rated power and size.
const defaultPanelEfficiency = 0.2

type Calibration struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type PowerPlant struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	DisplayName string        `json:"displayName"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	MaxPower    float64       `json:"maxPower"`
	Size        float64       `json:"size"`
	Calibration []Calibration `json:"calibration"`
}

type CreateParams struct {
	DisplayName string  `json:"displayName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MaxPower    float64 `json:"maxPower"`
	Size        float64 `json:"size"`
}

type UpdateParams struct {
	DisplayName string  `json:"displayName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// PowerReader is the slice of the telemetry feed the recorder consumes:
// the most recent measured power for a plant, when a gateway reports one.
type PowerReader interface {
	LatestPower(powerPlantID string) (power float64, at time.Time, ok bool)
}

type Service struct {
	db       *database.Database
	provider forecast.Provider
	users    *users.Service
	power    PowerReader // optional
	logger   *slog.Logger
}

func NewService(db *database.Database, provider forecast.Provider, userSvc *users.Service, power PowerReader) *Service {
	return &Service{
		db:       db,
		provider: provider,
		users:    userSvc,
		power:    power,
		logger:   slog.Default().With("module", "plants"),
	}
}

// Create stores a new plant for the owner. The first plant a user creates
// grants the power plant owner role. When rated power and size are known, a default
// calibration of maxPower / (0.2 * size) is seeded so prediction works
// before the first manual calibration.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (PowerPlant, error) {
	if params.DisplayName == "" {
		return PowerPlant{}, domain.Validation("display name must not be empty")
	}
	if params.Latitude < -90 || params.Latitude > 90 {
		return PowerPlant{}, domain.Validation("latitude out of range")
	}
	if params.Longitude < -180 || params.Longitude > 180 {
		return PowerPlant{}, domain.Validation("longitude out of range")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return PowerPlant{}, err
	}

	row, err := s.db.CreatePowerPlant(ctx, database.PowerPlantRow{
		UserID:      userID,
		DisplayName: params.DisplayName,
		Latitude:    params.Latitude,
		Longitude:   params.Longitude,
		MaxPower:    params.MaxPower,
		Size:        params.Size,
	})
	if err != nil {
		return PowerPlant{}, err
	}

	if params.MaxPower > 0 && params.Size > 0 {
		seed := params.MaxPower / (defaultPanelEfficiency * params.Size)
		if err := s.db.AddCalibration(ctx, database.CalibrationRow{
			PowerPlantID: row.ID,
			TakenAt:      time.Now().UTC(),
			Value:        seed,
		}); err != nil {
			return PowerPlant{}, err
		}
	}

	count, err := s.db.CountPowerPlants(ctx, userID)
	if err != nil {
		return PowerPlant{}, err
	}
	if count == 1 {
		if err := s.users.AddRole(ctx, userID, users.RolePowerPlantOwner); err != nil {
			return PowerPlant{}, err
		}
	}

	s.logger.Info("power plant created",
		slog.String("powerPlantId", row.ID),
		slog.String("userId", userID),
		slog.String("displayName", params.DisplayName))

	return s.load(ctx, row)
}

// Delete removes the plant, pulling it out of any community it is a member
// of first. Deleting the owner's last plant revokes the owner role, and
// losing the last membership revokes the community member role.
func (s *Service) Delete(ctx context.Context, userID, powerPlantID string) error {
	if _, err := s.FindForUser(ctx, userID, powerPlantID); err != nil {
		return err
	}

	removed, err := s.db.RemoveCommunityMembershipsForPlant(ctx, powerPlantID)
	if err != nil {
		return err
	}

	if err := s.db.DeletePowerPlant(ctx, powerPlantID); err != nil {
		return err
	}

	if removed > 0 {
		memberships, err := s.db.CountMemberships(ctx, userID)
		if err != nil {
			return err
		}
		if memberships == 0 {
			if err := s.users.RemoveRole(ctx, userID, users.RoleCommunityMember); err != nil {
				return err
			}
		}
	}

	count, err := s.db.CountPowerPlants(ctx, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := s.users.RemoveRole(ctx, userID, users.RolePowerPlantOwner); err != nil {
			return err
		}
	}

	s.logger.Info("power plant deleted",
		slog.String("powerPlantId", powerPlantID),
		slog.String("userId", userID))
	return nil
}

func (s *Service) Update(ctx context.Context, userID, powerPlantID string, params UpdateParams) (PowerPlant, error) {
	if _, err := s.FindForUser(ctx, userID, powerPlantID); err != nil {
		return PowerPlant{}, err
	}
	if params.DisplayName == "" {
		return PowerPlant{}, domain.Validation("display name must not be empty")
	}
	if err := s.db.UpdatePowerPlant(ctx, powerPlantID, params.DisplayName, params.Latitude, params.Longitude); err != nil {
		return PowerPlant{}, err
	}
	return s.Get(ctx, powerPlantID)
}

// Get fetches a plant regardless of who owns it (internal callers).
func (s *Service) Get(ctx context.Context, powerPlantID string) (PowerPlant, error) {
	row, err := s.db.GetPowerPlant(ctx, powerPlantID)
	if err != nil {
		if database.IsNoRows(err) {
			return PowerPlant{}, domain.NotFound("power plant not found")
		}
		return PowerPlant{}, err
	}
	return s.load(ctx, row)
}

// FindForUser fetches a plant scoped to its owner. A plant owned by someone
// else is reported as not found, not as forbidden.
func (s *Service) FindForUser(ctx context.Context, userID, powerPlantID string) (PowerPlant, error) {
	plant, err := s.Get(ctx, powerPlantID)
	if err != nil {
		return PowerPlant{}, err
	}
	if plant.UserID != userID {
		return PowerPlant{}, domain.NotFound("power plant not found")
	}
	return plant, nil
}

func (s *Service) FindByUser(ctx context.Context, userID string) ([]PowerPlant, error) {
	rows, err := s.db.GetPowerPlantsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	plants := make([]PowerPlant, 0, len(rows))
	for _, row := range rows {
		p, err := s.load(ctx, row)
		if err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, nil
}

func (s *Service) load(ctx context.Context, row database.PowerPlantRow) (PowerPlant, error) {
	calibrations, err := s.db.GetCalibrations(ctx, row.ID)
	if err != nil {
		return PowerPlant{}, err
	}
	calibration := make([]Calibration, 0, len(calibrations))
	for _, c := range calibrations {
		calibration = append(calibration, Calibration{Date: c.TakenAt, Value: c.Value})
	}
	return PowerPlant{
		ID:          row.ID,
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		MaxPower:    row.MaxPower,
		Size:        row.Size,
		Calibration: calibration,
	}, nil
}

// History returns the recorded rows for a set of plants over a date range.
func (s *Service) History(ctx context.Context, powerPlantIDs []string, from, to time.Time) ([]database.HistoricalRow, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	rows, err := s.db.GetHistoricalRange(ctx, powerPlantIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return rows, nil
}
