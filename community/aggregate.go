package community

import (
	"context"
	"sort"
	"time"

	"github.com/wattshare/wattshare-go/convert"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/grid"
	"github.com/wattshare/wattshare-go/plants"
)

type PowerShare struct {
	UserID       string  `json:"userId"`
	Email        string  `json:"email"`
	PowerPlantID string  `json:"powerPlantId"`
	Share        float64 `json:"share"`
}

// memberPlants resolves the community and returns the distinct plant ids of
// its members. Any user involved with the community, admin or member, may
// read its aggregates.
func (s *Service) memberPlants(ctx context.Context, userID, communityID string) (Community, []string, error) {
	comm, err := s.FindByID(ctx, communityID)
	if err != nil {
		return Community{}, nil, err
	}

	authorized := comm.AdminID == userID
	for _, m := range comm.Members {
		if m.UserID == userID {
			authorized = true
		}
	}
	if !authorized {
		return Community{}, nil, domain.Unauthorized("user is not part of the community")
	}

	plantIDs := make([]string, 0, len(comm.Members))
	for _, m := range comm.Members {
		plantIDs = append(plantIDs, m.PowerPlantID)
	}
	return comm, plantIDs, nil
}

// Predict sums the member plants' prediction series into one. Points are
// merged by timestamp: slots present in several member series add up, a
// slot only one member covers stands alone.
func (s *Service) Predict(ctx context.Context, userID, communityID string, tzOffsetHours int) ([]plants.PredictionPoint, error) {
	_, plantIDs, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if len(plantIDs) == 0 {
		return nil, domain.PreconditionFailed("community has no power plants")
	}

	sums := map[time.Time]float64{}
	for _, plantID := range plantIDs {
		points, err := s.plants.Predict(ctx, plantID, tzOffsetHours)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			sums[p.Date.UTC()] += p.Power
		}
	}

	merged := make([]plants.PredictionPoint, 0, len(sums))
	for date, power := range sums {
		merged = append(merged, plants.PredictionPoint{Date: date, Power: power})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, nil
}

// PredictByDays folds every member's daily totals index-wise. The result is
// as long as the shortest member series, so only days every member has a
// forecast for are reported.
func (s *Service) PredictByDays(ctx context.Context, userID, communityID string, tzOffsetHours int) ([]float64, error) {
	_, plantIDs, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if len(plantIDs) == 0 {
		return nil, domain.PreconditionFailed("community has no power plants")
	}

	var totals []float64
	for i, plantID := range plantIDs {
		days, err := s.plants.PredictByDays(ctx, plantID, tzOffsetHours)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			totals = append([]float64(nil), days...)
			continue
		}
		if len(days) < len(totals) {
			totals = totals[:len(days)]
		}
		for j := range totals {
			totals[j] += days[j]
		}
	}
	return totals, nil
}

// Production is the month-to-date output of a whole community: the summed
// total next to the per-plant breakdown. From and To repeat the first
// member's window, all members share it anyway.
type Production struct {
	From        time.Time           `json:"from"`
	To          time.Time           `json:"to"`
	PowerPlants []plants.Production `json:"powerPlants"`
	Production  float64             `json:"production"`
}

// PowerProduction sums the month-to-date production over every member
// plant.
func (s *Service) PowerProduction(ctx context.Context, userID, communityID string) (Production, error) {
	_, plantIDs, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return Production{}, err
	}

	result := Production{PowerPlants: make([]plants.Production, 0, len(plantIDs))}
	for _, plantID := range plantIDs {
		p, err := s.plants.Production(ctx, plantID)
		if err != nil {
			return Production{}, err
		}
		if len(result.PowerPlants) == 0 {
			result.From, result.To = p.From, p.To
		}
		result.PowerPlants = append(result.PowerPlants, p)
		result.Production += p.Production
	}
	return result, nil
}

type CurrentProduction struct {
	Date        time.Time                  `json:"date"`
	PowerPlants []plants.CurrentProduction `json:"powerPlants"`
	Production  float64                    `json:"production"`
}

// CurrentProduction reports what the community produces in the current
// grid slot, summed over its member plants.
func (s *Service) CurrentProduction(ctx context.Context, userID, communityID string, tzOffsetHours int) (CurrentProduction, error) {
	_, plantIDs, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return CurrentProduction{}, err
	}

	points, err := s.plants.CurrentProductionForPlants(ctx, plantIDs, tzOffsetHours)
	if err != nil {
		return CurrentProduction{}, err
	}

	result := CurrentProduction{
		Date:        grid.Shift(grid.Floor(time.Now().UTC()), tzOffsetHours),
		PowerPlants: points,
	}
	for _, p := range points {
		result.Production += p.Production.Power
	}
	return result, nil
}

// MembersPowerShare weighs every member plant by its latest calibration
// coefficient against the community total.
func (s *Service) MembersPowerShare(ctx context.Context, userID, communityID string) ([]PowerShare, error) {
	comm, _, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, m := range comm.Members {
		total += m.CalibrationValue
	}
	if total <= 0 {
		return nil, domain.PreconditionFailed("community has no calibrated power plants")
	}

	shares := make([]PowerShare, 0, len(comm.Members))
	for _, m := range comm.Members {
		shares = append(shares, PowerShare{
			UserID:       m.UserID,
			Email:        m.Email,
			PowerPlantID: m.PowerPlantID,
			Share:        convert.RoundFloat64(m.CalibrationValue/total, 4),
		})
	}
	return shares, nil
}

// ProductionStatistics aggregates the now/before windows over all member
// plants.
func (s *Service) ProductionStatistics(ctx context.Context, userID, communityID string, periods []plants.Period) ([]plants.Statistic, error) {
	_, plantIDs, err := s.memberPlants(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	return s.plants.StatisticsForPlants(ctx, plantIDs, periods)
}
