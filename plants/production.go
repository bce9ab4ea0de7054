package plants

import (
	"context"
	"time"

	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/grid"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type Production struct {
	PowerPlantID string    `json:"powerPlantId"`
	OwnerEmail   string    `json:"ownerEmail"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Production   float64   `json:"production"`
}

type Statistic struct {
	Period Period  `json:"period"`
	Now    float64 `json:"now"`
	Before float64 `json:"before"`
}

// Production sums the recorded predicted power for the current calendar
// month and annotates it with the owner's email.
func (s *Service) Production(ctx context.Context, powerPlantID string) (Production, error) {
	plant, err := s.Get(ctx, powerPlantID)
	if err != nil {
		return Production{}, err
	}
	owner, err := s.users.FindByID(ctx, plant.UserID)
	if err != nil {
		return Production{}, err
	}

	now := time.Now().UTC()
	from, to := grid.StartOfMonth(now), grid.EndOfMonth(now)
	sum, err := s.db.SumPredictedPower(ctx, powerPlantID, from, to)
	if err != nil {
		return Production{}, err
	}
	return Production{
		PowerPlantID: powerPlantID,
		OwnerEmail:   owner.Email,
		From:         from,
		To:           to,
		Production:   sum,
	}, nil
}

// statisticWindows returns the current window and the equally sized window
// immediately preceding it for a period anchored at now.
func statisticWindows(period Period, now time.Time) (nowFrom, nowTo, beforeFrom, beforeTo time.Time, err error) {
	switch period {
	case PeriodToday:
		nowFrom = grid.StartOfDay(now)
		beforeFrom = nowFrom.AddDate(0, 0, -1)
	case PeriodWeek:
		nowFrom = now.AddDate(0, 0, -7)
		beforeFrom = now.AddDate(0, 0, -14)
	case PeriodMonth:
		nowFrom = now.AddDate(0, -1, 0)
		beforeFrom = now.AddDate(0, -2, 0)
	case PeriodYear:
		nowFrom = now.AddDate(-1, 0, 0)
		beforeFrom = now.AddDate(-2, 0, 0)
	default:
		err = domain.Validation("unknown statistics period")
		return
	}
	nowTo = now
	beforeTo = nowFrom
	return
}

// ProductionStatistics compares the summed predicted power of the current
// window against the preceding window of the same size, for each requested
// period.
func (s *Service) ProductionStatistics(ctx context.Context, powerPlantID string, periods []Period) ([]Statistic, error) {
	if _, err := s.Get(ctx, powerPlantID); err != nil {
		return nil, err
	}
	return s.statisticsFor(ctx, []string{powerPlantID}, periods)
}

func (s *Service) statisticsFor(ctx context.Context, powerPlantIDs []string, periods []Period) ([]Statistic, error) {
	now := time.Now().UTC()
	stats := make([]Statistic, 0, len(periods))
	for _, period := range periods {
		nowFrom, nowTo, beforeFrom, beforeTo, err := statisticWindows(period, now)
		if err != nil {
			return nil, err
		}
		var current, before float64
		for _, id := range powerPlantIDs {
			c, err := s.db.SumPredictedPower(ctx, id, nowFrom, nowTo)
			if err != nil {
				return nil, err
			}
			b, err := s.db.SumPredictedPower(ctx, id, beforeFrom, beforeTo)
			if err != nil {
				return nil, err
			}
			current += c
			before += b
		}
		stats = append(stats, Statistic{Period: period, Now: current, Before: before})
	}
	return stats, nil
}

// StatisticsForPlants is the aggregate entry point used by communities.
func (s *Service) StatisticsForPlants(ctx context.Context, powerPlantIDs []string, periods []Period) ([]Statistic, error) {
	return s.statisticsFor(ctx, powerPlantIDs, periods)
}
