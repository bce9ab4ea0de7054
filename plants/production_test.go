package plants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/domain"
)

func TestStatisticWindows(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		period     Period
		nowFrom    time.Time
		beforeFrom time.Time
	}{
		{
			period:     PeriodToday,
			nowFrom:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			beforeFrom: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			period:     PeriodWeek,
			nowFrom:    time.Date(2026, 3, 8, 10, 30, 0, 0, time.UTC),
			beforeFrom: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			period:     PeriodMonth,
			nowFrom:    time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC),
			beforeFrom: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			period:     PeriodYear,
			nowFrom:    time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			beforeFrom: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			nowFrom, nowTo, beforeFrom, beforeTo, err := statisticWindows(tt.period, now)
			require.NoError(t, err)

			assert.Equal(t, tt.nowFrom, nowFrom)
			assert.Equal(t, now, nowTo)
			assert.Equal(t, tt.beforeFrom, beforeFrom)
			// The windows tile: the before window ends where the current
			// one starts.
			assert.Equal(t, nowFrom, beforeTo)
		})
	}
}

func TestStatisticWindowsRejectsUnknownPeriod(t *testing.T) {
	_, _, _, _, err := statisticWindows(Period("quarter"), time.Now().UTC())
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
