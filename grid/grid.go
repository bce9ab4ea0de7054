// Package grid holds the fixed 15-minute timestep that forecasts,
// predictions and historical records are bucketed on.
package grid

import "time"

// Step is the resolution of the internal history model. Forecast points,
// predictions and historical rows all land on multiples of it.
const Step = 15 * time.Minute

// StepHours is the fraction of an hour one step covers, used when turning
// instantaneous power into energy per bucket.
const StepHours = 0.25

// Floor truncates t down to the grid boundary it falls in.
func Floor(t time.Time) time.Time {
	return t.UTC().Truncate(Step)
}

// RoundUp returns the next grid boundary at or after t. A timestamp already
// on a boundary is returned unchanged.
func RoundUp(t time.Time) time.Time {
	f := Floor(t)
	if f.Equal(t.UTC()) {
		return f
	}
	return f.Add(Step)
}

// Next returns the boundary one step after the boundary t falls in.
func Next(t time.Time) time.Time {
	return Floor(t).Add(Step)
}

// Aligned reports whether t sits exactly on a grid boundary.
func Aligned(t time.Time) bool {
	return Floor(t).Equal(t.UTC())
}

// DayKey identifies the calendar day (UTC) a timestamp belongs to.
// Consecutive prediction points with different keys mark a day boundary.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Shift moves t by a whole number of hours, used for timezone-shifted
// prediction output.
func Shift(t time.Time, hours int) time.Time {
	return t.Add(time.Duration(hours) * time.Hour)
}

// StartOfDay returns midnight (UTC) of the day t falls in.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first instant of the calendar month t falls in.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last instant of the calendar month t falls in.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}
