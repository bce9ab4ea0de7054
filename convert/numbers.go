package convert

import (
	"math"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(decimals)) / math.Pow10(decimals)
}

// KwhM2ToAvgWm2 turns accumulated solar energy over one hour into the
// average irradiance during that hour.
func KwhM2ToAvgWm2(kwhPerM2 float64) float64 {
	return kwhPerM2 * 1000
}
