// Package openmeteo fetches solar irradiance from the Open-Meteo DWD ICON
// endpoint. It is the reference forecast provider, its native resolution
// matches the internal 15-minute grid exactly.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/grid"
)

const baseURL = "https://api.open-meteo.com/v1/dwd-icon"

// The API hands out minutely_15 timestamps without a zone suffix, in UTC
// when requested with timezone=UTC.
const timeLayout = "2006-01-02T15:04"

type OpenMeteo struct {
	client *http.Client
}

func New(timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{client: &http.Client{Timeout: timeout}}
}

func (o *OpenMeteo) Name() string {
	return "open-meteo"
}

type response struct {
	Latitude   float64      `json:"latitude"`
	Longitude  float64      `json:"longitude"`
	Minutely15 minutelyData `json:"minutely_15"`
}

type minutelyData struct {
	// Shortwave radiation is global horizontal irradiance, the quantity
	// calibration coefficients are taken against.
	Time               []string  `json:"time"`
	ShortwaveRadiation []float64 `json:"shortwave_radiation"`
}

func (o *OpenMeteo) SolarRadiationForecast(ctx context.Context, lat, lon float64) ([]forecast.Reading, error) {
	url := fmt.Sprintf(
		"%s?latitude=%0.4f&longitude=%0.4f&minutely_15=shortwave_radiation&timezone=UTC",
		baseURL, lat, lon)

	slog.Default().Debug("fetching forecast from Open-Meteo...", "url", url)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Open-Meteo request: %w", err)
	}
	res, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting Open-Meteo forecast: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected Open-Meteo status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Open-Meteo response body: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling Open-Meteo json: %w", err)
	}

	readings := make([]forecast.Reading, 0, len(parsed.Minutely15.Time))
	for i, ts := range parsed.Minutely15.Time {
		if i >= len(parsed.Minutely15.ShortwaveRadiation) {
			break
		}
		t, err := time.ParseInLocation(timeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing Open-Meteo timestamp %q: %w", ts, err)
		}
		readings = append(readings, forecast.Reading{
			Solar:     parsed.Minutely15.ShortwaveRadiation[i],
			Timestamp: t,
		})
	}

	return readings, nil
}

func (o *OpenMeteo) CurrentSolarRadiation(ctx context.Context, lat, lon float64) (forecast.Reading, error) {
	readings, err := o.SolarRadiationForecast(ctx, lat, lon)
	if err != nil {
		return forecast.Reading{}, err
	}
	bucket := grid.Floor(time.Now())
	for _, r := range readings {
		if r.Timestamp.Equal(bucket) {
			return r, nil
		}
	}
	return forecast.Reading{}, fmt.Errorf("open-meteo series has no reading for %s", bucket.Format(time.RFC3339))
}
