// Package brightsky is the secondary forecast provider, backed by the DWD
// Bright Sky API. Its native grid is hourly, readings are expanded onto the
// 15-minute grid so both providers present the same shape.
package brightsky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wattshare/wattshare-go/convert"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/grid"
)

const baseURL = "https://api.brightsky.dev"

type BrightSky struct {
	client *http.Client
}

func New(timeout time.Duration) *BrightSky {
	return &BrightSky{client: &http.Client{Timeout: timeout}}
}

func (b *BrightSky) Name() string {
	return "bright-sky"
}

type weatherEntry struct {
	Timestamp time.Time `json:"timestamp"`
	// Accumulated solar energy in kWh/m2 over the preceding hour
	Solar *float64 `json:"solar"`
}

type response struct {
	Weather []weatherEntry `json:"weather"`
}

func (b *BrightSky) SolarRadiationForecast(ctx context.Context, lat, lon float64) ([]forecast.Reading, error) {
	from := time.Now().UTC()
	to := from.AddDate(0, 0, 7)
	url := fmt.Sprintf("%s/weather?lat=%0.4f&lon=%0.4f&date=%s&last_date=%s",
		baseURL, lat, lon, from.Format("2006-01-02"), to.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Bright Sky request: %w", err)
	}
	res, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting Bright Sky forecast: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected Bright Sky status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Bright Sky response body: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling Bright Sky json: %w", err)
	}

	var readings []forecast.Reading
	for _, entry := range parsed.Weather {
		if entry.Solar == nil {
			continue
		}
		// Spread the hourly average across its four grid buckets.
		avg := convert.KwhM2ToAvgWm2(*entry.Solar)
		hour := entry.Timestamp.UTC().Truncate(time.Hour)
		for q := 0; q < 4; q++ {
			readings = append(readings, forecast.Reading{
				Solar:     avg,
				Timestamp: hour.Add(time.Duration(q) * grid.Step),
			})
		}
	}

	return readings, nil
}

func (b *BrightSky) CurrentSolarRadiation(ctx context.Context, lat, lon float64) (forecast.Reading, error) {
	readings, err := b.SolarRadiationForecast(ctx, lat, lon)
	if err != nil {
		return forecast.Reading{}, err
	}
	return forecast.CurrentFromSeries(readings, time.Now())
}
