package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/wattshare/wattshare-go/brightsky"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/openmeteo"
)

func main() {
	provider := flag.String("provider", "open-meteo", "open-meteo or bright-sky")
	lat := flag.Float64("lat", 52.52, "latitude")
	lon := flag.Float64("lon", 13.41, "longitude")
	flag.Parse()

	var p forecast.Provider
	if *provider == "bright-sky" {
		p = brightsky.New(10 * time.Second)
	} else {
		p = openmeteo.New(10 * time.Second)
	}

	readings, err := p.SolarRadiationForecast(context.Background(), *lat, *lon)
	if err != nil {
		panic(err)
	}

	for _, r := range readings {
		fmt.Printf("Time: %s, Solar: %.1f W/m2\n", r.Timestamp.Format(time.RFC3339), r.Solar)
	}
}
