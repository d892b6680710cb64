package main

import (
	"fmt"
	"math/rand/v2"
)

var weatherConditions = []string{"sunny", "partly cloudy", "overcast", "light rain", "snow"}

func mapsMethods() map[string]handler {
	return map[string]handler{
		"get_location_info": func(params map[string]any) (any, error) {
			location := str(params, "location", "")
			if location == "" {
				return nil, fmt.Errorf("location is required")
			}

			info := map[string]any{
				"location": location,
				"coordinates": map[string]any{
					"lat": round2(rand.Float64()*180 - 90),
					"lon": round2(rand.Float64()*360 - 180),
				},
				"timezone": "UTC",
			}

			if include, _ := params["include_nearby"].(bool); include {
				info["nearby"] = []map[string]any{
					{"name": "Old Town Square", "type": "attraction", "distance_km": round2(rand.Float64() * 5)},
					{"name": "Central Market", "type": "market", "distance_km": round2(rand.Float64() * 5)},
					{"name": "City Park", "type": "park", "distance_km": round2(rand.Float64() * 5)},
				}
			}

			return info, nil
		},

		"get_weather_forecast": func(params map[string]any) (any, error) {
			location := str(params, "location", "")
			if location == "" {
				return nil, fmt.Errorf("location is required")
			}

			forecast := make([]map[string]any, 0, 5)
			for i := range 5 {
				forecast = append(forecast, map[string]any{
					"day":        i + 1,
					"condition":  weatherConditions[rand.IntN(len(weatherConditions))],
					"high_c":     rand.IntN(25) + 5,
					"low_c":      rand.IntN(10) - 2,
					"precip_pct": rand.IntN(100),
				})
			}

			return map[string]any{
				"location": location,
				"forecast": forecast,
			}, nil
		},

		"get_route": func(params map[string]any) (any, error) {
			origin := str(params, "origin", "")
			destination := str(params, "destination", "")

			if origin == "" || destination == "" {
				return nil, fmt.Errorf("origin and destination are required")
			}

			distanceKm := float64(rand.IntN(900) + 100)

			return map[string]any{
				"origin":       origin,
				"destination":  destination,
				"mode":         str(params, "mode", "driving"),
				"distance_km":  distanceKm,
				"duration_min": int(distanceKm / 80 * 60),
				"summary":      fmt.Sprintf("%s to %s via highway", origin, destination),
			}, nil
		},

		"calculate_distance": func(params map[string]any) (any, error) {
			loc1 := str(params, "location1", "")
			loc2 := str(params, "location2", "")

			if loc1 == "" || loc2 == "" {
				return nil, fmt.Errorf("location1 and location2 are required")
			}

			return map[string]any{
				"location1":   loc1,
				"location2":   loc2,
				"distance_km": float64(rand.IntN(9000) + 50),
			}, nil
		},
	}
}

func round2(f float64) float64 {
	return float64(int(f*100)) / 100
}
