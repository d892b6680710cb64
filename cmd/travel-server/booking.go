package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

var airlines = []string{"SkyWings", "AeroFly", "CloudJet", "SwiftAir"}

var hotelNames = []string{
	"Grand Plaza",
	"Riverside Inn",
	"Summit Lodge",
	"Harbor View Hotel",
	"Old Town Suites",
}

func bookingMethods() map[string]handler {
	return map[string]handler{
		"search_flights": func(params map[string]any) (any, error) {
			origin := str(params, "origin", "")
			destination := str(params, "destination", "")

			if origin == "" || destination == "" {
				return nil, fmt.Errorf("origin and destination are required")
			}

			flights := make([]map[string]any, 0, 5)
			for range 5 {
				base := rand.IntN(1300) + 200
				flights = append(flights, map[string]any{
					"flight_id":   fmt.Sprintf("FL%04d", rand.IntN(9000)+1000),
					"airline":     airlines[rand.IntN(len(airlines))],
					"origin":      origin,
					"destination": destination,
					"departure": map[string]any{
						"date": str(params, "departure_date", ""),
						"time": fmt.Sprintf("%02d:%02d", rand.IntN(17)+6, rand.IntN(2)*30),
					},
					"stops": rand.IntN(3),
					"price": map[string]any{
						"economy":  base,
						"business": float64(base) * 2.5,
					},
					"available_seats": rand.IntN(45) + 5,
				})
			}

			return map[string]any{
				"origin":           origin,
				"destination":      destination,
				"flights_found":    len(flights),
				"outbound_flights": flights,
			}, nil
		},

		"search_hotels": func(params map[string]any) (any, error) {
			location := str(params, "location", "")
			if location == "" {
				return nil, fmt.Errorf("location is required")
			}

			hotels := make([]map[string]any, 0, len(hotelNames))
			for _, name := range hotelNames {
				hotels = append(hotels, map[string]any{
					"name":            name,
					"location":        location,
					"rating":          round2(rand.Float64()*2 + 3),
					"price_per_night": rand.IntN(350) + 50,
					"available":       rand.IntN(4) > 0,
				})
			}

			return map[string]any{
				"location":     location,
				"check_in":     str(params, "check_in", ""),
				"check_out":    str(params, "check_out", ""),
				"hotels_found": len(hotels),
				"hotels":       hotels,
			}, nil
		},

		"book": func(params map[string]any) (any, error) {
			item := str(params, "item_id", "")
			if item == "" {
				return nil, fmt.Errorf("item_id is required")
			}

			return map[string]any{
				"confirmation_id": uuid.NewString(),
				"item_id":         item,
				"status":          "confirmed",
			}, nil
		},
	}
}
