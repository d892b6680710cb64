package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

func marshalResult(result any) (json.RawMessage, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return data, nil
}

func str(params map[string]any, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}

	return fallback
}

var activityPool = []string{
	"guided walking tour",
	"local food market visit",
	"museum morning",
	"scenic viewpoint hike",
	"river cruise",
	"historic district stroll",
	"day trip to nearby town",
	"evening concert",
}

func itineraryMethods() map[string]handler {
	return map[string]handler{
		"create_itinerary": func(params map[string]any) (any, error) {
			destination := str(params, "destination", "")
			if destination == "" {
				return nil, fmt.Errorf("destination is required")
			}

			days := make([]map[string]any, 0, 3)
			for i := range 3 {
				days = append(days, map[string]any{
					"day":        i + 1,
					"activities": pick(activityPool, 2),
				})
			}

			return map[string]any{
				"destination": destination,
				"start_date":  str(params, "start_date", ""),
				"end_date":    str(params, "end_date", ""),
				"days":        days,
				"status":      "draft",
			}, nil
		},

		"get_itinerary": func(params map[string]any) (any, error) {
			return map[string]any{
				"destination": str(params, "destination", "unknown"),
				"days":        []any{},
				"status":      "empty",
			}, nil
		},

		"suggest_activities": func(params map[string]any) (any, error) {
			return map[string]any{
				"location":    str(params, "location", str(params, "destination", "")),
				"suggestions": pick(activityPool, 4),
			}, nil
		},
	}
}

func pick(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}

	out := make([]string, 0, n)
	seen := make(map[int]struct{}, n)

	for len(out) < n {
		i := rand.IntN(len(pool))
		if _, dup := seen[i]; dup {
			continue
		}

		seen[i] = struct{}{}
		out = append(out, pool[i])
	}

	return out
}
