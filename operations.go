package orchestrator

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// TravelOperations returns the built-in composite operation specs for the
// travel server set (itinerary, maps, booking).
//
// plan_trip builds an itinerary and location briefing, then searches
// flights and hotels in parallel. check_weather_route fetches the weather
// forecast and driving route for a trip leg concurrently.
func TravelOperations() []OperationSpec {
	return []OperationSpec{
		{
			Name:        "plan_trip",
			Description: "Plan a trip: itinerary and location info, then flight and hotel search",
			Params: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"destination": {Type: "string"},
					"origin":      {Type: "string"},
					"dates": {
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"start": {Type: "string"},
							"end":   {Type: "string"},
						},
					},
				},
				Required: []string{"destination"},
			},
			Stages: []OperationStage{
				{
					{
						Role:   "itinerary",
						Server: "itinerary",
						Method: "create_itinerary",
						Bind: func(params map[string]any) map[string]any {
							dates := mapParam(params, "dates")

							return map[string]any{
								"destination": params["destination"],
								"start_date":  dates["start"],
								"end_date":    dates["end"],
							}
						},
					},
					{
						Role:   "location",
						Server: "maps",
						Method: "get_location_info",
						Bind: func(params map[string]any) map[string]any {
							return map[string]any{
								"location":       params["destination"],
								"include_nearby": true,
							}
						},
					},
				},
				{
					{
						Role:   "flights",
						Server: "booking",
						Method: "search_flights",
						Bind: func(params map[string]any) map[string]any {
							origin := strParam(params, "origin")
							if origin == "" {
								origin = "New York"
							}

							dates := mapParam(params, "dates")

							return map[string]any{
								"origin":         origin,
								"destination":    params["destination"],
								"departure_date": dates["start"],
							}
						},
					},
					{
						Role:   "hotels",
						Server: "booking",
						Method: "search_hotels",
						Bind: func(params map[string]any) map[string]any {
							dates := mapParam(params, "dates")

							return map[string]any{
								"location":  params["destination"],
								"check_in":  dates["start"],
								"check_out": dates["end"],
							}
						},
					},
				},
			},
		},
		{
			Name:        "check_weather_route",
			Description: "Fetch weather forecast and route for a trip leg",
			Params: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"location":    {Type: "string"},
					"destination": {Type: "string"},
					"mode":        {Type: "string"},
				},
				Required: []string{"location", "destination"},
			},
			Stages: []OperationStage{
				{
					{
						Role:   "weather",
						Server: "maps",
						Method: "get_weather_forecast",
						Bind: func(params map[string]any) map[string]any {
							return map[string]any{"location": params["location"]}
						},
					},
					{
						Role:   "route",
						Server: "maps",
						Method: "get_route",
						Bind: func(params map[string]any) map[string]any {
							mode := strParam(params, "mode")
							if mode == "" {
								mode = "driving"
							}

							return map[string]any{
								"origin":      params["location"],
								"destination": params["destination"],
								"mode":        mode,
							}
						},
					},
				},
			},
		},
	}
}

func strParam(params map[string]any, key string) string {
	s, _ := params[key].(string)

	return s
}

func mapParam(params map[string]any, key string) map[string]any {
	m, _ := params[key].(map[string]any)
	if m == nil {
		m = map[string]any{}
	}

	return m
}
