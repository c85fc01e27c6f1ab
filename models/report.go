package models

// RainReport is everything the result page shows for one search
type RainReport struct {
	Location       string            `json:"location"`       // display name, e.g. "Paris, FR"
	SearchLocation string            `json:"searchLocation"` // cleaned user input
	Coordinates    GeoLocation       `json:"coordinates"`
	Summary        RainSummary       `json:"summary"`
	Current        CurrentConditions `json:"current"`
	Units          Units             `json:"units"`
	Labels         UnitLabels        `json:"labels"`
}

// DisplayName formats a location as "City, State, Country" or "City, Country"
func DisplayName(city string, loc GeoLocation) string {
	if city == "" {
		city = loc.Name
	}
	if loc.State != "" {
		return city + ", " + loc.State + ", " + loc.Country
	}
	return city + ", " + loc.Country
}
