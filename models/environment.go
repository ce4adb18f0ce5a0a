package models

// Place is a point of interest returned by the map-data query.
type Place struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// EnvironmentSnapshot bundles the signals derived from a pair of coordinates.
// It is recomputed on every request and never persisted.
type EnvironmentSnapshot struct {
	LocationType string `json:"location_type"`
	WeatherHint  string `json:"weather_hint"`
	DayPeriod    string `json:"day_period"`
	NearbyPlace  *Place `json:"nearby_place,omitempty"`
}
