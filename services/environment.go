package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hoppi/models"
)

const nearbyRadius = 500 // meters

// EnvironmentService derives location type, day period, weather hint and
// nearby points of interest from a pair of coordinates. Every call hits the
// upstream APIs fresh; nothing is cached. All four lookups are independent
// and each degrades on its own.
type EnvironmentService struct {
	SunriseURL   string
	WeatherURL   string
	NominatimURL string
	OverpassURL  string

	httpClient *http.Client
	now        func() time.Time
	rng        *rand.Rand
}

// NewEnvironmentService wires the classifier against the given endpoints.
// now and rng are injectable for deterministic tests; pass nil for
// production defaults.
func NewEnvironmentService(sunriseURL, weatherURL, nominatimURL, overpassURL string, now func() time.Time, rng *rand.Rand) *EnvironmentService {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &EnvironmentService{
		SunriseURL:   sunriseURL,
		WeatherURL:   weatherURL,
		NominatimURL: nominatimURL,
		OverpassURL:  overpassURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          now,
		rng:          rng,
	}
}

func (e *EnvironmentService) get(rawURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "hoppi-app")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// DayPeriod classifies the current moment against the location's sun cycle:
// morning is the four hours after sunrise, evening the two hours before
// sunset, pre-dawn anything earlier than sunrise and night anything after
// sunset. On any upstream failure it falls back to a plain wall-clock rule.
func (e *EnvironmentService) DayPeriod(lat, lon float64) string {
	period, err := e.sunPeriod(lat, lon)
	if err != nil {
		log.Printf("[ERROR] Sunrise-Sunset API failed: %v", err)
		hour := e.now().Hour()
		if hour < 12 {
			return "morning"
		}
		if hour < 18 {
			return "afternoon"
		}
		return "night"
	}
	return period
}

func (e *EnvironmentService) sunPeriod(lat, lon float64) (string, error) {
	body, err := e.get(fmt.Sprintf("%s?lat=%f&lng=%f&formatted=0", e.SunriseURL, lat, lon))
	if err != nil {
		return "", err
	}

	var parsed struct {
		Results struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	sunrise, err := time.Parse(time.RFC3339, parsed.Results.Sunrise)
	if err != nil {
		return "", fmt.Errorf("bad sunrise time: %w", err)
	}
	sunset, err := time.Parse(time.RFC3339, parsed.Results.Sunset)
	if err != nil {
		return "", fmt.Errorf("bad sunset time: %w", err)
	}

	now := e.now().UTC()
	sunrise = sunrise.UTC()
	sunset = sunset.UTC()
	morningEnd := sunrise.Add(4 * time.Hour)
	afternoonEnd := sunset.Add(-2 * time.Hour)

	switch {
	case now.Before(sunrise):
		return "pre-dawn", nil
	case now.Before(morningEnd):
		return "morning", nil
	case now.Before(afternoonEnd):
		return "afternoon", nil
	case now.Before(sunset):
		return "evening", nil
	default:
		return "night", nil
	}
}

// WeatherHint maps the current open-meteo weather code onto one of five
// canned suggestion sentences. Returns "" on failure; callers must tolerate
// an empty hint.
func (e *EnvironmentService) WeatherHint(lat, lon float64) string {
	body, err := e.get(fmt.Sprintf("%s?latitude=%f&longitude=%f&current_weather=true", e.WeatherURL, lat, lon))
	if err != nil {
		log.Printf("[Weather Error] %v", err)
		return ""
	}

	var parsed struct {
		CurrentWeather *struct {
			WeatherCode int `json:"weathercode"`
		} `json:"current_weather"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.CurrentWeather == nil {
		log.Printf("[Weather Error] missing current weather: %v", err)
		return ""
	}

	switch parsed.CurrentWeather.WeatherCode {
	case 0, 1:
		return "It's sunny, suggest something social and outdoors."
	case 2, 3, 45:
		return "It's cloudy, suggest something cozy or introspective."
	case 51, 61, 80:
		return "It's rainy, suggest something under shelter or with rain gear."
	case 71:
		return "It's snowy, suggest something fun with snow."
	default:
		return "Weather unclear; suggest something adaptable."
	}
}

// LocationType reverse-geocodes the coordinates and keyword-matches the
// lower-cased address blob in a fixed priority order. Matching is substring
// based on the whole JSON object, so a street literally named "Forest Ave"
// classifies as park; that imprecision is accepted.
func (e *EnvironmentService) LocationType(lat, lon float64) string {
	body, err := e.get(fmt.Sprintf("%s?lat=%f&lon=%f&format=json&zoom=18&addressdetails=1", e.NominatimURL, lat, lon))
	if err != nil {
		log.Printf("[ERROR] Location type detection failed: %v", err)
		return "street"
	}

	var parsed struct {
		Address map[string]string `json:"address"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("[ERROR] Location type detection failed: %v", err)
		return "street"
	}

	encoded, err := json.Marshal(parsed.Address)
	if err != nil {
		return "street"
	}
	blob := strings.ToLower(string(encoded))

	switch {
	case strings.Contains(blob, "beach") || strings.Contains(blob, "coast"):
		return "beach"
	case strings.Contains(blob, "park") || parsed.Address["leisure"] == "park":
		return "park"
	case strings.Contains(blob, "restaurant") || strings.Contains(blob, "cafe"):
		return "restaurant"
	case strings.Contains(blob, "mall") || strings.Contains(blob, "shopping"):
		return "mall"
	case strings.Contains(blob, "forest"):
		return "park"
	default:
		return "street"
	}
}

// overpassCategories are the point-of-interest node selectors included in
// the nearby query.
var overpassCategories = []string{
	`node["leisure"="park"]`,
	`node["leisure"="playground"]`,
	`node["amenity"="cafe"]`,
	`node["amenity"="restaurant"]`,
	`node["amenity"="fast_food"]`,
	`node["amenity"="bar"]`,
	`node["amenity"="pub"]`,
	`node["shop"="mall"]`,
	`node["shop"="supermarket"]`,
	`node["shop"="convenience"]`,
	`node["amenity"="library"]`,
	`node["amenity"="school"]`,
	`node["amenity"="university"]`,
	`node["amenity"="hospital"]`,
	`node["amenity"="clinic"]`,
	`node["amenity"="bus_station"]`,
	`node["amenity"="train_station"]`,
	`node["tourism"="museum"]`,
	`node["tourism"="art_gallery"]`,
	`node["leisure"="sports_centre"]`,
	`node["leisure"="fitness_centre"]`,
	`node["amenity"="place_of_worship"]`,
	`node["amenity"="marketplace"]`,
	`node["amenity"="theatre"]`,
	`node["tourism"="hotel"]`,
}

// NearbyPlaces queries the map-data service for points of interest within
// the radius. Category resolves to the first non-empty of amenity, shop,
// leisure, tourism; names default to "Unknown place". Returns an empty
// slice on any failure, never an error to the caller.
func (e *EnvironmentService) NearbyPlaces(lat, lon float64) []models.Place {
	var q strings.Builder
	q.WriteString("[out:json][timeout:25];\n(\n")
	for _, cat := range overpassCategories {
		fmt.Fprintf(&q, "  %s(around:%d,%f,%f);\n", cat, nearbyRadius, lat, lon)
	}
	q.WriteString(");\nout center;\n")

	body, err := e.get(e.OverpassURL + "?data=" + url.QueryEscape(q.String()))
	if err != nil {
		log.Printf("[ERROR] Nearby place detection failed: %v", err)
		return nil
	}

	var parsed struct {
		Elements []struct {
			Lat  float64           `json:"lat"`
			Lon  float64           `json:"lon"`
			Tags map[string]string `json:"tags"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("[ERROR] Nearby place detection failed: %v", err)
		return nil
	}

	var out []models.Place
	for _, el := range parsed.Elements {
		name := el.Tags["name"]
		if name == "" {
			name = "Unknown place"
		}
		category := firstNonEmpty(el.Tags["amenity"], el.Tags["shop"], el.Tags["leisure"], el.Tags["tourism"])
		if category == "" {
			category = "unknown"
		}
		out = append(out, models.Place{Name: name, Category: category, Lat: el.Lat, Lon: el.Lon})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Snapshot runs all four lookups and picks one nearby place at random.
func (e *EnvironmentService) Snapshot(lat, lon float64) models.EnvironmentSnapshot {
	snap := models.EnvironmentSnapshot{
		LocationType: e.LocationType(lat, lon),
		WeatherHint:  e.WeatherHint(lat, lon),
		DayPeriod:    e.DayPeriod(lat, lon),
	}
	if places := e.NearbyPlaces(lat, lon); len(places) > 0 {
		place := places[e.rng.Intn(len(places))]
		snap.NearbyPlace = &place
	}
	return snap
}
