package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// DefaultState is recorded when the provider does not report a state.
const DefaultState = "NA"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityRef is an entry of the static city reference file.
type CityRef struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	State   string      `json:"state,omitempty"`
	Country string      `json:"country,omitempty"`
	Coord   Coordinates `json:"coord"`
}

// Observation is a single normalized weather reading ready to be persisted.
// Temperature, Humidity and Pressure are required; the remaining measurements
// are best-effort and may be nil.
type Observation struct {
	City        string    `json:"city"`
	State       string    `json:"state"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature *float64  `json:"temperatureC"`
	Humidity    *float64  `json:"humidityPercent"`
	Pressure    *float64  `json:"pressureHpa"`
	WindSpeed   *float64  `json:"windSpeed,omitempty"`
	Description *string   `json:"description,omitempty"`
	Condition   Condition `json:"condition"`
	AirQuality  *int      `json:"airQualityIndex,omitempty"`
}

// EmbeddingRecord is a (location, text, vector) triple for the semantic index.
type EmbeddingRecord struct {
	Location    string
	Description string
	Embedding   []float32
}

// QueryResult is one nearest-neighbour hit, smaller Distance is closer.
type QueryResult struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Distance    float64 `json:"similarity_score"`
}
