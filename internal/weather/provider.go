package weather

import (
	"context"
)

// RawObservation mirrors the provider's current-weather payload. Measurement
// fields are pointers so that absent values can be told apart from zero.
type RawObservation struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	State string      `json:"state"`
	Dt    int64       `json:"dt"`
	Coord Coordinates `json:"coord"`
	Main  struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Provider abstracts the remote weather and air-quality API.
type Provider interface {
	Name() string
	// FetchGroup returns current weather for every id in one call.
	FetchGroup(ctx context.Context, ids []int64) ([]RawObservation, error)
	// FetchCurrent returns current weather for a city name.
	FetchCurrent(ctx context.Context, city string) (RawObservation, error)
	// FetchAirQuality returns the AQI at the coordinates, nil if unreported.
	FetchAirQuality(ctx context.Context, lat, lon float64) (*int, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Store is the append-only persistence contract.
type Store interface {
	InsertObservation(ctx context.Context, obs Observation) error
	InsertEmbedding(ctx context.Context, rec EmbeddingRecord) error
	// Nearest returns at most k rows ordered by ascending distance to vec.
	Nearest(ctx context.Context, vec []float32, k int) ([]QueryResult, error)
}

// CitySource yields the cities to ingest.
type CitySource interface {
	Cities(ctx context.Context) ([]CityRef, error)
}
