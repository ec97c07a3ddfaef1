// Package config builds the process configuration from defaults, an optional
// YAML file, a .env file and WEATHERIQ_ environment variables.
package config

import (
	"time"
)

// AppConfig contains process configuration.
type AppConfig struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	OpenWeatherAPIKey  string `koanf:"openweather_api_key" validate:"required"`
	OpenWeatherBaseURL string `koanf:"openweather_base_url" validate:"omitempty,url"`

	// HTTPTimeout bounds every outbound HTTP request.
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`

	// RequestInterval is the minimum spacing between provider calls.
	RequestInterval time.Duration `koanf:"request_interval" validate:"gte=0"`

	// MaxRetries applies to 429/5xx/transport failures only.
	MaxRetries int `koanf:"max_retries" validate:"gte=0,lte=10"`

	CityListFile string `koanf:"city_list_file" validate:"required"`
	CityLimit    int    `koanf:"city_limit" validate:"gte=0"`
	BatchSize    int    `koanf:"batch_size" validate:"gt=0,lte=20"`

	// IngestInterval is how often the scheduler runs a bulk ingestion.
	// Zero disables the scheduler.
	IngestInterval time.Duration `koanf:"ingest_interval" validate:"gte=0"`
	IngestOnStart  bool          `koanf:"ingest_on_start"`
	EmbedOnIngest  bool          `koanf:"embed_on_ingest"`

	StoreDriver string `koanf:"store_driver" validate:"oneof=postgres sqlite memory"`
	DatabaseDSN string `koanf:"database_dsn" validate:"required_unless=StoreDriver memory"`

	Embedder        string `koanf:"embedder" validate:"oneof=hash http"`
	EmbeddingURL    string `koanf:"embedding_url" validate:"required_if=Embedder http"`
	EmbeddingModel  string `koanf:"embedding_model"`
	EmbeddingAPIKey string `koanf:"embedding_api_key"`
	EmbeddingDim    int    `koanf:"embedding_dim" validate:"gt=0"`

	QueryTopK int `koanf:"query_top_k" validate:"gt=0,lte=100"`
}

// New returns an AppConfig populated with defaults.
func New() *AppConfig {
	return &AppConfig{
		Addr:            ":8080",
		LogLevel:        "info",
		HTTPTimeout:     10 * time.Second,
		RequestInterval: time.Second,
		MaxRetries:      0,
		CityListFile:    "city.list.json",
		CityLimit:       50,
		BatchSize:       20,
		IngestInterval:  time.Hour,
		IngestOnStart:   false,
		EmbedOnIngest:   true,
		StoreDriver:     "sqlite",
		DatabaseDSN:     "weatheriq.db",
		Embedder:        "hash",
		EmbeddingDim:    384,
		QueryTopK:       3,
	}
}
