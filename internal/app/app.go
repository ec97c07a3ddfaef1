// Package app assembles the long-lived components from an AppConfig.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/i474232898/weatheriq/internal/cities"
	"github.com/i474232898/weatheriq/internal/config"
	"github.com/i474232898/weatheriq/internal/embedding"
	"github.com/i474232898/weatheriq/internal/logger"
	"github.com/i474232898/weatheriq/internal/metrics"
	"github.com/i474232898/weatheriq/internal/query"
	"github.com/i474232898/weatheriq/internal/store"
	"github.com/i474232898/weatheriq/internal/weather"
	"github.com/i474232898/weatheriq/internal/weather/providers"
)

// App holds the components shared by the server and the ingest command.
type App struct {
	Config   *config.AppConfig
	Log      logger.Logger
	Metrics  *metrics.Manager
	Store    store.Backend
	Embedder weather.Embedder
	Ingestor *weather.Service
	Query    *query.Service
}

// New builds every component. The caller owns the returned App and must
// Close it.
func New(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (*App, error) {
	m := metrics.NewManager()

	// Shared HTTP client for outbound provider and embedding calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	emb, err := newEmbedder(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, store.Config{
		Driver:    cfg.StoreDriver,
		DSN:       cfg.DatabaseDSN,
		Dimension: emb.Dimension(),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	owm := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithMaxRetries(cfg.MaxRetries),
		providers.WithMetrics(m),
	)
	provider := providers.NewRateLimitedProvider(owm, cfg.RequestInterval)

	ingestor := weather.NewService(provider, backend, emb,
		weather.WithCitySource(cities.NewFileSource(cfg.CityListFile, cfg.CityLimit)),
		weather.WithBatchSize(cfg.BatchSize),
		weather.WithEmbedOnIngest(cfg.EmbedOnIngest),
		weather.WithLogger(log.Named("ingest")),
		weather.WithMetrics(m),
	)

	return &App{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Store:    backend,
		Embedder: emb,
		Ingestor: ingestor,
		Query:    query.NewService(ingestor, emb, backend, cfg.QueryTopK, log.Named("query"), m),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

func newEmbedder(cfg *config.AppConfig, client *http.Client) (weather.Embedder, error) {
	switch cfg.Embedder {
	case "http":
		return embedding.NewHTTPEmbedder(client, cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	case "hash", "":
		return embedding.NewHashEmbedder(cfg.EmbeddingDim), nil
	default:
		return nil, fmt.Errorf("unsupported embedder %q", cfg.Embedder)
	}
}
