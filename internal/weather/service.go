package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weatheriq/internal/logger"
	"github.com/i474232898/weatheriq/internal/metrics"
)

// DefaultBatchSize is the number of city ids sent per group request.
const DefaultBatchSize = 20

// Service runs the City Source -> Fetcher -> Transformer -> Store pipeline and
// the on-demand single-city variant used by the query path.
type Service struct {
	provider Provider
	store    Store
	embedder Embedder
	cities   CitySource

	batchSize     int
	embedOnIngest bool

	log     logger.Logger
	metrics *metrics.Manager
}

// Option configures a Service.
type Option func(*Service)

// WithCitySource sets where bulk runs read their cities from.
func WithCitySource(src CitySource) Option {
	return func(s *Service) { s.cities = src }
}

// WithBatchSize sets the group request size; values <= 0 keep the default.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithEmbedOnIngest makes bulk runs also write an embedding per stored city.
func WithEmbedOnIngest(on bool) Option {
	return func(s *Service) { s.embedOnIngest = on }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service.
func NewService(provider Provider, store Store, embedder Embedder, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		store:     store,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunReport summarizes one bulk ingestion run.
type RunReport struct {
	RunID    string
	Batches  int
	Fetched  int
	Stored   int
	Invalid  int
	Failed   int
	Duration time.Duration
}

// Run ingests every city of the configured source. Failures of a single
// city or a single group request are logged and counted; only a failure to
// load the city list or a cancelled context ends the run early.
func (s *Service) Run(ctx context.Context) (report RunReport, err error) {
	start := time.Now()
	report = RunReport{RunID: uuid.NewString()}
	runField := logger.String("run_id", report.RunID)
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.IngestRun(report.Duration)
	}()

	if s.cities == nil {
		return report, errors.New("no city source configured")
	}
	cities, err := s.cities.Cities(ctx)
	if err != nil {
		return report, fmt.Errorf("load cities: %w", err)
	}

	ids := make([]int64, len(cities))
	for i, c := range cities {
		ids[i] = c.ID
	}

	s.log.Info(ctx, "ingest run started", runField, logger.Int("cities", len(ids)), logger.Int("batch_size", s.batchSize))

	for _, batch := range Batches(ids, s.batchSize) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Batches++

		raws, err := s.provider.FetchGroup(ctx, batch)
		if err != nil {
			s.log.Error(ctx, "group fetch failed", runField, logger.Int("batch", report.Batches), logger.Error(err))
			s.metrics.IngestError("group")
			report.Failed += len(batch)
			continue
		}
		report.Fetched += len(raws)
		s.metrics.ObservationsFetched(len(raws))

		for _, raw := range raws {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			err := s.ingest(ctx, raw, true, s.embedOnIngest)
			switch {
			case err == nil:
				report.Stored++
			case errors.Is(err, ErrValidation):
				report.Invalid++
				s.log.Warn(ctx, "invalid weather data", runField, logger.String("city", raw.Name), logger.Error(err))
			default:
				report.Failed++
				s.log.Error(ctx, "error processing city", runField, logger.String("city", raw.Name), logger.Error(err))
			}
		}
	}

	s.log.Info(ctx, "ingest run finished", runField,
		logger.Int("batches", report.Batches),
		logger.Int("stored", report.Stored),
		logger.Int("invalid", report.Invalid),
		logger.Int("failed", report.Failed))
	return report, nil
}

// FetchAndStore fetches current weather for a city name, stores the
// observation and then its embedding. The two writes are independent: a
// failed embedding leaves the observation in place. Rows are labelled with
// the requested name, not the provider's canonical one, so later queries for
// the same text find them.
func (s *Service) FetchAndStore(ctx context.Context, city string) error {
	raw, err := s.provider.FetchCurrent(ctx, city)
	if err != nil {
		s.metrics.IngestError("current")
		return err
	}
	s.metrics.ObservationsFetched(1)
	raw.Name = city
	return s.ingest(ctx, raw, false, true)
}

// ingest handles one provider record. In bulk mode an air-quality failure
// fails the city; on demand it only drops the AQI.
func (s *Service) ingest(ctx context.Context, raw RawObservation, bulk, embed bool) error {
	aqi, err := s.provider.FetchAirQuality(ctx, raw.Coord.Lat, raw.Coord.Lon)
	if err != nil {
		s.metrics.IngestError("air_quality")
		if bulk {
			return err
		}
		s.log.Warn(ctx, "air quality unavailable", logger.String("city", raw.Name), logger.Error(err))
		aqi = nil
	}

	obs, err := Transform(raw, aqi)
	if err != nil {
		s.metrics.ObservationInvalid()
		return err
	}

	if err := s.store.InsertObservation(ctx, obs); err != nil {
		s.metrics.IngestError("store")
		return err
	}
	s.metrics.ObservationStored()
	s.log.Info(ctx, "inserted weather data", logger.String("city", obs.City), logger.String("state", obs.State))

	if !embed {
		return nil
	}
	return s.storeEmbedding(ctx, obs)
}

func (s *Service) storeEmbedding(ctx context.Context, obs Observation) error {
	if s.embedder == nil {
		return &EmbeddingError{Model: "none", Err: errors.New("no embedder configured")}
	}
	text := DescribeObservation(obs.City, obs)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.metrics.IngestError("embed")
		return err
	}
	rec := EmbeddingRecord{Location: obs.City, Description: text, Embedding: vec}
	if err := s.store.InsertEmbedding(ctx, rec); err != nil {
		s.metrics.IngestError("store")
		return err
	}
	s.metrics.EmbeddingStored()
	s.log.Info(ctx, "stored weather and embedding", logger.String("city", obs.City))
	return nil
}

// Batches splits items into consecutive slices of at most size elements.
// A non-positive size yields a single batch.
func Batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
