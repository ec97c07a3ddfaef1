// Package query answers free-text questions with the nearest stored weather
// descriptions, fetching the named city first when possible.
package query

import (
	"context"
	"strings"
	"time"

	"github.com/i474232898/weatheriq/internal/logger"
	"github.com/i474232898/weatheriq/internal/metrics"
	"github.com/i474232898/weatheriq/internal/weather"
)

// DefaultTopK is the number of matches returned per query.
const DefaultTopK = 3

// Messages returned to clients.
const (
	MsgNoMatches     = "No similar weather data found."
	MsgConnectFailed = "Failed to connect to the database."
	MsgQueryFailed   = "Failed to execute query."
	MsgSearchFailed  = "Failed to process vector search."
)

const (
	outcomeMatches = "matches"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
)

// Fetcher stores fresh data for a city on demand.
type Fetcher interface {
	FetchAndStore(ctx context.Context, city string) error
}

// Response is exactly one of an error, a message or a list of matches.
type Response struct {
	Error   string                `json:"error,omitempty"`
	Message string                `json:"message,omitempty"`
	Matches []weather.QueryResult `json:"matches,omitempty"`
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool { return r.Error != "" }

// Service runs semantic queries.
type Service struct {
	fetcher  Fetcher
	embedder weather.Embedder
	store    weather.Store
	topK     int
	log      logger.Logger
	metrics  *metrics.Manager
}

// NewService creates a Service; topK <= 0 selects DefaultTopK. fetcher may
// be nil to skip the on-demand refresh.
func NewService(fetcher Fetcher, embedder weather.Embedder, store weather.Store, topK int, log logger.Logger, m *metrics.Manager) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		fetcher:  fetcher,
		embedder: embedder,
		store:    store,
		topK:     topK,
		log:      log,
		metrics:  m,
	}
}

// Search treats text as a city name to refresh, then returns the stored
// descriptions nearest to text. Failures never escape as errors; they are
// reported in the Response.
func (s *Service) Search(ctx context.Context, text string) Response {
	start := time.Now()
	text = strings.TrimSpace(text)

	if s.fetcher != nil {
		if err := s.fetcher.FetchAndStore(ctx, text); err != nil {
			s.log.Info(ctx, "weather data might already exist, continuing search",
				logger.String("query", text), logger.Error(err))
		}
	}

	resp, outcome := s.search(ctx, text)
	s.metrics.QueryServed(outcome, time.Since(start))
	return resp
}

func (s *Service) search(ctx context.Context, text string) (Response, string) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Error(ctx, "error generating embedding for query", logger.String("query", text), logger.Error(err))
		return Response{Error: MsgSearchFailed}, outcomeError
	}

	matches, err := s.store.Nearest(ctx, vec, s.topK)
	if err != nil {
		if weather.IsConnectError(err) {
			s.log.Error(ctx, "database connection error", logger.Error(err))
			return Response{Error: MsgConnectFailed}, outcomeError
		}
		s.log.Error(ctx, "vector similarity query failed", logger.Error(err))
		return Response{Error: MsgQueryFailed}, outcomeError
	}

	if len(matches) == 0 {
		return Response{Message: MsgNoMatches}, outcomeEmpty
	}
	return Response{Matches: matches}, outcomeMatches
}
