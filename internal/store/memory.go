package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/weatheriq/internal/weather"
)

// MemoryStore is a concurrency-safe in-process implementation of Backend.
// Nearest is a brute-force scan.
type MemoryStore struct {
	mu sync.RWMutex

	dim          int
	observations []weather.Observation
	embeddings   []weather.EmbeddingRecord
}

// NewMemoryStore creates an empty MemoryStore for vectors of length dim.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim}
}

func (s *MemoryStore) EnsureSchema(context.Context) error { return nil }
func (s *MemoryStore) Close() error                       { return nil }

// InsertObservation appends obs.
func (s *MemoryStore) InsertObservation(_ context.Context, obs weather.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations = append(s.observations, obs)
	return nil
}

// InsertEmbedding appends rec after checking its dimension.
func (s *MemoryStore) InsertEmbedding(_ context.Context, rec weather.EmbeddingRecord) error {
	if err := checkDimension(rec.Embedding, s.dim); err != nil {
		return storageErr(weather.OpExec, err)
	}
	vec := make([]float32, len(rec.Embedding))
	copy(vec, rec.Embedding)
	rec.Embedding = vec

	s.mu.Lock()
	defer s.mu.Unlock()

	s.embeddings = append(s.embeddings, rec)
	return nil
}

// Nearest returns up to k records closest to vec, ties kept in insertion order.
func (s *MemoryStore) Nearest(_ context.Context, vec []float32, k int) ([]weather.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := checkDimension(vec, s.dim); err != nil {
		return nil, storageErr(weather.OpQuery, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]weather.QueryResult, 0, len(s.embeddings))
	for _, rec := range s.embeddings {
		d, err := l2Distance(vec, rec.Embedding)
		if err != nil {
			return nil, storageErr(weather.OpQuery, err)
		}
		results = append(results, weather.QueryResult{
			Location:    rec.Location,
			Description: rec.Description,
			Distance:    d,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Observations returns a copy of every stored observation.
func (s *MemoryStore) Observations() []weather.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

var _ Backend = (*MemoryStore)(nil)
