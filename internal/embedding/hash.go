// Package embedding turns weather descriptions into fixed-length vectors.
package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/i474232898/weatheriq/internal/weather"
)

// DefaultDimension matches all-MiniLM-L6-v2, so either embedder can fill the
// same vector column.
const DefaultDimension = 384

// HashModel names the feature-hashing model and is part of the hash seed;
// bump it whenever tokenization or weighting changes.
const HashModel = "hash-v1"

const bigramWeight = 0.5

// HashEmbedder is an offline embedder that hashes unigrams and bigrams into a
// signed bag-of-features vector and L2-normalizes it. Texts sharing words land
// close together, and identical texts always produce identical vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a HashEmbedder; dim <= 0 selects DefaultDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dimension() int { return e.dim }
func (e *HashEmbedder) Model() string  { return HashModel }

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &weather.EmbeddingError{Model: HashModel, Err: err}
	}

	acc := make([]float64, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, e.dim)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *HashEmbedder) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(HashModel + "\x00" + feature)
	idx := h % uint64(e.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ weather.Embedder = (*HashEmbedder)(nil)
