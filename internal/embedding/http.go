package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weatheriq/internal/weather"
)

// DefaultHTTPModel is the sentence-transformers model the service was built around.
const DefaultHTTPModel = "all-MiniLM-L6-v2"

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint:
//
//	POST {BaseURL}/v1/embeddings  {"input": [...], "model": "..."}
//
// Self-hosted sentence-transformers servers expose the same shape.
type HTTPEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPEmbedder creates an HTTPEmbedder. dim is the expected vector length;
// responses of any other length are rejected.
func NewHTTPEmbedder(client *http.Client, baseURL, apiKey, model string, dim int) (*HTTPEmbedder, error) {
	if baseURL == "" {
		return nil, errors.New("embedding base url is required")
	}
	if model == "" {
		model = DefaultHTTPModel
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		dim:     dim,
		client:  client,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "embeddings",
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     30 * time.Second,
		}),
	}, nil
}

func (e *HTTPEmbedder) Dimension() int { return e.dim }
func (e *HTTPEmbedder) Model() string  { return e.model }

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.circuit.Execute(func() (interface{}, error) {
		return e.embed(ctx, text)
	})
	if err != nil {
		return nil, &weather.EmbeddingError{Model: e.model, Err: err}
	}
	return result.([]float32), nil
}

func (e *HTTPEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	data, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embeddings API error: %s", resp.Status)
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != 1 {
		return nil, fmt.Errorf("embedding response mismatch: got %d vectors, want 1", len(apiResp.Data))
	}

	src := apiResp.Data[0].Embedding
	if len(src) != e.dim {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(src), e.dim)
	}
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return vec, nil
}

var _ weather.Embedder = (*HTTPEmbedder)(nil)
