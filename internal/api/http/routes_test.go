package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weatheriq/internal/embedding"
	"github.com/i474232898/weatheriq/internal/metrics"
	"github.com/i474232898/weatheriq/internal/query"
	"github.com/i474232898/weatheriq/internal/store"
	"github.com/i474232898/weatheriq/internal/weather"
)

type stubSearcher struct {
	got  []string
	resp query.Response
}

func (s *stubSearcher) Search(_ context.Context, text string) query.Response {
	s.got = append(s.got, text)
	return s.resp
}

func newApp(s Searcher, m *metrics.Manager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, s, m)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// TestQueryRequiresParameter verifies that a missing or empty query is a 400.
func TestQueryRequiresParameter(t *testing.T) {
	s := &stubSearcher{}
	app := newApp(s, nil)

	for _, target := range []string{"/query", "/query?query=", "/api/v1/query?query=" + strings.Repeat("a", 201)} {
		resp, body := get(t, app, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		var out map[string]any
		require.NoError(t, json.Unmarshal(body, &out))
		assert.IsType(t, "", out["error"], target)
	}
	assert.Empty(t, s.got)
}

func TestQueryRoutes(t *testing.T) {
	s := &stubSearcher{resp: query.Response{Matches: []weather.QueryResult{
		{Location: "Paris", Description: "Weather in Paris: clear sky.", Distance: 0.12},
	}}}
	app := newApp(s, nil)

	for _, path := range []string{"/query", "/query/", "/api/v1/query"} {
		resp, body := get(t, app, path+"?query="+url.QueryEscape("rainy weather in Paris"))
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var out struct {
			Matches []struct {
				Location        string  `json:"location"`
				Description     string  `json:"description"`
				SimilarityScore float64 `json:"similarity_score"`
			} `json:"matches"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		require.Len(t, out.Matches, 1)
		assert.Equal(t, "Paris", out.Matches[0].Location)
		assert.InDelta(t, 0.12, out.Matches[0].SimilarityScore, 1e-9)
	}
	assert.Equal(t, []string{"rainy weather in Paris", "rainy weather in Paris", "rainy weather in Paris"}, s.got)
}

func TestQueryMessageAndError(t *testing.T) {
	s := &stubSearcher{resp: query.Response{Message: query.MsgNoMatches}}
	app := newApp(s, nil)

	resp, body := get(t, app, "/query?query=fog")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"No similar weather data found."}`, string(body))

	s.resp = query.Response{Error: query.MsgConnectFailed}
	resp, body = get(t, app, "/query?query=fog")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to connect to the database."}`, string(body))
}

func TestQueryTextOutlivesRequest(t *testing.T) {
	s := &stubSearcher{resp: query.Response{Message: query.MsgNoMatches}}
	app := newApp(s, nil)

	for _, q := range []string{"rainy, Paris", "Berlin", "London"} {
		resp, _ := get(t, app, "/query?query="+url.QueryEscape(q))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, []string{"rainy, Paris", "Berlin", "London"}, s.got)
}

// namelessProvider answers every city lookup without a name, so stored rows
// take their label from the request.
type namelessProvider struct{}

func (namelessProvider) Name() string { return "nameless" }

func (namelessProvider) FetchGroup(context.Context, []int64) ([]weather.RawObservation, error) {
	return nil, nil
}

func (namelessProvider) FetchCurrent(context.Context, string) (weather.RawObservation, error) {
	var r weather.RawObservation
	r.Dt = 1700000000
	t, h, p := 15.2, 70.0, 1012.0
	r.Main.Temp, r.Main.Humidity, r.Main.Pressure = &t, &h, &p
	return r, nil
}

func (namelessProvider) FetchAirQuality(context.Context, float64, float64) (*int, error) {
	return nil, nil
}

func TestStoredLabelsSurviveLaterRequests(t *testing.T) {
	emb := embedding.NewHashEmbedder(0)
	st := store.NewMemoryStore(emb.Dimension())
	ingest := weather.NewService(namelessProvider{}, st, emb)
	app := newApp(query.NewService(ingest, emb, st, 3, nil, nil), nil)

	for _, q := range []string{"Paris", "Oslo"} {
		resp, _ := get(t, app, "/query?query="+q)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	obs := st.Observations()
	require.Len(t, obs, 2)
	assert.Equal(t, "Paris", obs[0].City)
	assert.Equal(t, "Oslo", obs[1].City)

	vec, err := emb.Embed(context.Background(), "Paris")
	require.NoError(t, err)
	matches, err := st.Nearest(context.Background(), vec, 2)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Contains(t, m.Description, "Weather in "+m.Location+":")
	}
}

func TestQueryEndToEndWithMemoryStore(t *testing.T) {
	emb := embedding.NewHashEmbedder(0)
	st := store.NewMemoryStore(emb.Dimension())
	svc := query.NewService(nil, emb, st, 3, nil, nil)
	app := newApp(svc, nil)

	_, body := get(t, app, "/query?query=London")
	assert.JSONEq(t, `{"message":"No similar weather data found."}`, string(body))

	vec, err := emb.Embed(context.Background(), "Weather in London: light rain.")
	require.NoError(t, err)
	require.NoError(t, st.InsertEmbedding(context.Background(), weather.EmbeddingRecord{
		Location: "London", Description: "Weather in London: light rain.", Embedding: vec,
	}))

	resp, body := get(t, app, "/query?query=London")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"location":"London"`)
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.NewManager(metrics.WithNamespace("apitest"))
	m.QueryServed("matches", 0)
	app := newApp(&stubSearcher{}, m)

	resp, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, body = get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "apitest_query_requests_total")
}

func TestMetricsNotServedWithoutManager(t *testing.T) {
	app := newApp(&stubSearcher{}, nil)
	resp, _ := get(t, app, "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
