package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/suggestit"
	"github.com/poiesic/suggestit/ai/mock"
	"github.com/poiesic/suggestit/analytics"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ingest"
	"github.com/poiesic/suggestit/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend fails every call with err unless a func is set.
type stubBackend struct {
	err       error
	RankFunc  func(ctx context.Context, req *core.RankRequest) (*core.RankResponse, error)
	lastRank  *core.RankRequest
	lastRange analytics.Range
}

func (b *stubBackend) Rank(ctx context.Context, req *core.RankRequest) (*core.RankResponse, error) {
	b.lastRank = req
	if b.RankFunc != nil {
		return b.RankFunc(ctx, req)
	}
	return nil, b.err
}

func (b *stubBackend) Feedback(context.Context, *core.Feedback) error { return b.err }
func (b *stubBackend) TrackEvent(*core.Event) error                   { return b.err }

func (b *stubBackend) AddManual(context.Context, core.ManualKind, core.ManualContent, string) (*core.ManualRecord, error) {
	return nil, b.err
}

func (b *stubBackend) ListManual(context.Context, core.ManualKind) ([]*core.ManualRecord, error) {
	return nil, b.err
}

func (b *stubBackend) Import(context.Context, *ingest.Batch, ...ingest.Option) (*ingest.Result, error) {
	return nil, b.err
}

func (b *stubBackend) Analytics(_ context.Context, rng analytics.Range) (*analytics.Report, error) {
	b.lastRange = rng
	if b.err != nil {
		return nil, b.err
	}
	return &analytics.Report{}, nil
}

func (b *stubBackend) EmbeddingModel() string { return "stub-model" }

func newTestServer(t *testing.T, backend Backend, opts ...Option) http.Handler {
	t.Helper()
	s, err := NewServer(backend, opts...)
	require.NoError(t, err)
	return s.Handler()
}

func newServiceServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	svc, err := suggestit.Open(context.Background(), "", suggestit.WithInMemory(),
		suggestit.WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return newTestServer(t, svc, opts...)
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var plumberBody = map[string]any{
	"current_query":  "plumber near me",
	"user_id":        "u1",
	"user_latitude":  40.7128,
	"user_longitude": -74.0060,
	"site_data": map[string]any{
		"members": []any{map[string]any{
			"id":        "m1",
			"name":      "Mike's Plumbing",
			"tags":      "plumber, drain cleaning",
			"location":  "New York, NY",
			"rating":    4.7,
			"latitude":  40.713,
			"longitude": -74.005,
		}},
		"settings": map[string]any{"radius_km": 50},
	},
}

func TestNewServerRequiresBackend(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, WithKeyGate(NewKeyGate([]string{"k"}, 1)))

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "service": "suggestit", "model": "stub-model"}, decodeBody(t, rec))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagates(t *testing.T) {
	h := newTestServer(t, &stubBackend{})

	rec := do(t, h, http.MethodGet, "/", nil, RequestIDHeader, "req-42")
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestSuggest(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/suggest", plumberBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Query       string      `json:"original_query"`
		Suggestions []string    `json:"suggestions"`
		Cards       []core.Card `json:"cards"`
		UserID      string      `json:"user_id"`
		Debug       any         `json:"debug"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "plumber near me", resp.Query)
	assert.Equal(t, "u1", resp.UserID)
	assert.Len(t, resp.Suggestions, 5)
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "m1", resp.Cards[0].MemberID)
	require.NotNil(t, resp.Cards[0].DistanceKm)
	assert.InDelta(t, 0.1, *resp.Cards[0].DistanceKm, 0.05)
	assert.Nil(t, resp.Debug)
}

func TestSuggestDebug(t *testing.T) {
	h := newServiceServer(t)
	body := map[string]any{"current_query": "plumber", "debug": true, "site_data": plumberBody["site_data"]}

	rec := do(t, h, http.MethodPost, "/suggest", body)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, core.AnonymousUser, out["user_id"])
	assert.Contains(t, out, "debug")
}

func TestSuggestVariant(t *testing.T) {
	backend := &stubBackend{RankFunc: func(_ context.Context, req *core.RankRequest) (*core.RankResponse, error) {
		return &core.RankResponse{Query: req.Query, UserID: req.UserID}, nil
	}}
	h := newTestServer(t, backend)

	rec := do(t, h, http.MethodPost, "/suggest", map[string]any{"current_query": "x", "ab_variant": "body"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body", backend.lastRank.Variant)
	out := decodeBody(t, rec)
	assert.Equal(t, []any{}, out["suggestions"])
	assert.Equal(t, []any{}, out["cards"])

	do(t, h, http.MethodPost, "/suggest", map[string]any{"current_query": "x", "ab_variant": "body"}, VariantHeader, "header")
	assert.Equal(t, "header", backend.lastRank.Variant)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"invalid input", fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrEmptyQuery), http.StatusBadRequest, core.ReasonInvalidInput},
		{"upstream", fmt.Errorf("%w: embed", core.ErrUpstreamSignal), http.StatusFailedDependency, core.ReasonUpstreamSignal},
		{"store", fmt.Errorf("%w: badger", core.ErrStoreUnavailable), http.StatusServiceUnavailable, core.ReasonStoreUnavailable},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, core.ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &stubBackend{err: tt.err})

			rec := do(t, h, http.MethodPost, "/suggest", map[string]any{"current_query": "x"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			out := decodeBody(t, rec)
			assert.Equal(t, tt.wantReason, out["reason"])
			assert.NotEmpty(t, out["request_id"])
		})
	}
}

func TestErrorsDoNotLeakDetail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"internal", fmt.Errorf("secret path /var/db"), http.StatusInternalServerError},
		{"upstream", fmt.Errorf("%w: embed: 401 secret key sk-test rejected", core.ErrUpstreamSignal), http.StatusFailedDependency},
		{"store", fmt.Errorf("%w: secret badger dir", core.ErrStoreUnavailable), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &stubBackend{err: tt.err})

			rec := do(t, h, http.MethodPost, "/feedback", map[string]any{"query": "x"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newTestServer(t, &stubBackend{})

	for _, path := range []string{"/suggest", "/feedback", "/data", "/batch_import", "/event"} {
		rec := do(t, h, http.MethodPost, path, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestSuggestMissingQuery(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/suggest", map[string]any{"current_query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedback(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/feedback", map[string]any{
		"user_id": "u1", "query": "plumber", "selected_suggestion": "Best plumber", "success_rating": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "feedback_received", decodeBody(t, rec)["status"])

	rec = do(t, h, http.MethodPost, "/feedback", map[string]any{"query": "plumber", "success_rating": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualData(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/data", map[string]any{"type": "category", "content": map[string]any{"name": "Roofing"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "data_added", "type": "category"}, decodeBody(t, rec))

	rec = do(t, h, http.MethodPost, "/data", map[string]any{"type": "synonym", "content": map[string]any{"base": "plumber", "terms": []string{"pipe fitter"}}, "added_by": "ops"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/data", map[string]any{"type": "category"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "type and content are required")

	rec = do(t, h, http.MethodPost, "/data", map[string]any{"type": "widget", "content": map[string]any{"name": "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Data  []manualView `json:"data"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "admin", all.Data[0].AddedBy)
	assert.Equal(t, "ops", all.Data[1].AddedBy)

	rec = do(t, h, http.MethodGet, "/data?type=synonym", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Equal(t, 1, all.Count)
	assert.Equal(t, []string{"pipe fitter"}, all.Data[0].Content.Terms)
}

func TestBatchImport(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/batch_import", map[string]any{"items": []any{
		map[string]any{"type": "category", "content": map[string]any{"name": "Plumbing"}},
		map[string]any{"type": "location", "content": map[string]any{"name": "Brooklyn"}},
		map[string]any{"type": "blacklist", "content": map[string]any{"term": "spam"}},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "imported": float64(2), "failed": float64(1)}, decodeBody(t, rec))

	rec = do(t, h, http.MethodPost, "/batch_import", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "items (array) is required")
}

func TestEvent(t *testing.T) {
	h := newServiceServer(t)

	rec := do(t, h, http.MethodPost, "/event", map[string]any{"user_id": "u1", "event_type": "click", "payload": map[string]any{"x": 1}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = do(t, h, http.MethodPost, "/event", map[string]any{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalytics(t *testing.T) {
	svc, err := suggestit.Open(context.Background(), "", suggestit.WithInMemory(),
		suggestit.WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer svc.Close()
	h := newTestServer(t, svc)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/suggest", plumberBody).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/event", map[string]any{"event_type": "click"}).Code)
	svc.Flush()

	rec := do(t, h, http.MethodGet, "/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report analytics.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Statistics.TotalSearches)
	assert.Equal(t, []analytics.QueryCount{{Query: "plumber near me", Frequency: 1}}, report.TopQueries)
	assert.Equal(t, []analytics.EventCount{{EventType: "click", Count: 1}}, report.Events)

	rec = do(t, h, http.MethodGet, "/analytics?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "query,frequency\nplumber near me,1\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/analytics?start=2000-01-01&end=2000-01-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.Statistics.TotalSearches)
}

func TestAnalyticsRange(t *testing.T) {
	backend := &stubBackend{}
	h := newTestServer(t, backend)

	rec := do(t, h, http.MethodGet, "/analytics?start=2025-03-01&end=2025-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), backend.lastRange.Start)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999999999, time.UTC), backend.lastRange.End)

	rec = do(t, h, http.MethodGet, "/analytics?start=2025-03-01T10:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), backend.lastRange.Start)
	assert.True(t, backend.lastRange.End.IsZero())

	for _, q := range []string{"start=yesterday", "start=2025-03-02&end=2025-03-01"} {
		rec = do(t, h, http.MethodGet, "/analytics?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestKeyGateMiddleware(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, WithKeyGate(NewKeyGate([]string{"k1"}, 2)))

	rec := do(t, h, http.MethodGet, "/data", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/data", nil, APIKeyHeader, "nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/data", nil, APIKeyHeader, "k1").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/data", nil, APIKeyHeader, "k1").Code)
	rec = do(t, h, http.MethodGet, "/data", nil, APIKeyHeader, "k1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too Many Requests", decodeBody(t, rec)["error"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/", nil).Code)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	h := newTestServer(t, &stubBackend{}, WithMetrics(collector, reg))

	do(t, h, http.MethodGet, "/", nil)
	do(t, h, http.MethodGet, "/data", nil)
	do(t, h, http.MethodGet, "/data", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `suggestit_http_requests_total{code="200",method="GET",route="/"} 1`)
	assert.Contains(t, body, `suggestit_http_requests_total{code="200",method="GET",route="/data"} 2`)
}

func TestRecoverMiddleware(t *testing.T) {
	backend := &stubBackend{RankFunc: func(context.Context, *core.RankRequest) (*core.RankResponse, error) {
		panic("boom")
	}}
	h := newTestServer(t, backend)

	rec := do(t, h, http.MethodPost, "/suggest", map[string]any{"current_query": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, core.ReasonInternal, decodeBody(t, rec)["reason"])
}
