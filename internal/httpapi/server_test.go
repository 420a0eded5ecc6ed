package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/store"
	"horse.fit/newsroom/internal/verify"
)

type fakeTopicReader struct {
	batches map[string]*store.BatchSummary
	topics  map[string][]verify.VerifiedTopic
}

func (f *fakeTopicReader) ListBatches(ctx context.Context, limit int) ([]store.BatchSummary, error) {
	out := make([]store.BatchSummary, 0, len(f.batches))
	for _, b := range f.batches {
		out = append(out, *b)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTopicReader) GetBatch(ctx context.Context, batchID string) (*store.BatchSummary, error) {
	b, ok := f.batches[batchID]
	if !ok {
		return nil, store.ErrNoRows
	}
	return b, nil
}

func (f *fakeTopicReader) ListTopics(ctx context.Context, batchID string) ([]verify.VerifiedTopic, error) {
	return f.topics[batchID], nil
}

func newTestServer() (*Server, *fakeTopicReader) {
	reader := &fakeTopicReader{
		batches: map[string]*store.BatchSummary{
			"batch-1": {
				BatchID:    "batch-1",
				StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				TopicCount: 1,
			},
		},
		topics: map[string][]verify.VerifiedTopic{
			"batch-1": {
				{TopicID: "topic-abc", Label: "Example topic", Priority: 7, ReviewPassed: true},
			},
		},
	}
	return NewServer(reader, nil, zerolog.Nop(), Options{}), reader
}

func doRequest(t *testing.T, s *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.buildEcho().ServeHTTP(rec, req)
	return rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()
	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestHealthWithoutStorage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSend(t, rec)
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if data["storage"] != "disabled" {
		t.Fatalf("expected storage disabled, got %v", data["storage"])
	}
}

func TestBatchTopics(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/batches/batch-1/topics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSend(t, rec)
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q", resp.Status)
	}
	if !strings.Contains(rec.Body.String(), "topic-abc") {
		t.Fatalf("expected topic in response: %s", rec.Body.String())
	}
}

func TestBatchTopicsUnknownBatch(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/batches/nope/topics", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBatchesLimitValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/api/v1/batches?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidatePayload(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer()

	valid := `{"payload_version":"v1","source_type":"rss","source_name":"feed","title":"A story"}`
	rec := doRequest(t, s, http.MethodPost, "/api/v1/payloads/validate", valid)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	invalid := `{"payload_version":"v1","source_type":"telegraph","source_name":"feed","title":"A story"}`
	rec = doRequest(t, s, http.MethodPost, "/api/v1/payloads/validate", invalid)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
