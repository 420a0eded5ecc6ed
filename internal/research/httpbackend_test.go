package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPBackendSearchGrounded(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["query"] != "test query" {
			t.Errorf("unexpected query %q", req["query"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []SearchResult{{Title: "hit", URL: "https://x.example", Snippet: "snippet", Credibility: 0.8}},
		})
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(HTTPBackendOptions{Name: "test", Endpoint: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	results, err := backend.SearchGrounded(context.Background(), "test query")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "hit" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestHTTPBackendGenerateStructured(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]any{"summary": "generated", "claims": []Claim{{Text: "c", Stance: StanceSupport}}},
		})
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(HTTPBackendOptions{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	var brief structuredBrief
	if err := backend.GenerateStructured(context.Background(), "prompt", &brief); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if brief.Summary != "generated" || len(brief.Claims) != 1 {
		t.Fatalf("unexpected brief %+v", brief)
	}
}

func TestHTTPBackendDeepResearchRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/research":
			_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
		case r.Method == http.MethodGet && r.URL.Path == "/research/job-42":
			_ = json.NewEncoder(w).Encode(DeepResearchStatus{
				State:    DeepStateCompleted,
				Findings: &Findings{Summary: "deep summary"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(HTTPBackendOptions{Endpoint: server.URL + "/"})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	jobID, err := backend.SubmitDeepResearch(context.Background(), "query")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	status, err := backend.PollDeepResearch(context.Background(), jobID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.State != DeepStateCompleted || status.Findings.Summary != "deep summary" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestHTTPBackendErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(HTTPBackendOptions{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	if _, err := backend.SearchGrounded(context.Background(), "q"); err == nil {
		t.Fatalf("expected status error")
	}

	if _, err := NewHTTPBackend(HTTPBackendOptions{}); err == nil {
		t.Fatalf("expected missing endpoint rejected")
	}
}
