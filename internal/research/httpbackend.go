package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// HTTPBackendOptions configures an HTTP research backend.
type HTTPBackendOptions struct {
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPBackend implements Backend against a JSON research service exposing
// /search, /generate, and /research endpoints.
type HTTPBackend struct {
	opts       HTTPBackendOptions
	httpClient *http.Client
}

func NewHTTPBackend(opts HTTPBackendOptions) (*HTTPBackend, error) {
	opts.Endpoint = strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("research backend endpoint is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = DefaultBackendName
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	return &HTTPBackend{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (b *HTTPBackend) Name() string {
	return b.opts.Name
}

func (b *HTTPBackend) SearchGrounded(ctx context.Context, query string) ([]SearchResult, error) {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	err := b.postJSON(ctx, "/search", map[string]string{"query": query}, &out)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (b *HTTPBackend) GenerateStructured(ctx context.Context, prompt string, out any) error {
	var wrapper struct {
		Output json.RawMessage `json:"output"`
	}
	if err := b.postJSON(ctx, "/generate", map[string]string{"prompt": prompt}, &wrapper); err != nil {
		return err
	}
	if len(wrapper.Output) == 0 {
		return fmt.Errorf("generate response missing output")
	}
	if err := json.Unmarshal(wrapper.Output, out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}

func (b *HTTPBackend) SubmitDeepResearch(ctx context.Context, query string) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := b.postJSON(ctx, "/research", map[string]string{"query": query}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.JobID) == "" {
		return "", fmt.Errorf("research submission returned no job id")
	}
	return out.JobID, nil
}

func (b *HTTPBackend) PollDeepResearch(ctx context.Context, jobID string) (*DeepResearchStatus, error) {
	var status DeepResearchStatus
	if err := b.getJSON(ctx, "/research/"+jobID, &status); err != nil {
		return nil, err
	}
	if status.State == "" {
		return nil, fmt.Errorf("research status missing state")
	}
	return &status, nil
}

func (b *HTTPBackend) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *HTTPBackend) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.opts.Endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return b.do(req, out)
}

func (b *HTTPBackend) do(req *http.Request, out any) error {
	if b.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.opts.APIKey)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("research backend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read research backend response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("research backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode research backend response: %w", err)
	}
	return nil
}
