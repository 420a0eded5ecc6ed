package payloadschema

import (
	"strings"
	"testing"
)

func validPayload() string {
	return `{
		"payload_version": "v1",
		"source_type": "hackernews",
		"source_name": "Hacker News",
		"title": "New antitrust ruling reshapes app store policy",
		"body_text": "A federal court issued a ruling on app store steering provisions.",
		"url": "https://news.ycombinator.com/item?id=1",
		"published_at": "2026-08-29T10:00:00Z",
		"fetched_at": "2026-08-29T10:05:00Z",
		"score": 120,
		"comments": 45
	}`
}

func TestValidateRawItemAccepts(t *testing.T) {
	t.Parallel()

	p, err := ValidateRawItem([]byte(validPayload()))
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if p.SourceType != "hackernews" {
		t.Fatalf("expected source_type hackernews, got %q", p.SourceType)
	}
	if p.Score == nil || *p.Score != 120 {
		t.Fatalf("expected score 120, got %v", p.Score)
	}
	if p.PublishedAt == nil {
		t.Fatalf("expected published_at to be decoded")
	}
}

func TestValidateRawItemRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "missing title",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed"}`,
			wantErr: "schema validation",
		},
		{
			name:    "blank title",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"   "}`,
			wantErr: "title must not be blank",
		},
		{
			name:    "unknown source type",
			payload: `{"payload_version":"v1","source_type":"carrier-pigeon","source_name":"Loft","title":"x"}`,
			wantErr: "schema validation",
		},
		{
			name:    "bad url scheme",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"x","url":"ftp://example.com/a"}`,
			wantErr: "unsupported scheme",
		},
		{
			name:    "negative score",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"x","score":-3}`,
			wantErr: "schema validation",
		},
		{
			name:    "unknown field",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"x","bogus":1}`,
			wantErr: "schema validation",
		},
		{
			name:    "trailing content",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"x"} extra`,
			wantErr: "trailing content",
		},
		{
			name:    "published after fetched",
			payload: `{"payload_version":"v1","source_type":"rss","source_name":"Feed","title":"x","published_at":"2026-09-05T00:00:00Z","fetched_at":"2026-08-29T00:00:00Z"}`,
			wantErr: "more than a day after",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateRawItem([]byte(tc.payload))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
