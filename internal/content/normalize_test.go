package content

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	payloadschema "horse.fit/newsroom/schema"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestFingerprintStableAcrossWhitespaceAndCase(t *testing.T) {
	t.Parallel()

	a := Fingerprint("Breaking:  Court Ruling", "The court issued\na ruling today.")
	b := Fingerprint("breaking: court ruling", "The court issued a ruling today.")
	if a != b {
		t.Fatalf("expected identical fingerprints, got %s vs %s", a, b)
	}

	c := Fingerprint("breaking: court ruling", "A different body entirely.")
	if a == c {
		t.Fatalf("expected different fingerprints for different bodies")
	}
}

func TestFingerprintIgnoresBodyBeyondPrefix(t *testing.T) {
	t.Parallel()

	prefix := make([]byte, fingerprintBodyPrefix)
	for i := range prefix {
		prefix[i] = 'a'
	}
	a := Fingerprint("title", string(prefix)+" tail one")
	b := Fingerprint("title", string(prefix)+" tail two")
	if a != b {
		t.Fatalf("expected body beyond prefix to be ignored")
	}
}

func TestNormalizeURLStripsTracking(t *testing.T) {
	t.Parallel()

	canonical, host := normalizeURL("HTTPS://Example.com:443/news//story/?utm_source=x&b=2&a=1&fbclid=zzz#frag")
	if host != "example.com" {
		t.Fatalf("expected host example.com, got %q", host)
	}
	if canonical != "https://example.com/news/story?a=1&b=2" {
		t.Fatalf("unexpected canonical url %q", canonical)
	}
}

func TestNormalizeBuildsItem(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	fetched := published.Add(5 * time.Minute)
	payload := &payloadschema.RawItemPayload{
		PayloadVersion: "v1",
		SourceType:     "hackernews",
		SourceName:     " Hacker News ",
		Title:          "New antitrust ruling reshapes app store policy",
		BodyText:       strPtr("A federal court issued a ruling on app store steering provisions today."),
		URL:            strPtr("https://example.com/story?utm_campaign=feed"),
		PublishedAt:    timePtr(published),
		FetchedAt:      timePtr(fetched),
		Score:          intPtr(100),
		Comments:       intPtr(25),
	}

	n := NewNormalizer(zerolog.Nop())
	item, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if item.Fingerprint == "" {
		t.Fatalf("expected fingerprint to be set")
	}
	if item.SourceName != "Hacker News" {
		t.Fatalf("expected trimmed source name, got %q", item.SourceName)
	}
	if item.CanonicalURL != "https://example.com/story" {
		t.Fatalf("expected tracking params stripped, got %q", item.CanonicalURL)
	}
	if item.Engagement() != 150 {
		t.Fatalf("expected engagement 150, got %d", item.Engagement())
	}
	if item.Language != "en" {
		t.Fatalf("expected language en, got %q", item.Language)
	}
	if !item.PublishedAt.Equal(published) {
		t.Fatalf("expected published_at %v, got %v", published, item.PublishedAt)
	}
}

func TestNormalizeExtractsBodyFromHTML(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>t</title></head><body><article><p>First paragraph of the story body with enough words to matter.</p><p>Second paragraph continues the report in more detail for readers.</p></article></body></html>`
	payload := &payloadschema.RawItemPayload{
		PayloadVersion: "v1",
		SourceType:     "rss",
		SourceName:     "Feed",
		Title:          "Story with HTML body",
		BodyHTML:       strPtr(html),
		URL:            strPtr("https://example.com/a"),
	}

	n := NewNormalizer(zerolog.Nop())
	item, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if item.Body == "" {
		t.Fatalf("expected extracted body text")
	}
	if containsTag(item.Body) {
		t.Fatalf("expected no markup in extracted body, got %q", item.Body)
	}
}

func containsTag(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '<' && (s[i+1] == 'p' || s[i+1] == '/') {
			return true
		}
	}
	return false
}

func TestNormalizeRejectsBlankTitle(t *testing.T) {
	t.Parallel()

	payload := &payloadschema.RawItemPayload{
		PayloadVersion: "v1",
		SourceType:     "rss",
		SourceName:     "Feed",
		Title:          "   \n\t ",
	}
	n := NewNormalizer(zerolog.Nop())
	if _, err := n.Normalize(payload); err == nil {
		t.Fatalf("expected error for blank title")
	}
}
