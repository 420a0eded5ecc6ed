package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/globaltime"
	payloadschema "horse.fit/newsroom/schema"
)

const (
	DefaultHackerNewsEndpoint = "https://hacker-news.firebaseio.com/v0"
	defaultHNStoryLimit       = 30
	hnFetchTimeout            = 30 * time.Second
)

// HackerNewsSource fetches top stories from the Hacker News Firebase API.
type HackerNewsSource struct {
	endpoint   string
	storyLimit int
	httpClient *http.Client
	logger     zerolog.Logger
}

type hnItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	By          string `json:"by"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

func NewHackerNewsSource(endpoint string, storyLimit int, logger zerolog.Logger) *HackerNewsSource {
	if endpoint == "" {
		endpoint = DefaultHackerNewsEndpoint
	}
	if storyLimit <= 0 {
		storyLimit = defaultHNStoryLimit
	}
	return &HackerNewsSource{
		endpoint:   endpoint,
		storyLimit: storyLimit,
		httpClient: &http.Client{Timeout: hnFetchTimeout},
		logger:     logger.With().Str("component", "hackernews-source").Logger(),
	}
}

func (s *HackerNewsSource) Name() string       { return "hackernews" }
func (s *HackerNewsSource) SourceType() string { return "hackernews" }

func (s *HackerNewsSource) Fetch(ctx context.Context) ([]*payloadschema.RawItemPayload, error) {
	var ids []int64
	if err := s.getJSON(ctx, s.endpoint+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if len(ids) > s.storyLimit {
		ids = ids[:s.storyLimit]
	}

	fetchedAt := globaltime.Now()
	payloads := make([]*payloadschema.RawItemPayload, 0, len(ids))
	for _, id := range ids {
		var item hnItem
		if err := s.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", s.endpoint, id), &item); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", id).Msg("skipping unreadable story")
			continue
		}
		if item.Type != "story" || item.Dead || item.Deleted || item.Title == "" {
			continue
		}

		payload := &payloadschema.RawItemPayload{
			PayloadVersion: "v1",
			SourceType:     s.SourceType(),
			SourceName:     "Hacker News",
			Title:          item.Title,
			FetchedAt:      &fetchedAt,
		}
		if item.URL != "" {
			u := item.URL
			payload.URL = &u
		}
		if item.Text != "" {
			text := item.Text
			payload.BodyHTML = &text
		}
		if item.By != "" {
			author := item.By
			payload.Author = &author
		}
		if item.Time > 0 {
			published := time.Unix(item.Time, 0).UTC()
			payload.PublishedAt = &published
		}
		score := item.Score
		comments := item.Descendants
		payload.Score = &score
		payload.Comments = &comments

		payloads = append(payloads, payload)
	}
	s.logger.Debug().Int("items", len(payloads)).Msg("fetched top stories")
	return payloads, nil
}

func (s *HackerNewsSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
