package sources

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/globaltime"
	payloadschema "horse.fit/newsroom/schema"
)

const rssFetchTimeout = 30 * time.Second

// RSSSource fetches one RSS or Atom feed through gofeed.
type RSSSource struct {
	name    string
	feedURL string
	parser  *gofeed.Parser
	logger  zerolog.Logger
}

func NewRSSSource(name, feedURL string, logger zerolog.Logger) *RSSSource {
	return &RSSSource{
		name:    name,
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		logger:  logger.With().Str("component", "rss-source").Str("feed", name).Logger(),
	}
}

func (s *RSSSource) Name() string       { return s.name }
func (s *RSSSource) SourceType() string { return "rss" }

func (s *RSSSource) Fetch(ctx context.Context) ([]*payloadschema.RawItemPayload, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, rssFetchTimeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(s.feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", s.feedURL, err)
	}

	fetchedAt := globaltime.Now()
	payloads := make([]*payloadschema.RawItemPayload, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		payload := &payloadschema.RawItemPayload{
			PayloadVersion: "v1",
			SourceType:     s.SourceType(),
			SourceName:     cmp.Or(feed.Title, s.name),
			Title:          item.Title,
			FetchedAt:      &fetchedAt,
		}
		if item.Link != "" {
			link := item.Link
			payload.URL = &link
		}
		if body := cmp.Or(item.Content, item.Description); body != "" {
			payload.BodyHTML = &body
		}
		if item.PublishedParsed != nil {
			published := item.PublishedParsed.UTC()
			payload.PublishedAt = &published
		}
		if author := firstAuthor(item); author != "" {
			payload.Author = &author
		}
		if feed.Language != "" {
			lang := feed.Language
			payload.Language = &lang
		}
		payloads = append(payloads, payload)
	}
	s.logger.Debug().Int("items", len(payloads)).Msg("fetched feed")
	return payloads, nil
}

func firstAuthor(item *gofeed.Item) string {
	for _, author := range item.Authors {
		if author != nil && author.Name != "" {
			return author.Name
		}
	}
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}
