package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
	"unicode"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/rs/zerolog"

	"horse.fit/newsroom/internal/globaltime"
	"horse.fit/newsroom/internal/langdetect"
	payloadschema "horse.fit/newsroom/schema"
)

// fingerprintBodyPrefix bounds how much body text participates in the
// identity hash so late edits to long articles do not change identity.
const fingerprintBodyPrefix = 500

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

// Normalizer turns validated raw payloads into Items.
type Normalizer struct {
	logger zerolog.Logger
}

func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "normalizer").Logger()}
}

// Normalize builds an Item from a validated payload. Items with a blank
// normalized title are rejected since they cannot be fingerprinted.
func (n *Normalizer) Normalize(p *payloadschema.RawItemPayload) (Item, error) {
	title := CleanText(p.Title)
	if normalizeText(title) == "" {
		return Item{}, fmt.Errorf("normalize: empty title after cleanup")
	}

	body := n.extractBody(p)

	item := Item{
		SourceType: p.SourceType,
		SourceName: strings.TrimSpace(p.SourceName),
		Title:      title,
		Body:       body,
		FetchedAt:  globaltime.Now(),
	}
	if p.URL != nil {
		item.URL = strings.TrimSpace(*p.URL)
		item.CanonicalURL, item.Host = normalizeURL(item.URL)
	}
	if p.Author != nil {
		item.Author = strings.TrimSpace(*p.Author)
	}
	if p.FetchedAt != nil {
		item.FetchedAt = p.FetchedAt.UTC()
	}
	if p.PublishedAt != nil {
		item.PublishedAt = p.PublishedAt.UTC()
	} else {
		// Items without a publish timestamp sort behind everything that
		// has one during canonical selection.
		item.PublishedAt = item.FetchedAt
	}
	if p.Score != nil {
		item.Score = *p.Score
	}
	if p.Comments != nil {
		item.Comments = *p.Comments
	}
	if p.Shares != nil {
		item.Shares = *p.Shares
	}
	if len(p.SourceMetadata) > 0 {
		item.Metadata = p.SourceMetadata
	}

	if p.Language != nil && strings.TrimSpace(*p.Language) != "" {
		item.Language = strings.ToLower(strings.TrimSpace(*p.Language))
	} else {
		item.Language = langdetect.DetectISO6391(title + " " + body)
	}

	item.Fingerprint = Fingerprint(title, body)
	if hash, ok := simhash64(title + " " + body); ok {
		item.Simhash = hash
	}
	return item, nil
}

// extractBody prefers pre-extracted text and falls back to readability on
// raw HTML. Extraction failure is not fatal, the title still carries
// enough signal for fingerprinting and embedding.
func (n *Normalizer) extractBody(p *payloadschema.RawItemPayload) string {
	if p.BodyText != nil {
		if text := CleanText(*p.BodyText); text != "" {
			return text
		}
	}
	if p.BodyHTML == nil || strings.TrimSpace(*p.BodyHTML) == "" {
		return ""
	}

	var pageURL *url.URL
	if p.URL != nil {
		if parsed, err := url.Parse(strings.TrimSpace(*p.URL)); err == nil {
			pageURL = parsed
		}
	}
	article, err := readability.FromReader(bytes.NewReader([]byte(*p.BodyHTML)), pageURL)
	if err != nil {
		n.logger.Debug().Err(err).Str("source", p.SourceName).Msg("readability parse failed")
		return CleanText(*p.BodyHTML)
	}
	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		n.logger.Debug().Err(err).Str("source", p.SourceName).Msg("readability render failed")
		return CleanText(*p.BodyHTML)
	}
	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	return text
}

// Fingerprint hashes the normalized title plus a bounded body prefix.
// Equal fingerprints mean exact duplicates.
func Fingerprint(title, body string) string {
	normalized := normalizeText(title)
	bodyNorm := normalizeText(body)
	if runes := []rune(bodyNorm); len(runes) > fingerprintBodyPrefix {
		bodyNorm = string(runes[:fingerprintBodyPrefix])
	}
	sum := sha256.Sum256([]byte(normalized + "\n" + bodyNorm))
	return hex.EncodeToString(sum[:])
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

func normalizeText(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

func normalizeURL(raw string) (canonical string, host string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			parsed.Host = parsed.Host + ":" + port
		}
	}

	parsed.Fragment = ""
	path := strings.TrimSpace(parsed.EscapedPath())
	if path == "" {
		path = "/"
	}
	path = strings.ReplaceAll(path, "//", "/")
	if strings.HasSuffix(path, "/") && path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	parsed.Path = path
	parsed.RawPath = ""

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for key := range q {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		reordered := url.Values{}
		for _, key := range keys {
			values := q[key]
			sort.Strings(values)
			for _, value := range values {
				reordered.Add(key, value)
			}
		}
		parsed.RawQuery = reordered.Encode()
	} else {
		parsed.RawQuery = ""
	}

	return parsed.String(), parsed.Hostname()
}

func simhash64(text string) (uint64, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, false
	}

	var bitWeights [64]int
	for _, token := range tokens {
		h := hashToken64(token)
		for bit := 0; bit < 64; bit++ {
			mask := uint64(1) << bit
			if h&mask != 0 {
				bitWeights[bit]++
			} else {
				bitWeights[bit]--
			}
		}
	}

	var result uint64
	for bit := 0; bit < 64; bit++ {
		if bitWeights[bit] > 0 {
			result |= uint64(1) << bit
		}
	}
	return result, true
}

func tokenize(text string) []string {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

func hashToken64(token string) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(token))
	return hasher.Sum64()
}

// TrigramJaccard measures near-verbatim similarity of two short texts.
func TrigramJaccard(left, right string) float64 {
	leftSet := trigramSet(left)
	rightSet := trigramSet(right)
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}

	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftSet) + len(rightSet) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func trigramSet(text string) map[string]struct{} {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}

	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}
