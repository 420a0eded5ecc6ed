// Package payloadschema validates raw item payloads before they enter the
// pipeline. Validation is two-phase: structural (JSON Schema draft 2020-12)
// followed by semantic checks the schema cannot express.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_item.schema.json
var rawItemSchemaJSON []byte

// RawItemPayload is the decoded form of a valid v1 payload.
type RawItemPayload struct {
	PayloadVersion string          `json:"payload_version"`
	SourceType     string          `json:"source_type"`
	SourceName     string          `json:"source_name"`
	Title          string          `json:"title"`
	BodyText       *string         `json:"body_text,omitempty"`
	BodyHTML       *string         `json:"body_html,omitempty"`
	URL            *string         `json:"url,omitempty"`
	Author         *string         `json:"author,omitempty"`
	Language       *string         `json:"language,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	FetchedAt      *time.Time      `json:"fetched_at,omitempty"`
	Score          *int            `json:"score,omitempty"`
	Comments       *int            `json:"comments,omitempty"`
	Shares         *int            `json:"shares,omitempty"`
	SourceMetadata json.RawMessage `json:"source_metadata,omitempty"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		if err := c.AddResource("raw_item.schema.json", bytes.NewReader(rawItemSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("raw_item.schema.json")
	})
	return compiled, compileErr
}

// ValidateRawItem checks raw against the payload schema and semantic rules
// and returns the decoded payload on success.
func ValidateRawItem(raw []byte) (*RawItemPayload, error) {
	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}

	var generic any
	if err := decodeStrictJSON(raw, &generic); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := s.Validate(generic); err != nil {
		return nil, fmt.Errorf("payload schema validation: %w", err)
	}

	var payload RawItemPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := validateSemantics(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func decodeStrictJSON(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing content after JSON document")
	}
	return nil
}

func validateSemantics(p *RawItemPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title must not be blank")
	}
	if p.URL != nil {
		if err := validateURI(*p.URL); err != nil {
			return fmt.Errorf("url: %w", err)
		}
	}
	if p.PublishedAt != nil && p.FetchedAt != nil && p.PublishedAt.After(p.FetchedAt.Add(24*time.Hour)) {
		return fmt.Errorf("published_at is more than a day after fetched_at")
	}
	return nil
}

func validateURI(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
