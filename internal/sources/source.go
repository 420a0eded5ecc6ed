// Package sources implements content connectors. Each connector fetches
// raw items from one upstream and emits schema-valid payloads for the
// pipeline to normalize.
package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	payloadschema "horse.fit/newsroom/schema"
)

// Source fetches raw item payloads from one upstream.
type Source interface {
	// Name identifies the connector instance for logging and errors.
	Name() string
	// SourceType is the connector family, matching the payload schema enum.
	SourceType() string
	Fetch(ctx context.Context) ([]*payloadschema.RawItemPayload, error)
}

// Registry holds the configured connectors for a pipeline run.
type Registry struct {
	sources map[string]Source
}

func NewSourceRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

func (r *Registry) Register(source Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}
	name := strings.ToLower(strings.TrimSpace(source.Name()))
	if name == "" {
		return fmt.Errorf("source name is required")
	}
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("source %q is already registered", name)
	}
	r.sources[name] = source
	return nil
}

// Sources returns the registered connectors in name order.
func (r *Registry) Sources() []Source {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Source, 0, len(names))
	for _, name := range names {
		out = append(out, r.sources[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.sources)
}
