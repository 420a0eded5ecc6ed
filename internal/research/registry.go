package research

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultBackendName is used when no provider is configured.
const DefaultBackendName = "hybrid"

// Registry stores research backends and resolves a default backend.
type Registry struct {
	backends       map[string]Backend
	defaultBackend string
}

func NewRegistry(defaultBackend string) *Registry {
	normalizedDefault := normalizeBackendName(defaultBackend)
	if normalizedDefault == "" {
		normalizedDefault = DefaultBackendName
	}
	return &Registry{
		backends:       make(map[string]Backend),
		defaultBackend: normalizedDefault,
	}
}

// Register adds one backend.
func (r *Registry) Register(backend Backend) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if backend == nil {
		return fmt.Errorf("backend is nil")
	}
	name := normalizeBackendName(backend.Name())
	if name == "" {
		return fmt.Errorf("backend name is required")
	}
	r.backends[name] = backend
	return nil
}

// Backend resolves a backend by name. Empty names use the configured
// default; when the default is not registered either, a sole registered
// backend wins.
func (r *Registry) Backend(name string) (Backend, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if len(r.backends) == 0 {
		return nil, fmt.Errorf("no research backends are registered")
	}

	resolvedName := normalizeBackendName(name)
	if resolvedName == "" {
		resolvedName = r.defaultBackend
	}
	if backend, ok := r.backends[resolvedName]; ok {
		return backend, nil
	}
	if name == "" && len(r.backends) == 1 {
		for _, backend := range r.backends {
			return backend, nil
		}
	}
	return nil, fmt.Errorf("research backend %q is not registered (available: %s)", resolvedName, strings.Join(r.BackendNames(), ", "))
}

func (r *Registry) DefaultBackend() string {
	if r == nil {
		return ""
	}
	return r.defaultBackend
}

func (r *Registry) BackendNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeBackendName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
