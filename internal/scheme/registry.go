package scheme

import (
	"fmt"
	"slices"
	"sync"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// ByName returns the scheme called name ("direct", "assembly" or "oases").
func ByName(name string) (Scheme, error) {
	switch name {
	case "direct":
		return Direct{}, nil
	case "assembly":
		return Assembly{}, nil
	case "oases":
		return Oases{}, nil
	}
	return nil, fmt.Errorf("%w: unknown scheme %q", seqdb.ErrConfiguration, name)
}

// Registry binds dataset labels to schemes. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Scheme
}

func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]Scheme)}
}

// DefaultRegistry returns the table of the 1KP datasets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("k25", Direct{})
	r.Register("k25s", Assembly{})
	for _, label := range []string{"k39", "k49", "k59", "k69"} {
		r.Register(label, Oases{})
	}
	return r
}

func (r *Registry) Register(label string, s Scheme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes[label] = s
}

// Lookup returns the scheme of label. Unknown labels are a configuration
// error; there is no default scheme.
func (r *Registry) Lookup(label string) (Scheme, error) {
	r.mu.RLock()
	s, ok := r.schemes[label]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown dataset %q", seqdb.ErrConfiguration, label)
	}
	return s, nil
}

// Labels returns the registered dataset labels in sorted order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	labels := make([]string, 0, len(r.schemes))
	for k := range r.schemes {
		labels = append(labels, k)
	}
	slices.Sort(labels)
	return labels
}
