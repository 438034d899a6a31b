package meta

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound reports that a source has no module with the requested name.
var ErrNotFound = errors.New("module not found")

// Source produces module metadata by name.
type Source interface {
	// Load returns the definition of the named module. The returned
	// definition's Name must be compared by the caller against name: a
	// source may resolve names case-insensitively.
	Load(name string) (*ModuleDef, error)
	// Names lists every module the source can load.
	Names() ([]string, error)
}

// MemSource is an in-memory Source. It is safe for concurrent use.
type MemSource struct {
	mu   sync.RWMutex
	defs map[string]*ModuleDef
}

// NewMemSource returns a source serving the given definitions.
func NewMemSource(defs ...*ModuleDef) *MemSource {
	s := &MemSource{defs: make(map[string]*ModuleDef, len(defs))}
	for _, d := range defs {
		s.Put(d)
	}
	return s
}

// Put adds or replaces a definition.
func (s *MemSource) Put(def *ModuleDef) {
	if def == nil {
		return
	}
	s.mu.Lock()
	s.defs[def.Name] = def
	s.mu.Unlock()
}

// Remove deletes a definition.
func (s *MemSource) Remove(name string) {
	s.mu.Lock()
	delete(s.defs, name)
	s.mu.Unlock()
}

// Load implements Source.
func (s *MemSource) Load(name string) (*ModuleDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if def, ok := s.defs[name]; ok {
		return def, nil
	}
	for key, def := range s.defs {
		if strings.EqualFold(key, name) {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names implements Source.
func (s *MemSource) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.defs))
	for name := range s.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Overlay consults each source in order; the first one that knows a module
// wins.
type Overlay []Source

// Load implements Source.
func (o Overlay) Load(name string) (*ModuleDef, error) {
	for _, src := range o {
		def, err := src.Load(name)
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names implements Source.
func (o Overlay) Names() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, src := range o {
		names, err := src.Names()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}
