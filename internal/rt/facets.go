package rt

import "sort"

// Facets is an immutable key to value map attached to a type or slot. Keys
// are facet type qnames, e.g. "sys::Serializable".
type Facets struct {
	vals map[string]any
	keys []string
}

var emptyFacets = &Facets{}

// NewFacets copies m into a new Facets value.
func NewFacets(m map[string]any) *Facets {
	if len(m) == 0 {
		return emptyFacets
	}
	f := &Facets{vals: make(map[string]any, len(m)), keys: make([]string, 0, len(m))}
	for k, v := range m {
		f.vals[k] = v
		f.keys = append(f.keys, k)
	}
	sort.Strings(f.keys)
	return f
}

// Get returns the value of a facet.
func (f *Facets) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.vals[key]
	return v, ok
}

// Has reports whether the facet is present.
func (f *Facets) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the facet keys in sorted order.
func (f *Facets) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Facets) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Map returns a copy of the facets.
func (f *Facets) Map() map[string]any {
	out := make(map[string]any, f.Len())
	if f != nil {
		for k, v := range f.vals {
			out[k] = v
		}
	}
	return out
}

// inheritFacets merges facet sets ordered from most to least specific: the
// first set that declares a key wins.
func inheritFacets(sets []*Facets) *Facets {
	merged := make(map[string]any)
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, k := range s.keys {
			if _, ok := merged[k]; !ok {
				merged[k] = s.vals[k]
			}
		}
	}
	return NewFacets(merged)
}
