package rt

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"reflex/internal/meta"
	"reflex/internal/sig"
	"reflex/internal/trace"
)

// Config wires a registry to its collaborators. Only Source is required;
// the embedded sys module is always available in front of it.
type Config struct {
	Source  meta.Source
	Emitter Emitter
	Bridge  HostBridge
	Tracer  trace.Tracer
}

// Registry resolves module names to loaded modules and owns the caches of
// generic and foreign types. A process may use several registries.
type Registry struct {
	source  meta.Source
	emitter Emitter
	bridge  HostBridge
	tracer  trace.Tracer

	mu      sync.Mutex
	modules map[string]*Module
	loads   singleflight.Group
	gen     atomic.Uint64

	genericMu sync.Mutex
	generics  map[string]*GenericType

	foreignMu sync.Mutex
	foreign   map[string]*ForeignType
}

// NewRegistry creates a registry.
func NewRegistry(cfg Config) (*Registry, error) {
	src, err := meta.WithSys(cfg.Source)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		source:   src,
		emitter:  cfg.Emitter,
		bridge:   cfg.Bridge,
		tracer:   trace.OrNop(cfg.Tracer),
		modules:  make(map[string]*Module),
		generics: make(map[string]*GenericType),
		foreign:  make(map[string]*ForeignType),
	}
	if r.emitter == nil {
		r.emitter = nopEmitter{}
	}
	return r, nil
}

// Generation increases on every reload or eviction.
func (r *Registry) Generation() uint64 { return r.gen.Load() }

func (r *Registry) Source() meta.Source  { return r.source }
func (r *Registry) Bridge() HostBridge   { return r.bridge }
func (r *Registry) Tracer() trace.Tracer { return r.tracer }

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (r *Registry) cached(name string) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules[name]
}

// Find returns the named module, loading it and its dependencies first.
func (r *Registry) Find(name string) (*Module, error) {
	return r.FindModule(name, true)
}

// FindModule is Find with a checked flag: when checked is false an unknown
// module yields nil without error. Other load failures are always returned.
func (r *Registry) FindModule(name string, checked bool) (*Module, error) {
	name = normalizeName(name)
	if m := r.cached(name); m != nil {
		return m, nil
	}
	m, err := r.find(name)
	if err != nil {
		if !checked && CodeOf(err) == CodeUnknownModule {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// Loaded returns the modules currently in the cache, sorted by name.
func (r *Registry) Loaded() []*Module {
	r.mu.Lock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// List loads every module the source knows. Modules that fail to load are
// skipped and their errors joined.
func (r *Registry) List() ([]*Module, error) {
	names, err := r.source.Names()
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, "", err)
	}
	var (
		out  []*Module
		errs []error
	)
	for _, n := range names {
		m, err := r.Find(n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, errors.Join(errs...)
}

// LoadAll loads the named modules concurrently. The result is in the order
// of names.
func (r *Registry) LoadAll(ctx context.Context, names []string) ([]*Module, error) {
	out := make([]*Module, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, n := range names {
		i, n := i, n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := r.Find(n)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FinishAll finishes the given types concurrently.
func FinishAll(ctx context.Context, types []Type) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range types {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return t.Finish()
		})
	}
	return g.Wait()
}

// Evict drops a module from the cache so the next Find loads it again.
// Types already handed out stay usable.
func (r *Registry) Evict(name string) bool {
	name = normalizeName(name)
	r.mu.Lock()
	_, ok := r.modules[name]
	delete(r.modules, name)
	r.mu.Unlock()
	if ok {
		r.invalidate()
		trace.Point(r.tracer, trace.ScopeRegistry, "evict "+name, "")
	}
	return ok
}

// invalidate bumps the generation and drops derived caches.
func (r *Registry) invalidate() {
	r.gen.Add(1)
	r.genericMu.Lock()
	r.generics = make(map[string]*GenericType)
	r.genericMu.Unlock()
}

// FindType resolves a full signature such as "acme::Point?",
// "sys::Str[]", "[sys::Str:sys::Int]" or "[go]example.com/geo::Point".
// When checked is false an unknown type or module yields nil.
func (r *Registry) FindType(signature string, checked bool) (Type, error) {
	t, err := r.findType(normalizeName(signature))
	if err != nil {
		if !checked && (CodeOf(err) == CodeUnknownType || CodeOf(err) == CodeUnknownModule) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *Registry) findType(text string) (Type, error) {
	if strings.HasPrefix(text, ForeignPrefix) {
		nullable := strings.HasSuffix(text, "?")
		ft, err := r.Foreign(strings.TrimSuffix(text, "?"))
		if err != nil {
			return nil, err
		}
		if err := ft.resolve(); err != nil {
			return nil, err
		}
		if nullable {
			return ft.ToNullable(), nil
		}
		return ft, nil
	}
	s, err := sig.Parse(text)
	if err != nil {
		return nil, wrapErr(CodeInvalidSignature, text, err)
	}
	return r.buildSig(s, func(module, name string) (Type, error) {
		m, err := r.Find(module)
		if err != nil {
			return nil, err
		}
		t, err := m.Type(name)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// buildSig turns a parsed signature into a type, using lookup for basic
// names.
func (r *Registry) buildSig(s *sig.Sig, lookup func(module, name string) (Type, error)) (Type, error) {
	var (
		t   Type
		err error
	)
	switch s.Kind {
	case sig.KindBasic:
		t, err = lookup(s.Module, s.Name)
	case sig.KindList:
		var elem Type
		if elem, err = r.buildSig(s.Elem, lookup); err == nil {
			t, err = r.ListOf(elem)
		}
	case sig.KindMap:
		var k, v Type
		if k, err = r.buildSig(s.Key, lookup); err == nil {
			if v, err = r.buildSig(s.Val, lookup); err == nil {
				t, err = r.MapOf(k, v)
			}
		}
	case sig.KindFunc:
		params := make([]Type, len(s.Params))
		for i, p := range s.Params {
			if params[i], err = r.buildSig(p, lookup); err != nil {
				return nil, err
			}
		}
		var ret Type
		if ret, err = r.buildSig(s.Ret, lookup); err == nil {
			t, err = r.FuncOf(params, ret)
		}
	default:
		err = errorf(CodeInvalidSignature, s.String(), "unknown signature kind")
	}
	if err != nil {
		return nil, err
	}
	if s.Nullable {
		t = t.ToNullable()
	}
	return t, nil
}

// FindSlot resolves "module::Type.slot". When checked is false a miss
// yields nil.
func (r *Registry) FindSlot(qname string, checked bool) (Slot, error) {
	qname = normalizeName(qname)
	dot := strings.LastIndexByte(qname, '.')
	if dot < 0 || dot < strings.Index(qname, "::") {
		return nil, errorf(CodeInvalidSignature, qname, "expected module::Type.slot")
	}
	t, err := r.FindType(qname[:dot], checked)
	if err != nil || t == nil {
		return nil, err
	}
	s, err := t.Slot(qname[dot+1:])
	if err != nil {
		if !checked && CodeOf(err) == CodeUnknownSlot {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *Registry) sysClass(name string) (*ClassType, error) {
	m, err := r.Find(meta.SysModule)
	if err != nil {
		return nil, err
	}
	return m.Type(name)
}

// sysTypeOr returns a sys type, or nil if sys cannot be loaded.
func (r *Registry) sysTypeOr(name string) Type {
	t, err := r.sysClass(name)
	if err != nil {
		return nil
	}
	return t
}

// root returns sys::Obj.
func (r *Registry) root() Type { return r.sysTypeOr("Obj") }

// SysType returns a type of the sys module.
func (r *Registry) SysType(name string) (*ClassType, error) { return r.sysClass(name) }
