package rt_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"reflex/internal/emit"
	"reflex/internal/meta"
	"reflex/internal/rt"
)

const acmeTOML = `
name = "acme"
version = "1.2.0"
depends = ["sys 1.0"]

[meta]
"org.name" = "Acme"
"org.uri" = "https://acme.example"

[[types]]
name = "Named"
flags = ["public", "mixin", "abstract"]
facets = { "acme.tag" = "named", "acme.kind" = "mixin" }

  [[types.methods]]
  name = "label"
  flags = ["public", "abstract"]
  returns = "sys::Str"

  [[types.methods]]
  name = "defaultLabel"
  flags = ["public", "static"]
  returns = "sys::Str"

[[types]]
name = "Shape"
flags = ["public", "abstract"]
mixins = ["acme::Named"]
facets = { "acme.tag" = "shape" }

  [[types.fields]]
  name = "count"
  type = "sys::Int"
  flags = ["public"]

  [[types.methods]]
  name = "count"
  flags = ["public", "getter"]
  returns = "sys::Int"

  [[types.methods]]
  name = "count"
  flags = ["public", "setter"]
  params = [{ name = "it", type = "sys::Int" }]

  [[types.methods]]
  name = "area"
  flags = ["public", "abstract"]
  returns = "sys::Float"

  [[types.methods]]
  name = "label"
  flags = ["public", "virtual"]
  returns = "sys::Str"

  [[types.methods]]
  name = "describe"
  flags = ["public"]
  returns = "sys::Str"
  params = [{ name = "prefix", type = "sys::Str", default = "> " }]

[[types]]
name = "Circle"
flags = ["public"]
base = "acme::Shape"

  [[types.fields]]
  name = "radius"
  type = "sys::Float"
  flags = ["public"]

  [[types.methods]]
  name = "make"
  flags = ["public", "ctor"]
  returns = "acme::Circle"
  params = [{ name = "radius", type = "sys::Float", default = 1.0 }]

  [[types.methods]]
  name = "area"
  flags = ["public", "override"]
  returns = "sys::Float"

  [[types.methods]]
  name = "perimeter"
  flags = ["public"]
  returns = "sys::Float"

[[types]]
name = "Square"
flags = ["public"]
base = "acme::Shape"

  [[types.methods]]
  name = "label"
  flags = ["public", "override"]
  returns = "sys::Str"

[[types]]
name = "Early"
flags = ["public"]
base = "acme::Late"

[[types]]
name = "Late"
flags = ["public"]

  [[types.methods]]
  name = "names"
  flags = ["public"]
  returns = "sys::Str[]"
`

const geoTOML = `
name = "geo"
version = "0.3.0"
depends = ["acme 1.0+"]

[[types]]
name = "Ring"
flags = ["public"]
base = "acme::Circle"

  [[types.fields]]
  name = "inner"
  type = "acme::Circle?"
  flags = ["public"]
`

func decode(t *testing.T, name, text string) *meta.ModuleDef {
	t.Helper()
	def, err := meta.Decode(name+".toml", text, name)
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return def
}

// acmeTable registers the natives backing the acme fixture.
func acmeTable() *emit.Table {
	table := emit.New()
	table.Record("acme::Shape")
	table.Record("acme::Circle")
	table.Invoker("acme::Shape", "label", func(any, []any) (any, error) {
		return "shape", nil
	})
	table.Invoker("acme::Shape", "describe", func(_ any, args []any) (any, error) {
		return args[0].(string) + "shape", nil
	})
	table.Invoker("acme::Circle", "area", func(self any, _ []any) (any, error) {
		r, _ := self.(*emit.Instance).Get("radius").(float64)
		return math.Pi * r * r, nil
	})
	table.AuxInvoker("acme::Named", "defaultLabel", func(any, []any) (any, error) {
		return "unnamed", nil
	})
	return table
}

type fixture struct {
	src   *meta.MemSource
	table *emit.Table
	reg   *rt.Registry
}

func newFixture(t *testing.T, cfg rt.Config, texts map[string]string) *fixture {
	t.Helper()
	src := meta.NewMemSource()
	for name, text := range texts {
		src.Put(decode(t, name, text))
	}
	fx := &fixture{src: src}
	cfg.Source = src
	if cfg.Emitter == nil {
		fx.table = acmeTable()
		cfg.Emitter = fx.table
	}
	reg, err := rt.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	fx.reg = reg
	return fx
}

func newAcme(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, rt.Config{}, map[string]string{"acme": acmeTOML, "geo": geoTOML})
}

func (fx *fixture) typ(t *testing.T, sig string) rt.Type {
	t.Helper()
	typ, err := fx.reg.FindType(sig, true)
	if err != nil {
		t.Fatalf("find %s: %v", sig, err)
	}
	return typ
}

func (fx *fixture) class(t *testing.T, qname string) *rt.ClassType {
	t.Helper()
	ct, ok := fx.typ(t, qname).(*rt.ClassType)
	if !ok {
		t.Fatalf("%s is not a class type", qname)
	}
	return ct
}

func call(t *testing.T, typ rt.Type, name string, self any, args ...any) any {
	t.Helper()
	m, err := typ.Method(name)
	if err != nil {
		t.Fatalf("%s.%s: %v", typ, name, err)
	}
	v, err := m.Call(self, args...)
	if err != nil {
		t.Fatalf("%s.%s: %v", typ, name, err)
	}
	return v
}

func slotNames(t *testing.T, typ rt.Type) []string {
	t.Helper()
	slots, err := typ.Slots()
	if err != nil {
		t.Fatalf("slots %s: %v", typ, err)
	}
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Name()
	}
	return out
}

func wantCode(t *testing.T, err error, want *rt.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %s", err, want.Code)
	}
}

// countingEmitter counts Emit calls and member lookups per type.
type countingEmitter struct {
	inner rt.Emitter

	mu      sync.Mutex
	emits   map[string]int
	lookups map[string]int
	fail    map[string]error
}

func newCountingEmitter(inner rt.Emitter) *countingEmitter {
	return &countingEmitter{
		inner:   inner,
		emits:   make(map[string]int),
		lookups: make(map[string]int),
		fail:    make(map[string]error),
	}
}

func (c *countingEmitter) Emit(ct *rt.ClassType) (rt.Executable, rt.Executable, error) {
	c.mu.Lock()
	err := c.fail[ct.QName()]
	c.emits[ct.QName()]++
	c.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	primary, aux, err := c.inner.Emit(ct)
	if err != nil {
		return nil, nil, err
	}
	return &countingExec{Executable: primary, owner: c, qname: ct.QName()}, aux, nil
}

func (c *countingEmitter) count(qname string) (emits, lookups int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emits[qname], c.lookups[qname]
}

func (c *countingEmitter) setFail(qname string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, qname)
		return
	}
	c.fail[qname] = err
}

type countingExec struct {
	rt.Executable
	owner *countingEmitter
	qname string
}

func (e *countingExec) hit() {
	e.owner.mu.Lock()
	e.owner.lookups[e.qname]++
	e.owner.mu.Unlock()
}

func (e *countingExec) Method(name string) (rt.Invoker, bool) {
	e.hit()
	return e.Executable.Method(name)
}

func (e *countingExec) Field(name string) (rt.Accessor, bool) {
	e.hit()
	return e.Executable.Field(name)
}
