package rt_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"reflex/internal/rt"
)

func loadedNames(reg *rt.Registry) []string {
	var out []string
	for _, m := range reg.Loaded() {
		out = append(out, m.Name())
	}
	return out
}

func TestFindLoadsDependenciesFirst(t *testing.T) {
	fx := newAcme(t)
	m, err := fx.reg.Find("geo")
	if err != nil {
		t.Fatalf("find geo: %v", err)
	}
	if m.Version().String() != "0.3.0" {
		t.Fatalf("version: got %s, want 0.3.0", m.Version())
	}
	if got, want := loadedNames(fx.reg), []string{"acme", "geo", "sys"}; !slices.Equal(got, want) {
		t.Fatalf("loaded: got %v, want %v", got, want)
	}
	again, err := fx.reg.Find("geo")
	if err != nil || again != m {
		t.Fatalf("second find: got %p (%v), want %p", again, err, m)
	}
	var deps []string
	for _, d := range m.Depends() {
		deps = append(deps, d.Name)
	}
	if !slices.Equal(deps, []string{"acme", "sys"}) {
		t.Fatalf("depends: got %v", deps)
	}
}

func TestModuleMetaAndTypes(t *testing.T) {
	fx := newAcme(t)
	m, err := fx.reg.Find("acme")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if v, ok := m.Meta("org.name"); !ok || v != "Acme" {
		t.Fatalf("meta: got %q %v", v, ok)
	}
	if got := m.MetaKeys(); !slices.Equal(got, []string{"org.name", "org.uri"}) {
		t.Fatalf("meta keys: got %v", got)
	}
	var names []string
	for _, typ := range m.Types() {
		names = append(names, typ.Name())
	}
	if want := []string{"Named", "Shape", "Circle", "Square", "Early", "Late"}; !slices.Equal(names, want) {
		t.Fatalf("types: got %v, want %v", names, want)
	}
	if m.FindType("Missing") != nil {
		t.Fatalf("FindType of a missing type should be nil")
	}
	_, err = m.Type("Missing")
	wantCode(t, err, rt.ErrUnknownType)
}

func TestUnknownModule(t *testing.T) {
	fx := newAcme(t)
	_, err := fx.reg.Find("nope")
	wantCode(t, err, rt.ErrUnknownModule)

	m, err := fx.reg.FindModule("nope", false)
	if m != nil || err != nil {
		t.Fatalf("unchecked: got %v, %v; want nil, nil", m, err)
	}
	// Names are case-sensitive.
	_, err = fx.reg.Find("ACME")
	wantCode(t, err, rt.ErrUnknownModule)
}

func TestCyclicDependencyPublishesNothing(t *testing.T) {
	fx := newFixture(t, rt.Config{}, map[string]string{
		"a": "name = \"a\"\nversion = \"1.0.0\"\ndepends = [\"b 1.0\"]\n",
		"b": "name = \"b\"\nversion = \"1.0.0\"\ndepends = [\"a 1.0\"]\n",
	})
	_, err := fx.reg.Find("a")
	wantCode(t, err, rt.ErrCyclicDependency)
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Fatalf("error should name the chain: %v", err)
	}
	for _, name := range loadedNames(fx.reg) {
		if name == "a" || name == "b" {
			t.Fatalf("module %s was published: %v", name, loadedNames(fx.reg))
		}
	}
	// Unchecked lookups still report the cycle.
	if _, err := fx.reg.FindModule("b", false); err == nil {
		t.Fatalf("expected cycle error for b")
	}
}

func TestSelfDependency(t *testing.T) {
	fx := newFixture(t, rt.Config{}, map[string]string{
		"loop": "name = \"loop\"\nversion = \"1.0.0\"\ndepends = [\"loop 1.0\"]\n",
	})
	_, err := fx.reg.Find("loop")
	wantCode(t, err, rt.ErrCyclicDependency)
}

func TestVersionMismatch(t *testing.T) {
	fx := newFixture(t, rt.Config{}, map[string]string{
		"acme":  acmeTOML,
		"needy": "name = \"needy\"\nversion = \"1.0.0\"\ndepends = [\"acme 2.0+\"]\n",
	})
	_, err := fx.reg.Find("needy")
	wantCode(t, err, rt.ErrVersionMismatch)
	if slices.Contains(loadedNames(fx.reg), "needy") {
		t.Fatalf("needy should not be published")
	}
}

func TestLoadFailures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"dup", `
name = "dup"
version = "1.0.0"
[[types]]
name = "A"
[[types]]
name = "A"
`},
		{"cycle", `
name = "cycle"
version = "1.0.0"
[[types]]
name = "X"
base = "cycle::Y"
[[types]]
name = "Y"
base = "cycle::X"
`},
		{"rogue", `
name = "rogue"
version = "1.0.0"
[[types]]
name = "Thief"
base = "acme::Circle"
`},
		{"notmixin", `
name = "notmixin"
version = "1.0.0"
[[types]]
name = "Plain"
[[types]]
name = "User"
mixins = ["notmixin::Plain"]
`},
		{"badver", `
name = "badver"
version = "one"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, rt.Config{}, map[string]string{"acme": acmeTOML, tc.name: tc.text})
			_, err := fx.reg.Find(tc.name)
			wantCode(t, err, rt.ErrLoadFailed)
		})
	}
}

func TestForeignModuleReferenceNeedsDependency(t *testing.T) {
	fx := newFixture(t, rt.Config{}, map[string]string{"acme": acmeTOML, "rogue": `
name = "rogue"
version = "1.0.0"
[[types]]
name = "Thief"
base = "acme::Circle"
`})
	_, err := fx.reg.Find("rogue")
	wantCode(t, err, rt.ErrUnknownType)
}

func TestForwardReferenceWithinModule(t *testing.T) {
	fx := newAcme(t)
	early := fx.class(t, "acme::Early")
	late := fx.class(t, "acme::Late")
	if early.Base() != rt.Type(late) {
		t.Fatalf("Early base: got %v, want %v", early.Base(), late)
	}
	names, err := early.Method("names")
	if err != nil {
		t.Fatalf("inherited method: %v", err)
	}
	if got := names.Returns().Signature(); got != "sys::Str[]" {
		t.Fatalf("names returns %s", got)
	}
}

func TestFindTypeSignatures(t *testing.T) {
	fx := newAcme(t)
	cases := []struct{ in, want string }{
		{"sys::Int", "sys::Int"},
		{"acme::Circle?", "acme::Circle?"},
		{"sys::Str[]", "sys::Str[]"},
		{"[sys::Str:acme::Circle?]", "[sys::Str:acme::Circle?]"},
		{"|sys::Int,sys::Str->sys::Bool|", "|sys::Int,sys::Str->sys::Bool|"},
		{"acme::Shape[]?", "acme::Shape[]?"},
	}
	for _, tc := range cases {
		typ := fx.typ(t, tc.in)
		if typ.Signature() != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.in, typ.Signature(), tc.want)
		}
	}
	if got := fx.typ(t, "acme::Circle?"); !got.IsNullable() || got.ToNonNullable() != fx.typ(t, "acme::Circle") {
		t.Fatalf("nullable form should wrap the class type")
	}

	for _, miss := range []string{"acme::Nope", "nomod::Thing"} {
		typ, err := fx.reg.FindType(miss, false)
		if typ != nil || err != nil {
			t.Fatalf("unchecked %s: got %v, %v", miss, typ, err)
		}
	}
	_, err := fx.reg.FindType("acme::Nope", true)
	wantCode(t, err, rt.ErrUnknownType)
	_, err = fx.reg.FindType("sys::Str[", false)
	wantCode(t, err, rt.ErrInvalidSignature)
}

func TestFindSlot(t *testing.T) {
	fx := newAcme(t)
	s, err := fx.reg.FindSlot("acme::Circle.area", true)
	if err != nil {
		t.Fatalf("find slot: %v", err)
	}
	if s.QName() != "acme::Circle.area" {
		t.Fatalf("qname: got %s", s.QName())
	}
	if s, err := fx.reg.FindSlot("acme::Circle.nope", false); s != nil || err != nil {
		t.Fatalf("unchecked miss: got %v, %v", s, err)
	}
	_, err = fx.reg.FindSlot("acme::Circle.nope", true)
	wantCode(t, err, rt.ErrUnknownSlot)
	_, err = fx.reg.FindSlot("acme::Circle", true)
	wantCode(t, err, rt.ErrInvalidSignature)
}

func TestReloadSwapsContents(t *testing.T) {
	fx := newAcme(t)
	m, err := fx.reg.Find("acme")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	oldCircle := fx.class(t, "acme::Circle")
	gen := fx.reg.Generation()

	updated := strings.Replace(acmeTOML, `version = "1.2.0"`, `version = "1.3.0"`, 1) + `
[[types]]
name = "Triangle"
flags = ["public"]
base = "acme::Shape"
`
	fx.src.Put(decode(t, "acme", updated))
	again, err := fx.reg.Reload("acme")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != m {
		t.Fatalf("reload should keep module identity")
	}
	if m.Version().String() != "1.3.0" {
		t.Fatalf("version after reload: got %s", m.Version())
	}
	if m.FindType("Triangle") == nil {
		t.Fatalf("Triangle missing after reload")
	}
	if fx.reg.Generation() <= gen {
		t.Fatalf("generation not bumped: %d <= %d", fx.reg.Generation(), gen)
	}
	// Types handed out earlier stay usable.
	if _, err := oldCircle.Slots(); err != nil {
		t.Fatalf("old type: %v", err)
	}
	if fx.class(t, "acme::Circle") == oldCircle {
		t.Fatalf("lookup after reload should return the new type")
	}
}

func TestEvict(t *testing.T) {
	fx := newAcme(t)
	m, err := fx.reg.Find("acme")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	gen := fx.reg.Generation()
	if !fx.reg.Evict("acme") {
		t.Fatalf("evict reported no module")
	}
	if fx.reg.Evict("acme") {
		t.Fatalf("second evict should report false")
	}
	if slices.Contains(loadedNames(fx.reg), "acme") {
		t.Fatalf("acme still loaded")
	}
	if fx.reg.Generation() == gen {
		t.Fatalf("generation not bumped")
	}
	fresh, err := fx.reg.Find("acme")
	if err != nil {
		t.Fatalf("find after evict: %v", err)
	}
	if fresh == m {
		t.Fatalf("evicted module should be rebuilt")
	}
}

func TestLoadAllAndList(t *testing.T) {
	fx := newAcme(t)
	mods, err := fx.reg.LoadAll(context.Background(), []string{"geo", "acme", "geo"})
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if mods[0].Name() != "geo" || mods[1].Name() != "acme" || mods[0] != mods[2] {
		t.Fatalf("load all order: got %v", mods)
	}
	if _, err := fx.reg.LoadAll(context.Background(), []string{"acme", "nope"}); err == nil {
		t.Fatalf("expected error for unknown module")
	}

	all, err := fx.reg.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, m := range all {
		names = append(names, m.Name())
	}
	if !slices.Equal(names, []string{"acme", "geo", "sys"}) {
		t.Fatalf("list: got %v", names)
	}
}

func TestConcurrentFindSharesModule(t *testing.T) {
	fx := newAcme(t)
	names := make([]string, 16)
	for i := range names {
		names[i] = "geo"
	}
	mods, err := fx.reg.LoadAll(context.Background(), names)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	for _, m := range mods {
		if m != mods[0] {
			t.Fatalf("concurrent finds returned different modules")
		}
	}
}

func TestLoadLeavesSourceDefsUntouched(t *testing.T) {
	// "Cafe\u0301" is the decomposed spelling of "Café".
	text := "name = \"cafe\"\nversion = \"1.0.0\"\n\n[[types]]\nname = \"Cafe\u0301\"\nflags = [\"public\"]\n"
	fx := newFixture(t, rt.Config{}, map[string]string{"cafe": text})
	def, err := fx.src.Load("cafe")
	if err != nil {
		t.Fatalf("source load: %v", err)
	}
	raw := def.Types[0].Name

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := fx.reg.Find("cafe"); err != nil {
				t.Errorf("find: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := fx.reg.Reload("cafe"); err != nil {
				t.Errorf("reload: %v", err)
			}
		}()
	}
	wg.Wait()

	if def.Types[0].Name != raw {
		t.Fatalf("source def rewritten: got %q, want %q", def.Types[0].Name, raw)
	}
	typ := fx.typ(t, "cafe::Caf\u00e9")
	if typ.Name() != "Caf\u00e9" {
		t.Fatalf("name: got %q, want the composed form", typ.Name())
	}
}

func TestErrorCodes(t *testing.T) {
	if rt.CodeUnknownType.ID() != "RT0004" {
		t.Fatalf("id: got %s", rt.CodeUnknownType.ID())
	}
	err := &rt.Error{Code: rt.CodeUnknownSlot, Name: "acme::Circle.x", Msg: "gone"}
	if got := err.Error(); got != "unknown slot acme::Circle.x: gone" {
		t.Fatalf("message: got %q", got)
	}
	if rt.CodeOf(err) != rt.CodeUnknownSlot {
		t.Fatalf("CodeOf: got %v", rt.CodeOf(err))
	}
}
