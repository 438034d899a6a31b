package rt_test

import (
	"fmt"
	"strconv"
	"testing"

	"reflex/internal/host"
	"reflex/internal/rt"
)

type Printer struct {
	Prefix string
}

func (p *Printer) Render(v string) string { return p.Prefix + v }

type Label struct {
	Text string
}

func (l Label) String() string { return "label:" + l.Text }

type Fancy struct {
	Label
	Level int
}

type Counter struct {
	Count int
}

func foreignFixture(t *testing.T) (*fixture, *host.Bridge) {
	t.Helper()
	b := host.New()
	if err := b.Register(&Printer{}, &Label{}, &Fancy{}, &Counter{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.RegisterInterface((*fmt.Stringer)(nil)); err != nil {
		t.Fatalf("register interface: %v", err)
	}
	overloads := []struct {
		name string
		fn   any
	}{
		{"show", func(_ *Printer, n int64) string { return "int " + strconv.FormatInt(n, 10) }},
		{"show", func(_ *Printer, s string) string { return "str " + s }},
		{"pick", func(_ *Printer, n int) string { return "int" }},
		{"pick", func(_ *Printer, n int64) string { return "int64" }},
		{"describe", func(_ *Printer, s fmt.Stringer) string { return "stringer " + s.String() }},
		{"describe", func(_ *Printer, l *Label) string { return "label " + l.Text }},
	}
	for _, o := range overloads {
		if err := b.AddMethod(&Printer{}, o.name, o.fn); err != nil {
			t.Fatalf("add %s: %v", o.name, err)
		}
	}
	if err := b.AddMethod(&Counter{}, "count", func(c *Counter, by int) int {
		c.Count += by
		return c.Count
	}); err != nil {
		t.Fatalf("add count: %v", err)
	}
	fx := newFixture(t, rt.Config{Bridge: b}, map[string]string{"acme": acmeTOML})
	return fx, b
}

func foreignOf(t *testing.T, fx *fixture, v any) *rt.ForeignType {
	t.Helper()
	typ, err := fx.reg.TypeOf(v)
	if err != nil {
		t.Fatalf("typeof %T: %v", v, err)
	}
	ft, ok := typ.(*rt.ForeignType)
	if !ok {
		t.Fatalf("typeof %T: got %s, want a foreign type", v, typ)
	}
	return ft
}

func TestForeignIdentity(t *testing.T) {
	fx, _ := foreignFixture(t)
	ft := foreignOf(t, fx, &Printer{})
	want := rt.ForeignPrefix + "reflex/internal/rt_test::Printer"
	if ft.QName() != want {
		t.Fatalf("qname: got %s, want %s", ft.QName(), want)
	}
	if ft.HostName() != "reflex/internal/rt_test.Printer" {
		t.Fatalf("host name: got %s", ft.HostName())
	}
	found := fx.typ(t, want)
	if found != rt.Type(ft) {
		t.Fatalf("FindType returned a different foreign type")
	}
	if nt := fx.typ(t, want+"?"); !nt.IsNullable() || nt.ToNonNullable() != rt.Type(ft) {
		t.Fatalf("nullable foreign lookup")
	}
	_, err := fx.reg.FindType(rt.ForeignPrefix+"example.com/none::Thing", true)
	wantCode(t, err, rt.ErrUnknownType)
	if !ft.Flags().Has(rt.FlagPublic | rt.FlagFinal) {
		t.Fatalf("flags: got %s", ft.Flags())
	}
}

func TestForeignOverloads(t *testing.T) {
	fx, _ := foreignFixture(t)
	p := &Printer{Prefix: "> "}
	ft := foreignOf(t, fx, p)

	show, err := ft.Method("show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if show.Overloads() != 2 {
		t.Fatalf("show overloads: got %d, want 2", show.Overloads())
	}
	if got, err := show.Call(p, int64(5)); err != nil || got != "int 5" {
		t.Fatalf("show(5): got %v (%v)", got, err)
	}
	if got, err := show.Call(p, "x"); err != nil || got != "str x" {
		t.Fatalf("show(x): got %v (%v)", got, err)
	}
	_, err = show.Call(p, true)
	wantCode(t, err, rt.ErrNoMatchingOverload)

	pick, _ := ft.Method("pick")
	_, err = pick.Call(p, int64(3))
	wantCode(t, err, rt.ErrAmbiguousOverload)

	describe, _ := ft.Method("describe")
	if got, err := describe.Call(p, &Label{Text: "a"}); err != nil || got != "label a" {
		t.Fatalf("describe(label): got %v (%v)", got, err)
	}
	if got, err := describe.Call(p, &Fancy{Label: Label{Text: "b"}}); err != nil || got != "stringer label:b" {
		t.Fatalf("describe(fancy): got %v (%v)", got, err)
	}

	render, _ := ft.Method("render")
	if got, err := render.Call(p, "hi"); err != nil || got != "> hi" {
		t.Fatalf("render: got %v (%v)", got, err)
	}
	_, err = render.Call(nil, "hi")
	wantCode(t, err, rt.ErrUnsupportedOperation)
}

func TestForeignInheritance(t *testing.T) {
	fx, _ := foreignFixture(t)
	fancy := foreignOf(t, fx, &Fancy{})
	label := foreignOf(t, fx, Label{})
	stringer := fx.typ(t, rt.ForeignPrefix+"fmt::Stringer")

	if fancy.Base() != rt.Type(label) {
		t.Fatalf("Fancy base: got %v, want %v", fancy.Base(), label)
	}
	if !fancy.Is(label) || !fancy.Is(stringer) || !label.Is(stringer) {
		t.Fatalf("foreign subtyping: fancy<:label %v fancy<:stringer %v", fancy.Is(label), fancy.Is(stringer))
	}
	if !rt.IsRoot(label.Base()) {
		t.Fatalf("Label base: got %v, want sys::Obj", label.Base())
	}
	if !stringer.Flags().Has(rt.FlagMixin | rt.FlagAbstract) {
		t.Fatalf("interface flags: got %s", stringer.Flags())
	}
	_, err := stringer.Make()
	wantCode(t, err, rt.ErrUnsupportedOperation)

	names := slotNames(t, fancy)
	for _, want := range []string{"text", "level", "string"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Fatalf("Fancy slots %v missing %s", names, want)
		}
	}
}

func TestForeignFieldsAndMake(t *testing.T) {
	fx, _ := foreignFixture(t)
	ft := foreignOf(t, fx, &Counter{})
	v, err := ft.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	c, ok := v.(*Counter)
	if !ok {
		t.Fatalf("make: got %T, want *Counter", v)
	}

	f, err := ft.Field("count")
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	if f.Type().QName() != "sys::Int" {
		t.Fatalf("field type: got %s", f.Type())
	}
	if err := f.Set(c, int64(4)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := f.Get(c); err != nil || got != int64(4) {
		t.Fatalf("get: got %v (%v), want 4", got, err)
	}
	if f.Overload() == nil {
		t.Fatalf("same-named method should be the field's overload")
	}
	m, err := ft.Method("count")
	if err != nil {
		t.Fatalf("method: %v", err)
	}
	if got, err := m.Call(c, 3); err != nil || got != int64(7) {
		t.Fatalf("count(3): got %v (%v), want 7", got, err)
	}
	if err := f.Set(c, "seven"); err == nil {
		t.Fatalf("expected coercion error")
	}
}

func TestForeignWithoutBridge(t *testing.T) {
	fx := newAcme(t)
	_, err := fx.reg.FindType(rt.ForeignPrefix+"fmt::Stringer", true)
	wantCode(t, err, rt.ErrUnsupportedOperation)
	_, err = fx.reg.FindType(rt.ForeignPrefix+"nocolons", true)
	wantCode(t, err, rt.ErrInvalidSignature)
}
