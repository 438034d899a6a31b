package rt_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"testing"

	"reflex/internal/emit"
	"reflex/internal/rt"
)

func allTypes(t *testing.T, fx *fixture) []rt.Type {
	t.Helper()
	var out []rt.Type
	for _, name := range []string{"sys", "acme", "geo"} {
		m, err := fx.reg.Find(name)
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		out = append(out, m.Types()...)
	}
	return out
}

func TestIsReflexiveAndRooted(t *testing.T) {
	fx := newAcme(t)
	root, err := fx.reg.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	for _, typ := range allTypes(t, fx) {
		if !typ.Is(typ) {
			t.Fatalf("%s.Is(%s) = false", typ, typ)
		}
		if rt.IsVoid(typ) {
			if typ.Is(root) {
				t.Fatalf("sys::Void must not be an Obj")
			}
			continue
		}
		if !typ.Is(root) {
			t.Fatalf("%s.Is(sys::Obj) = false", typ)
		}
		if !typ.ToNullable().Is(typ) || !typ.Is(typ.ToNullable()) {
			t.Fatalf("%s: nullability must not affect Is", typ)
		}
	}
}

func TestInheritanceOrder(t *testing.T) {
	fx := newAcme(t)
	for _, typ := range allTypes(t, fx) {
		inh := typ.Inheritance()
		if len(inh) == 0 || inh[0] != typ {
			t.Fatalf("%s: inheritance must start with the type, got %v", typ, inh)
		}
		seen := make(map[string]bool)
		for _, x := range inh {
			if seen[x.Signature()] {
				t.Fatalf("%s: duplicate %s in %v", typ, x, inh)
			}
			seen[x.Signature()] = true
		}
	}
	var got []string
	for _, x := range fx.typ(t, "geo::Ring").Inheritance() {
		got = append(got, x.QName())
	}
	want := []string{"geo::Ring", "acme::Circle", "acme::Shape", "sys::Obj", "acme::Named"}
	if !slices.Equal(got, want) {
		t.Fatalf("Ring inheritance: got %v, want %v", got, want)
	}
}

func TestMixinShape(t *testing.T) {
	fx := newAcme(t)
	named := fx.class(t, "acme::Named")
	if !named.IsMixin() || named.Base() == nil || !rt.IsRoot(named.Base()) {
		t.Fatalf("mixin base: got %v, want sys::Obj", named.Base())
	}
	shape := fx.class(t, "acme::Shape")
	if mx := shape.Mixins(); len(mx) != 1 || mx[0] != rt.Type(named) {
		t.Fatalf("Shape mixins: got %v", mx)
	}
	if !shape.Is(named) || named.Is(shape) {
		t.Fatalf("mixin subtyping is wrong")
	}
	obj := fx.class(t, "sys::Obj")
	if obj.Base() != nil {
		t.Fatalf("sys::Obj base: got %v", obj.Base())
	}
}

func TestCommonType(t *testing.T) {
	fx := newAcme(t)
	circle, err := fx.class(t, "acme::Circle").Make(2.0)
	if err != nil {
		t.Fatalf("make circle: %v", err)
	}
	square := emit.NewInstance(fx.class(t, "acme::Square"))

	cases := []struct {
		vals []any
		want string
	}{
		{[]any{int64(1), "a"}, "sys::Obj"},
		{[]any{int64(1), int64(2)}, "sys::Int"},
		{[]any{int64(1), 2.5}, "sys::Num"},
		{[]any{nil, int64(3)}, "sys::Int"},
		{nil, "sys::Obj"},
		{[]any{nil}, "sys::Obj"},
		{[]any{circle, square}, "acme::Shape"},
		{[]any{circle, circle}, "acme::Circle"},
	}
	for _, tc := range cases {
		got, err := fx.reg.Common(tc.vals)
		if err != nil {
			t.Fatalf("common %v: %v", tc.vals, err)
		}
		if got.Signature() != tc.want {
			t.Fatalf("common %v: got %s, want %s", tc.vals, got, tc.want)
		}
	}
}

func TestTypeOf(t *testing.T) {
	fx := newAcme(t)
	cases := []struct {
		val  any
		want string
	}{
		{true, "sys::Bool"},
		{7, "sys::Int"},
		{uint8(7), "sys::Int"},
		{1.5, "sys::Float"},
		{"s", "sys::Str"},
		{[]any{1}, "sys::Obj?[]"},
		{map[any]any{}, "[sys::Obj:sys::Obj?]"},
		{errors.New("boom"), "sys::Err"},
		{fx.typ(t, "sys::Int"), "sys::Type"},
	}
	for _, tc := range cases {
		got, err := fx.reg.TypeOf(tc.val)
		if err != nil {
			t.Fatalf("typeof %v: %v", tc.val, err)
		}
		if got.Signature() != tc.want {
			t.Fatalf("typeof %v: got %s, want %s", tc.val, got, tc.want)
		}
	}
	_, err := fx.reg.TypeOf(nil)
	wantCode(t, err, rt.ErrUnsupportedOperation)
	_, err = fx.reg.TypeOf(struct{ X int }{})
	wantCode(t, err, rt.ErrUnknownType)
}

type slotDesc struct {
	Kind, QName, Sig string
	Flags            rt.Flags
}

func describeSlots(t *testing.T, typ rt.Type) []slotDesc {
	t.Helper()
	slots, err := typ.Slots()
	if err != nil {
		t.Fatalf("slots %s: %v", typ, err)
	}
	out := make([]slotDesc, len(slots))
	for i, s := range slots {
		kind := "method"
		if _, ok := s.(*rt.Field); ok {
			kind = "field"
		}
		out[i] = slotDesc{Kind: kind, QName: s.QName(), Sig: s.Signature(), Flags: s.Flags()}
	}
	return out
}

func TestMergeIsDeterministic(t *testing.T) {
	a, b := newAcme(t), newAcme(t)
	for _, qname := range []string{"acme::Named", "acme::Shape", "acme::Circle", "acme::Square", "geo::Ring"} {
		da := describeSlots(t, a.typ(t, qname))
		db := describeSlots(t, b.typ(t, qname))
		if !slices.Equal(da, db) {
			t.Fatalf("%s: slot tables differ:\n%v\n%v", qname, da, db)
		}
		typ := a.typ(t, qname)
		first, _ := typ.Slots()
		second, _ := typ.Slots()
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("%s: slot %d changed between calls", qname, i)
			}
		}
	}
}

func TestMergeRules(t *testing.T) {
	fx := newAcme(t)
	shape := fx.typ(t, "acme::Shape")

	// The concrete label replaces the abstract mixin one in place.
	label, err := shape.Method("label")
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	if label.Parent() != shape || label.IsAbstract() {
		t.Fatalf("label: got %s abstract=%v", label.QName(), label.IsAbstract())
	}
	names := slotNames(t, shape)
	if i, j := slices.Index(names, "label"), slices.Index(names, "describe"); i < 0 || i > j {
		t.Fatalf("label should keep its mixin position: %v", names)
	}

	// sys::Obj slots arrive once even though both base and mixin carry them.
	count := 0
	for _, n := range names {
		if n == "toStr" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("toStr appears %d times in %v", count, names)
	}

	// Constructors are not inherited.
	if mk, ok := shape.FindSlot("make").(*rt.Method); ok {
		t.Fatalf("Shape inherited constructor %s", mk.QName())
	}
	circle := fx.typ(t, "acme::Circle")
	mk, err := circle.Method("make")
	if err != nil || mk.Parent() != circle {
		t.Fatalf("Circle.make: %v %v", mk, err)
	}
	if _, err := fx.typ(t, "geo::Ring").Method("make"); !errors.Is(err, rt.ErrUnknownSlot) {
		t.Fatalf("Ring should not inherit Circle.make: %v", err)
	}
}

func TestAccessorsFoldIntoField(t *testing.T) {
	fx := newAcme(t)
	shape := fx.typ(t, "acme::Shape")
	f, err := shape.Field("count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if f.Getter() == nil || f.Setter() == nil {
		t.Fatalf("count accessors not folded: getter=%v setter=%v", f.Getter(), f.Setter())
	}
	methods, err := shape.Methods()
	if err != nil {
		t.Fatalf("methods: %v", err)
	}
	for _, m := range methods {
		if m.Name() == "count" {
			t.Fatalf("accessor %s listed as a method", m.QName())
		}
	}
	if _, err := shape.Method("count"); !errors.Is(err, rt.ErrUnknownSlot) {
		t.Fatalf("Method(count): got %v, want unknown slot", err)
	}

	circle := fx.typ(t, "acme::Circle")
	inherited, err := circle.Field("count")
	if err != nil {
		t.Fatalf("inherited count: %v", err)
	}
	if inherited != f {
		t.Fatalf("Circle should share Shape's field")
	}

	c, err := circle.Make(3.0)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if err := inherited.Set(c, int64(5)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := inherited.Get(c)
	if err != nil || got != int64(5) {
		t.Fatalf("get: got %v (%v), want 5", got, err)
	}
}

func TestFacetsInherit(t *testing.T) {
	fx := newAcme(t)
	circle := fx.typ(t, "acme::Circle")
	if v, ok := circle.Facets().Get("acme.tag"); !ok || v != "shape" {
		t.Fatalf("acme.tag: got %v %v, want shape", v, ok)
	}
	if v, ok := circle.Facets().Get("acme.kind"); !ok || v != "mixin" {
		t.Fatalf("acme.kind: got %v %v, want mixin", v, ok)
	}
	if fx.typ(t, "acme::Late").Facets().Len() != 0 {
		t.Fatalf("Late should have no facets")
	}
}

func TestDispatch(t *testing.T) {
	fx := newAcme(t)
	circle := fx.typ(t, "acme::Circle")
	c, err := circle.Make(2.0)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if got := call(t, circle, "area", c).(float64); math.Abs(got-4*math.Pi) > 1e-9 {
		t.Fatalf("area: got %v", got)
	}
	// Default parameter values fill omitted arguments.
	if got := call(t, circle, "describe", c); got != "> shape" {
		t.Fatalf("describe: got %v", got)
	}
	if got := call(t, circle, "describe", c, "* "); got != "* shape" {
		t.Fatalf("describe: got %v", got)
	}
	d, err := circle.Make()
	if err != nil {
		t.Fatalf("make default: %v", err)
	}
	if got := d.(*emit.Instance).Get("radius"); got != 1.0 {
		t.Fatalf("default radius: got %v", got)
	}

	// A slot without a native falls back to its base's handle.
	square := fx.typ(t, "acme::Square")
	if got := call(t, square, "label", emit.NewInstance(square)); got != "shape" {
		t.Fatalf("Square.label: got %v", got)
	}

	// ...and to an unsupported handle when there is none.
	perimeter, err := circle.Method("perimeter")
	if err != nil {
		t.Fatalf("perimeter: %v", err)
	}
	_, err = perimeter.Call(c)
	wantCode(t, err, rt.ErrUnsupportedOperation)

	// Mixin statics come from the auxiliary executable.
	if got := call(t, fx.typ(t, "acme::Shape"), "defaultLabel", nil); got != "unnamed" {
		t.Fatalf("defaultLabel: got %v", got)
	}

	_, err = call2(circle, "area", nil)
	wantCode(t, err, rt.ErrUnsupportedOperation)
	_, err = call2(circle, "describe", c, "a", "b")
	wantCode(t, err, rt.ErrNoMatchingOverload)
}

func call2(typ rt.Type, name string, self any, args ...any) (any, error) {
	m, err := typ.Method(name)
	if err != nil {
		return nil, err
	}
	return m.Call(self, args...)
}

func TestMakeRules(t *testing.T) {
	fx := newAcme(t)
	_, err := fx.typ(t, "acme::Shape").Make()
	wantCode(t, err, rt.ErrUnsupportedOperation)
	_, err = fx.typ(t, "acme::Named").Make()
	wantCode(t, err, rt.ErrUnsupportedOperation)
	_, err = fx.typ(t, "acme::Circle").Make(1.0, 2.0)
	wantCode(t, err, rt.ErrUnsupportedOperation)

	// Types without a constructor fall back to defVal.
	v, err := fx.typ(t, "sys::Int").Make()
	if err != nil || v != int64(0) {
		t.Fatalf("Int.make: got %v (%v)", v, err)
	}
}

func TestFinishOnce(t *testing.T) {
	counter := newCountingEmitter(acmeTable())
	fx := newFixture(t, rt.Config{Emitter: counter}, map[string]string{"acme": acmeTOML})
	circle := fx.class(t, "acme::Circle")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- circle.Finish()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
	}
	if circle.Stage() != rt.StageFinished {
		t.Fatalf("stage: got %s", circle.Stage())
	}
	emits, lookups := counter.count("acme::Circle")
	if emits != 1 {
		t.Fatalf("emits: got %d, want 1", emits)
	}
	if err := circle.Finish(); err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if e, l := counter.count("acme::Circle"); e != emits || l != lookups {
		t.Fatalf("second finish did work: emits %d->%d lookups %d->%d", emits, e, lookups, l)
	}
	// Finishing Circle finishes its base.
	if fx.class(t, "acme::Shape").Stage() != rt.StageFinished {
		t.Fatalf("Shape not finished")
	}
	primary, aux := circle.Executables()
	if primary == nil || aux == nil {
		t.Fatalf("executables missing after finish")
	}
}

func TestEmitFailureIsRetried(t *testing.T) {
	counter := newCountingEmitter(acmeTable())
	fx := newFixture(t, rt.Config{Emitter: counter}, map[string]string{"acme": acmeTOML})
	late := fx.class(t, "acme::Late")

	counter.setFail("acme::Late", fmt.Errorf("backend down"))
	err := late.Finish()
	wantCode(t, err, rt.ErrEmitFailed)
	if late.Stage() != rt.StageReflected {
		t.Fatalf("stage after failure: got %s, want %s", late.Stage(), rt.StageReflected)
	}

	counter.setFail("acme::Late", nil)
	if err := late.Finish(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if emits, _ := counter.count("acme::Late"); emits != 2 {
		t.Fatalf("emits: got %d, want 2", emits)
	}
}

func TestFinishAll(t *testing.T) {
	fx := newAcme(t)
	m, err := fx.reg.Find("geo")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	acme, _ := fx.reg.Find("acme")
	types := append(m.Types(), acme.Types()...)
	if err := rt.FinishAll(context.Background(), types); err != nil {
		t.Fatalf("finish all: %v", err)
	}
	for _, typ := range types {
		if ct := typ.(*rt.ClassType); ct.Stage() != rt.StageFinished {
			t.Fatalf("%s: stage %s", ct, ct.Stage())
		}
	}
}

func TestNullableDelegates(t *testing.T) {
	fx := newAcme(t)
	circle := fx.typ(t, "acme::Circle")
	nc := circle.ToNullable()
	if nc.ToNullable() != nc || nc.ToNonNullable() != circle {
		t.Fatalf("nullable round trip broken")
	}
	if nc.Signature() != "acme::Circle?" || nc.QName() != "acme::Circle" {
		t.Fatalf("nullable names: %s %s", nc.Signature(), nc.QName())
	}
	a, _ := nc.Slots()
	b, _ := circle.Slots()
	if len(a) != len(b) {
		t.Fatalf("nullable slots differ")
	}
	if !nc.Is(fx.typ(t, "acme::Shape")) {
		t.Fatalf("Circle? should be a Shape")
	}
}

const mergeTOML = `
name = "pm"
version = "1.0.0"
depends = ["sys 1.0"]

[[types]]
name = "Base"
flags = ["public"]

  [[types.methods]]
  name = "run"
  flags = ["public", "virtual"]
  returns = "sys::Str"

[[types]]
name = "Child"
flags = ["public", "abstract"]
base = "pm::Base"

  [[types.methods]]
  name = "run"
  flags = ["public", "abstract", "override"]
  returns = "sys::Str"

[[types]]
name = "M1"
flags = ["public", "mixin"]

  [[types.methods]]
  name = "go"
  flags = ["public", "virtual"]
  returns = "sys::Str"

[[types]]
name = "M2"
flags = ["public", "mixin", "abstract"]

  [[types.methods]]
  name = "go"
  flags = ["public", "abstract"]
  returns = "sys::Str"

[[types]]
name = "Both"
flags = ["public"]
mixins = ["pm::M1", "pm::M2"]

[[types]]
name = "Shown"
flags = ["public", "mixin"]

  [[types.methods]]
  name = "toStr"
  flags = ["public", "override"]
  returns = "sys::Str"

[[types]]
name = "Uses"
flags = ["public"]
mixins = ["pm::Shown"]
`

func TestMergeKeepsInheritedConcrete(t *testing.T) {
	fx := newFixture(t, rt.Config{}, map[string]string{"pm": mergeTOML})
	cases := []struct {
		typ, slot, owner string
	}{
		// An own abstract redeclaration does not hide the inherited body.
		{"pm::Child", "run", "pm::Base"},
		// Between two mixins the concrete slot wins regardless of order.
		{"pm::Both", "go", "pm::M1"},
		// Root slots arriving through the base do not undo a mixin override.
		{"pm::Uses", "toStr", "pm::Shown"},
	}
	for _, tc := range cases {
		m, err := fx.typ(t, tc.typ).Method(tc.slot)
		if err != nil {
			t.Fatalf("%s.%s: %v", tc.typ, tc.slot, err)
		}
		if m.Parent().QName() != tc.owner || m.IsAbstract() {
			t.Fatalf("%s.%s: got %s abstract=%v, want %s.%s", tc.typ, tc.slot, m.QName(), m.IsAbstract(), tc.owner, tc.slot)
		}
	}
}
