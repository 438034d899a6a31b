package host_test

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"testing"

	"reflex/internal/host"
	"reflex/internal/rt"
)

type Shape struct {
	Label string
}

func (s *Shape) Describe() string { return "shape " + s.Label }

type Point struct {
	Shape
	X, Y int
	tag  string
}

func (p *Point) Distance() float64 {
	return math.Sqrt(float64(p.X*p.X + p.Y*p.Y))
}

func (p *Point) Scale(k int) *Point {
	return &Point{X: p.X * k, Y: p.Y * k}
}

func (p *Point) Check(limit int) error {
	if p.X > limit {
		return fmt.Errorf("x %d over %d", p.X, limit)
	}
	return nil
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func hostName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.PkgPath() + "." + t.Name()
}

func newBridge(t *testing.T) *host.Bridge {
	t.Helper()
	b := host.New()
	if err := b.Register(&Point{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return b
}

func memberNames[M interface{ Name() string }](ms []M) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name()
	}
	return out
}

func TestRegisterAndFind(t *testing.T) {
	b := newBridge(t)
	c, err := b.FindClass(hostName[Point]())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Simple() != "Point" || c.Kind() != rt.HostStruct || !c.Exported() {
		t.Fatalf("got %s kind %d, want exported struct Point", c.Simple(), c.Kind())
	}
	super := c.Super()
	if super == nil || super.Name() != hostName[Shape]() {
		t.Fatalf("super: got %v, want %s", super, hostName[Shape]())
	}
	if _, err := b.FindClass("example.com/missing.Type"); err == nil {
		t.Fatalf("expected error for unregistered class")
	}
	if c, err := b.FindClass("int"); err != nil || c.Kind() != rt.HostInt {
		t.Fatalf("int: got %v, %v", c, err)
	}
}

func TestRegisterRejectsNonStruct(t *testing.T) {
	b := host.New()
	if err := b.Register(42); err == nil {
		t.Fatalf("expected error registering int")
	}
	if err := b.RegisterInterface(&Point{}); err == nil {
		t.Fatalf("expected error registering struct as interface")
	}
}

func TestFieldsAreCamelCase(t *testing.T) {
	b := newBridge(t)
	c, _ := b.FindClass(hostName[Point]())
	got := memberNames(c.Fields())
	want := []string{"label", "x", "y"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFieldGetSet(t *testing.T) {
	b := newBridge(t)
	c, _ := b.FindClass(hostName[Point]())
	var x rt.HostField
	for _, f := range c.Fields() {
		if f.Name() == "x" {
			x = f
		}
	}
	p := &Point{X: 1}
	if err := x.Set(p, 5); err != nil {
		t.Fatalf("set: %v", err)
	}
	if p.X != 5 {
		t.Fatalf("got %d, want 5", p.X)
	}
	v, err := x.Get(p)
	if err != nil || v != 5 {
		t.Fatalf("get: got %v, %v", v, err)
	}
	if err := x.Set(Point{}, 1); err == nil {
		t.Fatalf("expected error setting a field of a value")
	}
	if err := x.Set(p, "five"); err == nil {
		t.Fatalf("expected error setting a string")
	}
}

func TestMethodInvoke(t *testing.T) {
	b := newBridge(t)
	c, _ := b.FindClass(hostName[Point]())
	methods := map[string]rt.HostMethod{}
	for _, m := range c.Methods() {
		methods[m.Name()] = m
	}
	for _, name := range []string{"describe", "distance", "scale", "check", "string"} {
		if methods[name] == nil {
			t.Fatalf("missing method %s in %v", name, memberNames(c.Methods()))
		}
	}
	p := &Point{X: 3, Y: 4}
	got, err := methods["distance"].Invoke(p, nil)
	if err != nil || got != 5.0 {
		t.Fatalf("distance: got %v, %v", got, err)
	}
	got, err = methods["scale"].Invoke(p, []any{2})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if q := got.(*Point); q.X != 6 || q.Y != 8 {
		t.Fatalf("got %v, want (6,8)", q)
	}
	if _, err := methods["check"].Invoke(p, []any{1}); err == nil {
		t.Fatalf("expected error from check")
	}
	if got, err := methods["check"].Invoke(p, []any{10}); err != nil || got != nil {
		t.Fatalf("check: got %v, %v", got, err)
	}
	if r := methods["check"].Result(); r != nil {
		t.Fatalf("error-only method result: got %v, want nil", r)
	}
	if _, err := methods["distance"].Invoke(nil, nil); err == nil {
		t.Fatalf("expected error without target")
	}
}

func TestInterfaces(t *testing.T) {
	b := newBridge(t)
	if err := b.RegisterInterface((*fmt.Stringer)(nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	c, _ := b.FindClass(hostName[Point]())
	got := memberNames(c.Interfaces())
	if !slices.Equal(got, []string{"fmt.Stringer"}) {
		t.Fatalf("got %v, want [fmt.Stringer]", got)
	}
	s, err := b.FindClass("fmt.Stringer")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(s.Interfaces()) != 0 {
		t.Fatalf("interface lists itself: %v", memberNames(s.Interfaces()))
	}
	if !c.AssignableTo(s) || s.AssignableTo(c) {
		t.Fatalf("assignability between Point and Stringer is wrong")
	}
	m := s.Methods()[0]
	got2, err := m.Invoke(&Point{X: 1, Y: 2}, nil)
	if err != nil || got2 != "(1,2)" {
		t.Fatalf("string: got %v, %v", got2, err)
	}
	if _, err := s.New(); err == nil {
		t.Fatalf("expected error instantiating interface")
	}
}

func TestAddMethodOverloads(t *testing.T) {
	b := host.New()
	if err := b.AddMethod(&Point{}, "move", func(p *Point, dx int) { p.X += dx }); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddMethod(&Point{}, "move", func(p *Point, dx float64) { p.X += int(dx * 10) }); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.AddStatic(&Point{}, "origin", func() *Point { return &Point{} }); err != nil {
		t.Fatalf("add static: %v", err)
	}
	if err := b.AddMethod(&Point{}, "bad", func(s string) {}); err == nil {
		t.Fatalf("expected error for missing receiver")
	}
	c, _ := b.FindClass(hostName[Point]())
	var moves []rt.HostMethod
	var origin rt.HostMethod
	for _, m := range c.Methods() {
		switch m.Name() {
		case "move":
			moves = append(moves, m)
		case "origin":
			origin = m
		}
	}
	if len(moves) != 2 {
		t.Fatalf("got %d move overloads, want 2", len(moves))
	}
	p := &Point{}
	if _, err := moves[1].Invoke(p, []any{0.5}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if p.X != 5 {
		t.Fatalf("got %d, want 5", p.X)
	}
	if origin == nil || !origin.Static() {
		t.Fatalf("origin is missing or not static")
	}
	if v, err := origin.Invoke(nil, nil); err != nil || v.(*Point).X != 0 {
		t.Fatalf("origin: got %v, %v", v, err)
	}
}

func TestClassOfAndSlices(t *testing.T) {
	b := newBridge(t)
	c, ok := b.ClassOf([]int{1})
	if !ok || c.Kind() != rt.HostSlice || c.Elem().Kind() != rt.HostInt {
		t.Fatalf("got %v, want []int class", c)
	}
	s, err := c.MakeSlice([]any{1, 2, 3})
	if err != nil {
		t.Fatalf("make slice: %v", err)
	}
	if got := s.([]int); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
	pc, ok := b.ClassOf(&Point{})
	if !ok || pc.Simple() != "Point" || !pc.IsInstance(Point{}) || !pc.IsInstance(&Point{}) {
		t.Fatalf("pointer value does not map to the Point class")
	}
	v, err := pc.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := v.(*Point); !ok {
		t.Fatalf("got %T, want *Point", v)
	}
	if _, ok := b.ClassOf(nil); ok {
		t.Fatalf("nil has a class")
	}
}

func TestCamel(t *testing.T) {
	b := host.New()
	type Names struct {
		X       int
		URLPath string
		ID      int
		Value   string
	}
	if err := b.Register(Names{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	c := b.Class(reflect.TypeOf((*Names)(nil)).Elem())
	got := memberNames(c.Fields())
	want := []string{"x", "urlPath", "id", "value"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
