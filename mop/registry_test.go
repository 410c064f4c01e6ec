package mop

import (
	"sync"
	"testing"
)

func noop(*Thread, Value, []Value) (Value, error) { return nil, nil }

func TestRegistryMetaForIsLazy(t *testing.T) {
	reg := New()
	c := NewClass("Lazy", nil)

	if reg.Lookup("Lazy") != nil {
		t.Error("Class should not be registered before first use")
	}
	m := reg.MetaFor(c)
	if m.Class() != c {
		t.Errorf("Expected meta for Lazy, got %v", m.Class())
	}
	if reg.MetaFor(c) != m {
		t.Error("MetaFor should return the same meta-object until redefinition")
	}
	if reg.Lookup("Lazy") != c {
		t.Error("Expected Lazy to be registered by name")
	}
}

func TestRegistryDefineInvalidates(t *testing.T) {
	reg := New()
	c := NewClass("Point", nil)

	sp := reg.SwitchPoint(c)
	if !sp.Valid() {
		t.Fatal("Fresh switch point should be valid")
	}
	if reg.SwitchPoint(c) != sp {
		t.Error("Valid switch point should be reused")
	}

	reg.Define(c, NewMethod(c, "x", noop))
	if sp.Valid() {
		t.Error("Define should invalidate the class switch point")
	}

	next := reg.SwitchPoint(c)
	if next == sp || next.ID() == sp.ID() {
		t.Error("Expected a fresh switch point with a new id")
	}
	if !next.Valid() {
		t.Error("Fresh switch point should be valid")
	}
}

func TestRegistryInvalidatesSubtypes(t *testing.T) {
	reg := New()
	base := NewClass("Base", nil)
	derived := NewClass("Derived", base)
	other := NewClass("Other", nil)

	spBase := reg.SwitchPoint(base)
	spDerived := reg.SwitchPoint(derived)
	spOther := reg.SwitchPoint(other)

	if fired := reg.Invalidate(base); fired != 2 {
		t.Errorf("Expected 2 points fired, got %d", fired)
	}
	if spBase.Valid() || spDerived.Valid() {
		t.Error("Base and Derived points should be invalid")
	}
	if !spOther.Valid() {
		t.Error("Unrelated class point should stay valid")
	}
	if reg.Stats().Invalidations != 2 {
		t.Errorf("Expected 2 invalidations, got %d", reg.Stats().Invalidations)
	}
}

func TestRegistryInvalidateAll(t *testing.T) {
	reg := New()
	a := reg.SwitchPoint(NewClass("A", nil))
	b := reg.SwitchPoint(NewClass("B", nil))

	if fired := reg.InvalidateAll(); fired != 2 {
		t.Errorf("Expected 2 points fired, got %d", fired)
	}
	if a.Valid() || b.Valid() {
		t.Error("All points should be invalid")
	}
	if reg.Stats().SwitchPoints != 0 {
		t.Errorf("Expected no live switch points, got %d", reg.Stats().SwitchPoints)
	}
}

func TestRegistryAddMethodsReplacesSignature(t *testing.T) {
	reg := New()
	c := NewClass("Greeter", nil)
	first := NewMethod(c, "greet", noop, StringClass)
	reg.Define(c, first, NewMethod(c, "wave", noop))

	second := NewMethod(c, "greet", noop, StringClass)
	meta := reg.AddMethods(c, second)

	ms := meta.Methods("greet")
	if len(ms) != 1 || ms[0] != second {
		t.Errorf("Expected the replacement greet, got %v", ms)
	}
	if len(meta.Methods("wave")) != 1 {
		t.Error("Unrelated methods should survive AddMethods")
	}
}

func TestMetaClassInheritance(t *testing.T) {
	reg := New()
	base := NewClass("Shape", nil)
	circle := NewClass("Circle", base)

	baseArea := NewMethod(base, "area", noop)
	baseName := NewMethod(base, "name", noop)
	reg.Define(base, baseArea, baseName, NewConstructor(base, noop))
	circleArea := NewMethod(circle, "area", noop)
	reg.Define(circle, circleArea)

	meta := reg.MetaFor(circle)
	if ms := meta.Methods("area"); len(ms) != 1 || ms[0] != circleArea {
		t.Errorf("Expected the override to hide Shape.area, got %v", ms)
	}
	if ms := meta.Methods("name"); len(ms) != 1 || ms[0] != baseName {
		t.Errorf("Expected inherited name, got %v", ms)
	}
	if ms := meta.Methods(ConstructorName); len(ms) != 0 {
		t.Errorf("Constructors should not be inherited, got %v", ms)
	}

	names := meta.MethodNames()
	if len(names) != 2 {
		t.Errorf("Expected 2 names, got %v", names)
	}
}

func TestMetaClassProperty(t *testing.T) {
	reg := New()
	c := NewClass("Person", nil)
	c.Fields = []Field{{Name: "age", Type: IntType}}
	getName := NewMethod(c, "getName", noop)
	isActive := NewMethod(c, "isActive", noop)
	isActive.Return = BooleanType
	reg.Define(c, getName, isActive)
	meta := reg.MetaFor(c)

	p := meta.Property("name")
	if p == nil || p.Getter != getName {
		t.Fatalf("Expected getter for name, got %+v", p)
	}
	if !p.ReadOnly() {
		t.Error("Getter-only property should be read-only")
	}
	if p := meta.Property("active"); p == nil || p.Getter != isActive {
		t.Errorf("Expected isActive getter, got %+v", p)
	}
	if p := meta.Property("age"); p == nil || p.Field == nil || p.ReadOnly() {
		t.Errorf("Expected writable field property, got %+v", p)
	}
	if meta.Property("missing") != nil {
		t.Error("Expected nil for unknown property")
	}
}

func TestMetaKinds(t *testing.T) {
	reg := New()
	helper := NewClass("T$Trait$Helper", nil)
	helper.Modifiers |= ModSynthetic
	proxy := NewClass("Proxy", nil, InterceptableClass)

	tests := []struct {
		class    *Class
		expected MetaKind
	}{
		{NewClass("Plain", nil), KindReflective},
		{helper, KindHelper},
		{proxy, KindIntercepting},
		{NullClass, KindNull},
	}
	for _, tt := range tests {
		if got := reg.MetaFor(tt.class).Kind(); got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.class, tt.expected, got)
		}
	}
}

func TestRegistryConcurrentReadsDuringWrites(t *testing.T) {
	reg := New()
	c := NewClass("Hot", nil)
	reg.Define(c, NewMethod(c, "m", noop))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				meta := reg.MetaFor(c)
				if len(meta.Methods("m")) != 1 {
					t.Error("Reader observed a partial meta-object")
					return
				}
				_ = reg.SwitchPoint(c)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		reg.Define(c, NewMethod(c, "m", noop))
	}
	wg.Wait()
}

func TestDefaultHashCode(t *testing.T) {
	reg := New()
	InstallDefaults(reg)
	ms := reg.MetaFor(ObjectClass).Methods("hashCode")
	if len(ms) != 1 {
		t.Fatalf("Expected one hashCode method, got %d", len(ms))
	}
	th := reg.NewThread()
	hash := func(v Value) Value {
		t.Helper()
		h, err := ms[0].Invoke(th, v, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return h
	}
	if hash("abc") != hash("abc") {
		t.Error("Expected equal strings to hash alike")
	}
	if hash("abc") == hash("abd") {
		t.Error("Expected different strings to hash differently")
	}
	if hash(1) == hash("1") {
		t.Error("Expected the Go type to take part in the hash")
	}
}
