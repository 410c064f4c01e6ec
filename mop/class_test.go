package mop

import "testing"

func TestClassDistance(t *testing.T) {
	tests := []struct {
		name     string
		target   *Class
		from     *Class
		expected int
	}{
		{"same class", IntegerClass, IntegerClass, 0},
		{"direct super", NumberClass, IntegerClass, 1},
		{"object", ObjectClass, IntegerClass, 2},
		{"interface through super", ComparableClass, IntegerClass, 2},
		{"direct interface", CharSequenceClass, StringClass, 1},
		{"unrelated", StringClass, IntegerClass, -1},
		{"primitive to wrapper", IntegerClass, IntType, -1},
		{"null class", nil, IntegerClass, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Distance(tt.from); got != tt.expected {
				t.Errorf("Expected distance %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestUserClassHierarchy(t *testing.T) {
	animal := NewClass("Animal", nil)
	dog := NewClass("Dog", animal, ComparableClass)

	if dog.Depth() != 2 {
		t.Errorf("Expected depth 2, got %d", dog.Depth())
	}
	if !dog.IsSubclassOf(animal) {
		t.Error("Dog should be a subclass of Animal")
	}
	if animal.IsSubclassOf(dog) {
		t.Error("Animal should not be a subclass of Dog")
	}
	if !dog.Implements(ComparableClass) {
		t.Error("Dog should implement Comparable")
	}
	if dog.Implements(animal) {
		t.Error("Implements should only accept interfaces")
	}
}

func TestClassFieldLookup(t *testing.T) {
	base := NewClass("Base", nil)
	base.Fields = []Field{{Name: "id", Type: IntType}}
	derived := NewClass("Derived", base)
	derived.Fields = []Field{{Name: "label", Type: StringClass}}

	if f := derived.Field("id"); f == nil || f.Type != IntType {
		t.Errorf("Expected inherited field id, got %v", f)
	}
	if f := derived.Field("label"); f == nil {
		t.Error("Expected declared field label")
	}
	if f := base.Field("label"); f != nil {
		t.Error("Base should not see subclass fields")
	}
}

func TestArrayClasses(t *testing.T) {
	if ArrayOf(StringClass) != ArrayOf(StringClass) {
		t.Error("Array classes should be interned")
	}
	objects := ArrayOf(ObjectClass)
	if !objects.IsAssignableFrom(ArrayOf(StringClass)) {
		t.Error("Object[] should accept String[]")
	}
	if objects.IsAssignableFrom(ArrayOf(IntType)) {
		t.Error("Object[] should not accept int[]")
	}
	if ObjectClass.Distance(ArrayOf(StringClass)) != 1 {
		t.Errorf("Expected array to Object distance 1, got %d", ObjectClass.Distance(ArrayOf(StringClass)))
	}
}

func TestPrimitiveWrappers(t *testing.T) {
	if IntType.Wrapper() != IntegerClass {
		t.Errorf("Expected Integer, got %v", IntType.Wrapper())
	}
	if IntegerClass.Unboxed() != IntType {
		t.Errorf("Expected int, got %v", IntegerClass.Unboxed())
	}
	if StringClass.Wrapper() != StringClass {
		t.Error("Non-primitive should be its own wrapper")
	}
	if CharType.Wrapper() != CharacterClass {
		t.Errorf("Expected Character, got %v", CharType.Wrapper())
	}
}

func TestClassOf(t *testing.T) {
	user := NewClass("User", nil)
	tests := []struct {
		value    Value
		expected *Class
	}{
		{nil, NullClass},
		{true, BooleanClass},
		{1, IntegerClass},
		{int64(1), LongClass},
		{Char('a'), CharacterClass},
		{1.5, DoubleClass},
		{"s", StringClass},
		{GString{Strings: []string{"a", ""}, Values: []Value{1}}, GStringClass},
		{NewObject(user), user},
		{user, ClassClass},
		{[]Value{1}, ListClass},
		{map[string]Value{}, MapClass},
		{NewArray(IntType, 1), ArrayOf(IntType)},
	}
	for _, tt := range tests {
		if got := ClassOf(tt.value); got != tt.expected {
			t.Errorf("ClassOf(%v): expected %v, got %v", tt.value, tt.expected, got)
		}
	}
}

func TestGStringFormat(t *testing.T) {
	g := GString{Strings: []string{"x=", ", y=", ""}, Values: []Value{1, "two"}}
	if g.String() != "x=1, y=two" {
		t.Errorf("Expected 'x=1, y=two', got %q", g.String())
	}
}
