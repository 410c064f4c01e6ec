package mop

import (
	"errors"
	"testing"
)

func selectOn(t *testing.T, reg *Registry, th *Thread, receiver Value, name string, args ...Value) (*Selection, error) {
	t.Helper()
	shape := NewCallShape(nil, name, receiver, args, 0)
	return DefaultSelector{}.Select(th, reg.MetaFor(shape.TargetClass()), shape)
}

func TestSelectExactPrimitiveOverObject(t *testing.T) {
	reg := New()
	c := NewClass("Printer", nil)
	fooInt := NewMethod(c, "foo", noop, IntType)
	fooObj := NewMethod(c, "foo", noop, ObjectClass)
	reg.Define(c, fooObj, fooInt)
	obj := NewObject(c)

	sel, err := selectOn(t, reg, nil, obj, "foo", 5)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != fooInt {
		t.Errorf("Expected foo(int), got %v", sel.Method)
	}
	if sel.Tier != TierExact {
		t.Errorf("Expected exact tier, got %s", sel.Tier)
	}

	sel, err = selectOn(t, reg, nil, obj, "foo", "text")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != fooObj {
		t.Errorf("Expected foo(Object) for a String, got %v", sel.Method)
	}
}

func TestSelectWideningToDecimalOverload(t *testing.T) {
	reg := New()
	c := NewClass("Calc", nil)
	ints := NewMethod(c, "add", noop, IntType, IntType)
	doubles := NewMethod(c, "add", noop, DoubleType, DoubleType)
	reg.Define(c, ints, doubles)

	sel, err := selectOn(t, reg, nil, NewObject(c), "add", 1, 2.0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != doubles {
		t.Fatalf("Expected add(double,double), got %v", sel.Method)
	}
	if sel.Tier != TierWidening {
		t.Errorf("Expected widening tier, got %s", sel.Tier)
	}
	if sel.Args[0].Coerce != CoerceNumber || sel.Args[1].Coerce != CoerceNone {
		t.Errorf("Expected only the first argument to be converted, got %+v", sel.Args)
	}
	if !sel.Coerced() {
		t.Error("Selection should report coercion")
	}
}

func TestSelectNarrowestWidening(t *testing.T) {
	reg := New()
	c := NewClass("Sink", nil)
	toLong := NewMethod(c, "put", noop, LongType)
	toDouble := NewMethod(c, "put", noop, DoubleType)
	reg.Define(c, toDouble, toLong)

	sel, err := selectOn(t, reg, nil, NewObject(c), "put", 7)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != toLong {
		t.Errorf("Expected put(long), got %v", sel.Method)
	}
}

func TestSelectNullArgument(t *testing.T) {
	reg := New()
	c := NewClass("Nulls", nil)
	str := NewMethod(c, "take", noop, StringClass)
	obj := NewMethod(c, "take", noop, ObjectClass)
	prim := NewMethod(c, "only", noop, IntType)
	reg.Define(c, obj, str, prim)

	sel, err := selectOn(t, reg, nil, NewObject(c), "take", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != str {
		t.Errorf("Expected take(String) for null, got %v", sel.Method)
	}

	if _, err := selectOn(t, reg, nil, NewObject(c), "only", nil); !errors.Is(err, ErrNoMatch) {
		t.Errorf("null should not match a primitive parameter, got %v", err)
	}
}

func TestSelectVarargs(t *testing.T) {
	reg := New()
	c := NewClass("Summer", nil)
	sum := NewMethod(c, "sum", noop, ArrayOf(IntType))
	sum.Vararg = true
	reg.Define(c, sum)
	obj := NewObject(c)

	sel, err := selectOn(t, reg, nil, obj, "sum", 1, 2, 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.VarargFrom != 0 || sel.Tier != TierVararg {
		t.Errorf("Expected vararg collapse from 0, got from %d tier %s", sel.VarargFrom, sel.Tier)
	}

	sel, err = selectOn(t, reg, nil, obj, "sum")
	if err != nil {
		t.Fatalf("Select with no arguments: %v", err)
	}
	if sel.VarargFrom != 0 {
		t.Errorf("Expected empty vararg collapse, got %d", sel.VarargFrom)
	}

	sel, err = selectOn(t, reg, nil, obj, "sum", NewArray(IntType, 1, 2))
	if err != nil {
		t.Fatalf("Select with array: %v", err)
	}
	if sel.VarargFrom != -1 || sel.Tier != TierExact {
		t.Errorf("An int[] argument should be passed directly, got from %d tier %s", sel.VarargFrom, sel.Tier)
	}

	if _, err := selectOn(t, reg, nil, obj, "sum", 1, "x"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected no match for a String element, got %v", err)
	}
}

func TestSelectDefaultsAndNullFill(t *testing.T) {
	reg := New()
	c := NewClass("Greeter", nil)
	greet := NewMethod(c, "greet", noop, StringClass, StringClass)
	greet.Params[1].Default = "Hello"
	greet.Params[1].HasDefault = true
	show := NewMethod(c, "show", noop, ObjectClass)
	count := NewMethod(c, "count", noop, IntType)
	reg.Define(c, greet, show, count)
	obj := NewObject(c)

	sel, err := selectOn(t, reg, nil, obj, "greet", "Bob")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Fill) != 1 || sel.Fill[0] != "Hello" || sel.Tier != TierDefault {
		t.Errorf("Expected default fill, got %+v", sel)
	}

	sel, err = selectOn(t, reg, nil, obj, "show")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Fill) != 1 || sel.Fill[0] != nil {
		t.Errorf("Expected null fill, got %+v", sel.Fill)
	}

	if _, err := selectOn(t, reg, nil, obj, "count"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("A primitive parameter should not be null filled, got %v", err)
	}
}

func TestSelectFullArityBeatsDefaults(t *testing.T) {
	reg := New()
	c := NewClass("Opts", nil)
	one := NewMethod(c, "run", noop, StringClass)
	two := NewMethod(c, "run", noop, StringClass, IntType)
	two.Params[1].Default = 1
	two.Params[1].HasDefault = true
	reg.Define(c, two, one)

	sel, err := selectOn(t, reg, nil, NewObject(c), "run", "x")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != one {
		t.Errorf("Expected run(String), got %v", sel.Method)
	}
}

func TestSelectTieIsDeterministic(t *testing.T) {
	reg := New()
	c := NewClass("Texts", nil)
	comparable := NewMethod(c, "use", noop, ComparableClass)
	chars := NewMethod(c, "use", noop, CharSequenceClass)
	reg.Define(c, comparable, chars)

	for i := 0; i < 50; i++ {
		sel, err := selectOn(t, reg, nil, NewObject(c), "use", "s")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if sel.Method != comparable {
			t.Fatalf("Expected the first registered overload, got %v", sel.Method)
		}
	}
}

func TestSelectPrefersDeeperDeclaringClass(t *testing.T) {
	reg := New()
	base := NewClass("Base", nil)
	derived := NewClass("Derived", base)
	onBase := NewMethod(base, "f", noop, StringClass)
	onDerived := NewMethod(derived, "f", noop, CharSequenceClass)
	reg.Define(base, onBase)
	reg.Define(derived, onDerived)

	// String to String is exact while String to CharSequence is assignable.
	sel, err := selectOn(t, reg, nil, NewObject(derived), "f", "s")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != onBase {
		t.Errorf("Expected the exact inherited overload, got %v", sel.Method)
	}

	onDerivedExact := NewMethod(derived, "g", noop, ObjectClass)
	onBaseExact := NewMethod(base, "g", noop, ObjectClass)
	onBaseExact.stamp()
	onDerivedExact.stamp()
	sel2 := &Selection{Method: onDerivedExact}
	sel1 := &Selection{Method: onBaseExact}
	if !better(sel2, sel1) {
		t.Error("Equal scores should prefer the deeper declaring class")
	}
}

func TestSelectStaticReceiver(t *testing.T) {
	reg := New()
	c := NewClass("Util", nil)
	inst := NewMethod(c, "make", noop)
	static := NewStaticMethod(c, "make", noop, IntType)
	ctor := NewConstructor(c, noop)
	reg.Define(c, inst, static, ctor)

	sel, err := selectOn(t, reg, nil, c, "make", 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != static {
		t.Errorf("Expected static make, got %v", sel.Method)
	}
	if _, err := selectOn(t, reg, nil, c, "make"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Instance method should not be selectable through the class, got %v", err)
	}

	sel, err = selectOn(t, reg, nil, c, ConstructorName)
	if err != nil {
		t.Fatalf("Select constructor: %v", err)
	}
	if sel.Method != ctor {
		t.Errorf("Expected constructor, got %v", sel.Method)
	}
}

func TestSelectPrivateOnlyFromThisCall(t *testing.T) {
	reg := New()
	c := NewClass("Secretive", nil)
	hidden := NewMethod(c, "hidden", noop)
	hidden.Modifiers |= ModPrivate
	reg.Define(c, hidden)
	obj := NewObject(c)
	meta := reg.MetaFor(c)

	outside := NewCallShape(nil, "hidden", obj, nil, 0)
	if _, err := (DefaultSelector{}).Select(nil, meta, outside); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Private method should not be visible from outside, got %v", err)
	}

	inside := NewCallShape(c, "hidden", obj, nil, FlagThisCall)
	sel, err := DefaultSelector{}.Select(nil, meta, inside)
	if err != nil || sel.Method != hidden {
		t.Errorf("Expected private method on this-call, got %v (%v)", sel, err)
	}
}

func TestSelectInterceptor(t *testing.T) {
	reg := New()
	c := NewClass("Proxy", nil, InterceptableClass)
	invoke := NewMethod(c, InvokeMethodName, noop, StringClass, ObjectClass)
	direct := NewMethod(c, "direct", noop)
	reg.Define(c, invoke, direct)

	sel, err := selectOn(t, reg, nil, NewObject(c), "direct")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !sel.Intercept || sel.Method != invoke {
		t.Errorf("Expected interception through invokeMethod, got %+v", sel)
	}
}

func TestSelectForcedStaticType(t *testing.T) {
	reg := New()
	c := NewClass("Forced", nil)
	fooInt := NewMethod(c, "foo", noop, IntType)
	fooObj := NewMethod(c, "foo", noop, ObjectClass)
	reg.Define(c, fooInt, fooObj)

	sel, err := selectOn(t, reg, nil, NewObject(c), "foo", As(5, ObjectClass))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != fooObj {
		t.Errorf("Expected foo(Object) for a forced Object argument, got %v", sel.Method)
	}
	if sel.Args[0].Final {
		t.Error("Forced arguments must keep their class guard")
	}
}

func TestSelectArrayReshaping(t *testing.T) {
	reg := New()
	c := NewClass("Joiner", nil)
	join := NewMethod(c, "join", noop, ArrayOf(StringClass))
	reg.Define(c, join)

	sel, err := selectOn(t, reg, nil, NewObject(c), "join", []Value{"a", "b"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Args[0].Coerce != CoerceArray {
		t.Errorf("Expected array reshaping, got %+v", sel.Args[0])
	}
	if _, err := selectOn(t, reg, nil, NewObject(c), "join", []Value{"a", 1}); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected no match for a mixed list, got %v", err)
	}
}

func TestSelectTextToString(t *testing.T) {
	reg := New()
	c := NewClass("Echo", nil)
	echo := NewMethod(c, "echo", noop, StringClass)
	reg.Define(c, echo)

	g := GString{Strings: []string{"hi ", ""}, Values: []Value{1}}
	sel, err := selectOn(t, reg, nil, NewObject(c), "echo", g)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Args[0].Coerce != CoerceToString || sel.Args[0].Distance != 0 {
		t.Errorf("Expected GString to String conversion at distance 0, got %+v", sel.Args[0])
	}
}

func TestSelectCategoryWinsTie(t *testing.T) {
	reg := New()
	c := NewClass("Target", nil)
	own := NewMethod(c, "describe", noop)
	reg.Define(c, own)
	obj := NewObject(c)
	th := reg.NewThread()

	cat := NewCategory("Describing")
	injected := NewMethod(nil, "describe", noop)
	cat.Add(c, injected)
	shout := NewMethod(nil, "shout", noop)
	cat.Add(ObjectClass, shout)

	err := th.Use(cat, func() error {
		sel, err := selectOn(t, reg, th, obj, "describe")
		if err != nil {
			return err
		}
		if sel.Method != injected {
			t.Errorf("Expected category method, got %v", sel.Method)
		}
		sel, err = selectOn(t, reg, th, "str", "shout")
		if err != nil {
			return err
		}
		if sel.Method != shout {
			t.Errorf("Expected category method on a String, got %v", sel.Method)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}

	sel, err := selectOn(t, reg, th, obj, "describe")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Method != own {
		t.Errorf("Expected own method after deactivation, got %v", sel.Method)
	}
	if _, err := selectOn(t, reg, th, "str", "shout"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected no match after deactivation, got %v", err)
	}
}

func TestCategoryUseInvalidatesTargets(t *testing.T) {
	reg := New()
	c := NewClass("Watched", nil)
	th := reg.NewThread()
	cat := NewCategory("Cat")
	cat.Add(c, NewMethod(nil, "extra", noop))

	before := reg.SwitchPoint(c)
	var during *SwitchPoint
	_ = th.Use(cat, func() error {
		if before.Valid() {
			t.Error("Activation should invalidate target switch points")
		}
		if !th.IsActive(cat) {
			t.Error("Category should be active inside Use")
		}
		during = reg.SwitchPoint(c)
		return nil
	})
	if during.Valid() {
		t.Error("Deactivation should invalidate target switch points")
	}
	if th.IsActive(cat) || th.CategoryState() != nil {
		t.Error("Category frame should be popped after Use")
	}
}

func TestMissingMethodSuggestions(t *testing.T) {
	reg := New()
	c := NewClass("Typo", nil)
	reg.Define(c, NewMethod(c, "fooBar", noop), NewMethod(c, "unrelatedName", noop))

	shape := NewCallShape(nil, "fooBaz", NewObject(c), []Value{1}, 0)
	e := NewMissingMethod(reg.MetaFor(c), shape)
	if len(e.Suggestions) != 1 || e.Suggestions[0] != "fooBar" {
		t.Errorf("Expected suggestion fooBar, got %v", e.Suggestions)
	}
	if e.Error() == "" || e.ArgTypes[0] != IntegerClass {
		t.Errorf("Unexpected error %+v", e)
	}

	shape = NewCallShape(nil, "FOOBAR", NewObject(c), nil, 0)
	e = NewMissingMethod(reg.MetaFor(c), shape)
	if len(e.Suggestions) == 0 || e.Suggestions[0] != "fooBar" {
		t.Errorf("Expected case-insensitive suggestion fooBar, got %v", e.Suggestions)
	}
}
