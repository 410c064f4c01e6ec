package mop

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrNoMatch is returned by a Selector when no candidate accepts the call shape.
var ErrNoMatch = errors.New("no matching method")

// ErrNotInstantiable reports a constructor call on an abstract class or interface.
var ErrNotInstantiable = errors.New("class cannot be instantiated")

// MissingMethodError reports a call no method and no fallback could serve.
type MissingMethodError struct {
	Name        string
	Receiver    *Class
	Static      bool
	ArgTypes    []*Class
	Suggestions []string
}

func (e *MissingMethodError) Error() string {
	var sb strings.Builder
	if e.Static {
		sb.WriteString("no signature of static method: ")
	} else {
		sb.WriteString("no signature of method: ")
	}
	sb.WriteString(e.Receiver.String())
	sb.WriteByte('.')
	sb.WriteString(e.Name)
	sb.WriteString("() is applicable for argument types: (")
	for i, t := range e.ArgTypes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	if len(e.Suggestions) > 0 {
		sb.WriteString("; possible solutions: ")
		sb.WriteString(strings.Join(e.Suggestions, ", "))
	}
	return sb.String()
}

// MissingPropertyError reports a property get or set with no getter, setter or field.
type MissingPropertyError struct {
	Name string
	Type *Class
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("no such property: %s for class: %s", e.Name, e.Type)
}

// ReadOnlyPropertyError reports a write to a property without a setter.
type ReadOnlyPropertyError struct {
	Name string
	Type *Class
}

func (e *ReadOnlyPropertyError) Error() string {
	return fmt.Sprintf("cannot set read-only property: %s for class: %s", e.Name, e.Type)
}

// InternalBindingError is an unrecoverable failure of the binding machinery.
type InternalBindingError struct {
	Op  string
	Err error
}

func (e *InternalBindingError) Error() string {
	return fmt.Sprintf("internal binding failure: %s: %v", e.Op, e.Err)
}

func (e *InternalBindingError) Unwrap() error { return e.Err }

// InvocationError is the uniform wrapper reflective method bodies report
// failures through. Call-site bindings strip it before returning to callers.
type InvocationError struct {
	Err error
}

func (e *InvocationError) Error() string { return "invocation failed: " + e.Err.Error() }

func (e *InvocationError) Unwrap() error { return e.Err }

// NewMissingMethod builds a MissingMethodError for shape against meta,
// filling in nearest-miss suggestions.
func NewMissingMethod(meta Dispatchable, shape *CallShape) *MissingMethodError {
	e := &MissingMethodError{
		Name:     shape.Name,
		Receiver: meta.Class(),
		Static:   shape.Static,
	}
	for _, a := range shape.Args {
		e.ArgTypes = append(e.ArgTypes, a.SelectionClass())
	}
	e.Suggestions = suggest(meta, shape.Name)
	return e
}

const (
	maxSuggestions  = 3
	maxEditDistance = 3
)

// suggest lists same-name signatures first, then similarly named methods.
func suggest(meta Dispatchable, name string) []string {
	var out []string
	for _, m := range meta.Methods(name) {
		out = append(out, m.Signature())
		if len(out) == maxSuggestions {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	type near struct {
		name string
		dist int
	}
	var candidates []near
	for _, n := range meta.MethodNames() {
		if n == name || n == ConstructorName {
			continue
		}
		if d := levenshtein.ComputeDistance(strings.ToLower(n), strings.ToLower(name)); d <= maxEditDistance {
			candidates = append(candidates, near{n, d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})
	for _, c := range candidates {
		out = append(out, c.name)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
