package mop

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Registry: process-wide meta-object state
// ---------------------------------------------------------------------------

// Registry maps runtime classes to their meta-objects and invalidation
// switch points.
//
// Reads load an immutable snapshot and never block. Writers serialize on a
// mutex, copy the snapshot, and publish the copy with a single atomic store,
// so a reader sees either the old or the new state and never a mix.
type Registry struct {
	mu    sync.Mutex
	state atomic.Pointer[registryState]

	pointIDs      atomic.Uint64
	invalidations atomic.Uint64

	log commonlog.Logger
}

type registryState struct {
	metas  map[*Class]*MetaClass
	points map[*Class]*SwitchPoint
	byName map[string]*Class
}

func (s *registryState) clone() *registryState {
	next := &registryState{
		metas:  make(map[*Class]*MetaClass, len(s.metas)+1),
		points: make(map[*Class]*SwitchPoint, len(s.points)+1),
		byName: make(map[string]*Class, len(s.byName)+1),
	}
	for k, v := range s.metas {
		next.metas[k] = v
	}
	for k, v := range s.points {
		next.points[k] = v
	}
	for k, v := range s.byName {
		next.byName[k] = v
	}
	return next
}

// New creates an empty registry. Meta-objects are created lazily on first use.
func New() *Registry {
	r := &Registry{log: commonlog.GetLogger("dynlink.mop")}
	r.state.Store(&registryState{
		metas:  map[*Class]*MetaClass{},
		points: map[*Class]*SwitchPoint{},
		byName: map[string]*Class{},
	})
	return r
}

// MetaFor returns the current meta-object for class, creating an empty one on
// first use.
func (r *Registry) MetaFor(class *Class) *MetaClass {
	if m, ok := r.state.Load().metas[class]; ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state.Load()
	if m, ok := st.metas[class]; ok {
		return m
	}
	m := newMetaClass(r, class, nil)
	next := st.clone()
	next.metas[class] = m
	next.byName[class.Name] = class
	r.state.Store(next)
	return m
}

// NullMeta returns the meta-object used for null receivers.
func (r *Registry) NullMeta() *MetaClass {
	return r.MetaFor(NullClass)
}

// Define replaces the meta-object of class wholesale with one declaring
// methods. Call sites that depend on class or any of its subtypes are
// invalidated.
func (r *Registry) Define(class *Class, methods ...*Method) *MetaClass {
	r.mu.Lock()
	st := r.state.Load()
	_, existed := st.metas[class]
	m := newMetaClass(r, class, methods)
	next := st.clone()
	next.metas[class] = m
	next.byName[class.Name] = class
	fired := r.invalidateLocked(next, class)
	r.state.Store(next)
	r.mu.Unlock()

	if existed {
		r.log.Infof("replaced meta-object for %s, %d switch points invalidated", m.describe(), fired)
	} else {
		r.log.Debugf("defined meta-object for %s with %d methods", m.describe(), len(methods))
	}
	return m
}

// AddMethods publishes a copy of the class's meta-object with methods added.
// A method with the same signature as an existing declaration replaces it.
func (r *Registry) AddMethods(class *Class, methods ...*Method) *MetaClass {
	current := r.MetaFor(class)

	r.mu.Lock()
	st := r.state.Load()
	if latest, ok := st.metas[class]; ok {
		current = latest
	}
	m := current.withMethods(methods)
	next := st.clone()
	next.metas[class] = m
	fired := r.invalidateLocked(next, class)
	r.state.Store(next)
	r.mu.Unlock()

	r.log.Debugf("added %d methods to %s, %d switch points invalidated", len(methods), class.Name, fired)
	return m
}

// SwitchPoint returns the valid switch point guarding bindings that depend on
// the meta-object state of class. A fresh point is allocated after every
// invalidation; ids are never reused.
func (r *Registry) SwitchPoint(class *Class) *SwitchPoint {
	if sp, ok := r.state.Load().points[class]; ok && sp.Valid() {
		return sp
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state.Load()
	if sp, ok := st.points[class]; ok && sp.Valid() {
		return sp
	}
	sp := newSwitchPoint(r.pointIDs.Add(1), class)
	next := st.clone()
	next.points[class] = sp
	r.state.Store(next)
	return sp
}

// Invalidate fires the switch points of class and all of its subtypes.
func (r *Registry) Invalidate(class *Class) int {
	r.mu.Lock()
	next := r.state.Load().clone()
	fired := r.invalidateLocked(next, class)
	r.state.Store(next)
	r.mu.Unlock()

	if fired > 0 {
		r.log.Debugf("invalidated %d switch points for %s", fired, class.Name)
	}
	return fired
}

// InvalidateAll fires every switch point in the registry.
func (r *Registry) InvalidateAll() int {
	r.mu.Lock()
	next := r.state.Load().clone()
	fired := 0
	for k, sp := range next.points {
		if sp.invalidate() {
			fired++
		}
		delete(next.points, k)
	}
	r.invalidations.Add(uint64(fired))
	r.state.Store(next)
	r.mu.Unlock()

	r.log.Infof("invalidated all %d switch points", fired)
	return fired
}

// invalidateLocked fires and removes points for class and its subtypes in next.
// r.mu must be held.
func (r *Registry) invalidateLocked(next *registryState, class *Class) int {
	fired := 0
	for k, sp := range next.points {
		if k == class || class.IsAssignableFrom(k) {
			if sp.invalidate() {
				fired++
			}
			delete(next.points, k)
		}
	}
	r.invalidations.Add(uint64(fired))
	return fired
}

// Lookup finds a registered class by name.
func (r *Registry) Lookup(name string) *Class {
	return r.state.Load().byName[name]
}

// Classes returns every class with a meta-object, sorted by name.
func (r *Registry) Classes() []*Class {
	st := r.state.Load()
	out := make([]*Class, 0, len(st.metas))
	for c := range st.metas {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegistryStats summarizes registry contents.
type RegistryStats struct {
	Classes       int
	Methods       int
	SwitchPoints  int
	Invalidations uint64
}

// Stats returns a snapshot summary.
func (r *Registry) Stats() RegistryStats {
	st := r.state.Load()
	stats := RegistryStats{
		Classes:       len(st.metas),
		SwitchPoints:  len(st.points),
		Invalidations: r.invalidations.Load(),
	}
	for _, m := range st.metas {
		for _, ms := range m.methods {
			stats.Methods += len(ms)
		}
	}
	return stats
}
