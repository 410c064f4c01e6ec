package indy

import (
	"sync/atomic"

	"github.com/chazu/dynlink/mop"
)

// SiteState is the cache state of a call site.
//
// Sites move Unbound -> Bound on first call, Bound -> Invalidated when a
// guard fails or the site is invalidated, and Invalidated -> Bound on the
// next successful bind. A site that relinks more often than the configured
// threshold becomes Megamorphic and resolves every call without caching.
type SiteState uint32

const (
	SiteUnbound SiteState = iota
	SiteBound
	SiteInvalidated
	SiteMegamorphic
)

func (s SiteState) String() string {
	switch s {
	case SiteUnbound:
		return "unbound"
	case SiteBound:
		return "bound"
	case SiteInvalidated:
		return "invalidated"
	case SiteMegamorphic:
		return "megamorphic"
	}
	return "unknown"
}

// CallSite is one source-level invocation point. It is safe for concurrent
// use: the current Binding is published with a single atomic swap, so a
// caller observes either the previous or the next Binding in full.
type CallSite struct {
	ID     int
	Kind   SiteKind
	Type   SiteType
	Sender *mop.Class

	binding    atomic.Pointer[Binding]
	generation atomic.Uint64
	state      atomic.Uint32

	hits     atomic.Uint64
	misses   atomic.Uint64
	relinks  atomic.Uint64
	failures atomic.Uint64

	rt *Runtime
}

// Call dispatches through the site with the sender it was bootstrapped for.
func (s *CallSite) Call(th *mop.Thread, name string, receiver mop.Value, args ...mop.Value) (mop.Value, error) {
	return SelectMethod(th, s, s.Sender, name, receiver, args)
}

// State returns the current cache state.
func (s *CallSite) State() SiteState { return SiteState(s.state.Load()) }

// Binding returns the currently published binding, or nil.
func (s *CallSite) Binding() *Binding { return s.binding.Load() }

// Generation returns the current publication generation.
func (s *CallSite) Generation() uint64 { return s.generation.Load() }

// Invalidate discards the current binding; the next call rebinds.
func (s *CallSite) Invalidate() {
	s.generation.Add(1)
	s.state.CompareAndSwap(uint32(SiteBound), uint32(SiteInvalidated))
}

func (s *CallSite) dispatch(th *mop.Thread, shape *mop.CallShape) (mop.Value, error) {
	if bd := s.binding.Load(); bd != nil && bd.generation == s.generation.Load() && bd.Guard(th, shape) {
		s.hits.Add(1)
		v, err := bd.Invoke(th, shape)
		if err != errStaleBinding {
			return v, err
		}
	}
	return s.relink(th, shape)
}

// relink re-runs the binder for shape, publishes the result unless the site
// is megamorphic, and completes the call through it.
func (s *CallSite) relink(th *mop.Thread, shape *mop.CallShape) (mop.Value, error) {
	s.misses.Add(1)
	gen := s.generation.Load()
	old := s.binding.Load()
	if old != nil {
		s.state.CompareAndSwap(uint32(SiteBound), uint32(SiteInvalidated))
	}

	bd, err := s.rt.Binder.Bind(s, th, shape)
	if err != nil {
		s.failures.Add(1)
		s.rt.failed(s, shape, err)
		return nil, err
	}
	if s.State() != SiteMegamorphic {
		s.publish(old, bd, gen)
	}

	v, err := bd.Invoke(th, shape)
	if err == errStaleBinding {
		return nil, &mop.InternalBindingError{Op: "invoke " + shape.Name, Err: err}
	}
	return v, err
}

// publish installs bd under gen, the generation observed before binding. A
// binding resolved across an Invalidate keeps the older generation and is
// discarded on its next use.
func (s *CallSite) publish(old, bd *Binding, gen uint64) {
	next := bd.withGeneration(gen)
	if !s.binding.CompareAndSwap(old, next) {
		// A concurrent relink published first; its binding serves as well.
		return
	}
	n := s.relinks.Add(1)
	s.state.Store(uint32(SiteBound))
	s.rt.relinked(s, next)

	if limit := s.rt.opts.MegamorphicThreshold; limit > 0 && n >= uint64(limit) {
		s.state.Store(uint32(SiteMegamorphic))
		s.binding.Store(nil)
		s.rt.log.Infof("site %d (%s) became megamorphic after %d relinks", s.ID, s.Kind, n)
	}
}

// SiteStats is a snapshot of one call site's counters.
type SiteStats struct {
	ID         int
	Kind       string
	Sender     string
	Target     string
	State      string
	Generation uint64
	Hits       uint64
	Misses     uint64
	Relinks    uint64
	Failures   uint64
}

// HitRate returns the hit rate as a percentage (0-100).
func (st SiteStats) HitRate() float64 {
	total := st.Hits + st.Misses
	if total == 0 {
		return 0
	}
	return float64(st.Hits) * 100 / float64(total)
}

// Stats returns a snapshot of the site's counters.
func (s *CallSite) Stats() SiteStats {
	st := SiteStats{
		ID:         s.ID,
		Kind:       s.Kind.String(),
		Sender:     s.Sender.String(),
		State:      s.State().String(),
		Generation: s.generation.Load(),
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Relinks:    s.relinks.Load(),
		Failures:   s.failures.Load(),
	}
	if bd := s.binding.Load(); bd != nil {
		st.Target = bd.target
	}
	return st
}
