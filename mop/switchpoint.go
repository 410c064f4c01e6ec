package mop

import "sync/atomic"

// SwitchPoint is a one-way validity flag shared by every binding that depends
// on the meta-object state of one class. Once invalidated it never becomes
// valid again; the registry hands out a new point instead.
type SwitchPoint struct {
	id    uint64
	class *Class
	valid atomic.Bool
}

func newSwitchPoint(id uint64, class *Class) *SwitchPoint {
	sp := &SwitchPoint{id: id, class: class}
	sp.valid.Store(true)
	return sp
}

// ID returns the unique id of this point.
func (sp *SwitchPoint) ID() uint64 { return sp.id }

// Class returns the class whose state the point tracks.
func (sp *SwitchPoint) Class() *Class { return sp.class }

// Valid reports whether the point has not fired.
func (sp *SwitchPoint) Valid() bool { return sp.valid.Load() }

// invalidate fires the point, reporting whether this call flipped it.
func (sp *SwitchPoint) invalidate() bool {
	return sp.valid.CompareAndSwap(true, false)
}
