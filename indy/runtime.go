package indy

import (
	"errors"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/dynlink/mop"
)

// DefaultMegamorphicThreshold is the number of relinks after which a site
// stops caching.
const DefaultMegamorphicThreshold = 10000

// SiteOptions tune call-site caching.
type SiteOptions struct {
	// MegamorphicThreshold is the relink count after which a site resolves
	// every call without publishing a binding. Zero disables the limit.
	MegamorphicThreshold int
}

// DefaultSiteOptions returns the options used when none are configured.
func DefaultSiteOptions() SiteOptions {
	return SiteOptions{MegamorphicThreshold: DefaultMegamorphicThreshold}
}

// Observer receives call-site events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Relinked(site *CallSite, b *Binding)
	Failed(site *CallSite, shape *mop.CallShape, err error)
}

// Runtime ties a registry, a binder and the table of bootstrapped sites
// together.
type Runtime struct {
	Registry *mop.Registry
	Binder   *Binder
	Sites    *SiteTable

	opts      SiteOptions
	mu        sync.RWMutex
	observers []Observer
	log       commonlog.Logger
}

// NewRuntime creates a runtime over reg using the default selector.
func NewRuntime(reg *mop.Registry, opts SiteOptions) *Runtime {
	return &Runtime{
		Registry: reg,
		Binder:   NewBinder(reg, nil),
		Sites:    NewSiteTable(),
		opts:     opts,
		log:      commonlog.GetLogger("dynlink.indy"),
	}
}

// Options returns the site options in effect.
func (rt *Runtime) Options() SiteOptions { return rt.opts }

// Observe registers o for call-site events.
func (rt *Runtime) Observe(o Observer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.observers = append(rt.observers, o)
}

func (rt *Runtime) snapshotObservers() []Observer {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.observers
}

func (rt *Runtime) relinked(s *CallSite, b *Binding) {
	for _, o := range rt.snapshotObservers() {
		o.Relinked(s, b)
	}
}

func (rt *Runtime) failed(s *CallSite, shape *mop.CallShape, err error) {
	rt.log.Debugf("site %d %s %s failed: %s", s.ID, s.Kind, shape.Name, err)
	for _, o := range rt.snapshotObservers() {
		o.Failed(s, shape, err)
	}
}

// Lookup is the bootstrap context of one compiled class: the class whose
// code contains the call sites.
type Lookup struct {
	Sender *mop.Class
	rt     *Runtime
}

// Lookup returns the bootstrap context for sender.
func (rt *Runtime) Lookup(sender *mop.Class) *Lookup {
	return &Lookup{Sender: sender, rt: rt}
}

// Runtime returns the runtime the lookup bootstraps into.
func (l *Lookup) Runtime() *Runtime { return l.rt }

// Bootstrap creates the call site for one invocation instruction. siteName
// is one of "invoke", "init", "getProperty" or "setProperty".
func Bootstrap(lookup *Lookup, siteName string, siteType SiteType) (*CallSite, error) {
	if lookup == nil || lookup.rt == nil {
		return nil, &mop.InternalBindingError{Op: "bootstrap " + siteName, Err: errors.New("lookup has no runtime")}
	}
	kind, err := ParseSiteKind(siteName)
	if err != nil {
		return nil, err
	}
	site := &CallSite{
		Kind:   kind,
		Type:   siteType,
		Sender: lookup.Sender,
		rt:     lookup.rt,
	}
	lookup.rt.Sites.add(site)
	return site, nil
}

// SelectMethod performs one call through site: it reuses the cached binding
// when its guards accept the call and rebinds otherwise.
func SelectMethod(th *mop.Thread, site *CallSite, sender *mop.Class, name string, receiver mop.Value, args []mop.Value) (mop.Value, error) {
	if site == nil {
		return nil, &mop.InternalBindingError{Op: "call " + name, Err: errors.New("nil call site")}
	}
	shape := mop.NewCallShape(sender, name, receiver, args, site.Type.Flags)
	return site.dispatch(th, shape)
}
