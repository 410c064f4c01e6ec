package mop

// ---------------------------------------------------------------------------
// Categories: thread-scoped method injection
// ---------------------------------------------------------------------------

// Category is a named bundle of methods injected into existing classes while
// it is active on a Thread.
type Category struct {
	Name    string
	methods map[string][]*Method
	targets []*Class
}

// NewCategory creates an empty category.
func NewCategory(name string) *Category {
	return &Category{Name: name, methods: make(map[string][]*Method)}
}

// Add registers m as applicable to receivers assignable to self.
func (c *Category) Add(self *Class, m *Method) *Category {
	m.selfType = self
	m.category = c
	if m.Declaring == nil {
		m.Declaring = self
	}
	m.stamp()
	c.methods[m.Name] = append(c.methods[m.Name], m)
	for _, t := range c.targets {
		if t == self {
			return c
		}
	}
	c.targets = append(c.targets, self)
	return c
}

// Targets returns the classes the category injects methods into.
func (c *Category) Targets() []*Class { return c.targets }

// CategoryFrame is one activation on a thread's category stack. Frames are
// immutable, so a frame pointer identifies the complete set of active
// categories.
type CategoryFrame struct {
	category *Category
	next     *CategoryFrame
}

// Thread is an execution context of the hosted language. It carries the
// thread-local category stack and must be used by one goroutine at a time.
type Thread struct {
	reg   *Registry
	frame *CategoryFrame
}

// NewThread creates a thread with no active categories.
func (r *Registry) NewThread() *Thread {
	return &Thread{reg: r}
}

// Registry returns the registry this thread dispatches through.
func (th *Thread) Registry() *Registry { return th.reg }

// CategoryState returns the current activation frame (nil if none). Bindings
// record it and compare it on every invocation.
func (th *Thread) CategoryState() *CategoryFrame {
	if th == nil {
		return nil
	}
	return th.frame
}

// IsActive reports whether cat is active on this thread.
func (th *Thread) IsActive(cat *Category) bool {
	for f := th.CategoryState(); f != nil; f = f.next {
		if f.category == cat {
			return true
		}
	}
	return false
}

// Use activates cat for the duration of fn. Activation and deactivation fire
// the switch points of every class the category targets.
func (th *Thread) Use(cat *Category, fn func() error) error {
	saved := th.frame
	th.frame = &CategoryFrame{category: cat, next: saved}
	th.invalidateTargets(cat)
	th.reg.log.Debugf("category %s activated", cat.Name)

	defer func() {
		th.frame = saved
		th.invalidateTargets(cat)
		th.reg.log.Debugf("category %s deactivated", cat.Name)
	}()
	return fn()
}

func (th *Thread) invalidateTargets(cat *Category) {
	for _, t := range cat.targets {
		th.reg.Invalidate(t)
	}
}

// CategoryMethods returns active category methods named name applicable to
// receivers of class, innermost activation first.
func (th *Thread) CategoryMethods(class *Class, name string) []*Method {
	var out []*Method
	seen := make(map[*Method]bool)
	for f := th.CategoryState(); f != nil; f = f.next {
		for _, m := range f.category.methods[name] {
			if seen[m] || !m.selfType.IsAssignableFrom(class) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
