package indy

import "sync"

// SiteTable tracks every call site bootstrapped through a Runtime.
type SiteTable struct {
	mu    sync.RWMutex
	sites []*CallSite
}

// NewSiteTable creates an empty table.
func NewSiteTable() *SiteTable {
	return &SiteTable{}
}

// add registers s and assigns its id.
func (t *SiteTable) add(s *CallSite) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.ID = len(t.sites) + 1
	t.sites = append(t.sites, s)
}

// Get returns the site with the given id, or nil.
func (t *SiteTable) Get(id int) *CallSite {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 1 || id > len(t.sites) {
		return nil
	}
	return t.sites[id-1]
}

// Sites returns all registered sites in id order.
func (t *SiteTable) Sites() []*CallSite {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*CallSite, len(t.sites))
	copy(out, t.sites)
	return out
}

// Len returns the number of registered sites.
func (t *SiteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sites)
}

// InvalidateAll discards the binding of every site.
func (t *SiteTable) InvalidateAll() {
	for _, s := range t.Sites() {
		s.Invalidate()
	}
}

// SiteStats returns per-site snapshots in id order.
func (t *SiteTable) SiteStats() []SiteStats {
	sites := t.Sites()
	out := make([]SiteStats, len(sites))
	for i, s := range sites {
		out[i] = s.Stats()
	}
	return out
}

// Stats holds aggregate call-site statistics.
type Stats struct {
	TotalSites   int     // Total number of bootstrapped sites
	Unbound      int     // Sites never called
	Bound        int     // Sites holding a valid binding
	Invalidated  int     // Sites waiting to rebind
	Megamorphic  int     // Sites resolving every call
	TotalHits    uint64  // Calls served by a cached binding
	TotalMisses  uint64  // Calls that had to bind
	TotalRelinks uint64  // Bindings published
	HitRate      float64 // Overall hit rate percentage
	BoundRate    float64 // Percentage of used sites currently bound
}

// Stats gathers aggregate statistics over all sites.
func (t *SiteTable) Stats() Stats {
	var stats Stats
	for _, s := range t.Sites() {
		stats.TotalSites++
		switch s.State() {
		case SiteUnbound:
			stats.Unbound++
		case SiteBound:
			stats.Bound++
		case SiteInvalidated:
			stats.Invalidated++
		case SiteMegamorphic:
			stats.Megamorphic++
		}
		stats.TotalHits += s.hits.Load()
		stats.TotalMisses += s.misses.Load()
		stats.TotalRelinks += s.relinks.Load()
	}

	total := stats.TotalHits + stats.TotalMisses
	if total > 0 {
		stats.HitRate = float64(stats.TotalHits) * 100 / float64(total)
	}
	used := stats.TotalSites - stats.Unbound
	if used > 0 {
		stats.BoundRate = float64(stats.Bound) * 100 / float64(used)
	}
	return stats
}
