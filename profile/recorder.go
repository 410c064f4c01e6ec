package profile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/dynlink/indy"
	"github.com/chazu/dynlink/mop"
)

// Recorder is an indy.Observer that queues dispatch failures and writes them
// to a Store from a background goroutine, and periodically snapshots the
// runtime's site statistics.
type Recorder struct {
	store   *Store
	rt      *indy.Runtime
	queue   chan Failure
	dropped atomic.Uint64
	relinks atomic.Uint64

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// DefaultQueueSize is the number of failures buffered before new ones are
// dropped.
const DefaultQueueSize = 1024

// NewRecorder attaches a recorder to rt. A zero interval disables periodic
// site snapshots; Close always takes a final one.
func NewRecorder(store *Store, rt *indy.Runtime, interval time.Duration) *Recorder {
	r := &Recorder{
		store: store,
		rt:    rt,
		queue: make(chan Failure, DefaultQueueSize),
		stop:  make(chan struct{}),
	}
	rt.Observe(r)

	r.wg.Add(1)
	go r.run(interval)
	return r
}

// Relinked implements indy.Observer.
func (r *Recorder) Relinked(site *indy.CallSite, b *indy.Binding) {
	r.relinks.Add(1)
}

// Failed implements indy.Observer. It never blocks: when the queue is full the
// failure is counted and dropped.
func (r *Recorder) Failed(site *indy.CallSite, shape *mop.CallShape, err error) {
	f := Failure{
		SiteID:   site.ID,
		Name:     shape.Name,
		Receiver: shape.ReceiverClass.String(),
		Message:  err.Error(),
		At:       time.Now(),
	}
	select {
	case r.queue <- f:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of failures not recorded because the queue was
// full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Relinks returns the number of bindings published since the recorder was
// attached.
func (r *Recorder) Relinks() uint64 { return r.relinks.Load() }

func (r *Recorder) run(interval time.Duration) {
	defer r.wg.Done()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case f := <-r.queue:
			r.write(f)
		case <-tick:
			r.snapshot()
		case <-r.stop:
			for {
				select {
				case f := <-r.queue:
					r.write(f)
				default:
					r.snapshot()
					return
				}
			}
		}
	}
}

func (r *Recorder) write(f Failure) {
	if err := r.store.RecordFailure(context.Background(), f); err != nil {
		r.store.log.Errorf("recording failure at site %d: %s", f.SiteID, err)
	}
}

func (r *Recorder) snapshot() {
	if err := r.store.RecordSites(context.Background(), r.rt.Sites.SiteStats()); err != nil {
		r.store.log.Errorf("recording sites: %s", err)
	}
}

// Close drains queued failures, writes a final site snapshot and stops the
// background goroutine. It does not close the Store.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
	})
}
