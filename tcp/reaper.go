package tcp

/*
 * The reaper keeps the books on dispatched workers. Dispatch registers a
 * record, worker termination signals it, and a dedicated loop reclaims
 * terminated records without ever blocking dispatch or the workers.
 */

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ackio/ackd/lib/idgenerator"
	"github.com/ackio/ackd/lib/logger"
)

var (
	// ErrTooManyWorkers reports a dispatch above the outstanding-worker bound
	ErrTooManyWorkers = errors.New("too many outstanding workers")
	// ErrReaperStopped reports a dispatch after the reaper has been stopped
	ErrReaperStopped = errors.New("reaper is stopped")
)

const (
	statusRunning int32 = iota
	statusTerminated
	statusReclaimed
)

// WorkerRecord is the bookkeeping for one dispatched worker: an opaque
// identifier and the dispatch timestamp. Created on dispatch, removed by
// the reaper after the worker terminated, exactly once.
type WorkerRecord struct {
	ID        int64
	Peer      string
	StartedAt time.Time

	status int32
	once   sync.Once
	err    error
}

// Terminated reports whether the worker has signalled its termination
func (rec *WorkerRecord) Terminated() bool {
	return atomic.LoadInt32(&rec.status) >= statusTerminated
}

// Err returns the worker's outcome, non-nil for a failed exchange.
// Only meaningful once Terminated reports true.
func (rec *WorkerRecord) Err() error {
	return rec.err
}

// Reaper observes worker terminations and reclaims their records. A
// notification only means "at least one worker finished": near-simultaneous
// terminations coalesce into a single wake-up, so every wake-up drains all
// terminated records before suspending again.
type Reaper struct {
	records     sync.Map // worker id -> *WorkerRecord
	ids         *idgenerator.IDGenerator
	max         int32
	outstanding int32
	stopped     int32

	// finalizer runs before a record is reclaimed; an error keeps the
	// record for a later drain cycle
	finalizer func(*WorkerRecord) error

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

// MakeReaper creates a Reaper. max bounds the outstanding workers (0 means
// no bound), finalizer may be nil.
func MakeReaper(max int32, finalizer func(*WorkerRecord) error) *Reaper {
	return &Reaper{
		ids:       idgenerator.MakeGenerator(strconv.Itoa(os.Getpid())),
		max:       max,
		finalizer: finalizer,
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Register creates the record for a newly dispatched worker and counts it
// outstanding. It fails when the bound is reached or the reaper is stopped,
// and the caller must then drop the connection itself.
func (r *Reaper) Register(peer string) (*WorkerRecord, error) {
	if atomic.LoadInt32(&r.stopped) == 1 {
		return nil, ErrReaperStopped
	}
	n := atomic.AddInt32(&r.outstanding, 1)
	if r.max > 0 && n > r.max {
		atomic.AddInt32(&r.outstanding, -1)
		return nil, ErrTooManyWorkers
	}
	rec := &WorkerRecord{
		ID:        r.ids.NextID(),
		Peer:      peer,
		StartedAt: time.Now(),
	}
	r.records.Store(rec.ID, rec)
	if atomic.LoadInt32(&r.stopped) == 1 {
		// lost the race against Stop, roll back unless its sweep already
		// removed the record
		if _, loaded := r.records.LoadAndDelete(rec.ID); loaded {
			atomic.AddInt32(&r.outstanding, -1)
		}
		return nil, ErrReaperStopped
	}
	return rec, nil
}

// Signal marks the worker terminated and wakes the reap loop. Safe to call
// from any goroutine, never blocks, and duplicate signals for the same
// record are no-ops.
func (r *Reaper) Signal(rec *WorkerRecord, err error) {
	if rec == nil {
		return
	}
	rec.once.Do(func() {
		rec.err = err
		atomic.StoreInt32(&rec.status, statusTerminated)
	})
	select {
	case r.notify <- struct{}{}:
	default:
		// a wake-up is already pending, it covers this termination too
	}
}

// Run consumes termination notifications until Stop. It always drains every
// pending termination per wake-up rather than assuming one notification per
// worker.
func (r *Reaper) Run() {
	for {
		select {
		case <-r.notify:
			r.drain()
		case <-r.stop:
			r.drain()
			close(r.done)
			return
		}
	}
}

// drain reclaims every terminated record. It keeps sweeping until a pass
// reclaims nothing new, then the caller may suspend again.
func (r *Reaper) drain() {
	for {
		reclaimed := 0
		r.records.Range(func(key, val interface{}) bool {
			rec := val.(*WorkerRecord)
			if !rec.Terminated() {
				return true
			}
			if r.finalizer != nil {
				if err := r.finalizer(rec); err != nil {
					// keep the record, retry on a later drain cycle
					logger.Errorf("reclaim worker %v: %v", rec.ID, err)
					return true
				}
			}
			if atomic.CompareAndSwapInt32(&rec.status, statusTerminated, statusReclaimed) {
				r.records.Delete(key)
				atomic.AddInt32(&r.outstanding, -1)
				reclaimed++
				if err := rec.Err(); err != nil {
					logger.Warnf("reaped worker %v (%s): %v", rec.ID, rec.Peer, err)
				} else {
					logger.Debugf("reaped worker %v (%s) after %s", rec.ID, rec.Peer, time.Since(rec.StartedAt))
				}
			}
			return true
		})
		if reclaimed == 0 {
			return
		}
	}
}

// Stop ends the reap loop after a final drain, then drops whatever records
// remain, still-running workers included. Blocks until the books are closed,
// repeated calls are no-ops.
func (r *Reaper) Stop() {
	if !atomic.CompareAndSwapInt32(&r.stopped, 0, 1) {
		<-r.done
		return
	}
	close(r.stop)
	<-r.done
	r.records.Range(func(key, val interface{}) bool {
		if _, loaded := r.records.LoadAndDelete(key); !loaded {
			return true
		}
		rec := val.(*WorkerRecord)
		atomic.AddInt32(&r.outstanding, -1)
		if rec.Terminated() {
			logger.Warnf("dropping worker %v with unreclaimed record", rec.ID)
		} else {
			logger.Warnf("dropping worker %v still running since %s", rec.ID, rec.StartedAt.Format(time.RFC3339))
		}
		return true
	})
}

// Outstanding reports the number of workers dispatched but not yet reclaimed
func (r *Reaper) Outstanding() int32 {
	return atomic.LoadInt32(&r.outstanding)
}
