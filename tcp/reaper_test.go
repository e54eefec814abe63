package tcp

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitOutstanding(t *testing.T, r *Reaper, want int32) {
	for i := 0; i < 100; i++ {
		if r.Outstanding() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("outstanding workers: %d, want %d", r.Outstanding(), want)
}

func TestReaperReclaimsBurst(t *testing.T) {
	r := MakeReaper(0, nil)
	go r.Run()

	recs := make([]*WorkerRecord, 0, 10)
	for i := 0; i < 10; i++ {
		rec, err := r.Register("peer")
		if err != nil {
			t.Error(err)
			return
		}
		recs = append(recs, rec)
	}
	assert.Equal(t, int32(10), r.Outstanding())

	// near-simultaneous terminations coalesce into fewer wake-ups, the
	// drain must still reclaim every record
	for _, rec := range recs {
		r.Signal(rec, nil)
	}
	waitOutstanding(t, r, 0)
	r.Stop()
}

func TestDuplicateSignals(t *testing.T) {
	r := MakeReaper(0, nil)
	go r.Run()

	rec, err := r.Register("peer")
	if err != nil {
		t.Error(err)
		return
	}
	r.Signal(rec, errors.New("exchange failed"))
	r.Signal(rec, nil) // duplicate, must not clobber the outcome
	waitOutstanding(t, r, 0)
	assert.EqualError(t, rec.Err(), "exchange failed")

	r.Stop()
	assert.Equal(t, int32(0), r.Outstanding())
}

func TestRegisterBound(t *testing.T) {
	r := MakeReaper(2, nil)
	go r.Run()

	a, err := r.Register("a")
	if err != nil {
		t.Error(err)
		return
	}
	_, err = r.Register("b")
	if err != nil {
		t.Error(err)
		return
	}
	_, err = r.Register("c")
	assert.Equal(t, ErrTooManyWorkers, err)

	// reclaiming a worker frees a slot
	r.Signal(a, nil)
	waitOutstanding(t, r, 1)
	_, err = r.Register("d")
	assert.Nil(t, err)
	r.Stop()
}

func TestFinalizerFailureRetried(t *testing.T) {
	var calls int32
	finalizer := func(rec *WorkerRecord) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("bookkeeping unavailable")
		}
		return nil
	}
	r := MakeReaper(0, finalizer)
	go r.Run()

	first, err := r.Register("first")
	if err != nil {
		t.Error(err)
		return
	}
	second, err := r.Register("second")
	if err != nil {
		t.Error(err)
		return
	}

	// the failed reclaim keeps its record and must not stall the loop,
	// a later drain cycle picks it up again
	r.Signal(first, nil)
	r.Signal(second, nil)
	waitOutstanding(t, r, 0)
	assert.True(t, atomic.LoadInt32(&calls) >= 2)
	r.Stop()
}

func TestStopDropsRunningWorkers(t *testing.T) {
	r := MakeReaper(0, nil)
	go r.Run()

	rec, err := r.Register("stuck")
	if err != nil {
		t.Error(err)
		return
	}
	r.Stop()
	assert.Equal(t, int32(0), r.Outstanding())

	_, err = r.Register("late")
	assert.Equal(t, ErrReaperStopped, err)

	// a worker exiting after the forced stop must not block or panic
	r.Signal(rec, nil)
}
