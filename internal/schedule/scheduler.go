// Package schedule provides the minimal in-process scheduler used for
// the expiry reconciliation sweep and for one-off jobs such as
// showtime reminders.  Entries are kept in a min-heap ordered by fire
// time and drained by a single dispatcher goroutine; cancelling a
// task removes its entry before it fires.
package schedule

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"
)

// Func is the unit of scheduled work.  The context is the one passed
// to Run and is cancelled when the scheduler shuts down.
type Func func(ctx context.Context)

type entry struct {
	fireAt time.Time
	seq    uint64
	name   string
	fn     Func
	every  time.Duration // re-arm interval; 0 for one-off tasks
	index  int           // heap position, -1 once removed
}

// Task is a handle to a scheduled entry.
type Task struct {
	s *Scheduler
	e *entry
}

// Cancel removes the task before it fires.  It reports whether the
// entry was still pending; cancelling a recurring task stops future
// runs.
func (t *Task) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.e.index < 0 {
		return false
	}
	heap.Remove(&t.s.entries, t.e.index)
	t.s.wakeLocked()
	return true
}

// Scheduler owns the entry heap.  Create with New, then call Run in a
// goroutine; At and Every may be called before or after Run.
type Scheduler struct {
	mu      sync.Mutex
	entries entryHeap
	seq     uint64
	wake    chan struct{}
}

// New returns an idle scheduler.
func New() *Scheduler {
	return &Scheduler{wake: make(chan struct{}, 1)}
}

// At schedules fn to run once at the given time.  Times in the past
// fire on the next dispatcher pass.
func (s *Scheduler) At(fireAt time.Time, name string, fn Func) *Task {
	return s.add(fireAt, 0, name, fn)
}

// Every schedules fn to run now + d and then repeatedly every d.
func (s *Scheduler) Every(d time.Duration, name string, fn Func) *Task {
	return s.add(time.Now().Add(d), d, name, fn)
}

func (s *Scheduler) add(fireAt time.Time, every time.Duration, name string, fn Func) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e := &entry{fireAt: fireAt, seq: s.seq, name: name, fn: fn, every: every}
	heap.Push(&s.entries, e)
	s.wakeLocked()
	return &Task{s: s, e: e}
}

func (s *Scheduler) wakeLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run dispatches entries until ctx is cancelled.  Each task executes
// in its own goroutine so a slow task never delays the next entry; a
// panicking task is logged and the dispatcher keeps running.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		now := time.Now()
		for len(s.entries) > 0 && !s.entries[0].fireAt.After(now) {
			e := s.entries[0]
			if e.every > 0 {
				// Re-arm in place so Cancel handles stay valid.
				e.fireAt = now.Add(e.every)
				heap.Fix(&s.entries, 0)
			} else {
				heap.Pop(&s.entries)
			}
			go s.invoke(ctx, e.name, e.fn)
		}
		var timer *time.Timer
		var fire <-chan time.Time
		if len(s.entries) > 0 {
			timer = time.NewTimer(time.Until(s.entries[0].fireAt))
			fire = timer.C
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, name string, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: task %s panicked: %v", name, r)
		}
	}()
	fn(ctx)
}

// entryHeap orders entries by fire time, breaking ties by insertion
// order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
