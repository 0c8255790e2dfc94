// Package coro is the single-threaded cooperative scheduler behind
// async/await. Coroutines are thunks on a FIFO run queue; a suspension
// point re-enqueues a resume thunk instead of blocking the thread, so the
// only blocking the scheduler ever does is a bounded park while every
// coroutine is waiting on a pending future.
//
// The scheduler owns no locks: all queue traffic happens on the one
// thread that calls Run or AwaitScope. Futures complete on pool worker
// threads and are observed here by polling, with the process-wide
// notifier bounding the poll latency.
package coro

import (
	"time"

	"bolide_go/pkg/runtime"
)

// parkInterval bounds how long the scheduler sleeps when every coroutine
// is suspended; future completion normally wakes it through the notifier
// well before this elapses.
const parkInterval = 100 * time.Millisecond

// Scheduler manages cooperative coroutines on its owning thread.
type Scheduler struct {
	runQueue []func()
	running  bool
}

var sched = &Scheduler{}

// Get returns the process scheduler for the calling thread tier.
func Get() *Scheduler { return sched }

// Spawn enqueues a ready coroutine.
func (s *Scheduler) Spawn(thunk func()) {
	s.runQueue = append(s.runQueue, thunk)
}

// Yield reschedules the current coroutine behind the rest of the queue.
func (s *Scheduler) Yield(resume func()) {
	s.runQueue = append(s.runQueue, resume)
}

// step runs one ready coroutine. Reports whether any work was available.
func (s *Scheduler) step() bool {
	if len(s.runQueue) == 0 {
		return false
	}
	thunk := s.runQueue[0]
	s.runQueue = s.runQueue[1:]
	thunk()
	return true
}

// Run drives the queue until it is empty.
func (s *Scheduler) Run() {
	s.running = true
	defer func() { s.running = false }()
	for s.step() {
	}
}

// Running reports whether the scheduler is inside Run.
func (s *Scheduler) Running() bool { return s.running }

// Await suspends until f completes, then resumes with its result. The
// continuation runs on the scheduler thread.
func (s *Scheduler) Await(f *runtime.Future, k func(runtime.Slot)) {
	if f == nil {
		s.Spawn(func() { k(0) })
		return
	}
	var poll func()
	poll = func() {
		if f.Completed() {
			k(f.Await())
			return
		}
		if len(s.runQueue) == 0 {
			// Everyone is suspended; park until something happens.
			runtime.WaitActivity(parkInterval)
		}
		s.Yield(poll)
	}
	s.Spawn(poll)
}

// AwaitAll suspends until every future completes, then resumes with the
// results in input order.
func (s *Scheduler) AwaitAll(futures []*runtime.Future, k func([]runtime.Slot)) {
	var poll func()
	poll = func() {
		for _, f := range futures {
			if f != nil && !f.Completed() {
				if len(s.runQueue) == 0 {
					runtime.WaitActivity(parkInterval)
				}
				s.Yield(poll)
				return
			}
		}
		results := make([]runtime.Slot, len(futures))
		for i, f := range futures {
			if f != nil {
				results[i] = f.Await()
			}
		}
		k(results)
	}
	s.Spawn(poll)
}

// AsyncSelect suspends until the first future completes and resumes with
// its index and result. Simultaneous completions break to the lowest
// index.
func (s *Scheduler) AsyncSelect(futures []*runtime.Future, k func(int, runtime.Slot)) {
	var poll func()
	poll = func() {
		for i, f := range futures {
			if f != nil && f.Completed() {
				k(i, f.Await())
				return
			}
		}
		if len(s.runQueue) == 0 {
			runtime.WaitActivity(parkInterval)
		}
		s.Yield(poll)
	}
	s.Spawn(poll)
}

// Scope is one await-scope region: a set of child coroutines and tracked
// futures that must all finish before control leaves the scope.
type Scope struct {
	s       *Scheduler
	pending int
	futures []*runtime.Future
}

// AwaitScope runs body, then drives the scheduler until every coroutine
// spawned in the scope has finished and every tracked future has
// completed. Child completion happens-before this returns.
func (s *Scheduler) AwaitScope(body func(*Scope)) {
	sc := &Scope{s: s}
	body(sc)
	for {
		if sc.pending == 0 && sc.futuresDone() {
			return
		}
		if !s.step() {
			runtime.WaitActivity(parkInterval)
		}
	}
}

func (sc *Scope) futuresDone() bool {
	for _, f := range sc.futures {
		if f != nil && !f.Completed() {
			return false
		}
	}
	return true
}

// Spawn starts a child coroutine. The coroutine must call exit exactly
// once when its chain of continuations ends.
func (sc *Scope) Spawn(co func(exit func())) {
	sc.pending++
	sc.s.Spawn(func() {
		co(func() { sc.pending-- })
	})
}

// Track ties a pool future to the scope: scope exit waits for it even if
// no coroutine awaits it.
func (sc *Scope) Track(f *runtime.Future) {
	if f != nil {
		sc.futures = append(sc.futures, f)
	}
}

// Reset discards queued coroutines. Test helper.
func (s *Scheduler) Reset() {
	s.runQueue = nil
	s.running = false
}
