// Package eventlooptest provides a synchronous scheduler with a virtual clock.
package eventlooptest

import (
	"context"
	"sort"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
)

// Scheduler runs posted tasks inline and fires timers only when Advance moves
// the virtual clock past their deadline.
type Scheduler struct {
	Ctx    context.Context
	now    time.Duration
	seq    int
	timers []*timer
}

type timer struct {
	at      time.Duration
	seq     int
	task    eventloop.Task
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a scheduler at virtual time zero.
func New() *Scheduler {
	return &Scheduler{Ctx: context.Background()}
}

// Post runs task immediately.
func (s *Scheduler) Post(task eventloop.Task) {
	if task != nil {
		task(s.ctx())
	}
}

// AfterFunc registers task at now+d.
func (s *Scheduler) AfterFunc(d time.Duration, task eventloop.Task) eventloop.Timer {
	s.seq++
	t := &timer{at: s.now + d, seq: s.seq, task: task}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in deadline order.
func (s *Scheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.task(s.ctx())
	}
	s.now = target
}

// Pending returns the number of live timers.
func (s *Scheduler) Pending() int {
	count := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}

// Now returns the virtual elapsed time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

func (s *Scheduler) nextDue(limit time.Duration) *timer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].at == live[j].at {
			return live[i].seq < live[j].seq
		}
		return live[i].at < live[j].at
	})
	if len(live) == 0 || live[0].at > limit {
		return nil
	}
	return live[0]
}

func (s *Scheduler) ctx() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}
