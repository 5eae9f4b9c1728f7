package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler that only runs jobs when told to. It is used to
// drive timer behaviour deterministically.
type Manual struct {
	mu     sync.Mutex
	nextID int
	jobs   map[int]manualJob
	total  int
}

type manualJob struct {
	interval time.Duration
	fn       func()
}

func NewManual() *Manual {
	return &Manual{jobs: make(map[int]manualJob)}
}

func (m *Manual) Every(interval time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.jobs[id] = manualJob{interval: interval, fn: fn}
	m.total++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.jobs, id)
	}
}

// Fire runs, once, every live job registered with interval. Jobs are run
// in registration order without the lock held.
func (m *Manual) Fire(interval time.Duration) int {
	m.mu.Lock()
	ids := make([]int, 0, len(m.jobs))
	for id, j := range m.jobs {
		if j.interval == interval {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.jobs[id].fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Live returns the number of registered, uncancelled jobs.
func (m *Manual) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// LiveEvery returns the number of live jobs with the given interval.
func (m *Manual) LiveEvery(interval time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.interval == interval {
			n++
		}
	}
	return n
}

// Registered returns how many jobs were ever registered.
func (m *Manual) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// FixedClock is a settable Clock.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
