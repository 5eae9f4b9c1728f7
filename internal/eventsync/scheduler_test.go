package eventsync

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/schedule"
)

type result struct {
	events []core.Event
	err    error
}

// gatedProvider blocks every call until the test answers it. Each call
// hands the test its own reply channel, in call order.
type gatedProvider struct {
	forceCalls chan chan result
	cacheCalls chan chan result
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		forceCalls: make(chan chan result, 8),
		cacheCalls: make(chan chan result, 8),
	}
}

func (p *gatedProvider) ForceSync(context.Context) ([]core.Event, error) {
	reply := make(chan result)
	p.forceCalls <- reply
	r := <-reply
	return r.events, r.err
}

func (p *gatedProvider) ReadCachedEvents(context.Context) ([]core.Event, error) {
	reply := make(chan result)
	p.cacheCalls <- reply
	r := <-reply
	return r.events, r.err
}

func list(ids ...string) []core.Event {
	events := make([]core.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, core.Event{ID: id, Title: id})
	}
	return events
}

func ids(events []core.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func assertIDs(t *testing.T, got []core.Event, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func runAsync(fn func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	return done
}

func newScheduler(p core.SyncProvider) (*Scheduler, *schedule.Manual) {
	sched := schedule.NewManual()
	return New(p, sched, zerolog.Nop()), sched
}

func TestForceSyncBeatsEarlierCompletingPeriodic(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	forceDone := runAsync(func() { s.ForceSync(ctx) })
	force := <-p.forceCalls
	periodicDone := runAsync(func() { s.PeriodicRefresh(ctx) })
	periodic := <-p.cacheCalls

	periodic <- result{events: list("stale")}
	<-periodicDone
	if len(s.Events()) != 0 {
		t.Fatalf("expected periodic read racing a forced sync to be dropped, got %v", ids(s.Events()))
	}

	force <- result{events: list("fresh")}
	<-forceDone
	assertIDs(t, s.Events(), "fresh")
}

func TestPeriodicIssuedDuringForceIsDroppedEvenIfLater(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	forceDone := runAsync(func() { s.ForceSync(ctx) })
	force := <-p.forceCalls
	periodicDone := runAsync(func() { s.PeriodicRefresh(ctx) })
	periodic := <-p.cacheCalls

	force <- result{events: list("fresh")}
	<-forceDone
	periodic <- result{events: list("stale")}
	<-periodicDone

	assertIDs(t, s.Events(), "fresh")
}

func TestForceSupersedesEarlierIssuedPeriodic(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	periodicDone := runAsync(func() { s.PeriodicRefresh(ctx) })
	periodic := <-p.cacheCalls
	forceDone := runAsync(func() { s.ForceSync(ctx) })
	force := <-p.forceCalls

	force <- result{events: list("fresh")}
	<-forceDone
	periodic <- result{events: list("stale")}
	<-periodicDone

	assertIDs(t, s.Events(), "fresh")
}

func TestPeriodicAfterForceApplies(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	done := runAsync(func() { s.ForceSync(ctx) })
	(<-p.forceCalls) <- result{events: list("a")}
	<-done

	done = runAsync(func() { s.PeriodicRefresh(ctx) })
	(<-p.cacheCalls) <- result{events: list("a", "b")}
	<-done

	assertIDs(t, s.Events(), "a", "b")
}

func TestLatestIssuedForceWins(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	firstDone := runAsync(func() { s.ForceSync(ctx) })
	first := <-p.forceCalls
	secondDone := runAsync(func() { s.ForceSync(ctx) })
	second := <-p.forceCalls

	second <- result{events: list("newer")}
	<-secondDone
	first <- result{events: list("older")}
	<-firstDone

	assertIDs(t, s.Events(), "newer")
	if s.Loading() {
		t.Error("expected loading to clear after both syncs")
	}
}

func TestForceSyncFailureKeepsCache(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	done := runAsync(func() { s.ForceSync(ctx) })
	(<-p.forceCalls) <- result{events: list("a", "b")}
	<-done

	var gotErr error
	done = runAsync(func() { _, gotErr = s.ForceSync(ctx) })
	force := <-p.forceCalls
	if !s.Loading() {
		t.Error("expected loading during a forced sync")
	}
	force <- result{err: errors.New("network down")}
	<-done

	if gotErr == nil {
		t.Fatal("expected forced sync error to be returned")
	}
	assertIDs(t, s.Events(), "a", "b")
}

func TestPeriodicFailureKeepsList(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	done := runAsync(func() { s.PeriodicRefresh(ctx) })
	(<-p.cacheCalls) <- result{events: list("a")}
	<-done

	done = runAsync(func() { s.PeriodicRefresh(ctx) })
	(<-p.cacheCalls) <- result{err: errors.New("locked")}
	<-done

	assertIDs(t, s.Events(), "a")
}

func TestStartRegistersTimerAndSurvivesFailure(t *testing.T) {
	p := newGatedProvider()
	s, sched := newScheduler(p)
	ctx := context.Background()

	var notified [][]core.Event
	s.OnChange(func(events []core.Event) { notified = append(notified, events) })

	var startErr error
	done := runAsync(func() { startErr = s.Start(ctx) })
	(<-p.forceCalls) <- result{err: errors.New("offline")}
	<-done

	if startErr == nil {
		t.Fatal("expected Start to surface the initial sync error")
	}
	if sched.LiveEvery(DefaultRefreshInterval) != 1 {
		t.Fatalf("expected periodic timer to be registered")
	}

	fired := runAsync(func() { sched.Fire(DefaultRefreshInterval) })
	(<-p.cacheCalls) <- result{events: list("cached")}
	<-fired

	assertIDs(t, s.Events(), "cached")
	if len(notified) != 1 {
		t.Errorf("expected one change notification, got %d", len(notified))
	}

	s.Stop()
	if sched.Live() != 0 {
		t.Errorf("expected timer cancelled on Stop, got %d live", sched.Live())
	}
}

func TestResultsAfterStopAreIgnored(t *testing.T) {
	p := newGatedProvider()
	s, _ := newScheduler(p)
	ctx := context.Background()

	done := runAsync(func() { s.ForceSync(ctx) })
	force := <-p.forceCalls
	s.Stop()
	force <- result{events: list("late")}
	<-done

	if len(s.Events()) != 0 {
		t.Errorf("expected late result to be ignored, got %v", ids(s.Events()))
	}
}
