package permission

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/schedule"
)

type check struct {
	status core.PermissionStatus
	err    error
}

type fakeAuth struct {
	checks       []check
	checkCalls   int
	requestOK    bool
	requestErr   error
	settingsOpen int
	onCheck      func()
}

func (f *fakeAuth) CheckPermission(context.Context) (core.PermissionStatus, error) {
	f.checkCalls++
	if f.onCheck != nil {
		hook := f.onCheck
		f.onCheck = nil
		hook()
	}
	if len(f.checks) == 0 {
		return core.PermissionNotDetermined, nil
	}
	c := f.checks[0]
	f.checks = f.checks[1:]
	return c.status, c.err
}

func (f *fakeAuth) RequestPermission(context.Context) (bool, error) {
	return f.requestOK, f.requestErr
}

func (f *fakeAuth) OpenPermissionSettings(context.Context) { f.settingsOpen++ }

func newMachine(auth *fakeAuth) (*Machine, *schedule.Manual, *[]core.PermissionStatus) {
	sched := schedule.NewManual()
	m := New(auth, sched, zerolog.Nop())
	var seen []core.PermissionStatus
	m.OnChange(func(s core.PermissionStatus) { seen = append(seen, s) })
	return m, sched, &seen
}

func TestInitialState(t *testing.T) {
	m, sched, _ := newMachine(&fakeAuth{})
	if m.State() != core.PermissionLoading {
		t.Fatalf("expected loading, got %s", m.State())
	}
	if sched.Live() != 0 {
		t.Errorf("expected no poll while loading, got %d", sched.Live())
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name      string
		check     check
		want      core.PermissionStatus
		wantPolls int
	}{
		{"granted", check{status: core.PermissionGranted}, core.PermissionGranted, 0},
		{"denied", check{status: core.PermissionDenied}, core.PermissionDenied, 1},
		{"restricted", check{status: core.PermissionRestricted}, core.PermissionRestricted, 1},
		{"not determined", check{status: core.PermissionNotDetermined}, core.PermissionNotDetermined, 1},
		{"error", check{err: errors.New("bridge down")}, core.PermissionNotDetermined, 1},
		{"garbage", check{status: "maybe"}, core.PermissionNotDetermined, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, sched, _ := newMachine(&fakeAuth{checks: []check{tt.check}})
			m.Start(context.Background())
			if m.State() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, m.State())
			}
			if sched.Live() != tt.wantPolls {
				t.Errorf("expected %d live polls, got %d", tt.wantPolls, sched.Live())
			}
		})
	}
}

func TestPollingOnlyMovesToGranted(t *testing.T) {
	auth := &fakeAuth{checks: []check{
		{status: core.PermissionNotDetermined}, // first check
		{status: core.PermissionNotDetermined},
		{status: core.PermissionDenied},
		{status: core.PermissionGranted},
		{status: core.PermissionNotDetermined},
	}}
	m, sched, seen := newMachine(auth)
	m.Start(context.Background())

	for i := 0; i < 4; i++ {
		sched.Fire(DefaultPollInterval)
	}

	want := []core.PermissionStatus{core.PermissionNotDetermined, core.PermissionGranted}
	if !reflect.DeepEqual(*seen, want) {
		t.Errorf("expected transitions %v, got %v", want, *seen)
	}
	if sched.Live() != 0 {
		t.Errorf("expected polling to stop after granted, got %d live", sched.Live())
	}
	// first check plus three polls; the fourth fire found nothing registered
	if auth.checkCalls != 4 {
		t.Errorf("expected 4 checks, got %d", auth.checkCalls)
	}
}

func TestPollErrorsKeepState(t *testing.T) {
	auth := &fakeAuth{checks: []check{
		{status: core.PermissionDenied},
		{err: errors.New("timeout")},
	}}
	m, sched, _ := newMachine(auth)
	m.Start(context.Background())
	sched.Fire(DefaultPollInterval)

	if m.State() != core.PermissionDenied {
		t.Errorf("expected denied, got %s", m.State())
	}
	if sched.Live() != 1 {
		t.Errorf("expected polling to continue, got %d", sched.Live())
	}
}

func TestSinglePollEntry(t *testing.T) {
	auth := &fakeAuth{checks: []check{{status: core.PermissionDenied}}}
	m, sched, _ := newMachine(auth)
	m.Start(context.Background())
	m.Start(context.Background()) // reports not_determined after the first check: ignored

	if m.State() != core.PermissionDenied {
		t.Fatalf("expected denied, got %s", m.State())
	}
	if sched.Live() != 1 {
		t.Errorf("expected exactly one live poll, got %d", sched.Live())
	}
	if sched.Registered() != 1 {
		t.Errorf("expected 1 registration, got %d", sched.Registered())
	}
}

func TestStartResultAfterGrant(t *testing.T) {
	tests := []struct {
		name  string
		check check
	}{
		{"not determined", check{status: core.PermissionNotDetermined}},
		{"denied", check{status: core.PermissionDenied}},
		{"error", check{err: errors.New("bridge down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{checks: []check{tt.check}, requestOK: true}
			m, sched, seen := newMachine(auth)
			auth.onCheck = func() { m.RequestPermission(context.Background()) }
			m.Start(context.Background())

			if m.State() != core.PermissionGranted {
				t.Errorf("expected granted to survive the late first check, got %s", m.State())
			}
			if sched.Live() != 0 {
				t.Errorf("expected no poll after grant, got %d", sched.Live())
			}
			want := []core.PermissionStatus{core.PermissionGranted}
			if !reflect.DeepEqual(*seen, want) {
				t.Errorf("expected transitions %v, got %v", want, *seen)
			}
		})
	}
}

func TestRequestPermission(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		auth := &fakeAuth{checks: []check{{status: core.PermissionNotDetermined}}, requestOK: true}
		m, sched, _ := newMachine(auth)
		m.Start(context.Background())
		m.RequestPermission(context.Background())

		if m.State() != core.PermissionGranted {
			t.Errorf("expected granted, got %s", m.State())
		}
		if sched.Live() != 0 {
			t.Errorf("expected polling cancelled, got %d", sched.Live())
		}
		if auth.settingsOpen != 0 {
			t.Errorf("expected settings not opened")
		}
	})

	t.Run("refused opens settings", func(t *testing.T) {
		auth := &fakeAuth{checks: []check{{status: core.PermissionDenied}}}
		m, _, _ := newMachine(auth)
		m.Start(context.Background())
		m.RequestPermission(context.Background())

		if m.State() != core.PermissionDenied {
			t.Errorf("expected denied unchanged, got %s", m.State())
		}
		if auth.settingsOpen != 1 {
			t.Errorf("expected settings opened once, got %d", auth.settingsOpen)
		}
	})

	t.Run("error opens settings", func(t *testing.T) {
		auth := &fakeAuth{checks: []check{{status: core.PermissionRestricted}}, requestOK: true, requestErr: errors.New("cancelled")}
		m, _, _ := newMachine(auth)
		m.Start(context.Background())
		m.RequestPermission(context.Background())

		if m.State() != core.PermissionRestricted {
			t.Errorf("expected restricted unchanged, got %s", m.State())
		}
		if auth.settingsOpen != 1 {
			t.Errorf("expected settings opened once, got %d", auth.settingsOpen)
		}
	})
}

func TestStop(t *testing.T) {
	auth := &fakeAuth{checks: []check{{status: core.PermissionDenied}}, requestOK: true}
	m, sched, _ := newMachine(auth)
	m.Start(context.Background())
	m.Stop()

	if sched.Live() != 0 {
		t.Errorf("expected no live polls after Stop, got %d", sched.Live())
	}
	m.RequestPermission(context.Background())
	if m.State() != core.PermissionDenied {
		t.Errorf("expected state frozen after Stop, got %s", m.State())
	}
}

func TestPollInterval(t *testing.T) {
	sched := schedule.NewManual()
	m := New(&fakeAuth{checks: []check{{status: core.PermissionDenied}}}, sched, zerolog.Nop(), WithPollInterval(time.Second))
	m.Start(context.Background())
	if sched.LiveEvery(time.Second) != 1 {
		t.Errorf("expected a poll every second")
	}
}
