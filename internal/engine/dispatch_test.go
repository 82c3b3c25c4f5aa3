package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nbadran/instadm/internal/notify"
	"github.com/nbadran/instadm/internal/platform"
)

func connect(t *testing.T, rig *testRig) {
	t.Helper()
	if _, err := rig.svc.Login(context.Background(), "leila", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestSendToThreadRequiresConnection(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	err := rig.svc.SendToThread(context.Background(), "t1", "hello")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendToThreadPacing(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)

	text := "hello there"
	if err := rig.svc.SendToThread(context.Background(), "t1", text); err != nil {
		t.Fatalf("SendToThread failed: %v", err)
	}

	sleeps := rig.recordedSleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected typing + pre-send delays, got %d sleeps", len(sleeps))
	}

	// Typing delay: 1s base plus jittered per-character component.
	wantTyping := typingBaseDelay + time.Duration(0.5*float64(typingPerChar)*float64(len(text)))
	if sleeps[0] != wantTyping {
		t.Errorf("typing delay = %v, want %v", sleeps[0], wantTyping)
	}
	if sleeps[0] < typingBaseDelay {
		t.Errorf("typing delay %v below base %v", sleeps[0], typingBaseDelay)
	}

	// Pre-send delay: short randomized pause, floored at the minimum.
	if sleeps[1] < preSendDelayMin {
		t.Errorf("pre-send delay %v below floor %v", sleeps[1], preSendDelayMin)
	}

	if len(rig.client.sentTo) != 1 || rig.client.sentTo[0] != "t1" {
		t.Errorf("unexpected broadcast targets: %v", rig.client.sentTo)
	}
}

func TestSendToThreadMarkSeenFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)
	rig.client.markSeenFn = func(string) error {
		return &platform.PlatformError{Op: "threads/seen", Detail: "no items"}
	}

	if err := rig.svc.SendToThread(context.Background(), "t1", "hi"); err != nil {
		t.Fatalf("mark-seen failure must not fail the send: %v", err)
	}
	if len(rig.client.sentTo) != 1 {
		t.Error("expected broadcast despite mark-seen failure")
	}
}

func TestSendToThreadAuthExpiredForcesDisconnect(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)
	rig.client.broadcastFn = func(string, string) error {
		return platform.ErrAuthExpired
	}

	err := rig.svc.SendToThread(context.Background(), "t1", "hi")
	if !errors.Is(err, platform.ErrAuthExpired) {
		t.Fatalf("expected auth-expired error to propagate, got %v", err)
	}
	if rig.svc.Status().Connected {
		t.Error("expected disconnected after auth expiry")
	}
	if ev := rig.events.last(); ev.Type != notify.EventDisconnected {
		t.Errorf("expected disconnected event, got %+v", ev)
	}
}

func TestSendToUserSkipsTypingSimulation(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)

	if err := rig.svc.SendToUser(context.Background(), "amira", "hello"); err != nil {
		t.Fatalf("SendToUser failed: %v", err)
	}

	if got := rig.recordedSleeps(); len(got) != 0 {
		t.Errorf("directed path must not simulate typing, slept %v", got)
	}
	if len(rig.client.sentTo) != 1 || rig.client.sentTo[0] != "uid-amira" {
		t.Errorf("expected resolved user target, got %v", rig.client.sentTo)
	}
}

func TestSendToUserNotConnected(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	if err := rig.svc.SendToUser(context.Background(), "amira", "hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendToManyAggregatesOutcomes(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)
	rig.client.broadcastFn = func(threadID, _ string) error {
		if threadID == "bad" {
			return &platform.PlatformError{Op: "threads/broadcast", Detail: "gone"}
		}
		return nil
	}

	report, err := rig.svc.SendToMany(context.Background(), []string{"a", "bad", "c"}, "hello")
	if err != nil {
		t.Fatalf("SendToMany failed: %v", err)
	}

	if len(report.Success) != 2 || len(report.Failed) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Failed[0].Target != "bad" {
		t.Errorf("expected failure recorded for 'bad', got %+v", report.Failed[0])
	}
}

func TestListThreadsRequiresConnection(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	if _, err := rig.svc.ListThreads(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	connect(t, rig)
	threads, err := rig.svc.ListThreads(context.Background())
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 1 || threads[0].ID != "t1" {
		t.Errorf("unexpected threads: %+v", threads)
	}
}

func TestSendToThreadInvalidInput(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)
	connect(t, rig)

	if err := rig.svc.SendToThread(context.Background(), "", "hi"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty thread, got %v", err)
	}
	if err := rig.svc.SendToThread(context.Background(), "t1", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty text, got %v", err)
	}
}
