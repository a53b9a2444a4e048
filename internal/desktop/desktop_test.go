package desktop

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sanverite/statusboard/internal/core"
)

type fakeController struct {
	mu      sync.Mutex
	dnd     bool
	cycled  int
	toggled int
}

func (f *fakeController) ToggleDoNotDisturb() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled++
	f.dnd = !f.dnd
	return f.dnd
}

func (f *fakeController) CycleMode() core.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycled++
	return core.Mode{Key: "next"}
}

func TestDispatch(t *testing.T) {
	ch := make(chan Action, 4)
	ch <- ToggleDoNotDisturb
	ch <- CycleMode
	ch <- ToggleDoNotDisturb
	ch <- Action(99)
	close(ch)

	ctl := &fakeController{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		Dispatch(context.Background(), ChanSource(ch), ctl, nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return after the source closed")
	}

	if ctl.toggled != 2 || ctl.cycled != 1 || ctl.dnd {
		t.Errorf("toggled=%d cycled=%d dnd=%v, want 2/1/false", ctl.toggled, ctl.cycled, ctl.dnd)
	}
}

func TestDispatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Dispatch(ctx, ChanSource(make(chan Action)), &fakeController{}, nil)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return after cancel")
	}
}

func TestNotificationText(t *testing.T) {
	title, body := NotificationText(core.Mode{Key: "3", Title: "In a call<br>please knock"})
	if title != "Mode 3" {
		t.Errorf("title = %q", title)
	}
	if body != "In a call · please knock" {
		t.Errorf("body = %q", body)
	}
}

func TestModeNotifier(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	got := make(chan struct{}, 8)
	n := NotifierFunc(func(_ context.Context, title, body string) error {
		mu.Lock()
		bodies = append(bodies, title+"|"+body)
		mu.Unlock()
		got <- struct{}{}
		return nil
	})

	mn := NewModeNotifier(n, nil)
	mn.Publish(core.Mode{Key: "2", Title: "Away"})
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	mn.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || bodies[0] != "Mode 2|Away" {
		t.Errorf("notifications = %v", bodies)
	}
}

func TestModeNotifierPublishNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	n := NotifierFunc(func(context.Context, string, string) error {
		<-release
		return nil
	})
	mn := NewModeNotifier(n, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			mn.Publish(core.Mode{Key: "x"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked behind a slow notifier")
	}
	close(release)
	mn.Close()
}

func TestModeNotifierPublishAfterClose(t *testing.T) {
	mn := NewModeNotifier(NotifierFunc(func(context.Context, string, string) error { return nil }), nil)
	mn.Close()
	mn.Close()
	mn.Publish(core.Mode{Key: "1"})
	mn.Publish(core.Mode{Key: "2"})
}

func TestNotifySendMissingBinary(t *testing.T) {
	n := NotifySend{Command: "statusboard-no-such-notifier"}
	if err := n.Notify(context.Background(), "t", "b"); err != nil {
		t.Errorf("missing binary should be ignored, got %v", err)
	}
}

func TestNotifySendBoundedByContext(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := filepath.Join(t.TempDir(), "slow-notify")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 3 &\nsleep 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := NotifySend{Command: script}.Notify(ctx, "Mode 1", "Available")
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("Notify took %v, want it bounded by the context", elapsed)
	}
	if err == nil {
		t.Error("Notify of a killed command returned nil")
	}
}
