package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sanverite/statusboard/internal/broadcast"
	"github.com/sanverite/statusboard/internal/core"
)

// fakeSensor returns programmable signals. Errors take precedence.
type fakeSensor struct {
	mu        sync.Mutex
	call      bool
	idle      float64
	idleKnown bool
	media     bool
	callErr   error
	idleErr   error
	mediaErr  error
	panicCall bool
}

func (f *fakeSensor) set(fn func(*fakeSensor)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSensor) CallActive(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicCall {
		panic("boom")
	}
	return f.call, f.callErr
}

func (f *fakeSensor) IdleSeconds(context.Context) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle, f.idleKnown, f.idleErr
}

func (f *fakeSensor) MediaPlaying(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media, f.mediaErr
}

type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) Publish(m core.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, m.Key)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[len(r.keys)-1]
}

func newStore(t *testing.T, pub core.Publisher) *core.Store {
	t.Helper()
	table, err := core.NewModeTable([]core.Mode{
		{Key: "1", Title: "Available", Triggers: []int{1}},
		{Key: "2", Title: "Away", Triggers: []int{2}},
		{Key: "3", Title: "In a call", Triggers: []int{3}},
		{Key: "4", Title: "Do not disturb", Triggers: []int{101}},
		{Key: "5", Title: "In a call, do not disturb", Triggers: []int{103}},
		{Key: "6", Title: "Away, do not disturb", Triggers: []int{102}},
	}, "1")
	if err != nil {
		t.Fatal(err)
	}
	return core.NewStore(table, pub)
}

func TestEventCode(t *testing.T) {
	tests := []struct {
		name string
		sig  Signals
		dnd  bool
		want int
	}{
		{name: "nothing known", sig: Signals{}, want: 1},
		{name: "idle unknown", sig: Signals{IdleSeconds: 999}, want: 1},
		{name: "idle below threshold", sig: Signals{IdleSeconds: 29.9, IdleKnown: true}, want: 1},
		{name: "idle at threshold", sig: Signals{IdleSeconds: 30, IdleKnown: true}, want: 2},
		{name: "idle 45s", sig: Signals{IdleSeconds: 45, IdleKnown: true}, want: 2},
		{name: "idle but media playing", sig: Signals{IdleSeconds: 300, IdleKnown: true, MediaPlaying: true}, want: 1},
		{name: "call wins over idle", sig: Signals{CallActive: true, IdleSeconds: 120, IdleKnown: true}, want: 3},
		{name: "call with media", sig: Signals{CallActive: true, MediaPlaying: true}, want: 3},
		{name: "dnd available", sig: Signals{}, dnd: true, want: 101},
		{name: "dnd idle", sig: Signals{IdleSeconds: 60, IdleKnown: true}, dnd: true, want: 102},
		{name: "dnd call", sig: Signals{CallActive: true}, dnd: true, want: 103},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EventCode(tt.sig, tt.dnd, DefaultIdleThreshold); got != tt.want {
				t.Errorf("EventCode(%+v, %v) = %d, want %d", tt.sig, tt.dnd, got, tt.want)
			}
		})
	}
}

func TestStepDefaultNoBroadcast(t *testing.T) {
	rec := &recorder{}
	store := newStore(t, rec)
	c := New(&fakeSensor{}, store, Options{})

	code, changed := c.Step(context.Background())
	if code != 1 || changed {
		t.Fatalf("Step = (%d, %v), want (1, false)", code, changed)
	}
	if store.Get().ModeKey != "1" {
		t.Errorf("mode = %q, want default 1", store.Get().ModeKey)
	}
	if rec.count() != 0 {
		t.Errorf("published %d times, want 0", rec.count())
	}
}

func TestStepIdleSwitchesAndDebounces(t *testing.T) {
	rec := &recorder{}
	store := newStore(t, rec)
	sensor := &fakeSensor{idle: 45, idleKnown: true}
	c := New(sensor, store, Options{})

	code, changed := c.Step(context.Background())
	if code != 2 || !changed {
		t.Fatalf("Step = (%d, %v), want (2, true)", code, changed)
	}
	if rec.last() != "2" {
		t.Fatalf("published %q, want idle mode 2", rec.last())
	}

	for i := 0; i < 5; i++ {
		sensor.set(func(f *fakeSensor) { f.idle += 2 })
		if _, changed := c.Step(context.Background()); changed {
			t.Fatalf("cycle %d re-published an unchanged code", i)
		}
	}
	if rec.count() != 1 {
		t.Errorf("published %d times, want 1", rec.count())
	}
}

func TestStepDoNotDisturbOffset(t *testing.T) {
	rec := &recorder{}
	store := newStore(t, rec)
	c := New(&fakeSensor{idle: 45, idleKnown: true}, store, Options{})

	store.ToggleDoNotDisturb()
	code, changed := c.Step(context.Background())
	if code != 102 || !changed {
		t.Fatalf("Step = (%d, %v), want (102, true)", code, changed)
	}
	if got := store.Get().ModeKey; got != "6" {
		t.Errorf("mode = %q, want DND bank mode 6", got)
	}
}

func TestProbeFailureDegrades(t *testing.T) {
	store := newStore(t, nil)
	sensor := &fakeSensor{
		call:     true,
		callErr:  errors.New("pactl missing"),
		idle:     120,
		idleErr:  errors.New("no display"),
		mediaErr: errors.New("mpd down"),
	}
	c := New(sensor, store, Options{})

	sig := c.Sample(context.Background())
	if sig != (Signals{}) {
		t.Fatalf("Sample = %+v, want all signals absent", sig)
	}
	if code, _ := c.Step(context.Background()); code != 1 {
		t.Errorf("code = %d, want 1", code)
	}

	// One failing probe does not mask the others.
	sensor.set(func(f *fakeSensor) {
		f.callErr = nil
		f.call = false
		f.idleErr = nil
		f.idleKnown = true
	})
	if code, _ := c.Step(context.Background()); code != 2 {
		t.Errorf("code = %d, want 2 with only media failing", code)
	}
}

func TestProbePanicIsContained(t *testing.T) {
	store := newStore(t, nil)
	c := New(&fakeSensor{panicCall: true, idle: 40, idleKnown: true}, store, Options{})

	code, _ := c.Step(context.Background())
	if code != 2 {
		t.Errorf("code = %d, want 2 (call probe panics, idle still counted)", code)
	}
}

func TestIntervalNeverBelowProbeTimeout(t *testing.T) {
	c := New(&fakeSensor{}, newStore(t, nil), Options{
		Interval:     10 * time.Millisecond,
		ProbeTimeout: 50 * time.Millisecond,
	})
	if c.Interval() != 50*time.Millisecond {
		t.Errorf("Interval = %v, want 50ms", c.Interval())
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	rec := &recorder{}
	store := newStore(t, rec)
	sensor := &fakeSensor{}
	c := New(sensor, store, Options{Interval: 10 * time.Millisecond, ProbeTimeout: 200 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	sensor.set(func(f *fakeSensor) { f.call = true })
	deadline := time.After(2 * time.Second)
	for store.Get().ModeKey != "3" {
		select {
		case <-deadline:
			t.Fatal("collector never picked up the call signal")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if rec.count() != 1 {
		t.Errorf("published %d times, want 1", rec.count())
	}
}

// stuckSensor ignores ctx and blocks every probe until release is closed.
type stuckSensor struct{ release chan struct{} }

func (s stuckSensor) CallActive(context.Context) (bool, error) {
	<-s.release
	return true, nil
}

func (s stuckSensor) IdleSeconds(context.Context) (float64, bool, error) {
	<-s.release
	return 999, true, nil
}

func (s stuckSensor) MediaPlaying(context.Context) (bool, error) {
	<-s.release
	return true, nil
}

func TestSampleFitsOneProbeTimeout(t *testing.T) {
	sensor := stuckSensor{release: make(chan struct{})}
	defer close(sensor.release)
	c := New(sensor, newStore(t, nil), Options{ProbeTimeout: 100 * time.Millisecond})

	start := time.Now()
	sig := c.Sample(context.Background())
	elapsed := time.Since(start)

	// Sequential probes would need three timeouts.
	if elapsed >= 250*time.Millisecond {
		t.Errorf("Sample took %v, want about one probe timeout", elapsed)
	}
	if sig != (Signals{}) {
		t.Errorf("Sample = %+v, want all signals degraded", sig)
	}
	if c.Interval() < 100*time.Millisecond {
		t.Errorf("Interval = %v, shorter than one cycle", c.Interval())
	}
}

func TestIdleScenarioReachesEverySubscriber(t *testing.T) {
	table, err := core.NewModeTable([]core.Mode{
		{Key: "1", Title: "Available", Color: "green", Triggers: []int{core.CodeAvailable}},
		{Key: "2", Title: "Away", Emoji: "zz", Color: "grey", Triggers: []int{core.CodeIdle}},
		{Key: "3", Title: "In a call", Triggers: []int{core.CodeCall}},
	}, "1")
	if err != nil {
		t.Fatal(err)
	}
	bc := broadcast.New(table.Default(), broadcast.Options{})
	defer bc.Close()
	store := core.NewStore(table, bc)

	subs := make([]*broadcast.Subscription, 2)
	for i := range subs {
		sub, err := bc.Subscribe()
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Close()
		if snap := <-sub.C(); snap.Key != "1" {
			t.Fatalf("subscriber %d snapshot = %+v, want default mode", i, snap)
		}
		subs[i] = sub
	}

	c := New(&fakeSensor{idle: 45, idleKnown: true}, store, Options{})
	if code, changed := c.Step(context.Background()); code != core.CodeIdle || !changed {
		t.Fatalf("Step = (%d, %v), want (2, true)", code, changed)
	}

	want := broadcast.Message{Key: "2", Title: "Away", Emoji: "zz", Color: "grey"}
	for i, sub := range subs {
		select {
		case got := <-sub.C():
			if got != want {
				t.Errorf("subscriber %d got %+v, want %+v", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}
