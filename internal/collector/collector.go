package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sanverite/statusboard/internal/core"
)

// Defaults for the poll loop.
const (
	DefaultInterval      = 2 * time.Second
	DefaultProbeTimeout  = time.Second
	DefaultIdleThreshold = 30 * time.Second
)

// Sensor is the desktop signal seam. Each method is queried independently
// once per cycle; an error means the signal is absent for that cycle.
type Sensor interface {
	// CallActive reports whether a voice call is in progress.
	CallActive(ctx context.Context) (bool, error)
	// IdleSeconds reports user idle time. known is false when the host
	// has no way to measure it.
	IdleSeconds(ctx context.Context) (seconds float64, known bool, err error)
	// MediaPlaying reports whether media playback is active.
	MediaPlaying(ctx context.Context) (bool, error)
}

// Signals is the reduced view of one sample.
type Signals struct {
	CallActive   bool
	IdleSeconds  float64
	IdleKnown    bool
	MediaPlaying bool
}

// EventCode reduces signals to an event code, highest priority first:
// call (3), idle past threshold without media (2), available (1). When dnd
// is set the code moves to the do-not-disturb bank.
func EventCode(sig Signals, dnd bool, idleThreshold time.Duration) int {
	code := core.CodeAvailable
	switch {
	case sig.CallActive:
		code = core.CodeCall
	case sig.IdleKnown && sig.IdleSeconds >= idleThreshold.Seconds() && !sig.MediaPlaying:
		code = core.CodeIdle
	}
	if dnd {
		code += core.DoNotDisturbOffset
	}
	return code
}

// Options configures a Collector. Zero values take the package defaults.
type Options struct {
	Interval      time.Duration
	ProbeTimeout  time.Duration
	IdleThreshold time.Duration
	Logger        hclog.Logger
}

// Collector samples the sensor on a fixed period and applies the resulting
// event code to the store.
type Collector struct {
	sensor Sensor
	store  *core.Store
	opts   Options
	logger hclog.Logger

	// Probe availability as last seen, so transitions are logged once.
	// Only touched from the collector goroutine.
	available map[string]bool
}

// New constructs a Collector. The interval is raised to the probe timeout
// when configured shorter, so one cycle always fits in one period.
func New(sensor Sensor, store *core.Store, opts Options) *Collector {
	if sensor == nil {
		panic("collector.New: sensor is nil")
	}
	if store == nil {
		panic("collector.New: store is nil")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Interval < opts.ProbeTimeout {
		opts.Interval = opts.ProbeTimeout
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Collector{
		sensor:    sensor,
		store:     store,
		opts:      opts,
		logger:    opts.Logger,
		available: make(map[string]bool, 3),
	}
}

// Interval returns the effective poll period.
func (c *Collector) Interval() time.Duration { return c.opts.Interval }

// Run polls until ctx is cancelled. The first cycle runs immediately.
// Probe failures never end the loop; Run always returns ctx.Err().
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started", "interval", c.opts.Interval, "idle_threshold", c.opts.IdleThreshold)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step runs one cycle: sample, reduce, apply. It reports the event code and
// whether the store committed a new mode.
func (c *Collector) Step(ctx context.Context) (code int, changed bool) {
	sig := c.Sample(ctx)
	code = EventCode(sig, c.store.DoNotDisturb(), c.opts.IdleThreshold)

	m, changed := c.store.Apply(code)
	if changed {
		c.logger.Info("mode changed", "code", code, "mode", m.Key,
			"call", sig.CallActive, "idle_known", sig.IdleKnown,
			"idle_sec", int64(sig.IdleSeconds), "media", sig.MediaPlaying)
	}
	return code, changed
}

// Sample queries all three probes concurrently, each under its own
// timeout, so one cycle takes at most one ProbeTimeout. A failing probe
// degrades to its safe default without affecting the others.
func (c *Collector) Sample(ctx context.Context) Signals {
	probes := [...]struct {
		name string
		fn   func(context.Context) (Signals, error)
	}{
		{"call", func(ctx context.Context) (Signals, error) {
			v, err := c.sensor.CallActive(ctx)
			return Signals{CallActive: v}, err
		}},
		{"idle", func(ctx context.Context) (Signals, error) {
			v, known, err := c.sensor.IdleSeconds(ctx)
			return Signals{IdleSeconds: v, IdleKnown: known}, err
		}},
		{"media", func(ctx context.Context) (Signals, error) {
			v, err := c.sensor.MediaPlaying(ctx)
			return Signals{MediaPlaying: v}, err
		}},
	}

	var (
		parts [len(probes)]Signals
		errs  [len(probes)]error
		wg    sync.WaitGroup
	)
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parts[i], errs[i] = c.probe(ctx, p.fn)
		}()
	}
	wg.Wait()

	var sig Signals
	for i, p := range probes {
		c.recordAvailability(p.name, errs[i])
		if errs[i] != nil {
			continue
		}
		switch p.name {
		case "call":
			sig.CallActive = parts[i].CallActive
		case "idle":
			if parts[i].IdleKnown {
				sig.IdleSeconds, sig.IdleKnown = parts[i].IdleSeconds, true
			}
		case "media":
			sig.MediaPlaying = parts[i].MediaPlaying
		}
	}
	return sig
}

// probe runs fn under the probe timeout and turns a panic into an error.
// It returns when fn does or the timeout expires, whichever comes first;
// a sensor that ignores ctx is abandoned, its late result discarded.
func (c *Collector) probe(ctx context.Context, fn func(context.Context) (Signals, error)) (Signals, error) {
	pctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	type result struct {
		sig Signals
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("probe panicked: %v", r)}
			}
		}()
		sig, err := fn(pctx)
		done <- result{sig, err}
	}()
	select {
	case r := <-done:
		return r.sig, r.err
	case <-pctx.Done():
		return Signals{}, fmt.Errorf("probe timed out: %w", pctx.Err())
	}
}

func (c *Collector) recordAvailability(name string, err error) {
	was, seen := c.available[name]
	now := err == nil
	c.available[name] = now
	switch {
	case !now && (was || !seen):
		c.logger.Info("probe unavailable", "probe", name, "error", err)
	case now && seen && !was:
		c.logger.Info("probe available", "probe", name)
	case !now:
		c.logger.Debug("probe failed", "probe", name, "error", err)
	}
}
