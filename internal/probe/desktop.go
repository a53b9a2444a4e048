package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Default commands. Each is a full argv; an empty argv disables the probe.
var (
	// An application holding a capture stream on the microphone is taken
	// as an active call.
	DefaultCallCommand = []string{"pactl", "list", "short", "source-outputs"}
	// Prints X11 idle time in milliseconds.
	DefaultIdleCommand = []string{"xprintidle"}
	// Prints Playing, Paused or Stopped for the active MPRIS player.
	DefaultPlayerCommand = []string{"playerctl", "status"}
)

// Config selects the mechanisms the Desktop sensor uses.
type Config struct {
	CallCommand   []string
	IdleCommand   []string
	PlayerCommand []string

	// MPD, when non-nil, adds an MPD server as a media source.
	MPD *MPDConfig

	// Runner executes commands. If nil, ExecRunner is used.
	Runner Runner
}

// DefaultConfig returns the stock Linux desktop probes without MPD.
func DefaultConfig() Config {
	return Config{
		CallCommand:   append([]string(nil), DefaultCallCommand...),
		IdleCommand:   append([]string(nil), DefaultIdleCommand...),
		PlayerCommand: append([]string(nil), DefaultPlayerCommand...),
	}
}

// Desktop is the production sensor. It satisfies collector.Sensor.
// It holds no connections between calls and is safe for concurrent use.
type Desktop struct {
	cfg Config
	run Runner
	mpd *MPD
}

// NewDesktop validates cfg and constructs the sensor.
func NewDesktop(cfg Config) (*Desktop, error) {
	d := &Desktop{cfg: cfg, run: cfg.Runner}
	if d.run == nil {
		d.run = ExecRunner
	}
	if cfg.MPD != nil {
		m, err := NewMPD(*cfg.MPD)
		if err != nil {
			return nil, err
		}
		d.mpd = m
	}
	return d, nil
}

// CallActive reports whether any application is capturing audio input.
func (d *Desktop) CallActive(ctx context.Context) (bool, error) {
	out, err := run(ctx, d.run, d.cfg.CallCommand)
	if err != nil {
		return false, err
	}
	return nonEmptyLines(out) > 0, nil
}

// IdleSeconds reports how long the user has been idle. Without an idle
// mechanism on the host the value is unknown rather than an error.
func (d *Desktop) IdleSeconds(ctx context.Context) (float64, bool, error) {
	out, err := run(ctx, d.run, d.cfg.IdleCommand)
	if errors.Is(err, ErrUnavailable) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse idle time %q: %w", strings.TrimSpace(string(out)), err)
	}
	if ms < 0 {
		return 0, false, fmt.Errorf("negative idle time %d", ms)
	}
	return float64(ms) / 1000, true, nil
}

// MediaPlaying reports whether any configured media source is playing.
// It fails only when every source fails.
func (d *Desktop) MediaPlaying(ctx context.Context) (bool, error) {
	var errs []error

	playing, err := d.playerPlaying(ctx)
	if err == nil && playing {
		return true, nil
	}
	if err != nil {
		errs = append(errs, err)
	}

	if d.mpd != nil {
		playing, err := d.mpd.Playing(ctx)
		if err == nil && playing {
			return true, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	sources := 1
	if d.mpd != nil {
		sources++
	}
	if len(errs) == sources {
		return false, errors.Join(errs...)
	}
	return false, nil
}

func (d *Desktop) playerPlaying(ctx context.Context) (bool, error) {
	out, err := run(ctx, d.run, d.cfg.PlayerCommand)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// playerctl exits non-zero when no player is running.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(string(out)), "Playing"), nil
}
