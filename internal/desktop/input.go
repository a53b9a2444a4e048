package desktop

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/sanverite/statusboard/internal/core"
)

// Action is an operator input the daemon reacts to.
type Action int

const (
	// ToggleDoNotDisturb flips the do-not-disturb flag.
	ToggleDoNotDisturb Action = iota + 1
	// CycleMode advances to the next mode.
	CycleMode
)

func (a Action) String() string {
	switch a {
	case ToggleDoNotDisturb:
		return "toggle-dnd"
	case CycleMode:
		return "cycle-mode"
	default:
		return "unknown"
	}
}

// InputSource delivers operator actions until ctx ends, then closes the
// returned channel.
type InputSource interface {
	Events(ctx context.Context) <-chan Action
}

// SignalSource maps process signals to actions: SIGUSR1 toggles
// do-not-disturb, SIGUSR2 cycles the mode. Bind a desktop hotkey to
// `pkill -USR1 statusboard` to get a global do-not-disturb key.
type SignalSource struct{}

// Events implements InputSource.
func (SignalSource) Events(ctx context.Context) <-chan Action {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)

	out := make(chan Action)
	go func() {
		defer close(out)
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				act := CycleMode
				if sig == syscall.SIGUSR1 {
					act = ToggleDoNotDisturb
				}
				select {
				case out <- act:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Controller is the part of core.Store that operator input drives.
type Controller interface {
	ToggleDoNotDisturb() bool
	CycleMode() core.Mode
}

// Dispatch applies actions from src to ctl until ctx ends or src closes.
func Dispatch(ctx context.Context, src InputSource, ctl Controller, logger hclog.Logger) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	for act := range src.Events(ctx) {
		switch act {
		case ToggleDoNotDisturb:
			logger.Info("do-not-disturb toggled", "on", ctl.ToggleDoNotDisturb())
		case CycleMode:
			logger.Info("mode cycled", "mode", ctl.CycleMode().Key)
		default:
			logger.Warn("ignoring unknown action", "action", int(act))
		}
	}
}

// ChanSource is an InputSource backed by a caller-owned channel.
type ChanSource <-chan Action

// Events implements InputSource. The returned channel closes when ctx ends
// or the underlying channel closes.
func (c ChanSource) Events(ctx context.Context) <-chan Action {
	out := make(chan Action)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case act, ok := <-c:
				if !ok {
					return
				}
				select {
				case out <- act:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
