// Package probe implements the desktop signal probes used by the collector.
// This file provides the command runner shared by the exec-based probes.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrUnavailable marks a probe whose mechanism does not exist on this host
// (binary missing, probe disabled in config).
var ErrUnavailable = errors.New("probe unavailable")

// Runner executes a command and returns its standard output.
// Tests substitute a fake; production uses ExecRunner.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// WaitDelay bounds how long a command's output pipe is drained after the
// command exits or ctx ends. Background children that inherit stdout would
// otherwise hold Output open for their whole lifetime.
const WaitDelay = 100 * time.Millisecond

// ExecRunner runs the command with os/exec, bounded by ctx. Output that a
// successful command left to a lingering child is returned as is.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = WaitDelay
	out, err := cmd.Output()
	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil {
		err = nil
	}
	return out, err
}

// run executes argv through r. A missing binary or empty argv is reported
// as ErrUnavailable.
func run(ctx context.Context, r Runner, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, ErrUnavailable
	}
	out, err := r(ctx, argv[0], argv[1:]...)
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, argv[0])
	}
	return out, err
}

// nonEmptyLines counts lines with content.
func nonEmptyLines(out []byte) int {
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n
}
