package probe

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestExecRunnerBoundedByLingeringChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tests := []struct {
		name    string
		script  string
		wantOut string
		wantErr bool
	}{
		{name: "background child keeps stdout", script: "sleep 3 & echo x", wantOut: "x", wantErr: false},
		{name: "pipeline outlives kill", script: "sleep 3 | cat", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			start := time.Now()
			out, err := ExecRunner(ctx, "sh", "-c", tt.script)
			elapsed := time.Since(start)

			if elapsed > 1500*time.Millisecond {
				t.Fatalf("ExecRunner took %v, want it bounded by the context", elapsed)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := strings.TrimSpace(string(out)); got != tt.wantOut {
				t.Errorf("output = %q, want %q", got, tt.wantOut)
			}
		})
	}
}

func TestCallActiveBoundedWithRealCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg := DefaultConfig()
	cfg.CallCommand = []string{"sh", "-c", "sleep 3 & echo x"}
	d, err := NewDesktop(cfg)
	if err != nil {
		t.Fatalf("NewDesktop: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	active, err := d.CallActive(ctx)
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("CallActive took %v", elapsed)
	}
	if err != nil || !active {
		t.Errorf("CallActive = %v, %v; want true, nil", active, err)
	}
}
