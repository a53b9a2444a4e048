// Package probe contains the desktop signal probes used by the collector.
//
// # Overview
//
// The probe package answers three questions about the local desktop, one
// method each on *Desktop (which satisfies collector.Sensor). Probes accept
// a context, are bounded by it, and return explicit errors without retries
// or background state.
//
// # Signals
//
//   - CallActive:   an application holds a microphone capture stream
//     (`pactl list short source-outputs` prints at least one line).
//   - IdleSeconds:  user idle time from `xprintidle` (milliseconds). When
//     the binary is missing the value is unknown, not an error.
//   - MediaPlaying: `playerctl status` prints "Playing", or the configured
//     MPD server reports state "play". Only fails if every source fails.
//
// # Error Model
//
// A missing binary or an empty command is ErrUnavailable. Callers treat
// any error as "signal absent" for the current cycle.
//
// # Implementation Notes
//
// Commands run through a Runner so tests can substitute canned output.
// The MPD client opens a fresh connection per query.
package probe
