// Package collector turns desktop signals into automatic mode changes.
//
// A Collector polls a Sensor on a fixed interval (2s by default). Each
// cycle samples three independent signals (call active, idle seconds,
// media playing), reduces them with EventCode and hands the code to
// core.Store.Apply, which only commits when the code changed since the
// last cycle.
//
// The three probes run concurrently, each under ProbeTimeout, so a cycle
// never takes longer than one timeout and the interval is never shorter.
// A sensor that ignores its context is abandoned at the timeout.
//
// Probe errors are contained per probe: the failing signal takes its safe
// default (false, or unknown idle time) for that cycle and the next cycle
// is the retry. Availability transitions are logged at Info, repeated
// failures at Debug.
package collector
