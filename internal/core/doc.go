// Package core owns the presence status and the rules that select it.
//
// Overview
//
// The core package models the status as one mode key drawn from an
// immutable ModeTable plus a do-not-disturb flag. It provides a single
// concurrency boundary: methods on *Store.
//
// Mode Table
//
// A ModeTable is an ordered list of modes with display attributes and the
// event codes ("triggers") that select each mode automatically. Resolve
// maps an event code to a mode and falls back to the default mode for any
// code nobody claims. NewModeTable rejects empty tables, empty or duplicate
// keys, a trigger claimed twice, and a default key that is not present.
//
// Event Codes
//
//   1   available (no call, not idle)
//   2   idle past the threshold with no media playing
//   3   voice call active
//   +100 when do-not-disturb is on (101, 102, 103)
//
// Concurrency & Safety
//
// Store is safe for concurrent use. Reads (Get, Current, DoNotDisturb)
// take a read lock and return values. SetMode, CycleMode, Apply and
// ToggleDoNotDisturb are serialized by the write lock. Every commit calls
// the injected Publisher while the lock is held, so publication order is
// commit order.
//
// Manual and Automatic Paths
//
// SetMode and CycleMode are manual overrides and publish immediately.
// Apply is the automatic path and only commits when the event code differs
// from the last applied one. A manual override does not reset that code:
// it holds until the signals next change, then the automatic mode wins.
package core
