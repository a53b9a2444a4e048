// Package desktop holds the operator-facing capabilities injected into the
// daemon: an InputSource of actions (toggle do-not-disturb, cycle mode) and
// a Notifier sink called on every mode change. The core never talks to the
// OS notification system directly.
package desktop
