package core

import (
	"errors"
	"fmt"
)

// Event codes produced by reducing the desktop signals of one poll cycle.
// The do-not-disturb flag shifts a base code into the alternate bank by
// adding DoNotDisturbOffset (101/102/103).
const (
	CodeAvailable = 1
	CodeIdle      = 2
	CodeCall      = 3

	DoNotDisturbOffset = 100
)

// Mode is a named presence state with its display attributes.
// Title, Note, Emoji and Color are opaque to the core.
type Mode struct {
	Key      string
	Title    string
	Note     string
	Emoji    string
	Color    string
	Triggers []int // event codes that select this mode automatically
}

// Errors returned by NewModeTable. They are wrapped with the offending
// key or code; use errors.Is to match.
var (
	ErrNoModes          = errors.New("mode table is empty")
	ErrEmptyKey         = errors.New("mode key is empty")
	ErrDuplicateKey     = errors.New("duplicate mode key")
	ErrDuplicateTrigger = errors.New("trigger code claimed by more than one mode")
	ErrUnknownDefault   = errors.New("default mode key not in table")
)

// ModeTable is the immutable set of configured modes. It is built once at
// startup and shared read-only afterwards, so it needs no locking.
type ModeTable struct {
	modes      []Mode
	byKey      map[string]int
	byTrigger  map[int]int
	defaultKey string
}

// NewModeTable validates modes and builds the lookup indexes. Modes keep
// their given order, which is also the order CycleMode walks.
func NewModeTable(modes []Mode, defaultKey string) (*ModeTable, error) {
	if len(modes) == 0 {
		return nil, ErrNoModes
	}

	t := &ModeTable{
		modes:      make([]Mode, 0, len(modes)),
		byKey:      make(map[string]int, len(modes)),
		byTrigger:  make(map[int]int),
		defaultKey: defaultKey,
	}
	for _, m := range modes {
		if m.Key == "" {
			return nil, ErrEmptyKey
		}
		if _, dup := t.byKey[m.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, m.Key)
		}
		idx := len(t.modes)
		for _, code := range m.Triggers {
			if other, dup := t.byTrigger[code]; dup {
				return nil, fmt.Errorf("%w: code %d (%q and %q)",
					ErrDuplicateTrigger, code, t.modes[other].Key, m.Key)
			}
			t.byTrigger[code] = idx
		}
		m.Triggers = append([]int(nil), m.Triggers...)
		t.modes = append(t.modes, m)
		t.byKey[m.Key] = idx
	}
	if _, ok := t.byKey[defaultKey]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, defaultKey)
	}
	return t, nil
}

// Resolve maps an event code to its mode. Codes no mode claims resolve to
// the default mode.
func (t *ModeTable) Resolve(code int) Mode {
	if idx, ok := t.byTrigger[code]; ok {
		return t.modes[idx]
	}
	return t.Default()
}

// Lookup returns the mode registered under key.
func (t *ModeTable) Lookup(key string) (Mode, bool) {
	idx, ok := t.byKey[key]
	if !ok {
		return Mode{}, false
	}
	return t.modes[idx], true
}

// Default returns the fallback mode.
func (t *ModeTable) Default() Mode {
	return t.modes[t.byKey[t.defaultKey]]
}

// Next returns the mode following key in table order, wrapping at the end.
// An unknown key yields the first mode.
func (t *ModeTable) Next(key string) Mode {
	idx, ok := t.byKey[key]
	if !ok {
		return t.modes[0]
	}
	return t.modes[(idx+1)%len(t.modes)]
}

// Modes returns a copy of all modes in table order.
func (t *ModeTable) Modes() []Mode {
	return append([]Mode(nil), t.modes...)
}

// Len reports the number of modes.
func (t *ModeTable) Len() int { return len(t.modes) }
