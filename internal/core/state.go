package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownMode is returned by SetMode when the key is not in the table.
var ErrUnknownMode = errors.New("unknown mode")

// Publisher receives every committed mode. Implementations must not block
// for long and must not call back into the Store: Publish runs inside the
// Store's critical section so that publication order equals commit order.
type Publisher interface {
	Publish(Mode)
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(Mode)

// Publish calls f(m).
func (f PublisherFunc) Publish(m Mode) { f(m) }

// Publishers fans a commit out to several sinks in slice order.
type Publishers []Publisher

// Publish forwards m to every publisher.
func (ps Publishers) Publish(m Mode) {
	for _, p := range ps {
		p.Publish(m)
	}
}

// Snapshot is a consistent read of the mutable status.
type Snapshot struct {
	ModeKey      string
	DoNotDisturb bool
}

// Store holds the single current status with synchronization.
// Use the provided methods to mutate; callers should never take the lock directly.
type Store struct {
	mu            sync.RWMutex
	table         *ModeTable
	pub           Publisher
	modeKey       string
	doNotDisturb  bool
	lastEventCode int
}

// NewStore constructs a store at the table's default mode with
// do-not-disturb off. The last event code starts at CodeAvailable, so a
// quiet desktop does not cause a broadcast on the first poll.
// A nil pub discards publications.
func NewStore(table *ModeTable, pub Publisher) *Store {
	if table == nil {
		panic("core.NewStore: table is nil")
	}
	if pub == nil {
		pub = Publishers(nil)
	}
	return &Store{
		table:         table,
		pub:           pub,
		modeKey:       table.Default().Key,
		lastEventCode: CodeAvailable,
	}
}

// Table returns the mode table the store validates against.
func (s *Store) Table() *ModeTable { return s.table }

// Get returns the current mode key and do-not-disturb flag as one pair.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{ModeKey: s.modeKey, DoNotDisturb: s.doNotDisturb}
}

// Current returns the full attributes of the current mode.
func (s *Store) Current() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, _ := s.table.Lookup(s.modeKey)
	return m
}

// DoNotDisturb reports the do-not-disturb flag.
func (s *Store) DoNotDisturb() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doNotDisturb
}

// SetMode is the manual override. The mode is committed and published
// before SetMode returns. The last event code is left alone, so the next
// automatic code change replaces a manual choice.
//
// Returns ErrUnknownMode if key is not configured; state is untouched.
func (s *Store) SetMode(key string) error {
	m, ok := s.table.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(m)
	return nil
}

// CycleMode advances to the next mode in table order and publishes it.
func (s *Store) CycleMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.table.Next(s.modeKey)
	s.commitLocked(m)
	return m
}

// ToggleDoNotDisturb flips the flag and returns the new value. It does not
// change the mode or publish; the flag only shifts the next event code.
func (s *Store) ToggleDoNotDisturb() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doNotDisturb = !s.doNotDisturb
	return s.doNotDisturb
}

// Apply is the automatic path. It is edge-triggered on the event code:
// when code equals the last applied code nothing is committed and changed
// is false. Otherwise the code is resolved, committed and published even
// if it selects the mode that is already current.
func (s *Store) Apply(code int) (m Mode, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code == s.lastEventCode {
		m, _ = s.table.Lookup(s.modeKey)
		return m, false
	}
	s.lastEventCode = code
	m = s.table.Resolve(code)
	s.commitLocked(m)
	return m, true
}

func (s *Store) commitLocked(m Mode) {
	s.modeKey = m.Key
	s.pub.Publish(m)
}
