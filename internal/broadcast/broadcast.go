package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/sanverite/statusboard/internal/core"
)

// DefaultBuffer is the per-subscriber queue depth. A subscriber that falls
// this many messages behind is dropped.
const DefaultBuffer = 16

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broadcast: broadcaster is closed")

// Message is the wire payload of one mode snapshot.
type Message struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Note  string `json:"note"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// FromMode converts a mode to its wire payload.
func FromMode(m core.Mode) Message {
	return Message{
		Key:   m.Key,
		Title: m.Title,
		Note:  m.Note,
		Emoji: m.Emoji,
		Color: m.Color,
	}
}

// Options configures a Broadcaster.
type Options struct {
	Buffer int
	Logger hclog.Logger
}

// Stats is a point-in-time view of the broadcaster counters.
type Stats struct {
	Subscribers int
	Published   uint64
	Dropped     uint64
}

// Broadcaster fans mode snapshots out to subscribers. It implements
// core.Publisher.
type Broadcaster struct {
	mu        sync.Mutex
	subs      map[string]*Subscription
	current   Message
	buffer    int
	closed    bool
	published uint64
	dropped   uint64
	logger    hclog.Logger
}

// New constructs a Broadcaster whose snapshot starts at initial.
func New(initial core.Mode, opts Options) *Broadcaster {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Broadcaster{
		subs:    make(map[string]*Subscription),
		current: FromMode(initial),
		buffer:  opts.Buffer,
		logger:  opts.Logger,
	}
}

// Subscribe registers a new subscriber. The current snapshot is queued on
// its channel before Subscribe returns; registration and the snapshot are
// taken under the same lock as Publish, so the subscriber sees either the
// state before or after a concurrent Publish, exactly once.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan Message, b.buffer),
		b:  b,
	}
	sub.ch <- b.current
	b.subs[sub.id] = sub
	b.logger.Debug("subscriber added", "id", sub.id, "subscribers", len(b.subs))
	return sub, nil
}

// Unsubscribe removes the subscriber with the given id and closes its
// channel. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

// Publish records m as the current snapshot and queues it for every
// subscriber without blocking. Subscribers whose queue is full are dropped.
func (b *Broadcaster) Publish(m core.Mode) {
	msg := FromMode(m)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = msg
	if b.closed {
		return
	}
	b.published++
	for id, sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			b.dropped++
			b.removeLocked(id)
			b.logger.Debug("subscriber dropped, queue full", "id", id)
		}
	}
}

// Current returns the last published snapshot.
func (b *Broadcaster) Current() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Stats returns the broadcaster counters.
func (b *Broadcaster) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Subscribers: len(b.subs),
		Published:   b.published,
		Dropped:     b.dropped,
	}
}

// Close removes every subscriber, closing their channels so delivery loops
// return. Later Subscribe calls fail with ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id := range b.subs {
		b.removeLocked(id)
	}
}

func (b *Broadcaster) removeLocked(id string) {
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// Subscription is one registered delivery channel.
type Subscription struct {
	id string
	ch chan Message
	b  *Broadcaster
}

// ID returns the subscriber id.
func (s *Subscription) ID() string { return s.id }

// C returns the delivery channel. It is closed when the subscription ends,
// either by Close or because the broadcaster dropped a slow consumer.
func (s *Subscription) C() <-chan Message { return s.ch }

// Close unsubscribes. Safe to call more than once and concurrently with
// Publish.
func (s *Subscription) Close() { s.b.Unsubscribe(s.id) }
