package desktop

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sanverite/statusboard/internal/core"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, title, body string) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// NotifySend notifies through the notify-send binary. A missing binary is
// not an error.
type NotifySend struct {
	// Command overrides the binary name. Empty means "notify-send".
	Command string
}

// Notify implements Notifier.
func (n NotifySend) Notify(ctx context.Context, title, body string) error {
	name := n.Command
	if name == "" {
		name = "notify-send"
	}
	cmd := exec.CommandContext(ctx, name, title, body)
	cmd.WaitDelay = notifyWaitDelay
	err := cmd.Run()
	if errors.Is(err, exec.ErrNotFound) {
		return nil
	}
	return err
}

// DefaultNotifyTimeout bounds one notification.
const DefaultNotifyTimeout = 5 * time.Second

// notifyWaitDelay bounds the wait for I/O after the notifier exits or is
// killed.
const notifyWaitDelay = 100 * time.Millisecond

// ModeNotifier is a core.Publisher that turns each committed mode into a
// desktop notification. Notifications are sent from a single background
// goroutine so Publish never blocks the store; if notifications back up,
// intermediate ones are skipped.
type ModeNotifier struct {
	n      Notifier
	logger hclog.Logger
	queue  chan core.Mode
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewModeNotifier starts the delivery goroutine. Call Close to stop it.
func NewModeNotifier(n Notifier, logger hclog.Logger) *ModeNotifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	mn := &ModeNotifier{
		n:      n,
		logger: logger,
		queue:  make(chan core.Mode, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go mn.loop()
	return mn
}

// Publish implements core.Publisher. It never blocks; when a notification
// is already pending it is replaced by m.
func (mn *ModeNotifier) Publish(m core.Mode) {
	for {
		select {
		case mn.queue <- m:
			return
		default:
		}
		select {
		case <-mn.queue:
		default:
		}
	}
}

// Close stops the delivery goroutine and waits for an in-flight
// notification. A pending one is dropped. Publish after Close is a no-op.
func (mn *ModeNotifier) Close() {
	mn.once.Do(func() { close(mn.stop) })
	<-mn.done
}

func (mn *ModeNotifier) loop() {
	defer close(mn.done)
	for {
		select {
		case <-mn.stop:
			return
		case m := <-mn.queue:
			mn.notify(m)
		}
	}
}

func (mn *ModeNotifier) notify(m core.Mode) {
	title, body := NotificationText(m)
	ctx, cancel := context.WithTimeout(context.Background(), DefaultNotifyTimeout)
	defer cancel()
	if err := mn.n.Notify(ctx, title, body); err != nil {
		mn.logger.Debug("notification failed", "mode", m.Key, "error", err)
	}
}

// NotificationText renders the notification for m. HTML line breaks in the
// title are shown as " · ".
func NotificationText(m core.Mode) (title, body string) {
	body = m.Title
	for _, br := range []string{"<br>", "<br/>", "<br />"} {
		body = strings.ReplaceAll(body, br, " · ")
	}
	return "Mode " + m.Key, body
}
