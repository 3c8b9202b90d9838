// Package events fans out user-facing notifications from the core to
// presentation consumers.
package events

import (
	"sync"
	"time"

	"github.com/poodlabs/junosale/internal/entity"
)

// Notifier fans out notifications to all subscribers via buffered channels.
// It keeps the API intentionally small so call sites can stay straightforward.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[chan entity.Notification]struct{}
	buffer int
}

// NewNotifier creates a notifier with the given per-subscriber buffer.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 64
	}
	return &Notifier{
		subs:   make(map[chan entity.Notification]struct{}),
		buffer: buffer,
	}
}

// Publish sends the notification to all subscribers, dropping if a reader is slow.
func (n *Notifier) Publish(level entity.NotificationLevel, message string) {
	note := entity.Notification{Level: level, Message: message, Time: time.Now()}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs {
		select {
		case ch <- note:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives notifications until Unsubscribe
// is called.
func (n *Notifier) Subscribe() chan entity.Notification {
	ch := make(chan entity.Notification, n.buffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (n *Notifier) Unsubscribe(ch chan entity.Notification) {
	n.mu.Lock()
	if _, ok := n.subs[ch]; ok {
		delete(n.subs, ch)
		close(ch)
	}
	n.mu.Unlock()
}
