// Package bus is the message boundary between the observer and its
// consumers. Events are buffered per subscriber and never dropped: Emit
// waits for buffer space instead.
package bus

import (
	"sync"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

const eventBufferSize = 16

// Verify Bus implements observer.Sink at compile time.
var _ observer.Sink = (*Bus)(nil)

// Bus fans observer events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an open bus.
func New() *Bus {
	return &Bus{done: make(chan struct{})}
}

// Subscribe creates a new subscription. Subscribing to a closed bus returns
// a subscription that is already done.
func (b *Bus) Subscribe() *Subscription {
	sub := newSubscription()

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		sub.Close()
	default:
		b.subs = append(b.subs, sub)
	}
	return sub
}

// Emit delivers e to every live subscriber, in subscription order. It
// returns observer.ErrChannelClosed once the bus is closed.
func (b *Bus) Emit(e observer.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return observer.ErrChannelClosed
	default:
	}

	for _, sub := range b.subs {
		select {
		case sub.eventCh <- e:
		case <-sub.doneCh:
			// Subscriber left; skip it.
		case <-b.done:
			return observer.ErrChannelClosed
		}
	}
	return nil
}

// Close shuts the bus and every subscription. Safe to call more than once.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for _, sub := range b.subs {
			sub.Close()
		}
		b.subs = nil
		b.mu.Unlock()
	})
}

// Done is closed when the bus is closed.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}
