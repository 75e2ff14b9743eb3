package bus

import (
	"sync"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// Subscription provides the event channel for one consumer.
type Subscription struct {
	Events <-chan observer.Event
	Done   <-chan struct{}

	// Internal write channels
	eventCh   chan observer.Event
	doneCh    chan struct{}
	closeOnce sync.Once
}

// newSubscription creates a subscription with a buffered event channel.
func newSubscription() *Subscription {
	s := &Subscription{
		eventCh: make(chan observer.Event, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.Events = s.eventCh
	s.Done = s.doneCh
	return s
}

// Close signals that the subscriber no longer reads. Buffered events stay
// readable. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.doneCh)
	})
}
