package notify

import (
	"fmt"
	"sync"
)

// scrobbleTimeout is how long a scrobble notification stays up, in ms.
const scrobbleTimeout = 4000

// Track is the part of a scrobbled track shown in a notification.
type Track struct {
	Artist string
	Title  string
	Album  string
}

// ScrobbleNotification builds the notification for an accepted scrobble.
func ScrobbleNotification(t Track) Notification {
	body := t.Artist
	if t.Album != "" {
		body = fmt.Sprintf("%s - %s", t.Artist, t.Album)
	}
	return Notification{
		Title:   "Scrobbled: " + t.Title,
		Body:    body,
		Icon:    "audio-x-generic",
		Timeout: scrobbleTimeout,
		Urgency: UrgencyLow,
	}
}

// Replacer sends each notification in place of the previous one, so a
// burst of scrobbles shows a single bubble.
type Replacer struct {
	n      Notifier
	mu     sync.Mutex
	lastID uint32
}

// NewReplacer wraps n.
func NewReplacer(n Notifier) *Replacer {
	return &Replacer{n: n}
}

// Notify sends notif, replacing the previous notification if any.
func (r *Replacer) Notify(notif Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notif.ReplacesID = r.lastID
	id, err := r.n.Notify(notif)
	if err != nil {
		return err
	}
	r.lastID = id
	return nil
}
