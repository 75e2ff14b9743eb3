// Package notify sends freedesktop desktop notifications over the session
// bus. Off linux, or without a session bus, notifications are dropped.
package notify

import "github.com/godbus/dbus/v5"

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// appName identifies the sender to the notification server.
const appName = "scrobblewatch"

// Notification is one desktop notification.
type Notification struct {
	Title      string // summary
	Body       string // may carry basic markup
	Icon       string // icon name or image path
	Timeout    int32  // ms; -1 server default, 0 never expires
	ReplacesID uint32 // 0 opens a new notification
	Urgency    Urgency
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify shows n and returns its server ID. A notifier that drops
	// notifications returns 0 and no error.
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(Notification) (uint32, error) { return 0, nil }

func (Nop) Close(uint32) error { return nil }

// args are the org.freedesktop.Notifications.Notify arguments for n:
// app_name, replaces_id, app_icon, summary, body, actions, hints,
// expire_timeout.
func (n Notification) args() []any {
	return []any{
		appName,
		n.ReplacesID,
		n.Icon,
		n.Title,
		n.Body,
		[]string{},
		n.hints(),
		n.Timeout,
	}
}

func (n Notification) hints() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
}
