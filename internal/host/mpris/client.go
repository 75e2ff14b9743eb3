//go:build linux

package mpris

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// Verify Provider implements the observer capabilities at compile time.
var (
	_ observer.Provider         = (*Provider)(nil)
	_ observer.SignalProvider   = (*Provider)(nil)
	_ observer.ProgressProvider = (*Provider)(nil)
)

// Provider reads the first MPRIS player whose bus name matches a filter.
type Provider struct {
	conn   *dbus.Conn
	filter string
	log    *slog.Logger

	mu   sync.Mutex
	name string // resolved bus name, empty until found
}

// New connects to the session bus. filter selects the player, e.g.
// "firefox"; empty matches any player.
func New(filter string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Provider{conn: conn, filter: filter, log: logger}, nil
}

// Close releases the D-Bus connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

// Observe reads metadata, position and playback status in one call.
func (p *Provider) Observe() (*observer.Observation, error) {
	props, err := p.getAll()
	if err != nil {
		return nil, err
	}
	return observation(props), nil
}

// Signal returns the track id and title, which change together with the
// tab's media session.
func (p *Provider) Signal() (string, error) {
	v, err := p.get("Metadata")
	if err != nil {
		return "", err
	}
	m, _ := v.Value().(map[string]dbus.Variant)
	return signalOf(parseMetadata(m)), nil
}

// Progress reads position and playback status only.
func (p *Provider) Progress() (observer.Progress, error) {
	pos, err := p.get("Position")
	if err != nil {
		return observer.Progress{}, err
	}
	status, err := p.get("PlaybackStatus")
	if err != nil {
		return observer.Progress{}, err
	}
	s, _ := status.Value().(string)
	return observer.Progress{Position: positionFrom(pos), Playing: isPlaying(s)}, nil
}

func (p *Provider) getAll() (map[string]dbus.Variant, error) {
	obj, err := p.player()
	if err != nil {
		return nil, err
	}
	var props map[string]dbus.Variant
	if err := obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, playerIface).Store(&props); err != nil {
		p.forget()
		return nil, fmt.Errorf("read player properties: %w", err)
	}
	return props, nil
}

func (p *Provider) get(prop string) (dbus.Variant, error) {
	obj, err := p.player()
	if err != nil {
		return dbus.Variant{}, err
	}
	v, err := obj.GetProperty(playerIface + "." + prop)
	if err != nil {
		p.forget()
		return dbus.Variant{}, fmt.Errorf("read %s: %w", prop, err)
	}
	return v, nil
}

// player resolves the bus name once and keeps it until a call fails.
func (p *Provider) player() (dbus.BusObject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name == "" {
		var names []string
		if err := p.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
			return nil, fmt.Errorf("list bus names: %w", err)
		}
		name, ok := pickPlayer(names, p.filter)
		if !ok {
			return nil, ErrNoPlayer
		}
		p.name = name
		p.log.Info("mpris player found", "name", name)
	}
	return p.conn.Object(p.name, objectPath), nil
}

func (p *Provider) forget() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name != "" {
		p.log.Debug("mpris player lost", "name", p.name)
		p.name = ""
	}
}
