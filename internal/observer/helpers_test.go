package observer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var errUnreadable = errors.New("surface unreadable")

// fakeProvider is a scripted host surface without optional capabilities.
type fakeProvider struct {
	mu       sync.Mutex
	obs      *Observation
	err      error
	observes int
}

func (p *fakeProvider) Observe() (*Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observes++
	if p.err != nil {
		return nil, p.err
	}
	if p.obs == nil {
		return nil, nil
	}
	o := *p.obs
	return &o, nil
}

func (p *fakeProvider) set(o *Observation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs = o
	p.err = nil
}

func (p *fakeProvider) setPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs.Position = pos
}

func (p *fakeProvider) setPlaying(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs.Playing = playing
}

func (p *fakeProvider) fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = errUnreadable
}

func (p *fakeProvider) observeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observes
}

// signalProvider adds a title-like identity proxy and a progress read.
type signalProvider struct {
	fakeProvider
	progressReads int
}

func (p *signalProvider) Signal() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if p.obs == nil {
		return "", nil
	}
	return p.obs.Title + " - " + p.obs.Artist, nil
}

func (p *signalProvider) Progress() (Progress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progressReads++
	if p.err != nil || p.obs == nil {
		return Progress{}, errUnreadable
	}
	return Progress{Position: p.obs.Position, Playing: p.obs.Playing}, nil
}

// recordingSink collects emitted events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) ofType(t EventType) []Event {
	var out []Event
	for _, e := range s.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// syncBuffer is a goroutine-safe log destination.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) count(substr string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), substr)
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func track(title string, duration, position float64) *Observation {
	return &Observation{
		Title:    title,
		Artist:   "Artist",
		Album:    "Album",
		Duration: sec(duration),
		Position: sec(position),
		Playing:  true,
	}
}

func newTestObserver(p Provider, sink Sink, clock *fakeClock) *Observer {
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	return New(p, sink, cfg, nil)
}
