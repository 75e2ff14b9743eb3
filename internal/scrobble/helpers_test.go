package scrobble

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/llehouerou/scrobblewatch/internal/lastfm"
	"github.com/llehouerou/scrobblewatch/internal/observer"
	"github.com/llehouerou/scrobblewatch/internal/state"
)

// fakeScrobbler records calls and fails the next n scrobbles when told to.
type fakeScrobbler struct {
	mu         sync.Mutex
	nowPlaying []lastfm.ScrobbleTrack
	scrobbled  []lastfm.ScrobbleTrack
	failNext   int
	err        error
}

func (f *fakeScrobbler) UpdateNowPlaying(_ context.Context, t lastfm.ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t)
	return nil
}

func (f *fakeScrobbler) Scrobble(_ context.Context, t lastfm.ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return f.err
	}
	f.scrobbled = append(f.scrobbled, t)
	return nil
}

func (f *fakeScrobbler) fail(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
	f.err = err
}

func (f *fakeScrobbler) scrobbles() []lastfm.ScrobbleTrack {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]lastfm.ScrobbleTrack, len(f.scrobbled))
	copy(out, f.scrobbled)
	return out
}

func (f *fakeScrobbler) nowPlayingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nowPlaying)
}

// activityLog collects OnActivity callbacks.
type activityLog struct {
	mu  sync.Mutex
	all []Activity
}

func (l *activityLog) record(a Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, a)
}

func (l *activityLog) kinds() []ActivityKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityKind, len(l.all))
	for i, a := range l.all {
		out[i] = a.Kind
	}
	return out
}

var (
	playStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// testNow is the coordinator clock: a day after the plays.
	testNow = playStart.Add(24 * time.Hour)
)

func info(title string, duration time.Duration) observer.TrackInfo {
	return observer.TrackInfo{
		Artist:    "Artist",
		Title:     title,
		Album:     "Album",
		Duration:  duration,
		Timestamp: playStart,
	}
}

func ended(t observer.TrackInfo, played time.Duration) observer.Event {
	return observer.Event{Type: observer.TrackEnded, Track: t, PlayDuration: played, Change: observer.TrackChanged}
}

func detected(t observer.TrackInfo, playing bool) observer.Event {
	return observer.Event{Type: observer.TrackDetected, Track: t, IsNowPlaying: playing, Change: observer.TrackChanged}
}

func newTestCoordinator(client Scrobbler, store state.Interface, log *activityLog) *Coordinator {
	opts := Options{Rate: rate.Inf, Now: func() time.Time { return testNow }}
	if log != nil {
		opts.OnActivity = log.record
	}
	return New(client, store, DefaultSettings(), opts, nil)
}
