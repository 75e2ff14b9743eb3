package observer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_InitWithNothingPlaying(t *testing.T) {
	p := &fakeProvider{}
	sink := &recordingSink{}
	o := newTestObserver(p, sink, newFakeClock())

	o.Init()
	o.checkChange()
	o.snapshotTick()

	assert.Empty(t, sink.all())
	assert.Nil(t, o.current)
}

func TestObserver_InitDetectsFirstTrack(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 10)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)

	o.Init()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, TrackDetected, events[0].Type)
	assert.Equal(t, TrackChanged, events[0].Change)
	assert.True(t, events[0].IsNowPlaying)
	assert.Equal(t, "One", events[0].Track.Title)
	assert.Equal(t, sec(200), events[0].Track.Duration)
	assert.Equal(t, clock.Now(), events[0].Track.Timestamp)
}

func TestObserver_IdentityStable(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 0)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	// Forward progress with jitter and small backward corrections.
	for _, pos := range []float64{1, 2, 4, 3, 6, 8, 7, 10, 12, 9, 15} {
		clock.advance(time.Second)
		p.setPosition(sec(pos))
		o.snapshotTick()
		o.checkChange()
	}

	assert.Empty(t, sink.all())
}

func TestObserver_ChangeOfAnyIdentityField(t *testing.T) {
	fields := map[string]func(o *Observation){
		"title":  func(o *Observation) { o.Title = "Other" },
		"artist": func(o *Observation) { o.Artist = "Other" },
		"album":  func(o *Observation) { o.Album = "Other" },
	}

	for name, mutate := range fields {
		t.Run(name, func(t *testing.T) {
			p := &fakeProvider{obs: track("One", 200, 50)}
			sink := &recordingSink{}
			clock := newFakeClock()
			o := newTestObserver(p, sink, clock)
			o.Init()
			sink.reset()

			next := track("One", 180, 1)
			mutate(next)
			clock.advance(time.Second)
			p.set(next)
			o.checkChange()

			events := sink.all()
			require.Len(t, events, 2)
			assert.Equal(t, TrackEnded, events[0].Type, "ended must come first")
			assert.Equal(t, "One", events[0].Track.Title)
			assert.Equal(t, "Album", events[0].Track.Album)
			assert.Equal(t, sec(50), events[0].PlayDuration)
			assert.Equal(t, TrackDetected, events[1].Type)
			assert.Equal(t, next.Identity(), events[1].Track.Identity())
			assert.Equal(t, TrackChanged, events[1].Change)
		})
	}
}

func TestObserver_LoopIsRestartNotSeek(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("Loop", 83, 77)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	logger, logs := newTestLogger()
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	o := New(p, sink, cfg, logger)
	o.Init()
	sink.reset()

	for _, pos := range []float64{79, 81} {
		clock.advance(time.Second)
		p.setPosition(sec(pos))
		o.snapshotTick()
	}
	clock.advance(time.Second)
	p.setPosition(sec(2))
	o.snapshotTick()

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, TrackEnded, events[0].Type)
	assert.Equal(t, Restarted, events[0].Change)
	assert.Equal(t, sec(81), events[0].PlayDuration)
	assert.Equal(t, TrackDetected, events[1].Type)
	assert.Equal(t, Restarted, events[1].Change)
	assert.Equal(t, clock.Now(), events[1].Track.Timestamp, "a new playthrough gets a new timestamp")
	assert.Equal(t, 1, logs.count("track completed and restarted"))
	assert.Equal(t, 0, logs.count("track replayed or seeked back"))
}

func TestObserver_SmallBackwardSeekIsNotANewTrack(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("Seek", 200, 100)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	clock.advance(time.Second)
	p.setPosition(sec(97))
	o.snapshotTick()
	o.checkChange()

	assert.Empty(t, sink.all())
	require.NotNil(t, o.snapshot)
	assert.Equal(t, sec(97), o.snapshot.Observation.Position)
}

func TestObserver_SignificantBackwardSeekIsReplay(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("Seek", 200, 100)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	clock.advance(time.Second)
	p.setPosition(sec(90))
	o.snapshotTick()

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, TrackEnded, events[0].Type)
	assert.Equal(t, Replayed, events[0].Change)
	assert.Equal(t, sec(100), events[0].PlayDuration)
	assert.Equal(t, TrackDetected, events[1].Type)
	assert.Equal(t, Replayed, events[1].Change)
}

func TestObserver_SnapshotSurvivesLateChangeDetection(t *testing.T) {
	// Without progress or signal support the snapshot tick still compares
	// identity before writing, so the vacated track keeps its own position.
	p := &fakeProvider{obs: track("One", 30, 0)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	for i := 1; i <= 29; i++ {
		clock.advance(time.Second)
		p.setPosition(sec(float64(i)))
		o.snapshotTick()
	}
	clock.advance(time.Second)
	p.set(track("Two", 240, 3))
	o.snapshotTick()

	ended := sink.ofType(TrackEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "One", ended[0].Track.Title)
	assert.Equal(t, sec(29), ended[0].PlayDuration)
	assert.Nil(t, o.snapshot, "snapshot is consumed by the ended event")
}

func TestObserver_PauseResumeNeverEnds(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("One", 200, 10)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	clock.advance(time.Second)
	p.setPlaying(false)
	o.snapshotTick()
	clock.advance(10 * time.Second)
	o.snapshotTick()
	o.checkChange()
	clock.advance(time.Second)
	p.setPlaying(true)
	o.snapshotTick()

	events := sink.all()
	require.Len(t, events, 2)
	assert.Empty(t, sink.ofType(TrackEnded))
	assert.Equal(t, PlayStateChanged, events[0].Change)
	assert.False(t, events[0].IsNowPlaying)
	assert.Equal(t, PlayStateChanged, events[1].Change)
	assert.True(t, events[1].IsNowPlaying)
}

func TestObserver_DuplicateRestartSuppressed(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("Loop", 83, 80)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	clock.advance(time.Second)
	p.setPosition(sec(81))
	o.snapshotTick()
	sink.reset()

	// Natural loop.
	clock.advance(500 * time.Millisecond)
	p.setPosition(sec(2))
	o.snapshotTick()
	// Host briefly reports the stale end position, then the start again.
	clock.advance(500 * time.Millisecond)
	p.setPosition(sec(82))
	o.snapshotTick()
	clock.advance(500 * time.Millisecond)
	p.setPosition(sec(1))
	o.snapshotTick()

	assert.Len(t, sink.ofType(TrackEnded), 1)
	assert.Len(t, sink.ofType(TrackDetected), 1)
}

func TestObserver_DuplicatePairSuppressedWithinCooldown(t *testing.T) {
	p := &fakeProvider{obs: track("A", 200, 50)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	sink.reset()

	clock.advance(5 * time.Second)
	p.set(track("B", 200, 0))
	o.checkChange() // A -> B
	startB := clock.Now()

	clock.advance(500 * time.Millisecond)
	p.set(track("A", 200, 51))
	o.checkChange() // B -> A flicker

	clock.advance(500 * time.Millisecond)
	p.set(track("B", 200, 1))
	o.checkChange() // A -> B again within cooldown

	assert.Len(t, sink.ofType(TrackEnded), 2)
	require.NotNil(t, o.current)
	assert.Equal(t, "B", o.current.obs.Title)
	assert.Equal(t, startB, o.current.startedAt, "adopted track keeps the original playthrough start")

	// The adopted track is announced again so the last detection matches the
	// track that will end next.
	detected := sink.ofType(TrackDetected)
	require.Len(t, detected, 3)
	assert.Equal(t, "B", detected[2].Track.Title)
	assert.Equal(t, startB, detected[2].Track.Timestamp)

	// Outside the cooldown the same pair counts again.
	clock.advance(3 * time.Second)
	p.set(track("A", 200, 0))
	o.checkChange()
	clock.advance(3 * time.Second)
	p.set(track("B", 200, 0))
	o.checkChange()
	assert.Len(t, sink.ofType(TrackDetected), 5)
	ended := sink.ofType(TrackEnded)
	require.Len(t, ended, 4)
	assert.Equal(t, "B", ended[2].Track.Title)
}

func TestObserver_NothingPlayingEndsAndClears(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 0)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	clock.advance(time.Second)
	p.setPosition(sec(120))
	o.snapshotTick()
	sink.reset()

	clock.advance(time.Second)
	p.set(nil)
	o.checkChange()
	o.checkChange()
	o.snapshotTick()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, TrackEnded, events[0].Type)
	assert.Equal(t, NothingObserved, events[0].Change)
	assert.Equal(t, sec(120), events[0].PlayDuration)
	assert.Nil(t, o.current)
	assert.Nil(t, o.snapshot)

	// Detection resumes with the next successful read.
	clock.advance(5 * time.Second)
	p.set(track("One", 200, 0))
	o.checkChange()
	detected := sink.ofType(TrackDetected)
	require.Len(t, detected, 1)
	assert.Equal(t, "One", detected[0].Track.Title)
}

func TestObserver_UnreadableHostIsNotAnError(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 10)}
	sink := &recordingSink{}
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	cfg.MissedReads = 2
	o := New(p, sink, cfg, nil)
	o.Init()
	sink.reset()

	// One failed read is tolerated.
	p.fail()
	assert.NotPanics(t, func() { o.checkChange() })
	assert.Empty(t, sink.all())

	p.set(track("One", 200, 15))
	clock.advance(time.Second)
	o.checkChange()
	assert.Empty(t, sink.all())

	// Two in a row end the track.
	p.fail()
	o.checkChange()
	o.checkChange()
	assert.Len(t, sink.ofType(TrackEnded), 1)
}

func TestObserver_SingleFailedReadKeepsPlaythrough(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 0)}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	started := o.current.startedAt
	clock.advance(time.Second)
	p.setPosition(sec(120))
	o.snapshotTick()
	sink.reset()

	clock.advance(time.Second)
	p.fail()
	o.snapshotTick()

	clock.advance(time.Second)
	p.set(track("One", 200, 122))
	o.snapshotTick()
	assert.Empty(t, sink.all(), "a single failed read must not end the track")
	require.NotNil(t, o.current)
	assert.Equal(t, started, o.current.startedAt)

	clock.advance(5 * time.Second)
	p.set(track("Two", 200, 0))
	o.checkChange()
	ended := sink.ofType(TrackEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "One", ended[0].Track.Title)
	assert.Equal(t, sec(122), ended[0].PlayDuration)
}

func TestObserver_SignalGatesFullObservation(t *testing.T) {
	p := &signalProvider{fakeProvider: fakeProvider{obs: track("One", 200, 10)}}
	sink := &recordingSink{}
	clock := newFakeClock()
	o := newTestObserver(p, sink, clock)
	o.Init()
	before := p.observeCount()

	for range 5 {
		clock.advance(time.Second)
		o.checkChange()
		o.snapshotTick()
	}
	assert.Equal(t, before, p.observeCount(), "unchanged signal must not trigger full observations")
	assert.Equal(t, 5, p.progressReads)

	p.set(track("Two", 200, 0))
	clock.advance(time.Second)
	o.checkChange()
	assert.Equal(t, before+1, p.observeCount())
	assert.Len(t, sink.ofType(TrackEnded), 1)
}

func TestObserver_SinkErrorIsLoggedNotFatal(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 10)}
	sink := &recordingSink{err: fmt.Errorf("transport hiccup")}
	logger, logs := newTestLogger()
	o := New(p, sink, Config{Now: newFakeClock().Now}, logger)

	assert.NotPanics(t, o.Init)
	assert.Equal(t, 1, logs.count("emit event failed"))
	assert.False(t, o.stopped.Load())
}

func TestObserver_ChannelClosedShutsDownOnce(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 10)}
	sink := &recordingSink{err: fmt.Errorf("send: %w", ErrChannelClosed)}
	logger, logs := newTestLogger()
	clock := newFakeClock()
	o := New(p, sink, Config{Now: clock.Now}, logger)

	o.Init()
	select {
	case <-o.Done():
	default:
		t.Fatal("observer should be done after channel invalidation")
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	for range 3 {
		p.set(track(fmt.Sprintf("T%d", p.observeCount()), 200, 0))
		clock.advance(5 * time.Second)
		o.checkChange()
		o.snapshotTick()
	}
	o.Stop()

	assert.Empty(t, sink.all())
	assert.Equal(t, 1, logs.count("observer shut down"))
	assert.Equal(t, 0, logs.count("emit event failed"))
}

func TestObserver_StopIsIdempotent(t *testing.T) {
	p := &fakeProvider{obs: track("One", 200, 10)}
	sink := &recordingSink{}
	logger, logs := newTestLogger()
	clock := newFakeClock()
	o := New(p, sink, Config{Now: clock.Now}, logger)
	o.Init()
	sink.reset()

	assert.NotPanics(t, func() {
		o.Stop()
		o.Stop()
	})
	assert.Equal(t, 1, logs.count("observer shut down"))

	p.set(track("Two", 200, 0))
	clock.advance(5 * time.Second)
	o.checkChange()
	o.snapshotTick()
	o.Init()
	assert.Empty(t, sink.all())
}
