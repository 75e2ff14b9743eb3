// Package observer tracks what a polled host player is playing and turns its
// noisy snapshots into discrete playback events.
//
// Two timers drive the observer. The change timer performs a cheap identity
// check and a full observation only when the identity proxy moves. The
// snapshot timer keeps a fresh copy of the current track's position so that
// the ended track is reported with its own last known position, never with
// the position of the track that replaced it. Any read that suggests the
// identity, transport state or playthrough changed short-circuits into the
// full observation path before a snapshot is written.
package observer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Observer owns the current track state and snapshot. Both are only touched
// while a tick holds tickMu, and ticks only run from Init and Run.
type Observer struct {
	provider Provider
	signals  SignalProvider
	progress ProgressProvider
	sink     Sink
	cfg      Config
	log      *slog.Logger

	tickMu   sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	current    *trackState
	snapshot   *Snapshot
	lastSignal string
	haveSignal bool
	misses     int
	recent     map[transition]time.Time
	// announced is the identity of the last TrackDetected.
	announced Identity
}

type transition struct {
	from Identity
	to   Identity
}

// New creates an observer reading from p and emitting to sink. Zero config
// fields take their defaults; a nil logger discards.
func New(p Provider, sink Sink, cfg Config, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Observer{
		provider: p,
		sink:     sink,
		cfg:      cfg.withDefaults(),
		log:      logger,
		done:     make(chan struct{}),
		recent:   make(map[transition]time.Time),
	}
	if sp, ok := p.(SignalProvider); ok {
		o.signals = sp
	}
	if pp, ok := p.(ProgressProvider); ok {
		o.progress = pp
	}
	return o
}

// Init records the baseline identity signal and performs one full
// observation. Observing nothing is not an error.
func (o *Observer) Init() {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	if o.stopped.Load() {
		return
	}

	if o.signals != nil {
		if sig, err := o.signals.Signal(); err == nil {
			o.lastSignal = sig
			o.haveSignal = true
		}
	}
	obs := o.observe()
	if obs == nil {
		o.log.Debug("no track observed at startup")
		return
	}
	o.apply(obs)
}

// Run drives both timers until ctx is canceled or the observer stops.
func (o *Observer) Run(ctx context.Context) error {
	change := time.NewTicker(o.cfg.ChangeInterval)
	defer change.Stop()
	snap := time.NewTicker(o.cfg.SnapshotInterval)
	defer snap.Stop()

	for {
		select {
		case <-ctx.Done():
			o.shutdown("context canceled")
			return ctx.Err()
		case <-o.done:
			return nil
		case <-change.C:
			o.checkChange()
		case <-snap.C:
			o.snapshotTick()
		}
	}
}

// Done is closed once the observer has shut down.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Stop shuts the observer down. It is safe to call more than once and from
// any goroutine except the sink's Emit. Once Stop returns no further events
// are emitted.
func (o *Observer) Stop() {
	o.shutdown("stopped")
	// Wait out a tick already in flight.
	o.tickMu.Lock()
	o.tickMu.Unlock() //nolint:staticcheck // barrier
}

func (o *Observer) shutdown(reason string) {
	o.stopOnce.Do(func() {
		o.stopped.Store(true)
		close(o.done)
		o.log.Info("observer shut down", "reason", reason)
	})
}

// checkChange runs on the change interval.
func (o *Observer) checkChange() {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	if o.stopped.Load() {
		return
	}

	if o.signals != nil {
		sig, err := o.signals.Signal()
		if err == nil {
			unchanged := o.haveSignal && sig == o.lastSignal
			o.lastSignal = sig
			o.haveSignal = true
			if unchanged && o.current != nil {
				return
			}
		}
	}
	o.apply(o.observe())
}

// snapshotTick runs on the snapshot interval.
func (o *Observer) snapshotTick() {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()
	if o.stopped.Load() || o.current == nil {
		return
	}

	if o.signals != nil {
		sig, err := o.signals.Signal()
		if err != nil || (o.haveSignal && sig != o.lastSignal) {
			if err == nil {
				o.lastSignal = sig
			}
			o.apply(o.observe())
			return
		}
	}

	var p Progress
	if o.progress != nil {
		var err error
		p, err = o.progress.Progress()
		if err != nil || o.movedOn(p) {
			o.apply(o.observe())
			return
		}
	} else {
		// Full read: the identity comes along, so check it first.
		obs := o.observe()
		if obs == nil || !obs.SameTrack(o.current.obs) {
			o.apply(obs)
			return
		}
		p = Progress{Position: obs.Position, Playing: obs.Playing}
		if o.movedOn(p) {
			o.apply(obs)
			return
		}
	}

	snap := o.current.obs
	snap.Position = p.Position
	snap.Playing = p.Playing
	o.snapshot = &Snapshot{Observation: snap, TakenAt: o.cfg.Now()}
	o.misses = 0
}

// movedOn reports whether p cannot simply refresh the snapshot: the
// position went backward beyond tolerance or the transport state flipped.
func (o *Observer) movedOn(p Progress) bool {
	last := o.lastKnown()
	if last.Position-p.Position > o.cfg.SeekTolerance {
		return true
	}
	return last.Playing != p.Playing
}

// lastKnown returns the freshest view of the current track: the snapshot
// when it is at least as recent as the last full observation.
func (o *Observer) lastKnown() Observation {
	if s := o.snapshot; s != nil && s.Observation.SameTrack(o.current.obs) &&
		!s.TakenAt.Before(o.current.observedAt) {
		return s.Observation
	}
	return o.current.obs
}

func (o *Observer) observe() *Observation {
	obs, err := o.provider.Observe()
	if err != nil {
		o.log.Debug("observe failed", "err", err)
		return nil
	}
	return obs
}

// apply classifies a full observation and emits whatever it implies.
func (o *Observer) apply(obs *Observation) {
	now := o.cfg.Now()

	if obs == nil {
		o.misses++
		if o.current == nil || o.misses < o.cfg.MissedReads {
			return
		}
		o.log.Info("nothing playing", "track", o.current.obs.Identity().String())
		if !o.current.ended {
			o.emitEnded(NothingObserved)
		}
		o.current = nil
		o.snapshot = nil
		return
	}
	o.misses = 0

	var prev *Observation
	if o.current != nil {
		last := o.lastKnown()
		prev = &last
	}

	change := Classify(prev, *obs, o.cfg.tolerances())
	switch {
	case change.IsNewPlaythrough():
		o.startPlaythrough(change, *obs, now)
	case change == PlayStateChanged:
		o.refresh(*obs, now)
		o.log.Debug("play state changed", "track", obs.Identity().String(), "playing", obs.Playing)
		o.emit(Event{
			Type:         TrackDetected,
			Track:        trackInfo(o.current),
			IsNowPlaying: obs.Playing,
			Change:       change,
		})
	default:
		o.refresh(*obs, now)
	}
}

func (o *Observer) refresh(obs Observation, now time.Time) {
	o.current.obs = obs
	o.current.observedAt = now
}

// startPlaythrough ends the current track (if any) and makes obs current.
func (o *Observer) startPlaythrough(change Change, obs Observation, now time.Time) {
	var from Identity
	if o.current != nil {
		from = o.current.obs.Identity()
	}
	key := transition{from: from, to: obs.Identity()}

	for k, at := range o.recent {
		if now.Sub(at) >= o.cfg.DuplicateCooldown {
			delete(o.recent, k)
		}
	}
	if at, ok := o.recent[key]; ok {
		o.log.Debug("suppressed repeated transition",
			"change", change.String(), "from", from.String(), "to", key.to.String(),
			"since", now.Sub(at))
		o.current = &trackState{obs: obs, observedAt: now, startedAt: at}
		o.snapshot = nil
		if key.to != o.announced {
			o.emit(Event{
				Type:         TrackDetected,
				Track:        trackInfo(o.current),
				IsNowPlaying: obs.Playing,
				Change:       change,
			})
		}
		return
	}
	o.recent[key] = now

	if o.current != nil && !o.current.ended {
		o.emitEnded(change)
	}

	switch change {
	case Restarted:
		o.log.Info("track completed and restarted", "track", key.to.String())
	case Replayed:
		o.log.Info("track replayed or seeked back", "track", key.to.String())
	default:
		o.log.Info("track changed", "from", from.String(), "to", key.to.String())
	}

	o.current = &trackState{obs: obs, observedAt: now, startedAt: now}
	o.snapshot = nil
	o.emit(Event{
		Type:         TrackDetected,
		Track:        trackInfo(o.current),
		IsNowPlaying: obs.Playing,
		Change:       change,
	})
}

// emitEnded finalizes the current track, consuming the snapshot.
func (o *Observer) emitEnded(change Change) {
	played := o.lastKnown().Position
	o.snapshot = nil
	o.current.ended = true
	o.emit(Event{
		Type:         TrackEnded,
		Track:        trackInfo(o.current),
		PlayDuration: played,
		Change:       change,
	})
}

func (o *Observer) emit(e Event) {
	if o.stopped.Load() {
		return
	}
	if e.Type == TrackDetected {
		o.announced = e.Track.Identity()
	}
	if err := o.sink.Emit(e); err != nil {
		if errors.Is(err, ErrChannelClosed) {
			o.shutdown("event channel closed")
			return
		}
		o.log.Warn("emit event failed", "type", e.Type.String(), "err", err)
	}
}
