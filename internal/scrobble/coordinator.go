package scrobble

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/llehouerou/scrobblewatch/internal/bus"
	"github.com/llehouerou/scrobblewatch/internal/lastfm"
	"github.com/llehouerou/scrobblewatch/internal/observer"
	"github.com/llehouerou/scrobblewatch/internal/state"
)

// Scrobbler is the remote accounting service. *lastfm.Client implements it.
type Scrobbler interface {
	UpdateNowPlaying(ctx context.Context, track lastfm.ScrobbleTrack) error
	Scrobble(ctx context.Context, track lastfm.ScrobbleTrack) error
}

// Options configures delivery. Zero fields take their defaults.
type Options struct {
	MaxAttempts   int           // attempts before an entry is left alone (10)
	RetryInterval time.Duration // periodic delivery pass (5m)
	MaxAge        time.Duration // older pending entries are pruned (14 days)
	Rate          rate.Limit    // submissions per second (1)
	OnActivity    func(Activity)
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Minute
	}
	if o.MaxAge <= 0 {
		// Last.fm rejects timestamps older than two weeks.
		o.MaxAge = 14 * 24 * time.Hour
	}
	if o.Rate == 0 {
		o.Rate = rate.Every(time.Second)
	}
	if o.OnActivity == nil {
		o.OnActivity = func(Activity) {}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result summarizes one delivery pass.
type Result struct {
	Submitted int
	Failed    int
	Skipped   int // entries past MaxAttempts
}

// Coordinator consumes observer events and owns the delivery worker.
type Coordinator struct {
	client   Scrobbler
	store    state.Interface
	opts     Options
	limiter  *rate.Limiter
	log      *slog.Logger
	settings atomic.Pointer[Settings]

	wake      chan struct{}
	deliverMu sync.Mutex     // one delivery pass at a time
	inflight  sync.WaitGroup // now-playing updates
}

// New creates a coordinator. A nil logger discards.
func New(client Scrobbler, store state.Interface, settings Settings, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	c := &Coordinator{
		client:  client,
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(opts.Rate, 1),
		log:     logger,
		wake:    make(chan struct{}, 1),
	}
	c.settings.Store(&settings)
	return c
}

// Settings returns the policy in effect.
func (c *Coordinator) Settings() Settings {
	return *c.settings.Load()
}

// UpdateSettings replaces the policy. The next event sees it.
func (c *Coordinator) UpdateSettings(s Settings) {
	c.settings.Store(&s)
	c.log.Info("scrobble settings updated",
		"enabled", s.Enabled, "min_track_length", s.MinTrackLength, "threshold", s.Threshold)
}

// Run consumes sub and delivers pending scrobbles until ctx is canceled or
// the subscription is done. Events already buffered when the subscription
// ends are still handled.
func (c *Coordinator) Run(ctx context.Context, sub *bus.Subscription) error {
	ctx, cancel := context.WithCancel(ctx)
	var worker sync.WaitGroup
	worker.Add(1)
	go func() {
		defer worker.Done()
		c.deliveryLoop(ctx)
	}()
	defer func() {
		cancel()
		worker.Wait()
		c.inflight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-sub.Events:
			c.Handle(ctx, e)
		case <-sub.Done:
			for {
				select {
				case e := <-sub.Events:
					c.Handle(ctx, e)
				default:
					return nil
				}
			}
		}
	}
}

// Handle applies one observer event.
func (c *Coordinator) Handle(ctx context.Context, e observer.Event) {
	s := c.Settings()
	switch e.Type {
	case observer.TrackDetected:
		c.handleDetected(ctx, s, e)
	case observer.TrackEnded:
		c.handleEnded(s, e)
	}
}

func (c *Coordinator) handleDetected(ctx context.Context, s Settings, e observer.Event) {
	if !e.IsNowPlaying {
		c.report(Activity{Kind: Paused, Track: e.Track})
		return
	}
	c.report(Activity{Kind: NowPlaying, Track: e.Track})
	if !s.Enabled {
		return
	}

	// Best effort: a failed now-playing update is never retried.
	track := toScrobbleTrack(e.Track)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.client.UpdateNowPlaying(ctx, track); err != nil {
			c.log.Debug("now playing update failed", "track", e.Track.Identity().String(), "err", err)
		}
	}()
}

func (c *Coordinator) handleEnded(s Settings, e observer.Event) {
	name := e.Track.Identity().String()
	if !s.Enabled {
		c.log.Debug("scrobbling disabled, dropping play", "track", name)
		return
	}
	if !s.Eligible(e.Track.Duration, e.PlayDuration) {
		c.log.Debug("play not eligible",
			"track", name, "duration", e.Track.Duration, "played", e.PlayDuration)
		c.report(Activity{Kind: Ineligible, Track: e.Track, Played: e.PlayDuration})
		return
	}

	key := state.ScrobbleKey{Artist: e.Track.Artist, Track: e.Track.Title, Album: e.Track.Album}
	dup, err := c.store.HasNearbyScrobble(key, e.Track.Timestamp, s.DedupeWindow)
	if err != nil {
		c.log.Warn("duplicate check failed", "track", name, "err", err)
	}
	if dup {
		c.log.Info("dropping duplicate play", "track", name, "timestamp", e.Track.Timestamp)
		c.report(Activity{Kind: Duplicate, Track: e.Track, Played: e.PlayDuration})
		return
	}

	err = c.store.AddPendingScrobble(state.PendingScrobble{
		Artist:       e.Track.Artist,
		Track:        e.Track.Title,
		Album:        e.Track.Album,
		DurationSecs: int(e.Track.Duration.Seconds()),
		PlayedSecs:   int(e.PlayDuration.Seconds()),
		Timestamp:    e.Track.Timestamp,
	})
	if err != nil {
		c.log.Error("queue scrobble failed", "track", name, "err", err)
		c.report(Activity{Kind: Failed, Track: e.Track, Err: err})
		return
	}
	c.log.Info("scrobble queued", "track", name, "played", e.PlayDuration)
	c.report(Activity{Kind: Queued, Track: e.Track, Played: e.PlayDuration, Pending: c.pendingCount()})
	c.Wake()
}

// Wake requests a delivery pass without waiting for the retry interval.
func (c *Coordinator) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Flush performs one delivery pass.
func (c *Coordinator) Flush(ctx context.Context) (Result, error) {
	return c.deliver(ctx)
}

func (c *Coordinator) deliveryLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.RetryInterval)
	defer ticker.Stop()

	c.deliverLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		case <-ticker.C:
		}
		c.deliverLogged(ctx)
	}
}

func (c *Coordinator) deliverLogged(ctx context.Context) {
	res, err := c.deliver(ctx)
	switch {
	case errors.Is(err, context.Canceled):
	case errors.Is(err, lastfm.ErrNotAuthenticated):
		c.log.Debug("delivery paused, not linked to Last.fm")
	case err != nil:
		c.log.Warn("delivery pass failed", "err", err)
	case res.Submitted > 0 || res.Failed > 0:
		c.log.Info("delivery pass", "submitted", res.Submitted, "failed", res.Failed, "skipped", res.Skipped)
	}
}

// deliver drains the pending queue in creation order.
func (c *Coordinator) deliver(ctx context.Context) (Result, error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	var res Result
	if err := c.store.DeleteOldPendingScrobbles(c.opts.Now().Add(-c.opts.MaxAge)); err != nil {
		c.log.Warn("prune pending scrobbles failed", "err", err)
	}
	pending, err := c.store.GetPendingScrobbles()
	if err != nil {
		return res, err
	}

	for i := range pending {
		p := &pending[i]
		if p.Attempts >= c.opts.MaxAttempts {
			res.Skipped++
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return res, err
		}

		info := pendingTrackInfo(p)
		err := c.client.Scrobble(ctx, toScrobbleTrack(info))
		if errors.Is(err, lastfm.ErrNotAuthenticated) || errors.Is(err, context.Canceled) {
			// Nothing was attempted; keep the counter.
			return res, err
		}
		if err != nil {
			res.Failed++
			if uerr := c.store.UpdatePendingScrobbleAttempt(p.ID, err.Error()); uerr != nil {
				c.log.Warn("record failed attempt", "id", p.ID, "err", uerr)
			}
			c.log.Debug("scrobble failed", "track", info.Identity().String(), "attempt", p.Attempts+1, "err", err)
			c.report(Activity{Kind: Failed, Track: info, Err: err, Pending: len(pending) - res.Submitted})
			continue
		}

		if err := c.store.MarkSubmitted(p.ID, c.opts.Now()); err != nil {
			c.log.Warn("record submitted scrobble", "id", p.ID, "err", err)
		}
		res.Submitted++
		c.log.Info("scrobbled", "track", info.Identity().String())
		c.report(Activity{Kind: Submitted, Track: info, Pending: len(pending) - res.Submitted})
	}
	return res, nil
}

func (c *Coordinator) pendingCount() int {
	n, err := c.store.CountPendingScrobbles()
	if err != nil {
		return 0
	}
	return n
}

func (c *Coordinator) report(a Activity) {
	a.At = c.opts.Now()
	c.opts.OnActivity(a)
}

func pendingTrackInfo(p *state.PendingScrobble) observer.TrackInfo {
	return observer.TrackInfo{
		Artist:    p.Artist,
		Title:     p.Track,
		Album:     p.Album,
		Duration:  time.Duration(p.DurationSecs) * time.Second,
		Timestamp: p.Timestamp,
	}
}

func toScrobbleTrack(t observer.TrackInfo) lastfm.ScrobbleTrack {
	return lastfm.ScrobbleTrack{
		Artist:    t.Artist,
		Track:     t.Title,
		Album:     t.Album,
		Duration:  t.Duration,
		Timestamp: t.Timestamp,
	}
}
