package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/llehouerou/scrobblewatch/internal/bus"
	"github.com/llehouerou/scrobblewatch/internal/config"
	"github.com/llehouerou/scrobblewatch/internal/errmsg"
	"github.com/llehouerou/scrobblewatch/internal/notify"
	"github.com/llehouerou/scrobblewatch/internal/observer"
	"github.com/llehouerou/scrobblewatch/internal/scrobble"
	"github.com/llehouerou/scrobblewatch/internal/state"
	"github.com/llehouerou/scrobblewatch/internal/ui/status"
)

const activityBuffer = 32

var (
	runTUI    bool
	runEvents bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the player and scrobble",
	Long: `Watch the configured player and scrobble finished plays.

Plays are queued locally and submitted as soon as Last.fm accepts them, so
nothing is lost while offline or before 'scrobblewatch auth' has been run.
Changes to the [scrobble] section of the config file apply immediately.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a live status view")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "print observer events as JSON lines")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	client, err := newLastfmClient(store)
	if err != nil {
		return err
	}
	if !client.IsAuthenticated() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Last.fm is not linked; plays will queue until 'scrobblewatch auth login'.")
	}

	src, err := openSource(cfg.GetSourceConfig(), logger)
	if err != nil {
		return err
	}
	defer src.close()

	b := bus.New()
	defer b.Close()
	scrobbles := b.Subscribe()

	var wg sync.WaitGroup
	if runEvents {
		events := b.Subscribe()
		wg.Go(func() { printEvents(cmd.OutOrStdout(), events) })
	}

	var activity chan scrobble.Activity
	if runTUI {
		activity = make(chan scrobble.Activity, activityBuffer)
	}
	onActivity := activitySink(cmd.OutOrStdout(), activity, newNotifier())

	coord := scrobble.New(client, store, cfg.GetScrobbleSettings(),
		scrobble.Options{OnActivity: onActivity}, logger.With("component", "scrobble"))

	watcher, err := config.Watch(configPaths(),
		func(c *config.Config) { coord.UpdateSettings(c.GetScrobbleSettings()) },
		func(err error) { logger.Warn("config reload failed", "err", err) })
	if err != nil {
		logger.Warn("config watch unavailable", "err", err)
	} else {
		defer watcher.Close()
	}

	obs := observer.New(src.provider, b, cfg.GetObserverConfig(), logger.With("component", "observer"))
	obs.Init()

	wg.Go(func() {
		if err := obs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("observer stopped", "err", err)
		}
	})
	var coordErr error
	wg.Go(func() {
		coordErr = coord.Run(ctx, scrobbles)
	})
	logger.Info("watching", "source", src.name)

	var uiErr error
	if runTUI {
		pending, _ := store.CountPendingScrobbles()
		m := status.New(activity, src.name)
		m.SetPending(pending)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			uiErr = errmsg.Error(errmsg.OpStatusView, err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	stopPipeline(obs, b)
	wg.Wait()

	if uiErr != nil {
		return uiErr
	}
	if coordErr != nil && !errors.Is(coordErr, context.Canceled) {
		return errmsg.Error(errmsg.OpLastfmScrobble, coordErr)
	}
	return nil
}

// stopPipeline closes the bus before stopping the observer: a tick blocked
// in Emit on a subscriber that stopped reading only returns once the bus is
// closed, and Stop waits for that tick.
func stopPipeline(obs *observer.Observer, b *bus.Bus) {
	b.Close()
	obs.Stop()
}

// activitySink fans coordinator activity out to the status view (when ui is
// non-nil), desktop notifications and plain output. The view never blocks
// the coordinator: activity it has not consumed is dropped.
func activitySink(out io.Writer, ui chan<- scrobble.Activity, n *notify.Replacer) func(scrobble.Activity) {
	var mu sync.Mutex
	return func(a scrobble.Activity) {
		if n != nil && a.Kind == scrobble.Submitted {
			err := n.Notify(notify.ScrobbleNotification(notify.Track{
				Artist: a.Track.Artist,
				Title:  a.Track.Title,
				Album:  a.Track.Album,
			}))
			if err != nil {
				logger.Debug("scrobble notification failed", "err", err)
			}
		}
		if ui != nil {
			select {
			case ui <- a:
			default:
			}
			return
		}
		if line := activityLine(a); line != "" && !runEvents {
			mu.Lock()
			fmt.Fprintln(out, line)
			mu.Unlock()
		}
	}
}

func newNotifier() *notify.Replacer {
	if !cfg.Notify.Enabled {
		return nil
	}
	n, err := notify.New()
	if err != nil {
		logger.Warn("desktop notifications unavailable", "err", err)
		return nil
	}
	return notify.NewReplacer(n)
}

// printEvents writes each event as a JSON line until the bus closes.
func printEvents(out io.Writer, sub *bus.Subscription) {
	enc := json.NewEncoder(out)
	for {
		select {
		case e := <-sub.Events:
			if err := enc.Encode(e); err != nil {
				logger.Warn("write event", "err", err)
			}
		case <-sub.Done:
			return
		}
	}
}
