package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/scrobblewatch/internal/errmsg"
	"github.com/llehouerou/scrobblewatch/internal/scrobble"
	"github.com/llehouerou/scrobblewatch/internal/state"
)

var (
	historyLimit int
	dropIDs      []int64
)

var errUnknownPending = errors.New("no such pending scrobble")

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List scrobbles waiting to be submitted",
	Long: `List scrobbles waiting to be submitted. With --drop, remove the given
entries from the queue instead; they are not submitted or kept in the history.`,
	RunE: runPending,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently submitted scrobbles",
	RunE:  runHistory,
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Submit pending scrobbles now",
	Long: `Submit every pending scrobble once, oldest first. Entries that fail keep
their place in the queue with the error recorded.`,
	RunE: runFlush,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of scrobbles to show")
	pendingCmd.Flags().Int64SliceVar(&dropIDs, "drop", nil, "remove the pending scrobbles with these IDs")

	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(flushCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	if len(dropIDs) > 0 {
		return dropPending(cmd.OutOrStdout(), store, dropIDs)
	}
	entries, err := store.GetPendingScrobbles()
	if err != nil {
		return errmsg.Error(errmsg.OpPendingLoad, err)
	}
	return writePending(cmd.OutOrStdout(), entries, time.Now())
}

// dropPending removes the listed entries. Unknown IDs are reported after
// the known ones are dropped.
func dropPending(out io.Writer, store state.Interface, ids []int64) error {
	entries, err := store.GetPendingScrobbles()
	if err != nil {
		return errmsg.Error(errmsg.OpPendingLoad, err)
	}
	byID := make(map[int64]state.PendingScrobble, len(entries))
	for _, p := range entries {
		byID[p.ID] = p
	}

	var errs []error
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %d", errUnknownPending, id))
			continue
		}
		if err := store.DeletePendingScrobble(id); err != nil {
			errs = append(errs, fmt.Errorf("drop %d: %w", id, err))
			continue
		}
		delete(byID, id)
		fmt.Fprintf(out, "Dropped %d: %s\n", id, trackName(p.Artist, p.Track))
	}
	if err := errors.Join(errs...); err != nil {
		return errmsg.Error(errmsg.OpPendingDrop, err)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := state.Open()
	if err != nil {
		return errmsg.Error(errmsg.OpStateOpen, err)
	}
	defer store.Close()

	entries, err := store.RecentHistory(historyLimit)
	if err != nil {
		return errmsg.Error(errmsg.OpHistoryLoad, err)
	}
	return writeHistory(cmd.OutOrStdout(), entries, time.Now())
}

func runFlush(cmd *cobra.Command, args []string) error {
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
		return errmsg.Error(errmsg.OpPendingFlush, ErrNotLinked)
	}

	out := cmd.OutOrStdout()
	coord := scrobble.New(client, store, cfg.GetScrobbleSettings(), scrobble.Options{
		OnActivity: func(a scrobble.Activity) {
			if line := activityLine(a); line != "" {
				fmt.Fprintln(out, line)
			}
		},
	}, logger.With("component", "scrobble"))

	res, err := coord.Flush(cmd.Context())
	if err != nil {
		return errmsg.Error(errmsg.OpPendingFlush, err)
	}
	fmt.Fprintf(out, "%d submitted, %d failed, %d skipped.\n", res.Submitted, res.Failed, res.Skipped)
	return nil
}
