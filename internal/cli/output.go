package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/scrobblewatch/internal/scrobble"
	"github.com/llehouerou/scrobblewatch/internal/state"
	"github.com/llehouerou/scrobblewatch/internal/ui/render"
)

// Column widths for free text in tables.
const (
	trackColumn = 48
	albumColumn = 32
	errorColumn = 40
)

// table writes aligned columns.
type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	if len(headers) > 0 {
		t.row(headers...)
	}
	return t
}

func (t *table) row(cols ...string) {
	_, _ = t.w.Write([]byte(strings.Join(cols, "\t") + "\n"))
}

func (t *table) flush() error {
	return t.w.Flush()
}

func trackName(artist, title string) string {
	if artist == "" {
		return render.Sanitize(title)
	}
	return render.Sanitize(artist + " - " + title)
}

func clock(secs int) string {
	if secs <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// writePending lists queued scrobbles oldest first.
func writePending(out io.Writer, entries []state.PendingScrobble, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No pending scrobbles.")
		return err
	}
	t := newTable(out, "ID", "TRACK", "ALBUM", "PLAYED", "STARTED", "ATTEMPTS", "LAST ERROR")
	for _, p := range entries {
		t.row(
			fmt.Sprint(p.ID),
			render.Truncate(trackName(p.Artist, p.Track), trackColumn),
			render.Truncate(orDash(p.Album), albumColumn),
			clock(p.PlayedSecs)+" / "+clock(p.DurationSecs),
			humanize.RelTime(p.Timestamp, now, "ago", "from now"),
			fmt.Sprint(p.Attempts),
			render.Truncate(orDash(p.LastError), errorColumn),
		)
	}
	return t.flush()
}

// writeHistory lists submitted scrobbles newest first.
func writeHistory(out io.Writer, entries []state.HistoryEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No scrobbles yet.")
		return err
	}
	t := newTable(out, "TRACK", "ALBUM", "PLAYED", "SCROBBLED")
	for _, h := range entries {
		t.row(
			render.Truncate(trackName(h.Artist, h.Track), trackColumn),
			render.Truncate(orDash(h.Album), albumColumn),
			clock(h.PlayedSecs)+" / "+clock(h.DurationSecs),
			humanize.RelTime(h.SubmittedAt, now, "ago", "from now"),
		)
	}
	return t.flush()
}

// activityLine renders one coordinator activity for plain output. It returns
// "" for activity not worth a line.
func activityLine(a scrobble.Activity) string {
	name := trackName(a.Track.Artist, a.Track.Title)
	switch a.Kind {
	case scrobble.NowPlaying:
		return "▶ " + name
	case scrobble.Paused:
		return "⏸ " + name
	case scrobble.Queued:
		return fmt.Sprintf("+ %s (played %s, %d pending)", name, played(a), a.Pending)
	case scrobble.Ineligible:
		return fmt.Sprintf("- %s (played %s, not eligible)", name, played(a))
	case scrobble.Duplicate:
		return fmt.Sprintf("= %s (already scrobbled)", name)
	case scrobble.Submitted:
		return "✓ " + name
	case scrobble.Failed:
		if a.Err != nil {
			return fmt.Sprintf("! %s: %v", name, a.Err)
		}
		return "! " + name
	default:
		return ""
	}
}

func played(a scrobble.Activity) string {
	s := clock(int(a.Played.Seconds()))
	if a.Track.Duration > 0 {
		s += " of " + clock(int(a.Track.Duration.Seconds()))
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
