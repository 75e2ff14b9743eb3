// Package status renders a live terminal view of what the scrobbler sees:
// the current track, the last finished play and the submission queue.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/scrobblewatch/internal/observer"
	"github.com/llehouerou/scrobblewatch/internal/scrobble"
	"github.com/llehouerou/scrobblewatch/internal/ui/render"
	"github.com/llehouerou/scrobblewatch/internal/ui/styles"
)

const (
	defaultWidth = 60
	minBarWidth  = 10
	// border, padding and the " m:ss / m:ss" label beside the bar
	barReserve   = 18
	refreshEvery = time.Second
)

// ActivityMsg carries one coordinator activity into the program.
type ActivityMsg scrobble.Activity

// closedMsg reports that the activity channel was closed.
type closedMsg struct{}

type tickMsg time.Time

// WaitForActivity returns a command that blocks for the next activity on ch.
func WaitForActivity(ch <-chan scrobble.Activity) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return ActivityMsg(a)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// finished is the last play the coordinator judged.
type finished struct {
	kind   scrobble.ActivityKind
	track  observer.TrackInfo
	played time.Duration
}

// Model is the status view.
type Model struct {
	activity <-chan scrobble.Activity
	now      func() time.Time
	width    int
	bar      progress.Model

	current   *observer.TrackInfo
	playing   bool
	last      *finished
	scrobbled *observer.TrackInfo
	lastAt    time.Time
	pending   int
	lastErr   error
	source    string
}

// New creates a view fed from ch. source names the host surface shown in
// the header.
func New(ch <-chan scrobble.Activity, source string) Model {
	return Model{
		activity: ch,
		now:      time.Now,
		width:    defaultWidth,
		bar: progress.New(
			progress.WithSolidFill(string(styles.T().Accent)),
			progress.WithoutPercentage(),
			progress.WithWidth(defaultWidth-barReserve),
		),
		source: source,
	}
}

// SetClock replaces the clock used for relative times.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
}

// SetPending seeds the queue length shown before the first activity.
func (m *Model) SetPending(n int) {
	m.pending = n
}

// Init starts listening for activity.
func (m Model) Init() tea.Cmd {
	return tea.Batch(WaitForActivity(m.activity), tick())
}

// Update handles activities, resizes and the quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minBarWidth+barReserve)
		m.bar.Width = m.width - barReserve
	case ActivityMsg:
		m.apply(scrobble.Activity(msg))
		return m, WaitForActivity(m.activity)
	case closedMsg:
		m.activity = nil
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m *Model) apply(a scrobble.Activity) {
	track := a.Track
	switch a.Kind {
	case scrobble.NowPlaying:
		m.current = &track
		m.playing = true
	case scrobble.Paused:
		m.current = &track
		m.playing = false
	case scrobble.Queued, scrobble.Ineligible, scrobble.Duplicate:
		m.last = &finished{kind: a.Kind, track: track, played: a.Played}
		if a.Kind == scrobble.Queued {
			m.pending = a.Pending
		}
	case scrobble.Submitted:
		m.scrobbled = &track
		m.lastAt = a.At
		m.pending = a.Pending
		m.lastErr = nil
	case scrobble.Failed:
		m.lastErr = a.Err
		m.pending = a.Pending
	}
}

// View renders the status panel.
func (m Model) View() string {
	t := styles.T()
	s := t.S()
	var b strings.Builder

	header := styles.Gradient("scrobblewatch", t.Accent, t.Scrobbled)
	if m.source != "" {
		header += s.Subtle.Render("  " + m.source)
	}
	b.WriteString(header + "\n\n")

	b.WriteString(m.nowPlayingView() + "\n\n")
	b.WriteString(m.lastPlayView() + "\n\n")

	scrobbled := s.Muted.Render("last scrobble: ") + s.Subtle.Render("none yet")
	if m.scrobbled != nil {
		scrobbled = s.Muted.Render("last scrobble: ") +
			s.Scrobbled.Render(trackLine(*m.scrobbled)) +
			s.Subtle.Render(" "+humanize.RelTime(m.lastAt, m.now(), "ago", "from now"))
	}
	b.WriteString(scrobbled + "\n")

	queue := fmt.Sprintf("pending: %d", m.pending)
	if m.pending > 0 {
		b.WriteString(s.Warning.Render(queue) + "\n")
	} else {
		b.WriteString(s.Muted.Render(queue) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(s.Error.Render("error: "+m.lastErr.Error()) + "\n")
	}

	b.WriteString("\n" + s.Subtle.Render("q quit"))

	// Clip instead of letting the panel wrap long titles.
	inner := m.width - 4
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, inner, "…")
	}
	return s.Panel.Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) nowPlayingView() string {
	s := styles.T().S()
	if m.current == nil {
		return s.Muted.Render("nothing playing")
	}
	icon := "▶"
	style := s.Playing
	if !m.playing {
		icon = "⏸"
		style = s.Base
	}
	line := style.Render(icon + "  " + trackLine(*m.current))
	if m.current.Album != "" {
		line += "\n" + s.Muted.Render("   "+render.Sanitize(m.current.Album))
	}
	return line
}

func (m Model) lastPlayView() string {
	s := styles.T().S()
	if m.last == nil {
		return s.Subtle.Render("no finished play yet")
	}
	l := m.last
	label := fmt.Sprintf("%s: %s", l.kind, trackLine(l.track))
	played := formatDuration(l.played)
	if l.track.Duration > 0 {
		played += " / " + formatDuration(l.track.Duration)
	}

	var labelStyle lipgloss.Style
	switch l.kind {
	case scrobble.Queued:
		labelStyle = s.Base
	default:
		labelStyle = s.Muted
	}
	return labelStyle.Render(label) + "\n" +
		m.bar.ViewAs(playedFraction(l.played, l.track.Duration)) + " " +
		s.Subtle.Render(played)
}

func trackLine(t observer.TrackInfo) string {
	if t.Artist == "" {
		return render.Sanitize(t.Title)
	}
	return render.Sanitize(t.Artist + " - " + t.Title)
}

func playedFraction(played, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return min(float64(played)/float64(duration), 1)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, sec)
}
