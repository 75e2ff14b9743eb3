// Package mpris reads a media player's state over the MPRIS D-Bus
// interface. Browsers export one player per playing tab.
package mpris

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// ErrUnsupported is returned where D-Bus is unavailable.
var ErrUnsupported = errors.New("mpris is only supported on linux")

// ErrNoPlayer is returned when no bus name matches the player filter.
var ErrNoPlayer = errors.New("no matching mpris player")

const (
	busPrefix   = "org.mpris.MediaPlayer2."
	objectPath  = "/org/mpris/MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
)

// metadata is the subset of xesam/mpris metadata we use.
type metadata struct {
	TrackID string
	Title   string
	Artist  string
	Album   string
	Length  time.Duration
	ArtURL  string
}

func parseMetadata(m map[string]dbus.Variant) metadata {
	var md metadata
	if v, ok := m["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			md.TrackID = string(id)
		case string:
			md.TrackID = id
		}
	}
	md.Title, _ = variantString(m, "xesam:title")
	md.Album, _ = variantString(m, "xesam:album")
	md.ArtURL, _ = variantString(m, "mpris:artUrl")

	if v, ok := m["xesam:artist"]; ok {
		switch a := v.Value().(type) {
		case []string:
			md.Artist = strings.Join(a, ", ")
		case string:
			md.Artist = a
		}
	}

	if v, ok := m["mpris:length"]; ok {
		var us types.Microseconds
		switch l := v.Value().(type) {
		case int64:
			us = types.Microseconds(l)
		case uint64:
			us = types.Microseconds(l)
		case int32:
			us = types.Microseconds(l)
		case float64:
			us = types.Microseconds(l)
		}
		if us > 0 {
			md.Length = time.Duration(us) * time.Microsecond
		}
	}
	return md
}

func variantString(m map[string]dbus.Variant, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// isPlaying maps a PlaybackStatus property value. Unknown values count as
// not playing.
func isPlaying(status string) bool {
	return types.PlaybackStatus(status) == types.PlaybackStatusPlaying
}

// isStopped reports whether the player has nothing loaded.
func isStopped(status string) bool {
	return types.PlaybackStatus(status) == types.PlaybackStatusStopped
}

func positionFrom(v dbus.Variant) time.Duration {
	switch p := v.Value().(type) {
	case int64:
		return time.Duration(types.Microseconds(p)) * time.Microsecond
	case uint64:
		return time.Duration(types.Microseconds(p)) * time.Microsecond
	}
	return 0
}

// pickPlayer returns the first mpris bus name (sorted) whose suffix
// contains filter, case-insensitively. An empty filter matches any player.
func pickPlayer(names []string, filter string) (string, bool) {
	filter = strings.ToLower(filter)
	var candidates []string
	for _, name := range names {
		if !strings.HasPrefix(name, busPrefix) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(strings.TrimPrefix(name, busPrefix)), filter) {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", false
	}
	slices.Sort(candidates)
	return candidates[0], true
}

// observation builds the observer view from a Player GetAll result. A
// stopped player or one without a title observes nothing.
func observation(props map[string]dbus.Variant) *observer.Observation {
	status, _ := variantString(props, "PlaybackStatus")
	if isStopped(status) {
		return nil
	}
	var md metadata
	if v, ok := props["Metadata"]; ok {
		if m, ok := v.Value().(map[string]dbus.Variant); ok {
			md = parseMetadata(m)
		}
	}
	if md.Title == "" {
		return nil
	}
	var pos time.Duration
	if v, ok := props["Position"]; ok {
		pos = positionFrom(v)
	}
	return &observer.Observation{
		Title:      md.Title,
		Artist:     md.Artist,
		Album:      md.Album,
		Duration:   md.Length,
		Position:   pos,
		Playing:    isPlaying(status),
		ArtworkURL: md.ArtURL,
	}
}

func signalOf(md metadata) string {
	return md.TrackID + "\x00" + md.Title
}
