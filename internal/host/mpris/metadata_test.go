package mpris

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetadata() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/firefox/1")),
		"xesam:title":   dbus.MakeVariant("Song"),
		"xesam:artist":  dbus.MakeVariant([]string{"Band", "Guest"}),
		"xesam:album":   dbus.MakeVariant("Record"),
		"mpris:length":  dbus.MakeVariant(int64(83_000_000)),
		"mpris:artUrl":  dbus.MakeVariant("https://example.com/art.jpg"),
	}
}

func TestParseMetadata(t *testing.T) {
	md := parseMetadata(sampleMetadata())

	assert.Equal(t, "/org/mpris/MediaPlayer2/firefox/1", md.TrackID)
	assert.Equal(t, "Song", md.Title)
	assert.Equal(t, "Band, Guest", md.Artist)
	assert.Equal(t, "Record", md.Album)
	assert.Equal(t, 83*time.Second, md.Length)
	assert.Equal(t, "https://example.com/art.jpg", md.ArtURL)
}

func TestParseMetadata_LooseTypes(t *testing.T) {
	md := parseMetadata(map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant("plain-id"),
		"xesam:artist":  dbus.MakeVariant("Solo"),
		"mpris:length":  dbus.MakeVariant(uint64(1_500_000)),
	})
	assert.Equal(t, "plain-id", md.TrackID)
	assert.Equal(t, "Solo", md.Artist)
	assert.Equal(t, 1500*time.Millisecond, md.Length)
	assert.Empty(t, md.Title)
}

func TestParseMetadata_Empty(t *testing.T) {
	assert.Equal(t, metadata{}, parseMetadata(nil))
}

func TestPlaybackStatus(t *testing.T) {
	assert.True(t, isPlaying(string(types.PlaybackStatusPlaying)))
	assert.False(t, isPlaying(string(types.PlaybackStatusPaused)))
	assert.False(t, isPlaying("Buffering"))
	assert.True(t, isStopped(string(types.PlaybackStatusStopped)))
	assert.False(t, isStopped(string(types.PlaybackStatusPaused)))
}

func TestPickPlayer(t *testing.T) {
	names := []string{
		"org.freedesktop.DBus",
		"org.mpris.MediaPlayer2.firefox.instance_1_42",
		"org.mpris.MediaPlayer2.chromium.instance123",
		":1.57",
	}

	tests := []struct {
		name   string
		filter string
		want   string
		ok     bool
	}{
		{"any player picks the first sorted", "", "org.mpris.MediaPlayer2.chromium.instance123", true},
		{"filter by browser", "firefox", "org.mpris.MediaPlayer2.firefox.instance_1_42", true},
		{"filter is case-insensitive", "Chromium", "org.mpris.MediaPlayer2.chromium.instance123", true},
		{"no match", "spotify", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickPlayer(names, tt.filter)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObservation(t *testing.T) {
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(string(types.PlaybackStatusPlaying)),
		"Metadata":       dbus.MakeVariant(sampleMetadata()),
		"Position":       dbus.MakeVariant(int64(41_200_000)),
	}

	obs := observation(props)
	require.NotNil(t, obs)
	assert.Equal(t, "Song", obs.Title)
	assert.Equal(t, "Band, Guest", obs.Artist)
	assert.Equal(t, 83*time.Second, obs.Duration)
	assert.Equal(t, 41200*time.Millisecond, obs.Position)
	assert.True(t, obs.Playing)
	assert.Equal(t, "https://example.com/art.jpg", obs.ArtworkURL)
}

func TestObservation_NothingPlaying(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]dbus.Variant
	}{
		{
			name: "stopped",
			props: map[string]dbus.Variant{
				"PlaybackStatus": dbus.MakeVariant(string(types.PlaybackStatusStopped)),
				"Metadata":       dbus.MakeVariant(sampleMetadata()),
			},
		},
		{
			name: "no title",
			props: map[string]dbus.Variant{
				"PlaybackStatus": dbus.MakeVariant(string(types.PlaybackStatusPaused)),
				"Metadata":       dbus.MakeVariant(map[string]dbus.Variant{}),
			},
		},
		{
			name:  "no properties",
			props: map[string]dbus.Variant{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, observation(tt.props))
		})
	}
}

func TestSignalOf(t *testing.T) {
	a := signalOf(metadata{TrackID: "/t/1", Title: "Song"})
	b := signalOf(metadata{TrackID: "/t/2", Title: "Song"})
	c := signalOf(metadata{TrackID: "/t/1", Title: "Other"})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, signalOf(metadata{TrackID: "/t/1", Title: "Song", Album: "changed"}))
}
