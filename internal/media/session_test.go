package media

import (
	"testing"
	"time"

	"github.com/austinkregel/local-media/playerd/internal/types"
)

func TestStateFor(t *testing.T) {
	tests := []struct {
		hasTrack, playing bool
		want              PlaybackState
	}{
		{false, false, StateStopped},
		{false, true, StateStopped},
		{true, false, StatePaused},
		{true, true, StatePlaying},
	}
	for _, tt := range tests {
		if got := StateFor(tt.hasTrack, tt.playing); got != tt.want {
			t.Errorf("StateFor(%v, %v) = %v, want %v", tt.hasTrack, tt.playing, got, tt.want)
		}
	}
}

func TestMetadataFor(t *testing.T) {
	track := types.Track{ID: "7", Title: "Song", Artist: "Band", AudioPath: "/audio/7.mp3", Artwork: "http://cdn/7.jpg"}
	md := MetadataFor(track, 90*time.Second)

	if md.TrackID != "7" || md.Title != "Song" || md.Artist != "Band" {
		t.Errorf("Unexpected metadata %+v", md)
	}
	if md.ArtURL != "http://cdn/7.jpg" {
		t.Errorf("Expected artwork URL, got %q", md.ArtURL)
	}
	if md.Duration != 90*time.Second {
		t.Errorf("Expected duration 90s, got %v", md.Duration)
	}
}

func TestLoopStatusRoundTrip(t *testing.T) {
	for _, mode := range []types.RepeatMode{types.RepeatOff, types.RepeatOne, types.RepeatAll} {
		if got := LoopStatusFor(mode).RepeatMode(); got != mode {
			t.Errorf("Expected %v after round trip, got %v", mode, got)
		}
	}
	if LoopStatusFor(types.RepeatAll) != LoopPlaylist {
		t.Errorf("Expected repeat all to be Playlist, got %s", LoopStatusFor(types.RepeatAll))
	}
	if LoopStatus("Bogus").RepeatMode() != types.RepeatOff {
		t.Error("Expected unknown loop status to turn repeat off")
	}
}
