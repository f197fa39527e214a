package player

import (
	"context"
	"fmt"

	"github.com/zsiec/weave/audio"
)

// SetTrackAudioSource connects src as trackID's live audio source, resolving
// gain/pan from the track's AudioPipeline in the current project. Call this
// whenever a clip carrying an audio stream is loaded onto a track.
func (pl *Player) SetTrackAudioSource(ctx context.Context, trackID string, src audio.Source) error {
	return pl.exec(ctx, func() error {
		t, ok := pl.proj.TrackByID(trackID)
		if !ok {
			return fmt.Errorf("player: unknown track %q", trackID)
		}
		pl.audioMixer.SetTrack(trackID, src, t.AudioPipeline)
		return nil
	})
}

// ClearTrackAudioSource disconnects trackID's audio source, e.g. when its
// clip is cleared.
func (pl *Player) ClearTrackAudioSource(ctx context.Context, trackID string) error {
	return pl.exec(ctx, func() error {
		pl.audioMixer.RemoveTrack(trackID)
		return nil
	})
}
