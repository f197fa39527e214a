// Package audio implements the Player's track-level audio pipeline
// playback sink: per-track gain/pan mixing of PCM sample sources down to
// one interleaved stereo stream, driven to the host's speakers through
// ebitengine/oto. Grounded on IntuitionAmiga-IntuitionEngine's
// audio_backend_oto.go (OtoPlayer wraps an oto.Context/oto.Player, feeds
// samples through an io.Reader pulled from a lock-free source), adapted
// from "one chip's ring buffer" to "N track sources mixed per pull."
//
// Per spec.md's non-goal, audio DSP beyond gain/pan is out of scope: a
// Track's AudioPipeline is exactly {gain, pan} stages (a "custom" kind is
// accepted but passed through unapplied, matching project.Validate's
// pass-through of unknown custom effect params).
package audio

import (
	"sync"

	"github.com/zsiec/weave/project"
)

// Source is a continuous mono PCM sample producer for one track, e.g. a
// clip's decoded audio stream. Read fills p with samples in [-1, 1] and
// returns how many were written; a short read is padded with silence by
// the Mixer rather than treated as an error.
type Source interface {
	Read(p []float32) (n int, err error)
}

// trackChannel holds one track's live source plus its resolved gain/pan.
type trackChannel struct {
	src  Source
	gain float64
	pan  float64 // -1 (left) .. +1 (right), 0 is centered
}

// Mixer combines every connected track's mono samples into one
// interleaved stereo buffer per pull, applying each track's gain/pan.
// Safe for concurrent use: SetTrack/RemoveTrack run on the Player's
// orchestration goroutine while Read runs on oto's own audio callback
// goroutine.
type Mixer struct {
	mu     sync.Mutex
	tracks map[string]*trackChannel
	scratch []float32
}

// NewMixer creates an empty Mixer.
func NewMixer() *Mixer {
	return &Mixer{tracks: make(map[string]*trackChannel)}
}

// resolvePipeline reduces a Track's AudioEffect list to a gain/pan pair.
// Unity gain and centered pan are the defaults for an empty pipeline;
// "custom" effects are accepted but have no defined mixing behavior, per
// spec.md's gain/pan-only non-goal.
func resolvePipeline(effects []project.AudioEffect) (gain, pan float64) {
	gain = 1
	for _, e := range effects {
		switch e.Kind {
		case project.EffectGain:
			gain = e.Value.Value()
		case project.EffectPan:
			pan = e.Value.Value()
		}
	}
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	return gain, pan
}

// SetTrack connects src as trackID's audio source, resolving gain/pan
// from the Track's AudioPipeline. A later call with the same trackID
// replaces the previous source.
func (m *Mixer) SetTrack(trackID string, src Source, pipeline []project.AudioEffect) {
	gain, pan := resolvePipeline(pipeline)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[trackID] = &trackChannel{src: src, gain: gain, pan: pan}
}

// RemoveTrack disconnects trackID's audio source.
func (m *Mixer) RemoveTrack(trackID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracks, trackID)
}

// Mix pulls frames samples from every connected track, applies gain and
// linear pan, and sums into out (len(out) == 2*frames,
// interleaved stereo). out is zeroed first so silence is the default.
func (m *Mixer) Mix(out []float32, frames int) {
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cap(m.scratch) < frames {
		m.scratch = make([]float32, frames)
	}
	buf := m.scratch[:frames]

	for _, ch := range m.tracks {
		for i := range buf {
			buf[i] = 0
		}
		n, _ := ch.src.Read(buf)
		left := ch.gain * (1 - maxF(ch.pan, 0))
		right := ch.gain * (1 + minF(ch.pan, 0))
		for i := 0; i < n; i++ {
			out[2*i] += buf[i] * float32(left)
			out[2*i+1] += buf[i] * float32(right)
		}
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
