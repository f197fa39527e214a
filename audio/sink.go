package audio

import (
	"math"

	"github.com/ebitengine/oto/v3"
)

// SampleRate is the sink's fixed output rate. Track sources are expected
// to already be resampled to this rate; resampling is left to the
// Source implementation, matching spec.md's "audio DSP beyond gain/pan
// is out of scope" non-goal.
const SampleRate = 48000

const channelCount = 2

// Sink drives a Mixer's output to the host's speakers via oto, mirroring
// OtoPlayer's Start/Stop/Close lifecycle in audio_backend_oto.go.
type Sink struct {
	mixer   *Mixer
	ctx     *oto.Context
	player  *oto.Player
	started bool
}

// NewSink creates a Sink bound to mixer and opens the oto audio context.
// The returned Sink is not yet producing sound; call Start.
func NewSink(mixer *Mixer) (*Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // oto default
	})
	if err != nil {
		return nil, err
	}
	<-ready

	s := &Sink{mixer: mixer, ctx: ctx}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read implements io.Reader for oto's player: p holds interleaved
// float32LE stereo samples. Mix fills the whole buffer every pull, so
// Read never returns less than len(p).
func (s *Sink) Read(p []byte) (int, error) {
	frames := len(p) / 4 / channelCount
	samples := make([]float32, frames*channelCount)
	s.mixer.Mix(samples, frames)

	for i, f := range samples {
		bits := float32ToLEBytes(f)
		copy(p[i*4:i*4+4], bits[:])
	}
	return len(p), nil
}

// Start begins pulling from the Mixer and playing through the host's
// audio device.
func (s *Sink) Start() {
	if !s.started {
		s.player.Play()
		s.started = true
	}
}

// Stop halts playback without releasing the oto context, so Start can
// resume it later.
func (s *Sink) Stop() {
	if s.started {
		s.player.Pause()
		s.started = false
	}
}

// Close stops playback and releases the player. The oto.Context itself
// has no explicit close in oto v3; it is released with the process.
func (s *Sink) Close() {
	s.Stop()
	_ = s.player.Close()
}

func float32ToLEBytes(f float32) [4]byte {
	bits := math.Float32bits(f)
	return [4]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}
