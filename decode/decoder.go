package decode

import (
	"context"
	"time"

	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/playerr"
)

// DecodeTimeout is how long a Decoder may take to turn a packet into a
// frame before the pending decode is abandoned and the decoder is marked
// not-ready, per spec.md §4.3.
const DecodeTimeout = 5 * time.Second

// Decoder turns encoded packets into decoded video frames. Implementations
// must discard delta packets until the first keyframe passes through
// after a Reset, per spec.md §4.3's decoder rules.
type Decoder interface {
	// Decode returns the decoded frame for packet p, or
	// playerr.ErrDecodeTransient if p itself failed to decode (dropped,
	// playback continues), or playerr.ErrUnsupportedMedia if the codec
	// configuration is unusable.
	Decode(ctx context.Context, p Packet) (*media.Frame, error)
	// Reset discards any in-flight decode state. The decoder is not
	// "ready" again until the next keyframe.
	Reset()
	// Ready reports whether the decoder has seen a keyframe since the
	// last Reset and is producing frames.
	Ready() bool
}

// rawDecoder decodes the reference container's packets, whose payload is
// already raw I420 planes — "decoding" is a direct wrap into a
// media.Frame. This is the decoder a test fixture or a host without a
// real codec binding uses; a cgo/ffmpeg-backed Decoder satisfies the same
// interface for real VP8/VP9/H.264 streams.
type rawDecoder struct {
	width, height int
	ready         bool
}

// NewRawDecoder creates a Decoder for the reference container format at
// the given coded dimensions.
func NewRawDecoder(width, height int) Decoder {
	return &rawDecoder{width: width, height: height}
}

func (d *rawDecoder) Reset() {
	d.ready = false
}

func (d *rawDecoder) Ready() bool {
	return d.ready
}

func (d *rawDecoder) Decode(ctx context.Context, p Packet) (*media.Frame, error) {
	if !d.ready {
		if !p.Keyframe {
			// Not-ready decoder discards delta packets silently; this is
			// not a transient error, just nothing to emit yet.
			return nil, nil
		}
		d.ready = true
	}

	expected := media.AlignStride(d.width)*d.height + 2*media.AlignStride((d.width+1)/2)*((d.height+1)/2)
	if len(p.Data) < expected {
		return nil, playerr.ErrDecodeTransient
	}

	select {
	case <-ctx.Done():
		d.ready = false
		return nil, playerr.ErrDecodeTimeout
	default:
	}

	ySize := media.AlignStride(d.width) * d.height
	cStride := media.AlignStride((d.width + 1) / 2)
	cSize := cStride * ((d.height + 1) / 2)

	f := &media.Frame{
		Format:      media.PixelFormatI420,
		CodedW:      d.width,
		CodedH:      d.height,
		DisplayW:    d.width,
		DisplayH:    d.height,
		TimestampUs: p.PTSUs,
		DurationUs:  p.DurationUs,
		Planes: []media.Plane{
			{Offset: 0, Stride: media.AlignStride(d.width)},
			{Offset: ySize, Stride: cStride},
			{Offset: ySize + cSize, Stride: cStride},
		},
		Bytes: append([]byte(nil), p.Data[:expected]...),
	}
	return f, nil
}
