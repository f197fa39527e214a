// Package media defines the owned, in-memory frame types that flow from
// PlaybackWorkers through the Compositor. A frame has exactly one
// consumer at a time: ownership transfers by channel send, and the
// receiver (Compositor slot) closes it after upload or replacement.
package media

// Buffer sizing constants shared by the worker's FrameBuffer and the
// Compositor's inbound channels, per spec.md §4.3's buffer policy.
const (
	BufferAheadSeconds = 1.0
	BufferAheadFrames  = 10
	BufferMaxFrames    = 30

	// planeAlignment is the byte boundary plane strides are rounded up
	// to, allowing zero-copy upload to GPU textures.
	planeAlignment = 128
)

// PixelFormat identifies the in-memory layout of a VideoFrame's planes.
type PixelFormat int

// Supported pixel formats. I420 is the common decoder output; RGBA is
// what the Compositor uploads to a GPU texture.
const (
	PixelFormatI420 PixelFormat = iota
	PixelFormatRGBA
)

// Plane describes one color-component plane within Frame.Bytes.
type Plane struct {
	Offset int
	Stride int
}

// Frame is an owned, decoded video frame ready for compositing. It is the
// FrameData type from spec.md §3: raw pixels, never shared — exactly one
// holder at a time.
type Frame struct {
	Format      PixelFormat
	CodedW      int
	CodedH      int
	DisplayW    int
	DisplayH    int
	TimestampUs int64
	DurationUs  int64
	Planes      []Plane
	Bytes       []byte

	closed bool
}

// Close releases the frame's backing bytes. Safe to call more than once.
// The Compositor calls this after uploading a frame to a texture, or when
// replacing a pending slot frame with a newer one.
func (f *Frame) Close() {
	if f == nil || f.closed {
		return
	}
	f.closed = true
	f.Bytes = nil
	f.Planes = nil
}

// Closed reports whether Close has already been called.
func (f *Frame) Closed() bool {
	return f == nil || f.closed
}

// AlignStride rounds a plane's byte width up to the 128-byte GPU upload
// boundary required by spec.md §3.
func AlignStride(width int) int {
	if width <= 0 {
		return 0
	}
	return ((width + planeAlignment - 1) / planeAlignment) * planeAlignment
}

// NewI420Frame allocates a Frame with Y/U/V planes sized for width×height
// at the given display dimensions, with strides aligned per AlignStride.
// Chroma planes are half resolution in both dimensions (4:2:0).
func NewI420Frame(width, height, displayW, displayH int, timestampUs, durationUs int64) *Frame {
	yStride := AlignStride(width)
	cStride := AlignStride((width + 1) / 2)
	chromaH := (height + 1) / 2

	ySize := yStride * height
	cSize := cStride * chromaH

	buf := make([]byte, ySize+2*cSize)

	return &Frame{
		Format:      PixelFormatI420,
		CodedW:      width,
		CodedH:      height,
		DisplayW:    displayW,
		DisplayH:    displayH,
		TimestampUs: timestampUs,
		DurationUs:  durationUs,
		Planes: []Plane{
			{Offset: 0, Stride: yStride},
			{Offset: ySize, Stride: cStride},
			{Offset: ySize + cSize, Stride: cStride},
		},
		Bytes: buf,
	}
}

// AudioSamples is a block of decoded, interleaved PCM samples for one
// track's audio pipeline.
type AudioSamples struct {
	PTS        int64
	Data       []float32 // interleaved, Channels-wide
	SampleRate int
	Channels   int
}
