package compositor

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zsiec/weave/media"
)

// SetCaptureFrame pushes frame directly into clipID's slot, exactly as
// SetFrame does. The capture surface and the live on-screen surface share
// the same per-clip slots, so the frame is also what the next live Draw
// sees for that clip. Used by the PreRenderer, which drives frames
// explicitly rather than through a PlaybackWorker channel.
func (c *Compositor) SetCaptureFrame(clipID string, frame *media.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[clipID]
	if !ok {
		s = &clipSlot{}
		c.slots[clipID] = s
	}
	s.pending.Close()
	s.pending = frame
}

// RenderCapture draws every slot named in activeClipIDs into the
// off-screen capture surface at its last-known viewport from the current
// timeline, using the same blit path as the live surface.
func (c *Compositor) RenderCapture(t float64, activeClipIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		c.capture = ebiten.NewImage(c.width, c.height)
	}
	c.capture.Fill(backgroundGrey)

	want := make(map[string]bool, len(activeClipIDs))
	for _, id := range activeClipIDs {
		want[id] = true
	}

	var items []renderItem
	for _, a := range resolveActive(c.tl, t) {
		if want[a.clipID] {
			items = append(items, a)
		}
	}
	c.blit(c.capture, items)
}

// CaptureFrame snapshots the capture surface as an owned RGBA media.Frame
// stamped with timestampUs, for the PreRenderer to hand to the Muxer. The
// GPU readback (ReadPixels) is synchronous from the caller's point of
// view, matching spec.md's "captureFrame is awaitable" contract.
func (c *Compositor) CaptureFrame(timestampUs int64) *media.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	w, h := c.capture.Bounds().Dx(), c.capture.Bounds().Dy()
	pix := make([]byte, w*h*4)
	c.capture.ReadPixels(pix)

	return &media.Frame{
		Format:      media.PixelFormatRGBA,
		CodedW:      w,
		CodedH:      h,
		DisplayW:    w,
		DisplayH:    h,
		TimestampUs: timestampUs,
		Planes:      []media.Plane{{Offset: 0, Stride: w * 4}},
		Bytes:       pix,
	}
}
