package compositor

import (
	"image/color"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zsiec/weave/timeline"
)

// backgroundGrey is the fixed clear color behind all placements.
var backgroundGrey = color.RGBA{R: 32, G: 32, B: 32, A: 255}

// renderItem is one resolved clip-to-viewport mapping for a render tick.
type renderItem struct {
	clipID   string
	viewport timeline.Viewport
}

// drainSlots pulls every buffered message off each connected channel,
// keeping only the most recent frame per slot and closing anything it
// replaces — the "Compositor is responsible for draining" policy: a
// worker's push is a single non-blocking send, so backpressure is
// resolved here rather than in the worker.
func (c *Compositor) drainSlots() {
	for _, s := range c.slots {
		if s.ch == nil {
			continue
		}
		for {
			select {
			case f := <-s.ch:
				s.pending.Close()
				s.pending = f
			default:
				goto next
			}
		}
	next:
	}
}

// resolveActive returns the clip/viewport pairs to draw at time t, in
// placement (draw) order, per spec.md's "later-declared clip on top"
// rule already encoded by timeline.ActivePlacements' ordering.
func resolveActive(tl timeline.Timeline, t float64) []renderItem {
	active := tl.ActivePlacements(t)
	if len(active) == 0 {
		return nil
	}
	items := make([]renderItem, 0, len(active))
	for _, a := range active {
		items = append(items, renderItem{clipID: a.Placement.ClipID, viewport: a.Placement.View})
	}
	return items
}

// Update advances compositor-owned ebiten state. The compositor has no
// per-frame simulation of its own; rendering is driven entirely by
// render(t), called by the Player's render loop via RenderAt.
func (c *Compositor) Update() error {
	if c.stopped.Load() {
		return ebiten.Termination
	}
	return nil
}

// Draw is invoked by ebiten's render loop. It blits the last scene
// computed by RenderAt into screen.
func (c *Compositor) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundGrey)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.drainSlots()
	c.blit(screen, resolveActive(c.tl, c.lastRenderT))
	c.blitPreviews(screen)

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Layout reports the compositor's fixed output dimensions to ebiten.
func (c *Compositor) Layout(_, _ int) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// RenderAt is the Player's render-loop entry point: for each active
// placement at t, bind its clip's pending frame and schedule a draw in
// its viewport; then overlay preview streams on the preview grid. The
// actual GPU blit happens on ebiten's own Draw callback, following
// ebiten's single-threaded-GPU-access model.
func (c *Compositor) RenderAt(t float64) {
	c.mu.Lock()
	c.lastRenderT = t
	c.mu.Unlock()
}

// blit uploads each active placement's pending frame, if any, to its slot
// texture (allocating lazily), closes the uploaded frame, and draws the
// slot texture scaled into its viewport.
func (c *Compositor) blit(screen *ebiten.Image, items []renderItem) {
	for _, it := range items {
		s, ok := c.slots[it.clipID]
		if !ok {
			continue
		}
		if s.pending != nil {
			if s.tex == nil || s.tex.Bounds().Dx() != s.pending.DisplayW || s.tex.Bounds().Dy() != s.pending.DisplayH {
				if s.tex != nil {
					s.tex.Deallocate()
				}
				s.tex = ebiten.NewImage(s.pending.DisplayW, s.pending.DisplayH)
			}
			s.tex.WritePixels(s.pending.ToRGBA().Pix)
			s.pending.Close()
			s.pending = nil
		}
		if s.tex == nil {
			continue
		}

		op := &ebiten.DrawImageOptions{}
		vp := it.viewport
		sx := float64(vp.W) / float64(s.tex.Bounds().Dx())
		sy := float64(vp.H) / float64(s.tex.Bounds().Dy())
		op.GeoM.Scale(sx, sy)
		op.GeoM.Translate(float64(vp.X), float64(vp.Y))
		screen.DrawImage(s.tex, op)
	}
}

// blitPreviews overlays each active preview source onto the preview
// grid, one cell per registered track, in track-id order.
func (c *Compositor) blitPreviews(screen *ebiten.Image) {
	if len(c.previews) == 0 {
		return
	}
	cellW := c.width / c.previewCols
	cellH := c.height / c.previewRows
	ids := make([]string, 0, len(c.previews))
	for id := range c.previews {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	i := 0
	for _, id := range ids {
		p := c.previews[id]
		p.mu.Lock()
		f := p.pending
		p.mu.Unlock()
		if f == nil {
			i++
			continue
		}
		col := i % c.previewCols
		row := (i / c.previewCols) % c.previewRows
		i++

		if p.tex == nil || p.tex.Bounds().Dx() != f.DisplayW || p.tex.Bounds().Dy() != f.DisplayH {
			if p.tex != nil {
				p.tex.Deallocate()
			}
			p.tex = ebiten.NewImage(f.DisplayW, f.DisplayH)
		}
		p.tex.WritePixels(f.ToRGBA().Pix)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(cellW)/float64(f.DisplayW), float64(cellH)/float64(f.DisplayH))
		op.GeoM.Translate(float64(col*cellW), float64(row*cellH))
		screen.DrawImage(p.tex, op)
	}
}
