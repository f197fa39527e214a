// Package compositor implements the GPU-backed Compositor: the component
// that assembles the current frame of every active placement, plus any
// live preview streams, into one output surface each render tick, and can
// render the same scene off-screen for capture by the PreRenderer.
//
// All compositor state is guarded by one mutex rather than message
// passing, matching the teacher's EbitenOutput (video_backend_ebiten.go):
// ebiten drives Update/Draw/Layout from its own render loop, and the
// Player's goroutine calls the registration methods concurrently, so the
// boundary between the two has to be a lock, not a channel.
package compositor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/timeline"
)

// Config configures a Compositor at construction time.
type Config struct {
	Log          *slog.Logger
	Width        int
	Height       int
	PreviewCols  int // preview overlay grid columns, default 2
	PreviewRows  int // preview overlay grid rows, default 2
}

// clipSlot holds the inbound channel and pending frame for one connected
// PlaybackWorker.
type clipSlot struct {
	ch      chan *media.Frame
	pending *media.Frame
	tex     *ebiten.Image
}

// previewSlot holds a live, looping preview reader for one track.
type previewSlot struct {
	cancel  context.CancelFunc
	pending *media.Frame
	mu      sync.Mutex
	tex     *ebiten.Image
}

// Source is a continuously-read frame source for a preview overlay, e.g.
// a live camera or microphone-level feed. Read blocks until the next
// frame is available or ctx is cancelled.
type Source interface {
	Read(ctx context.Context) (*media.Frame, error)
}

// Compositor owns the GPU surface, the current per-clip slots, and the
// parallel off-screen capture surface used by the PreRenderer.
type Compositor struct {
	log *slog.Logger

	mu       sync.Mutex
	width    int
	height   int
	tl       timeline.Timeline
	slots    map[string]*clipSlot
	previews map[string]*previewSlot

	surface *ebiten.Image
	capture *ebiten.Image

	previewCols int
	previewRows int

	lastRenderT float64

	stopped atomic.Bool
	ready   chan struct{}
}

// New constructs a Compositor. Calling Init is optional: RenderCapture
// allocates the capture surface on first use when Init has not.
func New(cfg Config) *Compositor {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	cols, rows := cfg.PreviewCols, cfg.PreviewRows
	if cols <= 0 {
		cols = 2
	}
	if rows <= 0 {
		rows = 2
	}
	return &Compositor{
		log:         log.With("component", "compositor"),
		width:       cfg.Width,
		height:      cfg.Height,
		slots:       make(map[string]*clipSlot),
		previews:    make(map[string]*previewSlot),
		previewCols: cols,
		previewRows: rows,
		ready:       make(chan struct{}),
	}
}

// Init sets the output size and allocates the capture surface. The
// on-screen surface is the screen image ebiten passes to Draw.
func (c *Compositor) Init(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = w, h
	c.capture = ebiten.NewImage(w, h)
}

// SetTimeline stores the current compiled timeline; the next render call
// uses it to pick per-placement viewports.
func (c *Compositor) SetTimeline(tl timeline.Timeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tl = tl
}

// ConnectPlaybackWorker registers ch as the inbound frame channel for
// clipID. Frames arriving on ch are picked up, at most one pending per
// slot, on the next render tick.
func (c *Compositor) ConnectPlaybackWorker(clipID string, ch chan *media.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.slots[clipID]; ok {
		old.pending.Close()
	}
	c.slots[clipID] = &clipSlot{ch: ch}
}

// DisconnectPlaybackWorker drops clipID's channel and any pending frame.
func (c *Compositor) DisconnectPlaybackWorker(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[clipID]; ok {
		s.pending.Close()
		if s.tex != nil {
			s.tex.Deallocate()
		}
		delete(c.slots, clipID)
	}
}

// SetFrame pushes frame directly into clipID's slot without going
// through a channel, for hosts that don't wire a PlaybackWorker.
func (c *Compositor) SetFrame(clipID string, frame *media.Frame) {
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

// SetPreviewStream starts (or stops) a looping preview reader for
// trackID. Passing a nil src cancels the existing reader and clears the
// slot.
func (c *Compositor) SetPreviewStream(trackID string, src Source) {
	c.mu.Lock()
	old, had := c.previews[trackID]
	c.mu.Unlock()

	if had {
		old.cancel()
		old.mu.Lock()
		old.pending.Close()
		old.mu.Unlock()
		c.mu.Lock()
		delete(c.previews, trackID)
		c.mu.Unlock()
	}
	if src == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	slot := &previewSlot{cancel: cancel}
	c.mu.Lock()
	c.previews[trackID] = slot
	c.mu.Unlock()

	go c.readPreview(ctx, src, slot)
}

// readPreview pulls frames from src until ctx is cancelled, replacing
// (and closing the prior) pending frame on each read.
func (c *Compositor) readPreview(ctx context.Context, src Source, slot *previewSlot) {
	for {
		f, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("preview source error", "err", err)
			}
			return
		}
		slot.mu.Lock()
		slot.pending.Close()
		slot.pending = f
		slot.mu.Unlock()

		select {
		case <-ctx.Done():
			f.Close()
			return
		default:
		}
	}
}

// Destroy cancels all preview readers, releases textures, and clears
// slots.
func (c *Compositor) Destroy() {
	c.stopped.Store(true)

	c.mu.Lock()
	previews := make([]*previewSlot, 0, len(c.previews))
	for _, p := range c.previews {
		previews = append(previews, p)
	}
	for id, s := range c.slots {
		s.pending.Close()
		if s.tex != nil {
			s.tex.Deallocate()
		}
		delete(c.slots, id)
	}
	c.previews = make(map[string]*previewSlot)
	c.mu.Unlock()

	for _, p := range previews {
		p.cancel()
		p.mu.Lock()
		p.pending.Close()
		p.mu.Unlock()
		if p.tex != nil {
			p.tex.Deallocate()
		}
	}
}
