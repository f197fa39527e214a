package compositor

import (
	"context"
	"testing"
	"time"

	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/timeline"
)

func frame(ts int64) *media.Frame {
	return &media.Frame{TimestampUs: ts, Bytes: []byte{1}}
}

func TestResolveActiveOrderIsPlacementOrder(t *testing.T) {
	t.Parallel()

	tl := timeline.Timeline{
		Duration: 10,
		Segments: []timeline.LayoutSegment{
			{
				Start: 0, End: 10,
				Placements: []timeline.Placement{
					{ClipID: "back", View: timeline.Viewport{W: 100, H: 100}},
					{ClipID: "front", View: timeline.Viewport{W: 50, H: 50}},
				},
			},
		},
	}

	items := resolveActive(tl, 1)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].clipID != "back" || items[1].clipID != "front" {
		t.Errorf("order = %v, %v; want back, front", items[0].clipID, items[1].clipID)
	}
}

func TestResolveActiveOutsideTimelineIsEmpty(t *testing.T) {
	t.Parallel()

	var tl timeline.Timeline
	if items := resolveActive(tl, 0); items != nil {
		t.Errorf("resolveActive on empty timeline = %v, want nil", items)
	}
}

func TestConnectPlaybackWorkerReplacesPendingOnReconnect(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	f1 := frame(0)
	c.slots["clip"] = &clipSlot{pending: f1}

	c.ConnectPlaybackWorker("clip", make(chan *media.Frame, 1))
	if !f1.Closed() {
		t.Error("expected prior pending frame to be closed on reconnect")
	}
}

func TestDrainSlotsKeepsLatestAndClosesOlder(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	ch := make(chan *media.Frame, 4)
	c.ConnectPlaybackWorker("clip", ch)

	f1, f2, f3 := frame(0), frame(100), frame(200)
	ch <- f1
	ch <- f2
	ch <- f3

	c.mu.Lock()
	c.drainSlots()
	got := c.slots["clip"].pending
	c.mu.Unlock()

	if got != f3 {
		t.Errorf("pending = %v, want f3 (%v)", got, f3)
	}
	if !f1.Closed() || !f2.Closed() {
		t.Error("expected superseded frames to be closed")
	}
	if f3.Closed() {
		t.Error("expected the latest frame to remain open")
	}
}

func TestDisconnectPlaybackWorkerClosesPendingAndRemovesSlot(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	c.ConnectPlaybackWorker("clip", make(chan *media.Frame, 1))
	f := frame(0)
	c.slots["clip"].pending = f

	c.DisconnectPlaybackWorker("clip")

	if !f.Closed() {
		t.Error("expected pending frame closed on disconnect")
	}
	if _, ok := c.slots["clip"]; ok {
		t.Error("expected slot removed after disconnect")
	}
}

func TestSetFrameClosesPriorPending(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	f1, f2 := frame(0), frame(100)
	c.SetFrame("clip", f1)
	c.SetFrame("clip", f2)

	if !f1.Closed() {
		t.Error("expected first frame closed when replaced")
	}
	c.mu.Lock()
	got := c.slots["clip"].pending
	c.mu.Unlock()
	if got != f2 {
		t.Error("expected latest frame retained")
	}
}

type fakeSource struct {
	frames chan *media.Frame
}

func (s *fakeSource) Read(ctx context.Context) (*media.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSetPreviewStreamReadsIntoSlot(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	src := &fakeSource{frames: make(chan *media.Frame, 1)}
	f := frame(0)
	src.frames <- f

	c.SetPreviewStream("track-1", src)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		slot, ok := c.previews["track-1"]
		c.mu.Unlock()
		if ok {
			slot.mu.Lock()
			pending := slot.pending
			slot.mu.Unlock()
			if pending == f {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("preview slot never received the frame")
}

func TestSetPreviewStreamNilCancelsReader(t *testing.T) {
	t.Parallel()

	c := New(Config{Width: 4, Height: 4})
	src := &fakeSource{frames: make(chan *media.Frame)}
	c.SetPreviewStream("track-1", src)
	c.SetPreviewStream("track-1", nil)

	c.mu.Lock()
	_, ok := c.previews["track-1"]
	c.mu.Unlock()
	if ok {
		t.Error("expected preview slot removed after nil SetPreviewStream")
	}
}
