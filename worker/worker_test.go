package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/zsiec/weave/media"
)

// payloadSize is the raw I420 byte count rawDecoder expects for a 1x1
// frame: AlignStride(1)*1 for Y, plus two AlignStride(1)*1 chroma planes.
const payloadSize = 384

func packetData() []byte {
	return bytes.Repeat([]byte{0xAB}, payloadSize)
}

// buildContainer assembles a minimal valid reference container directly,
// mirroring the byte layout decode.Open expects (magic/header/packets).
func buildContainer(t *testing.T, durationUs int64, ptsList []int64, keyframes []bool) []byte {
	t.Helper()

	const (
		magic        = 0x57454156
		headerSize   = 20
		packetHeader = 17
	)

	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], magic)
	binary.BigEndian.PutUint32(buf[4:8], 1)
	binary.BigEndian.PutUint32(buf[8:12], 1)
	binary.BigEndian.PutUint64(buf[12:20], uint64(durationUs))

	for i, pts := range ptsList {
		data := packetData()
		hdr := make([]byte, packetHeader+4)
		binary.BigEndian.PutUint64(hdr[0:8], uint64(pts))
		binary.BigEndian.PutUint64(hdr[8:16], uint64(33_000))
		if keyframes[i] {
			hdr[16] = 1
		}
		binary.BigEndian.PutUint32(hdr[17:21], uint32(len(data)))
		buf = append(buf, hdr...)
		buf = append(buf, data...)
	}
	return buf
}

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w := New("clip-1", nil, nil)
	t.Cleanup(w.Close)
	return w
}

func TestLoadResolvesConfig(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	data := buildContainer(t, 2_000_000, []int64{0, 33_000}, []bool{true, false})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := w.Load(ctx, data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Width != 1 || res.Height != 1 {
		t.Errorf("LoadResult dims = %dx%d, want 1x1", res.Width, res.Height)
	}
	if res.DurationS != 2.0 {
		t.Errorf("DurationS = %v, want 2.0", res.DurationS)
	}
	if got := w.State(); got != Ready {
		t.Errorf("State() = %v, want Ready", got)
	}
}

func TestLoadRejectsBadContainer(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := w.Load(ctx, []byte("not a container"))
	if err == nil {
		t.Fatal("expected error for malformed container")
	}
	if got := w.State(); got != Idle {
		t.Errorf("State() after failed Load = %v, want Idle", got)
	}
}

func TestPlayEmitsFramesToCompositorChannel(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	data := buildContainer(t, 2_000_000, []int64{0, 100_000, 200_000}, []bool{true, false, false})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := w.Load(ctx, data); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := make(chan *media.Frame, 1)
	if err := w.ConnectToCompositor(ch); err != nil {
		t.Fatalf("ConnectToCompositor: %v", err)
	}
	if err := w.Play(ctx, 0, 1); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case f := <-ch:
		if f == nil {
			t.Fatal("received nil frame")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame from the stream loop")
	}

	if err := w.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := w.State(); got != Paused {
		t.Errorf("State() after Pause = %v, want Paused", got)
	}

	snap := w.Snapshot()
	if snap.FramesDecoded == 0 {
		t.Error("expected FramesDecoded > 0 after playback")
	}
}

func TestPlayInvalidFromIdleReturnsError(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Play(ctx, 0, 1); err == nil {
		t.Fatal("expected error playing from Idle (no clip loaded)")
	}
}

func TestSeekRepositionsAndRestoresPlayingState(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	data := buildContainer(t, 5_000_000,
		[]int64{0, 1_000_000, 2_000_000, 3_000_000},
		[]bool{true, false, true, false})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := w.Load(ctx, data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := make(chan *media.Frame, 1)
	if err := w.ConnectToCompositor(ch); err != nil {
		t.Fatalf("ConnectToCompositor: %v", err)
	}
	if err := w.Play(ctx, 0, 1); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := w.Seek(ctx, 2.0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := w.State(); got != Playing {
		t.Errorf("State() after seek-while-playing = %v, want Playing", got)
	}

	pos, err := w.Position(ctx)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos < 2.0 {
		t.Errorf("Position() after seek = %v, want >= 2.0", pos)
	}
}

func TestSeekFromReadyStaysReady(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	data := buildContainer(t, 5_000_000, []int64{0, 1_000_000}, []bool{true, false})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := w.Load(ctx, data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := w.Seek(ctx, 1.0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := w.State(); got != Ready {
		t.Errorf("State() after seek-from-ready = %v, want Ready", got)
	}
}

func TestDestroyReturnsToIdleAndAllowsReload(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t)
	data := buildContainer(t, 1_000_000, []int64{0}, []bool{true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := w.Load(ctx, data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := w.Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := w.State(); got != Idle {
		t.Errorf("State() after Destroy = %v, want Idle", got)
	}

	if _, err := w.Load(ctx, data); err != nil {
		t.Fatalf("reload after Destroy: %v", err)
	}
}
