package player

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/zsiec/weave/compositor"
	"github.com/zsiec/weave/project"
)

const payloadSize = 384

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
		data := make([]byte, payloadSize)
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

func testProject() project.Project {
	return project.Project{
		Canvas: project.Canvas{Width: 640, Height: 360},
		Tracks: []project.Track{{ID: "track-1"}},
		Groups: []project.Group{{
			ID:     "root",
			Layout: project.Layout{Kind: project.LayoutStacked},
			Members: []project.Member{
				{ID: "track-1"},
			},
		}},
	}
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	comp := compositor.New(compositor.Config{Width: 640, Height: 360})
	p := New(Config{Compositor: comp})
	t.Cleanup(p.Close)
	return p
}

func TestSetProjectCompilesTimeline(t *testing.T) {
	t.Parallel()

	p := newTestPlayer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.SetProject(ctx, testProject()); err != nil {
		t.Fatalf("SetProject: %v", err)
	}
}

func TestLoadClipThenPlayPauseStop(t *testing.T) {
	t.Parallel()

	p := newTestPlayer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.SetProject(ctx, testProject()); err != nil {
		t.Fatalf("SetProject: %v", err)
	}

	data := buildContainer(t, 3_000_000, []int64{0, 100_000, 200_000}, []bool{true, false, false})
	clipID, err := p.LoadClip(ctx, "track-1", data, "")
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	if clipID == "" {
		t.Fatal("expected a generated clip id")
	}

	if err := p.Play(ctx, nil); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := p.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := p.Seek(ctx, 0.1); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := p.ClearClip(ctx, clipID); err != nil {
		t.Fatalf("ClearClip: %v", err)
	}
}

func TestLoadClipExplicitIDRejectsDuplicate(t *testing.T) {
	t.Parallel()

	p := newTestPlayer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.SetProject(ctx, testProject()); err != nil {
		t.Fatalf("SetProject: %v", err)
	}

	data := buildContainer(t, 1_000_000, []int64{0}, []bool{true})
	if _, err := p.LoadClip(ctx, "track-1", data, "clip-a"); err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	if _, err := p.LoadClip(ctx, "track-1", data, "clip-a"); err == nil {
		t.Fatal("expected error loading a duplicate clip id")
	}
}

func TestClearClipUnknownIDErrors(t *testing.T) {
	t.Parallel()

	p := newTestPlayer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.ClearClip(ctx, "does-not-exist"); err == nil {
		t.Fatal("expected error clearing an unknown clip")
	}
}
