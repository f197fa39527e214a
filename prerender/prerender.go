// Package prerender implements PreRenderer: a one-shot, cancellable pass
// that drives the Compositor's capture surface offscreen to produce a
// single encoded artifact, per spec.md §4.6. It borrows the orchestration
// thread's view of the world (Timeline, per-clip workers) through a small
// Source interface rather than depending on package player directly,
// mirroring how internal/pipeline.Pipeline accepts a Broadcaster interface
// instead of a concrete Relay type.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/zsiec/weave/compositor"
	"github.com/zsiec/weave/mux"
	"github.com/zsiec/weave/timeline"
	"github.com/zsiec/weave/worker"
)

// DefaultFPS is the capture rate used when Config.FPS is unset.
const DefaultFPS = 30

// Source is the subset of Player a PreRenderer needs: the compiled
// Timeline, a ready worker per clip, and the ability to rewind every clip
// before capture starts.
type Source interface {
	Timeline(ctx context.Context) (timeline.Timeline, error)
	WorkerFor(ctx context.Context, clipID string) (*worker.Worker, error)
	SeekAllToZero(ctx context.Context) error
}

// Config configures a PreRenderer run.
type Config struct {
	Log        *slog.Logger
	Source     Source
	Compositor *compositor.Compositor
	Muxer      mux.Muxer
	FPS        int
}

// PreRenderer drives one offscreen capture pass.
type PreRenderer struct {
	log  *slog.Logger
	src  Source
	comp *compositor.Compositor
	mx   mux.Muxer
	fps  int
}

// New creates a PreRenderer from cfg.
func New(cfg Config) *PreRenderer {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &PreRenderer{
		log:  log.With("component", "prerender"),
		src:  cfg.Source,
		comp: cfg.Compositor,
		mx:   cfg.Muxer,
		fps:  fps,
	}
}

// Result is what a completed Run hands back: the Muxer's finalized
// artifact plus the frame count actually captured.
type Result struct {
	Artifact mux.FinalizeResult
}

// Run drives the capture loop to completion, reporting (i+1)/totalFrames
// through onProgress after every captured frame. A cancelled ctx aborts at
// the next loop iteration: any in-flight captured frame is released and
// the Muxer is reset, matching spec.md §4.6's cancellation contract.
func (r *PreRenderer) Run(ctx context.Context, onProgress func(fraction float64)) (Result, error) {
	tl, err := r.src.Timeline(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("prerender: %w", err)
	}
	if tl.Duration <= 0 {
		return Result{}, errors.New("prerender: empty timeline")
	}

	totalFrames := int(math.Ceil(tl.Duration * float64(r.fps)))
	if totalFrames <= 0 {
		return Result{}, errors.New("prerender: zero frames to capture")
	}

	if err := r.src.SeekAllToZero(ctx); err != nil {
		return Result{}, fmt.Errorf("prerender: seek to zero: %w", err)
	}

	if err := r.mx.PreInit(ctx); err != nil {
		return Result{}, fmt.Errorf("prerender: preinit: %w", err)
	}

	for i := 0; i < totalFrames; i++ {
		select {
		case <-ctx.Done():
			r.mx.Reset()
			return Result{}, ctx.Err()
		default:
		}

		t := float64(i) / float64(r.fps)
		if err := r.captureOne(ctx, tl, t); err != nil {
			r.mx.Reset()
			return Result{}, err
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(totalFrames))
		}
	}

	artifact, err := r.mx.Finalize(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("prerender: finalize: %w", err)
	}
	return Result{Artifact: artifact}, nil
}

// captureOne composites and pushes the single frame due at t. A clip that
// fails to produce a frame is skipped rather than aborting the whole
// run — a missing frame in one placement is never fatal, matching the
// live render loop's failure contract in spec.md §4.5.
func (r *PreRenderer) captureOne(ctx context.Context, tl timeline.Timeline, t float64) error {
	active := tl.ActivePlacements(t)
	ids := make([]string, 0, len(active))

	for _, a := range active {
		w, err := r.src.WorkerFor(ctx, a.Placement.ClipID)
		if err != nil {
			continue
		}
		f, err := w.FrameAt(ctx, a.LocalTime)
		if err != nil || f == nil {
			continue
		}
		r.comp.SetCaptureFrame(a.Placement.ClipID, f)
		ids = append(ids, a.Placement.ClipID)
	}

	r.comp.RenderCapture(t, ids)

	frame := r.comp.CaptureFrame(int64(t * 1e6))
	if frame == nil {
		return nil
	}
	defer frame.Close()

	return r.mx.AddVideoFrame(ctx, frame.Bytes)
}
