package player

import (
	"context"
	"fmt"

	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/timeline"
	"github.com/zsiec/weave/worker"
)

// Timeline returns the currently compiled Timeline, for the PreRenderer to
// walk without reaching into Player internals.
func (pl *Player) Timeline(ctx context.Context) (timeline.Timeline, error) {
	var tl timeline.Timeline
	err := pl.exec(ctx, func() error {
		tl = pl.tl
		return nil
	})
	return tl, err
}

// WorkerFor returns the ready PlaybackWorker backing clipID, for the
// PreRenderer's frame-on-demand pulls.
func (pl *Player) WorkerFor(ctx context.Context, clipID string) (*worker.Worker, error) {
	var w *worker.Worker
	err := pl.exec(ctx, func() error {
		c, ok := pl.clips[clipID]
		if !ok || c.loading {
			return fmt.Errorf("player: clip %q not ready", clipID)
		}
		w = c.w
		return nil
	})
	return w, err
}

// SeekAllToZero rewinds every loaded clip's worker to 0, the PreRenderer's
// first step before it starts pulling frames on demand.
func (pl *Player) SeekAllToZero(ctx context.Context) error {
	workers, _, err := pl.snapshotClips(ctx)
	if err != nil {
		return err
	}
	return parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		return w.Seek(gctx, 0)
	})
}

// UsePreRenderedClip tears down every live clip and worker, replacing them
// with a single clip fed by w, the PlaybackWorker the PreRenderer loaded
// from its finalized artifact. Per spec.md §4.6 step 5, this is only valid
// while no preview stream is active; SetPreviewStream-with-a-non-nil
// stream on the Compositor invalidates this fast path, at which point the
// caller should fall back to SetProject to rebuild the normal clip set.
func (pl *Player) UsePreRenderedClip(ctx context.Context, clipID string, w *worker.Worker, durationS float64) error {
	var old []*worker.Worker
	err := pl.exec(ctx, func() error {
		for _, c := range pl.clips {
			old = append(old, c.w)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ch := make(chan *media.Frame, 1)
	if err := w.ConnectToCompositor(ch); err != nil {
		return err
	}
	if pl.comp != nil {
		pl.comp.ConnectPlaybackWorker(clipID, ch)
	}

	err = pl.exec(ctx, func() error {
		pl.clips = map[string]*clipEntry{
			clipID: {w: w, ch: ch, durationS: durationS},
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, o := range old {
		if pl.comp != nil {
			pl.comp.DisconnectPlaybackWorker(o.ID())
		}
		_ = pl.pool.Release(ctx, o)
	}
	return nil
}
