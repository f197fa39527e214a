package player

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/playerr"
	"github.com/zsiec/weave/worker"
)

// LoadClip creates a Clip entry on trackID, acquires a pooled worker,
// wires the worker/Compositor channel, loads data, and seeks to the
// current clock position so the first frame is ready to display. If
// clipID is empty, one is generated. Per spec.md §4.5.
func (pl *Player) LoadClip(ctx context.Context, trackID string, data []byte, clipID string) (string, error) {
	if clipID == "" {
		clipID = newClipID()
	}

	var w *worker.Worker
	err := pl.exec(ctx, func() error {
		if _, ok := pl.tracks[trackID]; !ok {
			pl.tracks[trackID] = &trackEntry{id: trackID}
		}
		if _, exists := pl.clips[clipID]; exists {
			return fmt.Errorf("player: clip %q already loaded", clipID)
		}
		acquired, aerr := pl.pool.Acquire(ctx, clipID)
		if aerr != nil {
			return aerr
		}
		w = acquired
		pl.clips[clipID] = &clipEntry{trackID: trackID, w: w, loading: true}
		return nil
	})
	if err != nil {
		return "", err
	}

	ch := make(chan *media.Frame, 1)
	if err := w.ConnectToCompositor(ch); err != nil {
		pl.abandonClip(clipID, w)
		return "", &playerr.LoadError{ClipID: clipID, Err: err}
	}
	if pl.comp != nil {
		pl.comp.ConnectPlaybackWorker(clipID, ch)
	}

	res, err := w.Load(ctx, data)
	if err != nil {
		if pl.comp != nil {
			pl.comp.DisconnectPlaybackWorker(clipID)
		}
		pl.abandonClip(clipID, w)
		return "", &playerr.LoadError{ClipID: clipID, Err: err}
	}

	var now float64
	_ = pl.exec(ctx, func() error {
		now = pl.clock.Position()
		return nil
	})
	if err := w.Seek(ctx, now); err != nil {
		if pl.comp != nil {
			pl.comp.DisconnectPlaybackWorker(clipID)
		}
		pl.abandonClip(clipID, w)
		return "", &playerr.LoadError{ClipID: clipID, Err: err}
	}

	err = pl.exec(ctx, func() error {
		if c, ok := pl.clips[clipID]; ok {
			c.durationS = res.DurationS
			c.ch = ch
			c.loading = false
		}
		return nil
	})
	return clipID, err
}

// abandonClip removes a clip entry and releases its worker after a
// failed load, best-effort.
func (pl *Player) abandonClip(clipID string, w *worker.Worker) {
	_ = pl.exec(context.Background(), func() error {
		delete(pl.clips, clipID)
		return nil
	})
	_ = pl.pool.Release(context.Background(), w)
}

// ClearClip disconnects clipID's compositor channel, releases its
// worker back to the pool, and removes its Clip entry.
func (pl *Player) ClearClip(ctx context.Context, clipID string) error {
	var w *worker.Worker
	err := pl.exec(ctx, func() error {
		c, ok := pl.clips[clipID]
		if !ok {
			return fmt.Errorf("player: clip %q not loaded", clipID)
		}
		w = c.w
		delete(pl.clips, clipID)
		pl.audioMixer.RemoveTrack(c.trackID)
		return nil
	})
	if err != nil {
		return err
	}
	if pl.comp != nil {
		pl.comp.DisconnectPlaybackWorker(clipID)
	}
	return pl.pool.Release(ctx, w)
}

// snapshotClips returns the current clip workers, split by whether they
// are still loading.
func (pl *Player) snapshotClips(ctx context.Context) (ready []*worker.Worker, loading bool, err error) {
	err = pl.exec(ctx, func() error {
		for _, c := range pl.clips {
			if c.loading {
				loading = true
				continue
			}
			ready = append(ready, c.w)
		}
		return nil
	})
	return ready, loading, err
}

// Play starts (or resumes) playback from t, or the clock's current
// position if t is nil. Per spec.md §4.5.
func (pl *Player) Play(ctx context.Context, t *float64) error {
	deadline := time.Now().Add(loadingAwaitTimeout)
	var workers []*worker.Worker
	for {
		var loading bool
		var err error
		workers, loading, err = pl.snapshotClips(ctx)
		if err != nil {
			return err
		}
		if !loading {
			break
		}
		if time.Now().After(deadline) {
			// Proceed with whatever clips are already Ready rather than
			// aborting playback entirely; clips still loading are not
			// started by this call.
			break
		}
		select {
		case <-ctx.Done():
			return playerr.ErrCancelled
		case <-time.After(10 * time.Millisecond):
		}
	}

	var startTime float64
	if err := pl.exec(ctx, func() error {
		if t != nil {
			startTime = *t
		} else {
			startTime = pl.clock.Position()
		}
		return nil
	}); err != nil {
		return err
	}

	if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		return w.Seek(gctx, startTime)
	}); err != nil {
		return err
	}
	if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		return w.Play(gctx, startTime, 1)
	}); err != nil {
		return err
	}

	return pl.exec(ctx, func() error {
		pl.clock.Play(&startTime)
		return nil
	})
}

// Pause pauses every Playing worker and the clock.
func (pl *Player) Pause(ctx context.Context) error {
	workers, _, err := pl.snapshotClips(ctx)
	if err != nil {
		return err
	}

	if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		if w.State() != worker.Playing {
			return nil
		}
		return w.Pause(gctx)
	}); err != nil {
		return err
	}

	return pl.exec(ctx, func() error {
		pl.clock.Pause()
		return nil
	})
}

// Stop pauses and rewinds every non-Idle worker to 0, and stops the
// clock.
func (pl *Player) Stop(ctx context.Context) error {
	workers, _, err := pl.snapshotClips(ctx)
	if err != nil {
		return err
	}

	if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		if w.State() == worker.Idle || w.State() == worker.Loading {
			return nil
		}
		if w.State() == worker.Playing {
			if err := w.Pause(gctx); err != nil {
				return err
			}
		}
		return w.Seek(gctx, 0)
	}); err != nil {
		return err
	}

	return pl.exec(ctx, func() error {
		pl.clock.Stop()
		return nil
	})
}

// Seek moves every clip to t. If currently playing, playback pauses for
// the duration of the seek and resumes afterward; otherwise the clips
// stay paused at the new position.
func (pl *Player) Seek(ctx context.Context, t float64) error {
	workers, _, err := pl.snapshotClips(ctx)
	if err != nil {
		return err
	}

	var wasPlaying bool
	if err := pl.exec(ctx, func() error {
		wasPlaying = pl.clock.IsPlaying()
		return nil
	}); err != nil {
		return err
	}

	if wasPlaying {
		if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
			return w.Pause(gctx)
		}); err != nil {
			return err
		}
	}

	if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
		return w.Seek(gctx, t)
	}); err != nil {
		return err
	}

	if err := pl.exec(ctx, func() error {
		pl.clock.Seek(t)
		return nil
	}); err != nil {
		return err
	}

	if wasPlaying {
		if err := parallelEach(ctx, workers, func(gctx context.Context, w *worker.Worker) error {
			return w.Play(gctx, t, 1)
		}); err != nil {
			return err
		}
	}
	return nil
}

// parallelEach runs fn over every worker concurrently, stopping at the
// first error (golang.org/x/sync/errgroup), matching the teacher's
// supervised-goroutine style for fan-out operations.
func parallelEach(ctx context.Context, workers []*worker.Worker, fn func(context.Context, *worker.Worker) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error { return fn(gctx, w) })
	}
	return g.Wait()
}
