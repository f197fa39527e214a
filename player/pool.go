// Package player implements Player: the orchestration component that
// composes Clock, the compiled Timeline, a bounded pool of
// PlaybackWorkers, and the Compositor, and drives the display-rate
// render loop.
package player

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/zsiec/weave/playerr"
	"github.com/zsiec/weave/worker"
)

// MaxWorkers is the worker pool's fixed upper bound, per spec.md §4.5.
const MaxWorkers = 8

// Pool hands out PlaybackWorkers up to MaxWorkers, reusing released ones
// rather than recreating them, grounded on the teacher's bounded
// concurrency pattern (golang.org/x/sync/semaphore, used elsewhere in the
// corpus for exactly this "at most N concurrent" shape).
type Pool struct {
	log *slog.Logger
	sem *semaphore.Weighted

	mu   sync.Mutex
	free []*worker.Worker
	next int
}

// NewPool creates a worker Pool bounded at MaxWorkers.
func NewPool(log *slog.Logger) *Pool {
	return &Pool{
		log: log.With("component", "worker-pool"),
		sem: semaphore.NewWeighted(MaxWorkers),
	}
}

// Acquire returns an idle worker, creating one if the pool has spare
// capacity, or playerr.ErrExhausted if all MaxWorkers are in use.
func (p *Pool) Acquire(ctx context.Context, clipID string) (*worker.Worker, error) {
	if !p.sem.TryAcquire(1) {
		return nil, playerr.ErrExhausted
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) > 0 {
		w := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		w.Rebind(clipID)
		return w, nil
	}

	p.next++
	w := worker.New(clipID, p.log, nil)
	return w, nil
}

// Release resets w (Destroy: unload, reset decoder, clear buffer) and
// returns it to the free list for reuse.
func (p *Pool) Release(ctx context.Context, w *worker.Worker) error {
	if err := w.Destroy(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.free = append(p.free, w)
	p.mu.Unlock()

	p.sem.Release(1)
	return nil
}

// CloseAll permanently stops every idle (released) worker in the pool,
// used on Player shutdown. Workers still checked out by a Clip entry are
// not reachable here and are not closed.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.free {
		w.Close()
	}
	p.free = nil
}
