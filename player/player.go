package player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/zsiec/weave/audio"
	"github.com/zsiec/weave/clock"
	"github.com/zsiec/weave/compositor"
	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/playerr"
	"github.com/zsiec/weave/project"
	"github.com/zsiec/weave/timeline"
	"github.com/zsiec/weave/worker"
)

// renderTickInterval is the display-rate tick the render loop runs at.
const renderTickInterval = time.Second / 60

// loadingAwaitTimeout bounds how long Play waits for in-flight Loads to
// settle before giving up, per spec.md §4.5 step 2.
const loadingAwaitTimeout = 5 * time.Second

// Config configures a Player at construction.
type Config struct {
	Log        *slog.Logger
	Compositor *compositor.Compositor
	Metrics    *Metrics
}

// trackEntry holds a track's audio pipeline bookkeeping; tracks never
// carry a PlaybackWorker themselves (only their clips do).
type trackEntry struct {
	id string
}

// clipEntry is one loaded clip: its owning track, pooled worker, and
// cached metadata.
type clipEntry struct {
	trackID   string
	w         *worker.Worker
	ch        chan *media.Frame
	durationS float64
	loading   bool
}

// Player composes Clock, the compiled Timeline, a bounded WorkerPool, and
// the Compositor, and runs the display-rate render loop. All state is
// confined to one goroutine (the orchestration thread spec.md §5
// describes); callers communicate through exported methods that post to
// its command channel, the same message-passing idiom as worker.Worker.
type Player struct {
	log     *slog.Logger
	clock   *clock.Clock
	pool    *Pool
	comp    *compositor.Compositor
	metrics *Metrics

	cmdCh   chan func()
	closeCh chan struct{}
	ticker  *time.Ticker

	audioMixer *audio.Mixer
	audioSink  *audio.Sink

	proj  project.Project
	tl    timeline.Timeline
	tracks map[string]*trackEntry
	clips  map[string]*clipEntry
}

// New creates a Player and starts its orchestration goroutine.
func New(cfg Config) *Player {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	p := &Player{
		log:        log.With("component", "player"),
		clock:      clock.New(),
		pool:       NewPool(log),
		comp:       cfg.Compositor,
		metrics:    metrics,
		cmdCh:      make(chan func()),
		closeCh:    make(chan struct{}),
		audioMixer: audio.NewMixer(),
		tracks:     make(map[string]*trackEntry),
		clips:      make(map[string]*clipEntry),
	}

	sink, err := audio.NewSink(p.audioMixer)
	if err != nil {
		p.log.Warn("audio output unavailable, continuing muted", "error", err)
	} else {
		p.audioSink = sink
		p.audioSink.Start()
	}

	p.ticker = time.NewTicker(renderTickInterval)
	go p.run()
	return p
}

// Close stops the audio sink, the orchestration goroutine, and the pool's
// idle workers. Workers still held by loaded clips are not closed.
func (p *Player) Close() {
	if p.audioSink != nil {
		p.audioSink.Close()
	}
	close(p.closeCh)
	p.pool.CloseAll()
}

func (p *Player) run() {
	defer p.ticker.Stop()
	for {
		select {
		case fn := <-p.cmdCh:
			fn()
		case <-p.ticker.C:
			p.renderTick()
		case <-p.closeCh:
			return
		}
	}
}

// exec posts fn to the orchestration goroutine, honoring ctx cancellation
// on both the send and the wait — the same pattern worker.Worker uses.
func (p *Player) exec(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	select {
	case p.cmdCh <- func() {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				done <- errors.New("player: command panicked")
			}
		}()
		done <- fn()
	}:
	case <-ctx.Done():
		return playerr.ErrCancelled
	case <-p.closeCh:
		return errors.New("player: closed")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return playerr.ErrCancelled
	}
}

// SetProject validates and compiles p into the current Timeline, then
// pushes it to the Compositor. This is the reactive-store replacement
// spec.md §9 calls for: an immutable snapshot recompiled on every
// mutation rather than fine-grained diffing.
func (pl *Player) SetProject(ctx context.Context, p project.Project) error {
	return pl.exec(ctx, func() error {
		if err := project.Validate(p); err != nil {
			return err
		}
		pl.proj = p
		pl.tl = timeline.Compile(p, p.Canvas)
		pl.clock.SetDuration(pl.tl.Duration)
		if pl.comp != nil {
			pl.comp.SetTimeline(pl.tl)
		}
		return nil
	})
}

// renderTick is the render loop body from spec.md §4.5: advance the
// clock, handle a just-crossed loop boundary, resolve active placements,
// and hand the current time to the Compositor.
func (pl *Player) renderTick() {
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			pl.log.Error("render loop panic recovered", "panic", r)
		}
	}()

	t := pl.clock.Tick()
	if pl.clock.Looped() {
		for _, c := range pl.clips {
			if c.w == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = c.w.Seek(ctx, 0)
			_ = c.w.Play(ctx, 0, 1)
			cancel()
		}
	}

	if pl.comp != nil {
		pl.comp.RenderAt(t)
	}
	pl.metrics.observeRenderTick(t)
	pl.metrics.setWorkersInUse(len(pl.clips))
}

// newClipID generates a clip id when the caller doesn't supply one.
func newClipID() string {
	return uuid.NewString()
}
