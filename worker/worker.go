// Package worker implements PlaybackWorker: a single-clip decode-and-play
// engine running its own serialized command loop, per spec.md §4.3. All
// state is owned by one goroutine; callers communicate via message-passing
// (Load/Play/Pause/Seek/Destroy), and decoded frames are pushed to the
// Compositor over a dedicated channel. Each pushed Frame is a new value
// the receiver owns and closes, but its pixel slices are shared with the
// frame kept in the worker's FrameBuffer (see push).
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsiec/weave/buffer"
	"github.com/zsiec/weave/decode"
	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/playerr"
)

// tickInterval is how often the stream loop re-evaluates while Playing.
// The spec leaves this to "the next frame boundary"; 120Hz keeps emission
// latency well under a 60fps display tick without busy-looping.
const tickInterval = time.Second / 120

// DecoderFactory constructs a Decoder for a clip's coded dimensions,
// resolved once at Load. Tests and hosts without a real codec binding use
// decode.NewRawDecoder; a cgo/ffmpeg-backed factory plugs in here.
type DecoderFactory func(width, height int) decode.Decoder

// LoadResult is returned by Load once the container header has been
// parsed and decoder configuration resolved.
type LoadResult struct {
	DurationS float64
	Width     int
	Height    int
}

// Worker is a PlaybackWorker: it owns one Demuxer, one Decoder, and one
// FrameBuffer for a single clip.
type Worker struct {
	id  string
	log *slog.Logger

	newDecoder DecoderFactory

	cmdCh   chan func()
	closeCh chan struct{}

	// Everything below is touched only inside the command-loop goroutine.
	state     State
	prevState State

	demuxer decode.Demuxer
	decoder decode.Decoder
	buf     *buffer.FrameBuffer

	durationUs int64

	startMediaUs int64
	startWall    time.Time
	speed        float64

	hasSent    bool
	lastSentUs int64

	outCh  chan *media.Frame
	ticker *time.Ticker

	stats Stats
}

// New creates a PlaybackWorker identified by id and starts its command
// loop goroutine. If newDecoder is nil, decode.NewRawDecoder is used.
func New(id string, log *slog.Logger, newDecoder DecoderFactory) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if newDecoder == nil {
		newDecoder = decode.NewRawDecoder
	}
	w := &Worker{
		id:         id,
		log:        log.With("component", "playback-worker", "clip", id),
		newDecoder: newDecoder,
		cmdCh:      make(chan func()),
		closeCh:    make(chan struct{}),
		speed:      1,
	}
	go w.run()
	return w
}

// ID returns the clip id this worker is currently (or was last) bound to.
func (w *Worker) ID() string {
	return w.id
}

// Rebind changes the worker's clip id, used by the pool when a released
// worker is handed out to a new clip.
func (w *Worker) Rebind(id string) {
	w.id = id
}

func (w *Worker) run() {
	for {
		select {
		case fn := <-w.cmdCh:
			fn()
		case <-w.tickerC():
			w.streamTick()
		case <-w.closeCh:
			return
		}
	}
}

// tickerC returns the active ticker's channel, or nil (which blocks
// forever in a select) when no ticker is running.
func (w *Worker) tickerC() <-chan time.Time {
	if w.ticker == nil {
		return nil
	}
	return w.ticker.C
}

func (w *Worker) startTicker() {
	if w.ticker == nil {
		w.ticker = time.NewTicker(tickInterval)
	}
}

func (w *Worker) stopTicker() {
	if w.ticker != nil {
		w.ticker.Stop()
		w.ticker = nil
	}
}

// exec posts fn to the command loop and waits for it to run, honoring
// ctx cancellation on both the send and the wait, per spec.md §5's
// "every long-running operation takes a cancellation signal."
func (w *Worker) exec(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	select {
	case w.cmdCh <- func() { done <- fn() }:
	case <-ctx.Done():
		return playerr.ErrCancelled
	case <-w.closeCh:
		return errors.New("worker: destroyed")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return playerr.ErrCancelled
	}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	var s State
	done := make(chan struct{})
	select {
	case w.cmdCh <- func() { s = w.state; close(done) }:
		<-done
	case <-w.closeCh:
		return Idle
	}
	return s
}

// Load initializes the demuxer on the supplied bytes, selects the coded
// configuration, and probes duration. State: Idle -> Loading -> Ready on
// success, or back to Idle (with ErrUnsupportedMedia) on failure.
func (w *Worker) Load(ctx context.Context, data []byte) (LoadResult, error) {
	var res LoadResult
	err := w.exec(ctx, func() error {
		w.state = Loading

		dem, err := decode.Open(data)
		if err != nil {
			w.state = Idle
			return fmt.Errorf("%w: %v", playerr.ErrUnsupportedMedia, err)
		}

		cfg := dem.Config()
		w.demuxer = dem
		w.decoder = w.newDecoder(cfg.Width, cfg.Height)
		w.buf = buffer.New(media.BufferMaxFrames)
		w.durationUs = cfg.DurationUs
		w.hasSent = false
		w.state = Ready

		res = LoadResult{
			DurationS: float64(cfg.DurationUs) / 1e6,
			Width:     cfg.Width,
			Height:    cfg.Height,
		}
		return nil
	})
	return res, err
}

// ConnectToCompositor attaches the channel frames are pushed to. Sends
// are non-blocking: if the channel is full, the frame is dropped and
// counted, matching the Compositor's "at most one pending frame" slot
// policy (backpressure never stalls the stream loop).
func (w *Worker) ConnectToCompositor(ch chan *media.Frame) error {
	return w.exec(context.Background(), func() error {
		w.outCh = ch
		return nil
	})
}

// Play starts (or resumes) playback from startTime at the given speed
// (1.0 == normal speed). State: Ready|Paused -> Playing.
func (w *Worker) Play(ctx context.Context, startTime, speed float64) error {
	return w.exec(ctx, func() error {
		if w.state != Ready && w.state != Paused {
			return fmt.Errorf("worker: play invalid from state %s", w.state)
		}
		if speed <= 0 {
			speed = 1
		}
		w.startMediaUs = int64(startTime * 1e6)
		w.startWall = time.Now()
		w.speed = speed
		w.state = Playing
		w.startTicker()
		return nil
	})
}

// Pause latches the current position and stops the stream loop. State:
// Playing -> Paused.
func (w *Worker) Pause(ctx context.Context) error {
	return w.exec(ctx, func() error {
		if w.state != Playing {
			return nil
		}
		w.startMediaUs = w.currentMediaUs()
		w.stopTicker()
		w.state = Paused
		return nil
	})
}

// Seek moves to media time t (seconds). State: any -> Seeking -> the
// state that preceded the seek.
func (w *Worker) Seek(ctx context.Context, t float64) error {
	return w.exec(ctx, func() error {
		if w.demuxer == nil {
			return errors.New("worker: seek before load")
		}

		prev := w.state
		if prev == Seeking {
			prev = w.prevState
		}
		w.prevState = prev
		w.state = Seeking
		w.stopTicker()

		w.buf.Clear()
		w.decoder.Reset()

		targetUs := int64(t * 1e6)
		if _, err := w.demuxer.SeekKeyframe(targetUs); err != nil {
			w.state = prev
			return fmt.Errorf("%w: %v", playerr.ErrUnsupportedMedia, err)
		}

		w.bufferAhead(ctx, targetUs)
		w.hasSent = false
		w.emit(targetUs)

		w.startMediaUs = targetUs
		w.startWall = time.Now()
		w.state = prev
		if prev == Playing {
			w.startTicker()
		}
		return nil
	})
}

// FrameAt repositions to media time t and returns the frame due there
// directly, rather than pushing it to the compositor channel. Used by the
// PreRenderer, which pulls frames on demand instead of streaming them at
// playback rate.
func (w *Worker) FrameAt(ctx context.Context, t float64) (*media.Frame, error) {
	var out *media.Frame
	err := w.exec(ctx, func() error {
		if w.demuxer == nil {
			return errors.New("worker: frameAt before load")
		}

		prev := w.state
		if prev == Seeking {
			prev = w.prevState
		}
		w.prevState = prev
		w.state = Seeking
		w.stopTicker()

		w.buf.Clear()
		w.decoder.Reset()

		targetUs := int64(t * 1e6)
		if _, err := w.demuxer.SeekKeyframe(targetUs); err != nil {
			w.state = prev
			return fmt.Errorf("%w: %v", playerr.ErrUnsupportedMedia, err)
		}

		w.bufferAhead(ctx, targetUs)

		if f := w.buf.FrameAt(targetUs); f != nil {
			view := *f
			out = &view
		}

		w.startMediaUs = targetUs
		w.startWall = time.Now()
		w.state = prev
		if prev == Playing {
			w.startTicker()
		}
		return nil
	})
	return out, err
}

// Destroy releases the decoder, demuxer, buffer contents, and detaches
// the compositor channel, returning the worker to Idle. The command loop
// goroutine keeps running so the worker can be reused by the pool.
func (w *Worker) Destroy(ctx context.Context) error {
	return w.exec(ctx, func() error {
		w.stopTicker()
		if w.demuxer != nil {
			w.demuxer.Close()
			w.demuxer = nil
		}
		w.decoder = nil
		if w.buf != nil {
			w.buf.Clear()
			w.buf = nil
		}
		w.outCh = nil
		w.hasSent = false
		w.state = Idle
		return nil
	})
}

// Close stops the command loop goroutine permanently. Used when the
// Player's worker pool itself is torn down, not on ordinary clip release.
func (w *Worker) Close() {
	close(w.closeCh)
}

// Position returns the current media-time position in seconds, computed
// from the wall-clock anchor while Playing.
func (w *Worker) Position(ctx context.Context) (float64, error) {
	var posUs int64
	err := w.exec(ctx, func() error {
		posUs = w.currentMediaUs()
		return nil
	})
	return float64(posUs) / 1e6, err
}

// currentMediaUs computes the media position from the wall-clock anchor
// while Playing, or returns the latched position otherwise.
func (w *Worker) currentMediaUs() int64 {
	if w.state != Playing {
		return w.startMediaUs
	}
	elapsed := time.Since(w.startWall).Seconds() * w.speed
	return w.startMediaUs + int64(elapsed*1e6)
}
