package worker

import (
	"context"
	"errors"
	"io"

	"github.com/zsiec/weave/decode"
	"github.com/zsiec/weave/media"
	"github.com/zsiec/weave/playerr"
)

// trimHorizonUs is how far behind the playhead a buffered frame is kept
// before Trim evicts it, per spec.md §4.3's buffer policy.
const trimHorizonUs = 500_000

// streamTick runs on every ticker pulse while Playing: advance to the
// current media time, emit the frame due at that time, trim stale
// buffer entries, and top up ahead of the playhead.
func (w *Worker) streamTick() {
	if w.state != Playing {
		return
	}

	mediaUs := w.currentMediaUs()

	if w.durationUs > 0 && mediaUs >= w.durationUs {
		w.stopTicker()
		w.startMediaUs = w.durationUs
		w.state = Paused
		w.emit(w.durationUs)
		return
	}

	w.emit(mediaUs)
	w.buf.Trim(mediaUs, trimHorizonUs)
	w.bufferAhead(context.Background(), mediaUs)
}

// bufferAhead demuxes and decodes packets until the buffer holds at
// least BufferAheadFrames frames, or is buffered BufferAheadSeconds past
// mediaUs, or the stream is exhausted.
func (w *Worker) bufferAhead(ctx context.Context, mediaUs int64) {
	aheadUs := int64(media.BufferAheadSeconds * 1e6)

	for w.buf.Count() < media.BufferAheadFrames && w.buf.BufferedTo() < mediaUs+aheadUs {
		pkt, err := w.demuxer.NextPacket()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			w.log.Warn("demux error", "err", err)
			return
		}

		dctx, cancel := context.WithTimeout(ctx, decode.DecodeTimeout)
		f, err := w.decoder.Decode(dctx, pkt)
		cancel()

		switch {
		case err == nil:
			if f != nil {
				w.stats.framesDecoded.Add(1)
				w.buf.Insert(f)
			}
		case errors.Is(err, playerr.ErrDecodeTransient):
			w.stats.framesDropped.Add(1)
		case errors.Is(err, playerr.ErrDecodeTimeout):
			w.stats.decodeTimeouts.Add(1)
			return
		default:
			w.log.Warn("decode error", "err", err)
			return
		}
	}
}

// emit finds the frame due at mediaUs and pushes it to the compositor
// channel, enforcing the monotonic-emission guarantee: a frame is never
// sent with a timestamp at or before the last one already sent.
func (w *Worker) emit(mediaUs int64) {
	f := w.buf.FrameAt(mediaUs)
	if f == nil {
		return
	}
	if w.hasSent && f.TimestampUs <= w.lastSentUs {
		return
	}
	w.push(f)
	w.hasSent = true
	w.lastSentUs = f.TimestampUs
	w.stats.lastSentUs.Store(f.TimestampUs)
}

// push sends a shallow view of f to the compositor channel. The view
// shares f's Planes/Bytes slices so the FrameBuffer keeps its own
// reference for future seeks; the Compositor owns and eventually Closes
// the view it receives, which only clears the view's own struct fields.
// The send is non-blocking: a full channel means the Compositor hasn't
// drained its pending slot yet, and the frame is dropped and counted
// rather than stalling the stream loop.
func (w *Worker) push(f *media.Frame) {
	if w.outCh == nil {
		return
	}
	view := *f
	select {
	case w.outCh <- &view:
	default:
		w.stats.framesDroppedBuf.Add(1)
	}
}
