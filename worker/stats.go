package worker

import "sync/atomic"

// Stats are forwarding/decode counters exposed for diagnostics, grounded
// on the teacher's atomic pipeline-forwarding counters
// (internal/pipeline.Pipeline: videoForwarded, lastVideoFwdPTS, ...).
type Stats struct {
	framesDecoded    atomic.Int64
	framesDropped    atomic.Int64
	framesDroppedBuf atomic.Int64
	decodeTimeouts   atomic.Int64
	lastSentUs       atomic.Int64
}

// Snapshot is a point-in-time copy of Stats, safe to serialize.
type Snapshot struct {
	FramesDecoded  int64
	FramesDropped  int64
	FramesBackpressureDropped int64
	DecodeTimeouts int64
	LastSentUs     int64
	BufferDepth    int
}

// Snapshot returns the current counters plus the live buffer depth.
func (w *Worker) Snapshot() Snapshot {
	depth := 0
	done := make(chan struct{})
	select {
	case w.cmdCh <- func() {
		if w.buf != nil {
			depth = w.buf.Count()
		}
		close(done)
	}:
		<-done
	case <-w.closeCh:
	}

	return Snapshot{
		FramesDecoded:             w.stats.framesDecoded.Load(),
		FramesDropped:             w.stats.framesDropped.Load(),
		FramesBackpressureDropped: w.stats.framesDroppedBuf.Load(),
		DecodeTimeouts:            w.stats.decodeTimeouts.Load(),
		LastSentUs:                w.stats.lastSentUs.Load(),
		BufferDepth:               depth,
	}
}
