// Package mux defines the Muxer boundary interface PreRenderer pushes
// captured frames to. There is no concrete network implementation in this
// repository: a real Muxer encodes a capture stream to a container blob
// out of process, exactly as spec.md scopes it as an external collaborator.
package mux

import "context"

// FinalizeResult is the finalized artifact a Muxer hands back once all
// frames have been pushed.
type FinalizeResult struct {
	Blob       []byte
	FrameCount int
}

// Muxer is the minimal surface PreRenderer needs, shaped like the
// teacher's StatsProvider/DebugProvider pattern: a small, single-purpose
// interface satisfied by a stub in tests rather than a full client type.
type Muxer interface {
	// PreInit prepares the muxer for a new capture run.
	PreInit(ctx context.Context) error

	// SetCapturePort tells the muxer which local port the capture surface
	// is reachable on, for implementations that stream frames over a
	// local transport rather than taking them in-process.
	SetCapturePort(port int) error

	// AddVideoFrame pushes one captured, encoded-or-raw frame.
	AddVideoFrame(ctx context.Context, frameData []byte) error

	// Finalize closes out the capture run and returns the encoded blob.
	Finalize(ctx context.Context) (FinalizeResult, error)

	// Reset discards any in-progress capture state, used on cancellation
	// or invalidation.
	Reset()
}
