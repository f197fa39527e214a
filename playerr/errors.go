// Package playerr defines the error taxonomy shared across the playback
// engine. Callers distinguish failure kinds with errors.Is against the
// sentinels below; packages wrap them with context via fmt.Errorf's %w.
package playerr

import "errors"

// Sentinel errors for the playback engine. These enable callers to
// programmatically distinguish failure modes using errors.Is.
var (
	// ErrUnsupportedMedia indicates the container or codec could not be
	// decoded. Fatal to the affected clip; never fatal to the Player.
	ErrUnsupportedMedia = errors.New("weave: unsupported media")

	// ErrDecodeTransient indicates a single packet failed to decode. The
	// frame is dropped and playback continues.
	ErrDecodeTransient = errors.New("weave: transient decode error")

	// ErrDecodeTimeout indicates a decoder callback missed its deadline.
	// The decoder is marked not-ready until the next keyframe.
	ErrDecodeTimeout = errors.New("weave: decode timeout")

	// ErrCancelled indicates the caller aborted a seek, load, or
	// pre-render operation. No partial state is left behind.
	ErrCancelled = errors.New("weave: cancelled")

	// ErrExhausted indicates the worker pool is saturated.
	ErrExhausted = errors.New("weave: worker pool exhausted")

	// ErrWorkersNotReady indicates play/stop was invoked before the
	// Player finished pre-initialization.
	ErrWorkersNotReady = errors.New("weave: workers not ready")
)

// LoadError wraps a failure from PlaybackWorker.Load with the clip id that
// failed, so the Player can log and silently drop the clip's viewport.
type LoadError struct {
	ClipID string
	Err    error
}

func (e *LoadError) Error() string {
	return "weave: load " + e.ClipID + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
