package audio

import "context"

// FrameCallback receives captured frames on the capture goroutine. Callbacks
// must be non-blocking and O(frame size) so the source never falls behind
// real-time input.
type FrameCallback func(Frame)

// Source is the capture collaborator contract: an audio input device or
// network feed that delivers frames via callback while running and returns
// the full recorded audio when stopped.
//
// Implementations must be safe for concurrent use. A Source is reusable:
// after Stop returns it may be started again for the next listening turn.
type Source interface {
	// Start begins capture and invokes cb for every frame until Stop is
	// called. Start returns an error if capture cannot begin (device busy,
	// permission denied, network failure). Calling Start while already
	// capturing is an error.
	Start(ctx context.Context, cb FrameCallback) error

	// Stop ends capture and returns the complete recorded audio once the
	// backend has finished flushing. The returned samples are independent of
	// the frames already delivered through the callback: platforms that
	// buffer internally may return audio the callback never saw. Stop is a
	// no-op returning nil samples when the source is not capturing.
	Stop(ctx context.Context) ([]float32, error)
}

// Reinitializer is an optional interface for sources whose capture subsystem
// can be torn down and rebuilt. The conversation controller calls it between
// failed Start attempts before retrying.
type Reinitializer interface {
	Reinitialize(ctx context.Context) error
}
