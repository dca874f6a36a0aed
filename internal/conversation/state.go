package conversation

// Phase is the controller's position in the turn cycle.
//
// The machine moves Idle → Listening → Thinking → Speaking → Idle, with
// PhaseError reachable from any phase and always recovered back to PhaseIdle.
// Barge-in moves Speaking → Listening directly.
type Phase int

const (
	// PhaseIdle means no turn is in progress.
	PhaseIdle Phase = iota

	// PhaseListening means audio capture is running.
	PhaseListening

	// PhaseThinking means capture has stopped and the transcribe → generate
	// pipeline is running.
	PhaseThinking

	// PhaseSpeaking means the response is being played back.
	PhaseSpeaking

	// PhaseError is the transient failure phase; the controller immediately
	// recovers to PhaseIdle, leaving the error in the snapshot.
	PhaseError
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseThinking:
		return "thinking"
	case PhaseSpeaking:
		return "speaking"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view of the controller delivered to subscribers
// on every state mutation. It is the sole channel through which hosts learn
// what the system is doing; no polling mechanism beyond [Controller.State]
// is provided.
type Snapshot struct {
	// Phase is the current position in the turn cycle.
	Phase Phase

	// Listening, Thinking, and Speaking are convenience projections of Phase
	// for hosts that render simple indicators.
	Listening bool
	Thinking  bool
	Speaking  bool

	// Transcript is the most recent transcription result of the current or
	// previous turn. Cleared when a new listening turn starts.
	Transcript string

	// Response is the most recent generated response. Cleared when a new
	// listening turn starts.
	Response string

	// Err is the transient error from the last failed operation, nil when
	// the last operation succeeded. Cleared at the start of the next
	// StartListening or Speak call, so a single failed turn never blocks
	// subsequent turns.
	Err error

	// Initialized reports whether all collaborators are wired and the
	// controller is able to run turns. False after Dispose.
	Initialized bool
}
