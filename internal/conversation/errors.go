package conversation

import (
	"errors"
	"fmt"
)

// Sentinel errors returned synchronously by controller operations. Everything
// else — collaborator failures during a turn — is surfaced through the state
// subscription, never raised to the caller.
var (
	// ErrNotInitialized is returned when an operation is attempted before the
	// controller has all of its collaborators.
	ErrNotInitialized = errors.New("conversation: controller not initialized")

	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("conversation: controller disposed")

	// ErrBusy is returned when an operation cannot run in the current phase:
	// Speak while listening, StartListening while the turn pipeline runs.
	ErrBusy = errors.New("conversation: controller busy")
)

// Stage identifies which pipeline stage produced a [StageError].
type Stage string

const (
	StageCapture       Stage = "capture"
	StageTranscription Stage = "transcription"
	StageGeneration    Stage = "generation"
	StageSpeech        Stage = "speech"
)

// StageError wraps a collaborator failure with the pipeline stage it came
// from. It is delivered through the snapshot error field.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("conversation: %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying collaborator error.
func (e *StageError) Unwrap() error { return e.Err }

// captureError wraps err as a capture-stage failure.
func captureError(err error) *StageError {
	return &StageError{Stage: StageCapture, Err: err}
}

// transcriptionError wraps err as a transcription-stage failure.
func transcriptionError(err error) *StageError {
	return &StageError{Stage: StageTranscription, Err: err}
}

// generationError wraps err as a generation-stage failure.
func generationError(err error) *StageError {
	return &StageError{Stage: StageGeneration, Err: err}
}

// speechError wraps err as a speech-stage failure.
func speechError(err error) *StageError {
	return &StageError{Stage: StageSpeech, Err: err}
}
