package evolatent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
	"github.com/hupe1980/evolatent/store"
)

var (
	// ErrSelectionRequired is returned by Generate in a state with a previous
	// step but no selected candidate. It matches ErrEmptySelection.
	ErrSelectionRequired = fmt.Errorf("evolatent: selection required: %w", mutation.ErrEmptySelection)

	// ErrRegionRequired is returned by ApplyRegionalMutation when no candidate
	// carries a region.
	ErrRegionRequired = errors.New("evolatent: region required")

	// ErrPromptRequired is returned when generating before a prompt was set,
	// or when setting an empty prompt.
	ErrPromptRequired = errors.New("evolatent: prompt required")

	// ErrBusy is returned while another generate request is in flight.
	ErrBusy = errors.New("evolatent: generation in progress")

	// ErrInvalidState is returned for an operation the current state does not allow.
	ErrInvalidState = errors.New("evolatent: invalid state")
)

// Re-exported from the lower-level packages so callers can match every
// session error through this package.
var (
	ErrEmptySelection   = mutation.ErrEmptySelection
	ErrEmptyRegion      = mutation.ErrEmptyRegion
	ErrIndexOutOfRange  = mutation.ErrIndexOutOfRange
	ErrDegenerateVector = latent.ErrDegenerateVector
	ErrNotFound         = store.ErrNotFound
)

// RenderError indicates that the renderer failed while producing Step.
// The step was not persisted and the session kept its prior state.
//
// The original underlying error can be accessed via errors.Unwrap.
type RenderError struct {
	Step  int
	cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("evolatent: render step %d: %v", e.Step, e.cause)
}

func (e *RenderError) Unwrap() error { return e.cause }

// IOError indicates that persisting Step failed during Op. No step is left
// marked complete.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Step  int
	Op    string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("evolatent: %s step %d: %v", e.Op, e.Step, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }
