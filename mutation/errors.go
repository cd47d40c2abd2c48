package mutation

import "errors"

var (
	// ErrEmptySelection is returned when global mutation gets no parents.
	ErrEmptySelection = errors.New("mutation: empty selection")

	// ErrEmptyRegion is returned when a rectangle covers no latent cell after
	// conversion and clamping.
	ErrEmptyRegion = errors.New("mutation: empty region")

	// ErrIndexOutOfRange is returned for a candidate index outside the population.
	ErrIndexOutOfRange = errors.New("mutation: candidate index out of range")
)
