package latent

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateVector is returned when normalizing a vector whose norm is
	// zero (or not finite).
	ErrDegenerateVector = errors.New("latent: cannot normalize degenerate vector")

	// ErrInvalidEncoding is returned when decoding bytes that are not a latent.
	ErrInvalidEncoding = errors.New("latent: invalid encoding")
)

// ShapeMismatchError indicates a vector whose shape differs from the space's.
type ShapeMismatchError struct {
	Expected Shape
	Actual   Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("latent: shape mismatch: expected %v, got %v", e.Expected, e.Actual)
}
