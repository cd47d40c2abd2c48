package store

import (
	"errors"
	"fmt"

	"github.com/hupe1980/evolatent/blobstore"
)

var (
	// ErrNotFound is returned when a step, candidate or session was never
	// persisted (or its step is incomplete). It matches blobstore.ErrNotFound.
	ErrNotFound = fmt.Errorf("store: %w", blobstore.ErrNotFound)

	// ErrStepExists is returned when persisting a step that is already complete.
	ErrStepExists = errors.New("store: step already persisted")

	// ErrInvalidStep is returned for a malformed step (size mismatch, negative index).
	ErrInvalidStep = errors.New("store: invalid step")
)
