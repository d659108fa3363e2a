package corrfuse

import (
	"errors"
	"fmt"

	"github.com/hupe1980/corrfuse/locs"
	"github.com/hupe1980/corrfuse/logspace"
)

var (
	// ErrNoLocations is returned when an operation needs a model with at
	// least one location and the model is empty.
	ErrNoLocations = errors.New("model has no locations")

	// ErrNoSubjects is returned when a constructor receives no subject data.
	ErrNoSubjects = errors.New("at least one subject is required")

	// ErrNoMatches is returned when none of a subject's locations snap onto
	// the model grid within the match threshold.
	ErrNoMatches = errors.New("no subject locations match the model grid")
)

// ErrCorrShape indicates a correlation matrix that is not square or does not
// align with its location set.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorrShape struct {
	Rows, Cols int
	Locs       int
	cause      error
}

func (e *ErrCorrShape) Error() string {
	return fmt.Sprintf("correlation matrix shape mismatch: got %dx%d for %d locations", e.Rows, e.Cols, e.Locs)
}

func (e *ErrCorrShape) Unwrap() error { return e.cause }

// ErrSeriesShape indicates an observation series too small to correlate or
// misaligned with its location set.
type ErrSeriesShape struct {
	Samples, Channels int
	Locs              int
}

func (e *ErrSeriesShape) Error() string {
	return fmt.Sprintf("series shape mismatch: %d samples x %d channels for %d locations", e.Samples, e.Channels, e.Locs)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var is *locs.ErrInvalidShape
	if errors.As(err, &is) {
		return &ErrCorrShape{Rows: is.Rows, Cols: is.Cols, cause: err}
	}
	var sm *logspace.ErrShapeMismatch
	if errors.As(err, &sm) {
		return &ErrCorrShape{Rows: sm.NumRows, Cols: sm.NumCols, Locs: sm.Locs, cause: err}
	}

	return err
}
