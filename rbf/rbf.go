package rbf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/corrfuse/locs"
)

// DefaultWidth is the default RBF kernel width in the units of the
// location coordinates (millimeters for MNI space).
const DefaultWidth = 20.0

// ErrInvalidWidth indicates a non-positive kernel width.
type ErrInvalidWidth struct {
	Width float64
}

func (e *ErrInvalidWidth) Error() string {
	return fmt.Sprintf("rbf width must be positive: got %g", e.Width)
}

// LogRBF returns the log-domain Gaussian weight matrix between a target set
// and a source set: W[i][k] = -||to[i]-from[k]||^2 / (2*width^2), one row
// per target location, one column per source location.
//
// Rows whose target location coincides exactly with a source location are
// replaced by a delta row (0 at the match, -Inf elsewhere), so blurring onto
// a location the evidence already covers reproduces that evidence instead of
// smearing it. The result is nil when either set is empty.
func LogRBF(to, from *locs.Set, width float64) (*mat.Dense, error) {
	if width <= 0 {
		return nil, &ErrInvalidWidth{Width: width}
	}
	nt, ns := to.Len(), from.Len()
	if nt == 0 || ns == 0 {
		return nil, nil
	}
	inv := 1 / (2 * width * width)
	negInf := math.Inf(-1)
	w := mat.NewDense(nt, ns, nil)
	for i := 0; i < nt; i++ {
		p := to.At(i)
		if k, ok := from.IndexOf(p); ok {
			for l := 0; l < ns; l++ {
				w.Set(i, l, negInf)
			}
			w.Set(i, k, 0)
			continue
		}
		for k := 0; k < ns; k++ {
			q := from.At(k)
			dx := p.X - q.X
			dy := p.Y - q.Y
			dz := p.Z - q.Z
			w.Set(i, k, -(dx*dx+dy*dy+dz*dz)*inv)
		}
	}
	return w, nil
}
