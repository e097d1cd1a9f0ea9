// Public domain.

package dcsolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/coord"
)

// ErrDegenerateGeometry matches any *GeometryError.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// GeometryError is returned when the observer coincides with the body.
type GeometryError struct {
	Epoch float64 // JD, if known
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("observer coincides with body at %.6f", e.Epoch)
}

// Is makes errors.Is(err, ErrDegenerateGeometry) true.
func (e *GeometryError) Is(target error) bool { return target == ErrDegenerateGeometry }

// Predict computes the right ascension and declination of body as seen
// from observer.  Both positions are heliocentric equatorial.
// Returned ra is in [0, 2π), dec in [-π/2, π/2].
func Predict(body, observer coord.Cart) (ra, dec float64, err error) {
	dx := body.X - observer.X
	dy := body.Y - observer.Y
	dz := body.Z - observer.Z
	d := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if d == 0 {
		return 0, 0, &GeometryError{}
	}
	ra = math.Atan2(dy, dx)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	s := dz / d
	// rounding can put |s| a hair over 1
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return ra, math.Asin(s), nil
}

// WrapAngle reduces an angle difference to (-π, π].
func WrapAngle(d float64) float64 {
	const twoPi = 2 * math.Pi
	m := math.Mod(math.Pi-d, twoPi)
	if m < 0 {
		m += twoPi
	}
	return math.Pi - m
}
