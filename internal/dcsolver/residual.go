// Public domain.

package dcsolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/prop"
)

// Problem is a set of observations prepared for repeated residual
// evaluation.  Earth positions at the observation epochs are queried
// once, when the problem is constructed.
type Problem struct {
	Obs   []astro.Observation
	Earth []coord.Cart
	Mu    float64
	Prop  *prop.Propagator

	epochs []float64
}

// NewProblem queries eph for Earth at every observation epoch.
// If p is nil, prop.Default is used.
func NewProblem(obs []astro.Observation, eph ephem.Provider, mu float64, p *prop.Propagator) (*Problem, error) {
	if len(obs) == 0 {
		return nil, errors.New("no observations")
	}
	epochs := make([]float64, len(obs))
	for i, o := range obs {
		epochs[i] = o.Epoch
	}
	earth, err := eph.Positions(ephem.Earth, epochs)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: %w", err)
	}
	if len(earth) != len(obs) {
		return nil, fmt.Errorf("ephemeris returned %d positions for %d epochs",
			len(earth), len(obs))
	}
	if p == nil {
		p = &prop.Default
	}
	return &Problem{Obs: obs, Earth: earth, Mu: mu, Prop: p, epochs: epochs}, nil
}

// Residuals returns predicted minus observed angles for state s, as
// [Δra0, Δdec0, Δra1, Δdec1, ...] in radians, in observation order.
// Δra is wrapped to (-π, π].
func (p *Problem) Residuals(s astro.State) ([]float64, error) {
	states, err := p.Prop.PropagateMany(s, p.epochs, p.Mu)
	if err != nil {
		return nil, err
	}
	return p.residuals(s.Epoch, states, nil)
}

// residuals fills r, allocating it if nil, from body states at the
// observation epochs.  from is the epoch the states were propagated from.
func (p *Problem) residuals(from float64, states []astro.State, r []float64) ([]float64, error) {
	if r == nil {
		r = make([]float64, 2*len(p.Obs))
	}
	for i, o := range p.Obs {
		ra, dec, err := Predict(states[i].R, p.Earth[i])
		if err != nil {
			return nil, &GeometryError{Epoch: o.Epoch}
		}
		r[2*i] = WrapAngle(ra - o.RA.Rad())
		r[2*i+1] = dec - o.Dec.Rad()
		if !finite(r[2*i]) || !finite(r[2*i+1]) {
			return nil, &prop.SingularityError{From: from, To: o.Epoch, R: math.Sqrt(states[i].R.Square())}
		}
	}
	return r, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Residuals evaluates residuals of s against obs with a one-time
// ephemeris query and the default propagator.
func Residuals(s astro.State, obs []astro.Observation, eph ephem.Provider, mu float64) ([]float64, error) {
	p, err := NewProblem(obs, eph, mu, nil)
	if err != nil {
		return nil, err
	}
	return p.Residuals(s)
}

// RMS returns the root mean square of a residual vector.
func RMS(r []float64) unit.Angle {
	if len(r) == 0 {
		return 0
	}
	var sum float64
	for _, x := range r {
		sum += x * x
	}
	return unit.Angle(math.Sqrt(sum / float64(len(r))))
}

// Stats summarizes a residual vector.
type Stats struct {
	RMS, RA, Dec unit.Angle // overall and per coordinate rms
	Max          unit.Angle // largest absolute residual
}

// NewStats computes Stats for a residual vector laid out as returned by
// Residuals.
func NewStats(r []float64) Stats {
	var s Stats
	n := len(r) / 2
	if n == 0 {
		return s
	}
	ra := make([]float64, n)
	dec := make([]float64, n)
	for i := 0; i < n; i++ {
		ra[i] = r[2*i]
		dec[i] = r[2*i+1]
		if a := math.Abs(r[2*i]); a > s.Max.Rad() {
			s.Max = unit.Angle(a)
		}
		if a := math.Abs(r[2*i+1]); a > s.Max.Rad() {
			s.Max = unit.Angle(a)
		}
	}
	s.RMS = RMS(r)
	s.RA = RMS(ra)
	s.Dec = RMS(dec)
	return s
}
