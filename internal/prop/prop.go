// Public domain.

// Package prop propagates heliocentric state vectors under two-body
// gravity.
//
// The default integrator is an adaptive Dormand-Prince method with
// relative and absolute tolerance 1e-12.  A fixed step fourth order
// Runge-Kutta integrator is available as a cross check.  Propagation
// works in either direction of time.
package prop

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ChristopherRabotin/ode"
	"github.com/ready-steady/ode/dopri"

	"github.com/soniakeys/diffcor/astro"
)

// Method selects an integrator.
type Method int

const (
	Dopri Method = iota // adaptive Dormand-Prince 5(4)
	RK4                 // classic fixed step Runge-Kutta
)

func (m Method) String() string {
	switch m {
	case Dopri:
		return "dopri"
	case RK4:
		return "rk4"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod parses the names returned by Method.String.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "dopri":
		return Dopri, nil
	case "rk4":
		return RK4, nil
	}
	return 0, fmt.Errorf("unknown integrator %q", s)
}

// RMin is the heliocentric distance in AU below which two-body
// acceleration is considered singular.
const RMin = 1e-10

var (
	// ErrInput is returned for non-finite states or an invalid mu.
	ErrInput = errors.New("invalid propagation input")
	// ErrSingularity matches any *SingularityError.
	ErrSingularity = errors.New("numerical singularity")
)

// SingularityError is returned when integration encounters a state
// too close to the origin or produces non-finite values.  It also wraps
// any other integrator failure, such as a step size underflow, in Err;
// R then tells whether the orbit came near the origin.
type SingularityError struct {
	From, To float64 // epochs of the propagation, JD
	R        float64 // smallest distance seen, AU
	Err      error   // integrator error, if any
}

func (e *SingularityError) Error() string {
	msg := fmt.Sprintf("propagation %.6f to %.6f: numerical singularity (r = %.3e AU)",
		e.From, e.To, e.R)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrSingularity) true.
func (e *SingularityError) Is(target error) bool { return target == ErrSingularity }

func (e *SingularityError) Unwrap() error { return e.Err }

// Propagator holds integrator settings.  The zero value is not useful;
// start from Default.
type Propagator struct {
	Method  Method
	Tol     float64 // relative and absolute tolerance, Dopri
	MaxStep float64 // days, Dopri, 0 for no limit
	Step    float64 // days, RK4
}

// Default is an adaptive integrator at tolerance 1e-12.
var Default = Propagator{Method: Dopri, Tol: 1e-12, Step: .01}

// Propagate advances s to the target epoch with the default integrator.
func Propagate(s astro.State, target, mu float64) (astro.State, error) {
	return Default.Propagate(s, target, mu)
}

// Propagate advances s to the target epoch.
func (p *Propagator) Propagate(s astro.State, target, mu float64) (astro.State, error) {
	r, err := p.PropagateMany(s, []float64{target}, mu)
	if err != nil {
		return astro.State{}, err
	}
	return r[0], nil
}

// PropagateMany returns states at each of the target epochs, in the order
// given.  Targets may lie on either side of s.Epoch; each direction is
// integrated once.
func (p *Propagator) PropagateMany(s astro.State, targets []float64, mu float64) ([]astro.State, error) {
	if err := checkInput(s, targets, mu); err != nil {
		return nil, err
	}
	tb := &twoBody{mu: mu, rMin: math.Inf(1)}
	ys, err := p.integrate(tb.deriv, s.Vec(), s.Epoch, targets, tb)
	if err != nil {
		return nil, err
	}
	r := make([]astro.State, len(targets))
	for i, y := range ys {
		r[i] = astro.StateFromVec(targets[i], y)
	}
	return r, nil
}

func checkInput(s astro.State, targets []float64, mu float64) error {
	if !s.Finite() {
		return fmt.Errorf("%w: non-finite state %v at %v", ErrInput, s.Vec(), s.Epoch)
	}
	if math.IsNaN(mu) || math.IsInf(mu, 0) || mu < 0 {
		return fmt.Errorf("%w: mu = %v", ErrInput, mu)
	}
	for _, t := range targets {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: target epoch %v", ErrInput, t)
		}
	}
	return nil
}

// twoBody evaluates the equations of motion and tracks the closest
// approach to the origin.
type twoBody struct {
	mu   float64
	rMin float64
}

func (tb *twoBody) deriv(y, f []float64) {
	f[0], f[1], f[2] = y[3], y[4], y[5]
	if tb.mu == 0 {
		f[3], f[4], f[5] = 0, 0, 0
		return
	}
	r2 := y[0]*y[0] + y[1]*y[1] + y[2]*y[2]
	r := math.Sqrt(r2)
	if r < tb.rMin {
		tb.rMin = r
	}
	if !(r >= RMin) {
		// unwinds the integrator, recovered in run
		panic(errHalt)
	}
	k := -tb.mu / (r2 * r)
	f[3], f[4], f[5] = k*y[0], k*y[1], k*y[2]
}

// errHalt stops an integration from inside the derivative.
var errHalt = errors.New("integration halted")

// integrate advances y0 from t0 to each target.  f is the autonomous
// derivative.  Results are in target order.
func (p *Propagator) integrate(f func(y, dy []float64), y0 []float64, t0 float64, targets []float64, tb *twoBody) ([][]float64, error) {
	out := make([][]float64, len(targets))
	var fwd, bwd []int
	for i, t := range targets {
		switch {
		case t > t0:
			fwd = append(fwd, i)
		case t < t0:
			bwd = append(bwd, i)
		default:
			out[i] = append([]float64{}, y0...)
		}
	}
	for _, dir := range []struct {
		ix   []int
		sign float64
	}{{fwd, 1}, {bwd, -1}} {
		if len(dir.ix) == 0 {
			continue
		}
		// distinct positive offsets from t0, ascending
		sort.Slice(dir.ix, func(a, b int) bool {
			return math.Abs(targets[dir.ix[a]]-t0) < math.Abs(targets[dir.ix[b]]-t0)
		})
		var taus []float64
		slot := make([]int, len(dir.ix))
		for k, i := range dir.ix {
			tau := math.Abs(targets[i] - t0)
			if len(taus) == 0 || tau > taus[len(taus)-1] {
				taus = append(taus, tau)
			}
			slot[k] = len(taus) - 1
		}
		sign := dir.sign
		g := func(y, dy []float64) {
			f(y, dy)
			if sign < 0 {
				for i := range dy {
					dy[i] = -dy[i]
				}
			}
		}
		ys, err := p.run(g, y0, taus)
		last := targets[dir.ix[len(dir.ix)-1]]
		switch {
		case err == errHalt:
			return nil, &SingularityError{From: t0, To: last, R: tb.rMin}
		case errors.Is(err, ErrInput):
			return nil, err
		case err != nil:
			return nil, &SingularityError{From: t0, To: last, R: tb.rMin, Err: err}
		}
		for k, i := range dir.ix {
			y := ys[slot[k]]
			for _, x := range y {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return nil, &SingularityError{From: t0, To: targets[i], R: tb.rMin}
				}
			}
			out[i] = y
		}
	}
	return out, nil
}

// run integrates dy/dτ = g(y) from τ = 0 and returns y at each of the
// strictly increasing positive taus.
func (p *Propagator) run(g func(y, dy []float64), y0 []float64, taus []float64) (ys [][]float64, err error) {
	defer func() {
		if x := recover(); x != nil {
			if x != errHalt {
				panic(x)
			}
			ys, err = nil, errHalt
		}
	}()
	switch p.Method {
	case Dopri:
		return p.runDopri(g, y0, taus)
	case RK4:
		return p.runRK4(g, y0, taus)
	}
	return nil, fmt.Errorf("%w: integrator %v", ErrInput, p.Method)
}

func (p *Propagator) runDopri(g func(y, dy []float64), y0 []float64, taus []float64) ([][]float64, error) {
	cfg := dopri.DefaultConfig()
	cfg.AbsoluteTolerance = p.Tol
	cfg.RelativeTolerance = p.Tol
	if p.MaxStep > 0 {
		cfg.MaxStep = p.MaxStep
	}
	integ, err := dopri.New(cfg)
	if err != nil {
		return nil, err
	}
	xs := append([]float64{0}, taus...)
	values, _, err := integ.Compute(func(_ float64, y, f []float64) {
		g(y, f)
	}, y0, xs)
	if err != nil {
		return nil, err
	}
	ny := len(y0)
	base := len(values) - ny*len(taus)
	if base < 0 {
		return nil, errors.New("dopri: short solution")
	}
	ys := make([][]float64, len(taus))
	for k := range taus {
		ys[k] = append([]float64{}, values[base+k*ny:base+(k+1)*ny]...)
	}
	return ys, nil
}

// rk4Run is an ode.Integrable over a fixed number of steps.
type rk4Run struct {
	y     []float64
	g     func(y, dy []float64)
	steps int
	n     int
}

func (r *rk4Run) GetState() []float64 { return r.y }

func (r *rk4Run) SetState(t float64, s []float64) {
	r.y = s
	r.steps++
}

func (r *rk4Run) Stop(t float64) bool { return r.steps >= r.n }

func (r *rk4Run) Func(t float64, s []float64) []float64 {
	dy := make([]float64, len(s))
	r.g(s, dy)
	return dy
}

func (p *Propagator) runRK4(g func(y, dy []float64), y0 []float64, taus []float64) ([][]float64, error) {
	if !(p.Step > 0) {
		return nil, fmt.Errorf("%w: rk4 step %v", ErrInput, p.Step)
	}
	r := &rk4Run{y: append([]float64{}, y0...), g: g}
	ys := make([][]float64, len(taus))
	var prev float64
	for k, tau := range taus {
		span := tau - prev
		r.n = int(math.Ceil(span / p.Step))
		r.steps = 0
		ode.NewRK4(prev, span/float64(r.n), r).Solve()
		ys[k] = append([]float64{}, r.y...)
		prev = tau
	}
	return ys, nil
}
