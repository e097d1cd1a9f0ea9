// Public domain.

package dcsolver

import (
	"context"
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/prop"
)

// Status tells how a refinement ended.
type Status int

const (
	StatusXTol          Status = iota // step smaller than XTol
	StatusFTol                        // relative cost decrease within FTol
	StatusExact                       // zero cost or zero gradient
	StatusMaxIter                     // iteration limit reached
	StatusStalled                     // damping overflowed without progress
	StatusResidualLimit               // converged, but rms exceeds RMSLimit
)

var statusText = [...]string{
	StatusXTol:          "converged (xtol)",
	StatusFTol:          "converged (ftol)",
	StatusExact:         "converged (exact)",
	StatusMaxIter:       "iteration limit",
	StatusStalled:       "stalled",
	StatusResidualLimit: "residuals over limit",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusText) {
		return statusText[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Converged reports whether s is one of the converged states.
func (s Status) Converged() bool { return s <= StatusExact }

// Options control Refine.  Start from DefaultOptions.
type Options struct {
	Mu       float64          // gravitational parameter, AU³/day²
	XTol     float64          // relative step tolerance
	FTol     float64          // relative cost decrease tolerance
	MaxIter  int              // limit on damped steps
	RMSLimit unit.Angle       // largest rms accepted as converged, 0 for none
	Jacobian JacobianMethod
	Prop     *prop.Propagator // nil for prop.Default
	Logger   kitlog.Logger    // iteration log, nil for none
}

// DefaultOptions returns heliocentric two-body options with
// tolerances of 1e-12.
func DefaultOptions() *Options {
	return &Options{
		Mu:       astro.MuSun,
		XTol:     1e-12,
		FTol:     1e-12,
		MaxIter:  200,
		RMSLimit: unit.AngleFromSec(60),
	}
}

// Result of a refinement.
type Result struct {
	State       astro.State
	Residuals   []float64 // at State
	Initial     []float64 // at the initial guess
	Converged   bool
	Status      Status
	Iterations  int // damped steps tried
	Evaluations int // residual evaluations, excluding Jacobians
	Lambda      float64
}

// RMS of the final residuals.
func (r *Result) RMS() unit.Angle { return RMS(r.Residuals) }

// Refine fits a state vector to observations by Levenberg-Marquardt
// differential correction, starting from guess.  The epoch of the
// result is the epoch of guess.
//
// Failure to converge is reported in the result, not as an error.
// Errors are returned for propagation failures, degenerate geometry,
// ephemeris failures, and cancellation of ctx, which is checked between
// iterations.
func Refine(ctx context.Context, guess astro.State, obs []astro.Observation, eph ephem.Provider, opt *Options) (*Result, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	p, err := NewProblem(obs, eph, opt.Mu, opt.Prop)
	if err != nil {
		return nil, err
	}
	return p.Refine(ctx, guess, opt)
}

type phase int

const (
	phaseJacobian phase = iota // linearize at the current state
	phaseStep                  // try a damped step
	phaseDone
)

// lm is the explicit state of the Levenberg-Marquardt iteration.
type lm struct {
	phase  phase
	x      []float64 // current parameters
	r      []float64 // residuals at x
	cost   float64   // ½|r|²
	jtj    *mat64.Dense
	g      *mat64.Vector // Jᵀr
	lambda float64
	nu     float64
	iter   int
	evals  int
	status Status
}

// Refine is Refine for a prepared problem.  Options Mu and Prop are
// taken from the problem.
func (p *Problem) Refine(ctx context.Context, guess astro.State, opt *Options) (*Result, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	logger := opt.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	epoch := guess.Epoch
	m := &lm{x: guess.Vec(), nu: 2}
	r, err := p.Residuals(guess)
	if err != nil {
		return nil, err
	}
	m.r = r
	m.cost = cost(r)
	m.evals = 1
	initial := append([]float64{}, r...)
	logger.Log("level", "debug", "subsys", "refine", "iter", 0, "cost", m.cost, "rms", RMS(r).Sec())

	for m.phase != phaseDone {
		switch m.phase {
		case phaseJacobian:
			if m.cost == 0 {
				m.finish(StatusExact)
				continue
			}
			j, err := p.Jacobian(astro.StateFromVec(epoch, m.x), m.r, opt.Jacobian)
			if err != nil {
				return nil, err
			}
			m.normal(j)
			if mat64.Norm(m.g, math.Inf(1)) == 0 {
				m.finish(StatusExact)
				continue
			}
			if m.lambda == 0 {
				var maxDiag float64
				for i := 0; i < 6; i++ {
					maxDiag = math.Max(maxDiag, m.jtj.At(i, i))
				}
				m.lambda = 1e-3 * maxDiag
				if m.lambda == 0 {
					m.lambda = 1e-3
				}
			}
			m.phase = phaseStep

		case phaseStep:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if m.iter >= opt.MaxIter {
				m.finish(StatusMaxIter)
				continue
			}
			if math.IsInf(m.lambda, 0) || m.lambda > 1e300 {
				m.finish(StatusStalled)
				continue
			}
			m.iter++
			dx, ok := m.solve()
			if !ok {
				m.reject()
				continue
			}
			small := floats.Norm(dx, 2) <= opt.XTol*(floats.Norm(m.x, 2)+opt.XTol)
			xNew := make([]float64, 6)
			floats.AddTo(xNew, m.x, dx)
			rNew, err := p.Residuals(astro.StateFromVec(epoch, xNew))
			if err != nil {
				return nil, err
			}
			m.evals++
			cNew := cost(rNew)
			pred := 0.5 * (m.lambda*floats.Dot(dx, dx) - floats.Dot(dx, m.g.RawVector().Data))
			accepted := cNew < m.cost
			logger.Log("level", "debug", "subsys", "refine", "iter", m.iter,
				"cost", cNew, "lambda", m.lambda, "accepted", accepted)
			if !accepted {
				m.reject()
				if small {
					m.finish(StatusXTol)
				}
				continue
			}
			rel := (m.cost - cNew) / m.cost
			rho := (m.cost - cNew) / pred
			m.x, m.r, m.cost = xNew, rNew, cNew
			m.lambda *= math.Max(1./3, 1-math.Pow(2*rho-1, 3))
			m.nu = 2
			switch {
			case cNew == 0:
				m.finish(StatusExact)
			case rel <= opt.FTol:
				m.finish(StatusFTol)
			case small:
				m.finish(StatusXTol)
			default:
				m.phase = phaseJacobian
			}
		}
	}

	res := &Result{
		State:       astro.StateFromVec(epoch, m.x),
		Residuals:   m.r,
		Initial:     initial,
		Status:      m.status,
		Iterations:  m.iter,
		Evaluations: m.evals,
		Lambda:      m.lambda,
	}
	if res.Status.Converged() && opt.RMSLimit > 0 && res.RMS() > opt.RMSLimit {
		res.Status = StatusResidualLimit
	}
	res.Converged = res.Status.Converged()
	logger.Log("level", "info", "subsys", "refine", "status", res.Status,
		"iter", res.Iterations, "rms", res.RMS().Sec())
	return res, nil
}

func cost(r []float64) float64 {
	return .5 * floats.Dot(r, r)
}

func (m *lm) finish(s Status) {
	m.status = s
	m.phase = phaseDone
}

func (m *lm) reject() {
	m.lambda *= m.nu
	m.nu *= 2
}

// normal forms JᵀJ and Jᵀr.
func (m *lm) normal(j *mat64.Dense) {
	rows, _ := j.Dims()
	m.jtj = mat64.NewDense(6, 6, nil)
	m.jtj.Mul(j.T(), j)
	m.g = mat64.NewVector(6, nil)
	m.g.MulVec(j.T(), mat64.NewVector(rows, m.r))
}

// solve solves (JᵀJ + λI)Δx = -Jᵀr.  It returns false if the system is
// singular or too ill-conditioned to trust.
func (m *lm) solve() ([]float64, bool) {
	a := mat64.DenseCopyOf(m.jtj)
	for i := 0; i < 6; i++ {
		a.Set(i, i, a.At(i, i)+m.lambda)
	}
	b := mat64.NewVector(6, nil)
	b.ScaleVec(-1, m.g)
	var dx mat64.Vector
	if err := dx.SolveVec(a, b); err != nil {
		return nil, false
	}
	d := make([]float64, 6)
	for i := range d {
		d[i] = dx.At(i, 0)
		if math.IsNaN(d[i]) || math.IsInf(d[i], 0) {
			return nil, false
		}
	}
	return d, true
}
