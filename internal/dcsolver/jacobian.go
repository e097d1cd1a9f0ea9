// Public domain.

package dcsolver

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/soniakeys/diffcor/astro"
)

// JacobianMethod selects how partial derivatives of the residuals with
// respect to the state are computed.
type JacobianMethod int

const (
	// JacobianFD is forward differences with step √ε·|x_j|.
	JacobianFD JacobianMethod = iota
	// JacobianSTM integrates the state transition matrix.
	JacobianSTM
)

func (m JacobianMethod) String() string {
	switch m {
	case JacobianFD:
		return "fd"
	case JacobianSTM:
		return "stm"
	}
	return fmt.Sprintf("JacobianMethod(%d)", int(m))
}

// ParseJacobian parses the names returned by JacobianMethod.String.
func ParseJacobian(s string) (JacobianMethod, error) {
	switch s {
	case "fd":
		return JacobianFD, nil
	case "stm":
		return JacobianSTM, nil
	}
	return 0, fmt.Errorf("unknown jacobian method %q", s)
}

var sqrtEps = math.Sqrt(0x1p-52)

// Jacobian returns the 2N×6 matrix ∂r/∂x at state s.  r must be the
// residuals at s; it is used by the finite difference method.
func (p *Problem) Jacobian(s astro.State, r []float64, m JacobianMethod) (*mat64.Dense, error) {
	switch m {
	case JacobianFD:
		return p.jacobianFD(s, r)
	case JacobianSTM:
		return p.jacobianSTM(s)
	}
	return nil, fmt.Errorf("unknown jacobian method %v", m)
}

func (p *Problem) jacobianFD(s astro.State, r []float64) (*mat64.Dense, error) {
	x := s.Vec()
	m := len(r)
	j := mat64.NewDense(m, 6, nil)
	rp := make([]float64, m)
	for c := 0; c < 6; c++ {
		h := sqrtEps * math.Abs(x[c])
		if h == 0 {
			h = sqrtEps
		}
		xc := x[c]
		x[c] += h
		// the step actually represented
		h = x[c] - xc
		states, err := p.Prop.PropagateMany(astro.StateFromVec(s.Epoch, x), p.epochs, p.Mu)
		x[c] = xc
		if err != nil {
			return nil, err
		}
		if _, err = p.residuals(s.Epoch, states, rp); err != nil {
			return nil, err
		}
		for i := 0; i < m; i++ {
			d := rp[i] - r[i]
			if i%2 == 0 {
				d = WrapAngle(d)
			}
			j.Set(i, c, d/h)
		}
	}
	return j, nil
}

func (p *Problem) jacobianSTM(s astro.State) (*mat64.Dense, error) {
	states, Φ, err := p.Prop.PropagateSTM(s, p.epochs, p.Mu)
	if err != nil {
		return nil, err
	}
	j := mat64.NewDense(2*len(p.Obs), 6, nil)
	for i, o := range p.Obs {
		e := p.Earth[i]
		dx := states[i].R.X - e.X
		dy := states[i].R.Y - e.Y
		dz := states[i].R.Z - e.Z
		rho2 := dx*dx + dy*dy
		d2 := rho2 + dz*dz
		rho := math.Sqrt(rho2)
		if rho == 0 {
			// at a pole, ra is undefined
			return nil, &GeometryError{Epoch: o.Epoch}
		}
		dRA := [3]float64{-dy / rho2, dx / rho2, 0}
		dDec := [3]float64{-dz * dx / (d2 * rho), -dz * dy / (d2 * rho), rho / d2}
		for c := 0; c < 6; c++ {
			var a, b float64
			for k := 0; k < 3; k++ {
				f := Φ[i].At(k, c)
				a += dRA[k] * f
				b += dDec[k] * f
			}
			j.Set(2*i, c, a)
			j.Set(2*i+1, c, b)
		}
	}
	return j, nil
}
