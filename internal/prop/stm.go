// Public domain.

package prop

import (
	"math"

	"github.com/ChristopherRabotin/gokalman"
	"github.com/gonum/matrix/mat64"

	"github.com/soniakeys/diffcor/astro"
)

// PropagateSTM is PropagateMany with the state transition matrix.
// The returned matrices are ∂x(t)/∂x(t0), 6×6, one per target.
func (p *Propagator) PropagateSTM(s astro.State, targets []float64, mu float64) ([]astro.State, []*mat64.Dense, error) {
	if err := checkInput(s, targets, mu); err != nil {
		return nil, nil, err
	}
	y0 := make([]float64, 42)
	copy(y0, s.Vec())
	Φ0 := gokalman.DenseIdentity(6)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			y0[6+i*6+j] = Φ0.At(i, j)
		}
	}
	tb := &twoBody{mu: mu, rMin: math.Inf(1)}
	deriv := func(y, f []float64) {
		tb.deriv(y, f)
		variational(mu, y, f)
	}
	ys, err := p.integrate(deriv, y0, s.Epoch, targets, tb)
	if err != nil {
		return nil, nil, err
	}
	st := make([]astro.State, len(targets))
	Φ := make([]*mat64.Dense, len(targets))
	for i, y := range ys {
		st[i] = astro.StateFromVec(targets[i], y)
		Φ[i] = mat64.NewDense(6, 6, append([]float64{}, y[6:42]...))
	}
	return st, Φ, nil
}

// variational fills f[6:42] with dΦ/dt = AΦ, where
//
//	A = | 0  I |
//	    | G  0 |
//
// and G is the gravity gradient μ(3rrᵀ/r⁵ - I/r³).
func variational(mu float64, y, f []float64) {
	Φ := y[6:42]
	dΦ := f[6:42]
	var G [3][3]float64
	if mu != 0 {
		r2 := y[0]*y[0] + y[1]*y[1] + y[2]*y[2]
		r := math.Sqrt(r2)
		r3 := r2 * r
		r5 := r3 * r2
		for i := 0; i < 3; i++ {
			for k := 0; k < 3; k++ {
				G[i][k] = 3 * mu * y[i] * y[k] / r5
			}
			G[i][i] -= mu / r3
		}
	}
	for j := 0; j < 6; j++ {
		for i := 0; i < 3; i++ {
			dΦ[i*6+j] = Φ[(i+3)*6+j]
			var sum float64
			for k := 0; k < 3; k++ {
				sum += G[i][k] * Φ[k*6+j]
			}
			dΦ[(i+3)*6+j] = sum
		}
	}
}
