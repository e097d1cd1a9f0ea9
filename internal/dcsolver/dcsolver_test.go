// Public domain.

package dcsolver_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/prop"
)

var truth = astro.StateFromVec(2459969.5, []float64{
	-0.5585807334111443, 0.746685604159777, 0.3255044783346349,
	-0.01351305344133843, -0.009562138901216793, -0.004996700278555643})

// countEph counts Positions calls.
type countEph struct {
	ephem.Provider
	n int
}

func (c *countEph) Positions(b ephem.Body, jd []float64) ([]coord.Cart, error) {
	c.n++
	return c.Provider.Positions(b, jd)
}

// synth returns exact observations of s at the given epochs.
func synth(t *testing.T, s astro.State, epochs []float64) []astro.Observation {
	states, err := prop.Default.PropagateMany(s, epochs, astro.MuSun)
	if err != nil {
		t.Fatal(err)
	}
	earth, err := ephem.Approx{}.Positions(ephem.Earth, epochs)
	if err != nil {
		t.Fatal(err)
	}
	obs := make([]astro.Observation, len(epochs))
	for i, st := range states {
		ra, dec, err := dcsolver.Predict(st.R, earth[i])
		if err != nil {
			t.Fatal(err)
		}
		obs[i] = astro.Observation{Epoch: epochs[i], RA: unit.RA(ra), Dec: unit.Angle(dec)}
	}
	return obs
}

func arcEpochs() []float64 {
	var e []float64
	for d := 10.; d <= 70; d += 3 {
		e = append(e, truth.Epoch+d)
	}
	return e
}

func perturbed() astro.State {
	g := truth
	g.R.X += 1e-4
	g.R.Y -= 1e-4
	g.R.Z += 5e-5
	g.V.X += 1e-6
	g.V.Y += 1e-6
	g.V.Z -= 1e-6
	return g
}

func ExampleWrapAngle() {
	fmt.Printf("%.6f\n", dcsolver.WrapAngle(.01-(2*math.Pi-.01)))
	fmt.Printf("%.6f\n", dcsolver.WrapAngle(-.01+(2*math.Pi-.01)))
	// Output:
	// 0.020000
	// -0.020000
}

func TestWrapAngle(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4*math.Pi + .5, .5},
		{-4*math.Pi - .5, -.5},
	} {
		if got := dcsolver.WrapAngle(tc.in); !floats.EqualWithinAbs(got, tc.want, 1e-12) {
			t.Errorf("WrapAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPredictOctants(t *testing.T) {
	var o coord.Cart
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-2, 2} {
			for _, z := range []float64{-3, 3} {
				ra, dec, err := dcsolver.Predict(coord.Cart{X: x + 1, Y: y + 1, Z: z + 1},
					coord.Cart{X: 1, Y: 1, Z: 1})
				if err != nil {
					t.Fatal(err)
				}
				wantRA := math.Atan2(y, x)
				if wantRA < 0 {
					wantRA += 2 * math.Pi
				}
				wantDec := math.Asin(z / math.Sqrt(x*x+y*y+z*z))
				if ra < 0 || ra >= 2*math.Pi ||
					!floats.EqualWithinAbs(ra, wantRA, 1e-15) ||
					!floats.EqualWithinAbs(dec, wantDec, 1e-15) {
					t.Errorf("(%v %v %v): ra %v dec %v", x, y, z, ra, dec)
				}
			}
		}
	}
	// on the axes
	if ra, dec, _ := dcsolver.Predict(coord.Cart{X: 1}, o); ra != 0 || dec != 0 {
		t.Error("+x:", ra, dec)
	}
	if _, dec, _ := dcsolver.Predict(coord.Cart{Z: -2}, o); dec != -math.Pi/2 {
		t.Error("-z:", dec)
	}
}

func TestPredictDegenerate(t *testing.T) {
	c := coord.Cart{X: .3, Y: .4, Z: .5}
	if _, _, err := dcsolver.Predict(c, c); !errors.Is(err, dcsolver.ErrDegenerateGeometry) {
		t.Fatal(err)
	}
}

func TestResidualsExact(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	r, err := dcsolver.Residuals(truth, obs, ephem.Approx{}, astro.MuSun)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2*len(obs) {
		t.Fatal(len(r))
	}
	for i, x := range r {
		if math.Abs(x) > 1e-12 {
			t.Errorf("residual %d = %v", i, x)
		}
	}
}

func TestResidualsOrder(t *testing.T) {
	obs := synth(t, truth, arcEpochs()[:3])
	obs[1].Dec += unit.AngleFromSec(2)
	// put the observed ra just on the other side of 0
	obs[2].RA = unit.RA(obs[2].RA.Rad() + 2*math.Pi - 1e-7)
	r, err := dcsolver.Residuals(truth, obs, ephem.Approx{}, astro.MuSun)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualWithinAbs(r[3], -unit.AngleFromSec(2).Rad(), 1e-12) {
		t.Error("dec residual of second observation:", r[3])
	}
	if !floats.EqualWithinAbs(r[4], 1e-7, 1e-12) {
		t.Error("wrapped ra residual of third observation:", r[4])
	}
}

// atBody is an ephemeris placing Earth exactly on the object.
type atBody struct{ s astro.State }

func (a atBody) Positions(b ephem.Body, jd []float64) ([]coord.Cart, error) {
	st, err := prop.Default.PropagateMany(a.s, jd, astro.MuSun)
	if err != nil {
		return nil, err
	}
	c := make([]coord.Cart, len(st))
	for i := range st {
		c[i] = st[i].R
	}
	return c, nil
}

func TestResidualsDegenerate(t *testing.T) {
	obs := synth(t, truth, arcEpochs()[:2])
	_, err := dcsolver.Residuals(truth, obs, atBody{truth}, astro.MuSun)
	if !errors.Is(err, dcsolver.ErrDegenerateGeometry) {
		t.Fatal(err)
	}
}

func TestRefineDegenerate(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	res, err := dcsolver.Refine(context.Background(), truth, obs, atBody{truth}, nil)
	if !errors.Is(err, dcsolver.ErrDegenerateGeometry) {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatal("result returned with error")
	}
}

func TestRefineSingular(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	// radial plunge into the sun
	plunge := astro.StateFromVec(truth.Epoch, []float64{.01, 0, 0, -.05, 0, 0})
	res, err := dcsolver.Refine(context.Background(), plunge, obs, ephem.Approx{}, nil)
	if !errors.Is(err, prop.ErrSingularity) {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatal("result returned with error")
	}
	var se *prop.SingularityError
	if !errors.As(err, &se) || se.From != truth.Epoch {
		t.Fatalf("%#v", se)
	}
}

func TestRefine(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	for _, jm := range []dcsolver.JacobianMethod{dcsolver.JacobianFD, dcsolver.JacobianSTM} {
		eph := &countEph{Provider: ephem.Approx{}}
		opt := dcsolver.DefaultOptions()
		opt.Jacobian = jm
		res, err := dcsolver.Refine(context.Background(), perturbed(), obs, eph, opt)
		if err != nil {
			t.Fatal(jm, err)
		}
		if !res.Converged {
			t.Fatal(jm, res.Status, res.Iterations)
		}
		if eph.n != 1 {
			t.Error(jm, "ephemeris queried", eph.n, "times")
		}
		if res.State.Epoch != truth.Epoch {
			t.Error(jm, "epoch changed:", res.State.Epoch)
		}
		got, want := res.State.Vec(), truth.Vec()
		if !floats.EqualApprox(got[:3], want[:3], 1e-7) ||
			!floats.EqualApprox(got[3:], want[3:], 1e-9) {
			t.Errorf("%v: state %v\nwant %v", jm, got, want)
		}
		if r := res.RMS().Rad(); r > 1e-9 {
			t.Errorf("%v: rms %v rad", jm, r)
		}
		if dcsolver.RMS(res.Initial) <= res.RMS() {
			t.Error(jm, "fit did not improve residuals")
		}
		t.Log(jm, res.Status, "iterations", res.Iterations, "evaluations", res.Evaluations)
	}
}

func TestRefineExactGuess(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	res, err := dcsolver.Refine(context.Background(), truth, obs, ephem.Approx{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatal(res.Status)
	}
	if !floats.EqualApprox(res.State.Vec(), truth.Vec(), 1e-9) {
		t.Fatal(res.State.Vec())
	}
}

func TestRefineInconsistent(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	// scatter declinations by degrees, alternating sign
	for i := range obs {
		d := unit.AngleFromDeg(5)
		if i%2 == 1 {
			d = -d
		}
		obs[i].Dec += d
	}
	opt := dcsolver.DefaultOptions()
	opt.MaxIter = 50
	res, err := dcsolver.Refine(context.Background(), perturbed(), obs, ephem.Approx{}, opt)
	if err != nil {
		t.Log("refine failed:", err)
		return
	}
	if res.Converged {
		t.Fatalf("converged with rms %.1f arc sec", res.RMS().Sec())
	}
	t.Log(res.Status)
}

func TestRefineCanceled(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dcsolver.Refine(ctx, perturbed(), obs, ephem.Approx{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatal(err)
	}
}

func TestRefineNoObs(t *testing.T) {
	if _, err := dcsolver.Refine(context.Background(), truth, nil, ephem.Approx{}, nil); err == nil {
		t.Fatal("no error for empty observations")
	}
}

func TestJacobianMethods(t *testing.T) {
	obs := synth(t, truth, arcEpochs())
	p, err := dcsolver.NewProblem(obs, ephem.Approx{}, astro.MuSun, nil)
	if err != nil {
		t.Fatal(err)
	}
	g := perturbed()
	r, err := p.Residuals(g)
	if err != nil {
		t.Fatal(err)
	}
	fd, err := p.Jacobian(g, r, dcsolver.JacobianFD)
	if err != nil {
		t.Fatal(err)
	}
	stm, err := p.Jacobian(g, r, dcsolver.JacobianSTM)
	if err != nil {
		t.Fatal(err)
	}
	rows, cols := fd.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !floats.EqualWithinAbsOrRel(fd.At(i, j), stm.At(i, j), 1e-3, 1e-4) {
				t.Errorf("J[%d][%d]: fd %v stm %v", i, j, fd.At(i, j), stm.At(i, j))
			}
		}
	}
}

func TestStats(t *testing.T) {
	s := dcsolver.NewStats([]float64{3, -4, -3, 4})
	if !floats.EqualWithinAbs(s.RMS.Rad(), math.Sqrt(12.5), 1e-15) {
		t.Error("rms", s.RMS)
	}
	if s.RA != 3 || s.Dec != 4 || s.Max != 4 {
		t.Error(s)
	}
}

func TestParseJacobian(t *testing.T) {
	for _, m := range []dcsolver.JacobianMethod{dcsolver.JacobianFD, dcsolver.JacobianSTM} {
		if p, err := dcsolver.ParseJacobian(m.String()); err != nil || p != m {
			t.Error(m, p, err)
		}
	}
}
