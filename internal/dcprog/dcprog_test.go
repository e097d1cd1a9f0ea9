// Public domain.

package dcprog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/obsio"
	"github.com/soniakeys/diffcor/internal/prop"
)

func TestParseConfig(t *testing.T) {
	s := defaultSettings()
	err := parseConfig(strings.NewReader(`
# test config
noheadings
noelements
mu = 2.9591220828559115e-4
xtol 1e-10
ftol	1e-9
maxiter 20
rmslimit 0
jacobian stm
integrator rk4
rk4step .005
tdbutc 0
strict
ephemfile earth.tab
verbose
`), s)
	if err != nil {
		t.Fatal(err)
	}
	switch {
	case s.headings, s.elements, !s.verbose, !s.read.Strict:
		t.Error("flag keywords", s)
	case s.solve.Mu != 2.9591220828559115e-4, s.solve.XTol != 1e-10,
		s.solve.FTol != 1e-9, s.solve.MaxIter != 20, s.solve.RMSLimit != 0:
		t.Error("solver keywords", s.solve)
	case s.solve.Jacobian != dcsolver.JacobianSTM:
		t.Error("jacobian", s.solve.Jacobian)
	case s.prop.Method != prop.RK4, s.prop.Step != .005:
		t.Error("propagator", s.prop)
	case s.solve.Prop != &s.prop:
		t.Error("solver not using configured propagator")
	case s.read.TDBMinusUTC != 0:
		t.Error("tdbutc", s.read.TDBMinusUTC)
	case s.ephem != "table", s.ephemFile != "earth.tab":
		t.Error("ephemeris", s.ephem, s.ephemFile)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, l := range []string{
		"bogus",
		"mu -1",
		"mu",
		"xtol abc",
		"maxiter 0",
		"jacobian analytic",
		"integrator euler",
		"ephem de440",
		"headings please",
		"rk4step 0",
	} {
		if err := parseConfig(strings.NewReader(l), defaultSettings()); err == nil {
			t.Errorf("%q accepted", l)
		}
	}
}

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()
	if !s.headings || !s.elements || s.verbose || s.read.Strict ||
		s.ephem != "vsop87" || s.read.TDBMinusUTC != obsio.DefaultTDBMinusUTC {
		t.Fatalf("%+v", s)
	}
}

func TestSingleDesig(t *testing.T) {
	named := []obsio.Guess{{Desig: "2023BU"}}
	anon := []obsio.Guess{{Desig: "-"}}
	for _, tc := range []struct {
		fn   string
		gs   []obsio.Guess
		want string
	}{
		{"obs/bu.txt", named, "2023BU"},
		{"obs/bu.txt", anon, "bu"},
		{"-", anon, "stdin"},
		{"bu", append(named, anon...), "bu"},
	} {
		if got := singleDesig(tc.fn, tc.gs); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.fn, got, tc.want)
		}
	}
}

// synthetic, noise free arc of the 2023 BU state
func synthArc(t *testing.T) (*obsio.Arc, astro.State) {
	s := astro.State{Epoch: 2459969.5}
	s.R.X, s.R.Y, s.R.Z = -0.5585807334111443, 0.746685604159777, 0.3255044783346349
	s.V.X, s.V.Y, s.V.Z = -0.01351305344133843, -0.009562138901216793, -0.004996700278555643
	a := &obsio.Arc{Desig: "2023BU"}
	for d := 10.; d <= 40; d += 3 {
		jd := s.Epoch + d
		b, err := prop.Propagate(s, jd, astro.MuSun)
		if err != nil {
			t.Fatal(err)
		}
		e, err := ephem.Position(ephem.Approx{}, ephem.Earth, jd)
		if err != nil {
			t.Fatal(err)
		}
		ra, dec, err := dcsolver.Predict(b.R, e)
		if err != nil {
			t.Fatal(err)
		}
		a.Obs = append(a.Obs, astro.Observation{Epoch: jd, RA: unit.RA(ra), Dec: unit.Angle(dec)})
	}
	return a, s
}

func TestRefineArc(t *testing.T) {
	a, s := synthArc(t)
	guess := s
	guess.R.X += 1e-5
	cfg := defaultSettings()
	gs := []obsio.Guess{{Desig: "2023BU", State: guess}}
	ar := refineArc(context.Background(), a, gs, ephem.Approx{}, cfg, nil)
	if ar.err != nil {
		t.Fatal(ar.err)
	}
	if !ar.res.Converged || ar.res.RMS().Sec() > 1e-3 {
		t.Fatal(ar.res.Status, ar.res.RMS().Sec())
	}
	out := ar.format(cfg.solve.Mu, true)
	if !strings.HasPrefix(out, "2023BU") || strings.Count(out, "\n") != 4 ||
		!strings.Contains(out, "converged") || !strings.Contains(out, " a 0.98") {
		t.Error(out)
	}
	var b bytes.Buffer
	if err := writeResiduals(&b, ar); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(b.String(), "\n"); n != len(a.Obs)+2 {
		t.Errorf("%d residual lines:\n%s", n, b.String())
	}
}

func TestRefineArcUnordered(t *testing.T) {
	a, s := synthArc(t)
	n := len(a.Obs)
	obs := make([]astro.Observation, 0, n)
	for i := n - 1; i >= 0; i -= 2 {
		obs = append(obs, a.Obs[i])
	}
	for i := n - 2; i >= 0; i -= 2 {
		obs = append(obs, a.Obs[i])
	}
	a.Obs = obs
	guess := s
	guess.R.X += 1e-5
	cfg := defaultSettings()
	ar := refineArc(context.Background(), a, []obsio.Guess{{Desig: "2023BU", State: guess}},
		ephem.Approx{}, cfg, nil)
	if ar.err != nil {
		t.Fatal(ar.err)
	}
	if !ar.res.Converged || ar.res.RMS().Sec() > 1e-3 {
		t.Fatal(ar.res.Status, ar.res.RMS().Sec())
	}
	if ar.obs[0].Epoch != obs[0].Epoch {
		t.Error("observation order not kept")
	}
}

func TestRefineArcErrors(t *testing.T) {
	a, s := synthArc(t)
	cfg := defaultSettings()
	ar := refineArc(context.Background(), a, []obsio.Guess{{Desig: "other", State: s}},
		ephem.Approx{}, cfg, nil)
	if ar.err == nil || !strings.Contains(ar.format(cfg.solve.Mu, true), "no initial state") {
		t.Error("missing guess", ar.err)
	}
	short := &obsio.Arc{Desig: "2023BU", Obs: a.Obs[:1]}
	if ar := refineArc(context.Background(), short, nil, ephem.Approx{}, cfg, nil); ar.err == nil {
		t.Error("one observation accepted")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ar = refineArc(ctx, a, []obsio.Guess{{State: s}}, ephem.Approx{}, cfg, nil)
	if ar.err != context.Canceled {
		t.Error("canceled", ar.err)
	}
}

func TestRMSField(t *testing.T) {
	if f := rmsField(unit.Angle(1e9)); f != " ********" {
		t.Error(f)
	}
	if f := rmsField(unit.Angle(0)); f != "     0.00" {
		t.Error(f)
	}
}
