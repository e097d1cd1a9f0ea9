// Public domain.

package obsio_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gonum/floats"
	"github.com/soniakeys/observation"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/obsio"
)

// no time scale shift, so expected epochs are plain calendar dates
var utc = &obsio.Options{}

func hms(h, m int, s float64) float64 {
	return (float64(h*60+m)*60 + s) * math.Pi / (12 * 3600)
}

func dms(d, m int, s float64) float64 {
	return (float64(d*60+m)*60 + s) * math.Pi / (180 * 3600)
}

const horizonsObserver = `*******************************************************************************
 Date__(UT)__HR:MN     R.A._____(ICRF)_____DEC  APmag   S-brt
*******************************************************************************
$$SOE
 2023-Jan-25 00:00 *m  09 48 47.36 +43 41 03.0   n.a.   n.a.
 2023-Jan-25 01:00     09 49 12.10 -00 39 58.2   n.a.   n.a.
 2023-Jan-25 02:00     XX 49 12.10 +43 39 58.2   n.a.   n.a.
 2459969.6250000000    09 49 40.00 +43 38 00.0   n.a.   n.a.
$$EOE
*******************************************************************************
`

func TestReadHorizons(t *testing.T) {
	a, rep, err := obsio.ReadHorizons(strings.NewReader(horizonsObserver), "2023 BU", utc)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Lines != 4 || len(rep.Skipped) != 1 || rep.Skipped[0].Line != 7 {
		t.Fatalf("report %+v", rep)
	}
	if len(a.Obs) != 3 || a.Desig != "2023 BU" {
		t.Fatalf("%+v", a)
	}
	o := a.Obs[0]
	if !floats.EqualWithinAbs(o.Epoch, 2459969.5, 1e-9) ||
		!floats.EqualWithinAbs(o.RA.Rad(), hms(9, 48, 47.36), 1e-12) ||
		!floats.EqualWithinAbs(o.Dec.Rad(), dms(43, 41, 3), 1e-12) {
		t.Errorf("first %+v", o)
	}
	// negative zero degrees
	if !floats.EqualWithinAbs(a.Obs[1].Dec.Rad(), -dms(0, 39, 58.2), 1e-12) {
		t.Errorf("second dec %v", a.Obs[1].Dec)
	}
	if a.Obs[2].Epoch != 2459969.625 {
		t.Errorf("julian date row %v", a.Obs[2].Epoch)
	}
}

func TestReadHorizonsStrict(t *testing.T) {
	_, _, err := obsio.ReadHorizons(strings.NewReader(horizonsObserver), "",
		&obsio.Options{Strict: true})
	var le *obsio.LineError
	if !errors.As(err, &le) || !errors.Is(err, obsio.ErrMalformed) || le.Line != 7 {
		t.Fatal(err)
	}
}

const simple = `# 2023 BU
2023 01 25.500000 09 48 47.360 +43 41 03.00
2023 01 25.541667 09 49 12.100 +43 39 58.20
2023 13 25.541667 09 49 12.100 +43 39 58.20
2023 01 25.583333 09 49 40.000 +95 38 00.00
`

func TestReadSimple(t *testing.T) {
	a, rep, err := obsio.ReadSimple(strings.NewReader(simple), "", utc)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Lines != 4 || len(rep.Skipped) != 2 || len(a.Obs) != 2 {
		t.Fatalf("%d lines, %d skipped, %d obs", rep.Lines, len(rep.Skipped), len(a.Obs))
	}
	if !floats.EqualWithinAbs(a.Obs[0].Epoch, 2459970, 1e-9) {
		t.Error("epoch", a.Obs[0].Epoch)
	}
	if err := a.Check(); err != nil {
		t.Error(err)
	}
}

func TestTimeScale(t *testing.T) {
	a, _, err := obsio.ReadSimple(strings.NewReader(simple), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := 2459970 + obsio.DefaultTDBMinusUTC/86400
	if !floats.EqualWithinAbs(a.Obs[0].Epoch, want, 1e-9) {
		t.Fatal(a.Obs[0].Epoch, want)
	}
}

func TestSimpleRoundTrip(t *testing.T) {
	obs := []astro.Observation{
		{Epoch: 2459970.25, RA: unit.RA(hms(23, 59, 59.5)), Dec: unit.Angle(-dms(0, 0, 1.5))},
		{Epoch: 2459971.75, RA: unit.RA(1.2345678), Dec: unit.Angle(.7654321)},
	}
	var b bytes.Buffer
	if err := obsio.WriteSimple(&b, obs, nil); err != nil {
		t.Fatal(err)
	}
	a, rep, err := obsio.ReadSimple(&b, "", nil)
	if err != nil || len(rep.Skipped) > 0 {
		t.Fatal(err, rep.Skipped)
	}
	for i, o := range a.Obs {
		if !floats.EqualWithinAbs(o.Epoch, obs[i].Epoch, 1e-6) ||
			!floats.EqualWithinAbs(o.RA.Rad(), math.Mod(obs[i].RA.Rad(), 2*math.Pi), 1e-8) ||
			!floats.EqualWithinAbs(o.Dec.Rad(), obs[i].Dec.Rad(), 1e-8) {
			t.Errorf("%d: %+v, want %+v", i, o, obs[i])
		}
	}
}

func TestValidate(t *testing.T) {
	for _, o := range []astro.Observation{
		{Epoch: math.NaN()},
		{Epoch: 2451545, RA: -1e-9},
		{Epoch: 2451545, RA: 2 * math.Pi},
		{Epoch: 2451545, Dec: 1.6},
	} {
		if err := obsio.Validate(o); !errors.Is(err, obsio.ErrMalformed) {
			t.Errorf("%+v: %v", o, err)
		}
	}
	if err := obsio.Validate(astro.Observation{Epoch: 2451545, Dec: -math.Pi / 2}); err != nil {
		t.Error(err)
	}
}

func TestCheck(t *testing.T) {
	o := astro.Observation{Epoch: 2451545, RA: 1, Dec: .5}
	p := o
	p.Epoch++
	for _, a := range []obsio.Arc{
		{Obs: []astro.Observation{o}},
		{Obs: []astro.Observation{p, o}}, // no motion
		{Obs: []astro.Observation{o, p, o}},
	} {
		if a.Check() == nil {
			t.Errorf("%+v passed", a)
		}
	}
	q := p
	q.Epoch++
	q.Dec += .01
	p.RA += .01
	for _, a := range []obsio.Arc{
		{Obs: []astro.Observation{p, o}}, // out of time order
		{Obs: []astro.Observation{o, q, p}},
		{Obs: []astro.Observation{o, q, o}}, // returns to start
	} {
		if err := a.Check(); err != nil {
			t.Error(err)
		}
	}
	// input order is kept
	in := "2023 02 01.0 10 00 00.0 +10 00 00\n" +
		"2023 01 01.0 09 00 00.0 +09 00 00\n"
	a, _, err := obsio.ReadSimple(strings.NewReader(in), "x", obsio.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Check(); err != nil {
		t.Fatal(err)
	}
	if !(a.Obs[0].Epoch > a.Obs[1].Epoch) {
		t.Error("observations reordered")
	}
}

func TestReadStates(t *testing.T) {
	in := `# initial guesses
2023BU 2459969.5 -0.5585807334111443 0.746685604159777 0.3255044783346349 -0.01351305344133843 -0.009562138901216793 -0.004996700278555643
2459969.5 1 0 0 0 0.0172 0
`
	gs, err := obsio.ReadStates(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(gs) != 2 || gs[0].Desig != "2023BU" || gs[1].Desig != "" {
		t.Fatalf("%+v", gs)
	}
	s, ok := obsio.Find(gs, "2023BU")
	if !ok || s.V.Z != -0.004996700278555643 || s.Epoch != 2459969.5 {
		t.Fatal(s, ok)
	}
	if _, ok := obsio.Find(gs, "K23B00U"); ok {
		t.Fatal("found missing designation")
	}
	if _, ok := obsio.Find(gs[1:], "K23B00U"); !ok {
		t.Fatal("single undesignated guess should match")
	}

	var b bytes.Buffer
	if err := obsio.WriteState(&b, "x", gs[0].State); err != nil {
		t.Fatal(err)
	}
	rt, err := obsio.ReadStates(&b)
	if err != nil || !floats.Equal(rt[0].State.Vec(), gs[0].State.Vec()) {
		t.Fatal(rt, err)
	}

	if _, err := obsio.ReadStates(strings.NewReader("1 2 3\n")); !errors.Is(err, obsio.ErrMalformed) {
		t.Fatal(err)
	}
}

func TestDetect(t *testing.T) {
	mpcLine := strings.Repeat("x", 80)
	for _, tc := range []struct {
		in   string
		want obsio.Format
	}{
		{horizonsObserver, obsio.Horizons},
		{simple, obsio.Simple},
		{"\n" + mpcLine + "\n", obsio.MPC},
		{"", obsio.Simple},
	} {
		if got := obsio.Detect([]byte(tc.in)); got != tc.want {
			t.Errorf("got %v want %v", got, tc.want)
		}
	}
	for _, f := range []obsio.Format{obsio.Auto, obsio.MPC, obsio.Horizons, obsio.Simple} {
		if p, err := obsio.ParseFormat(f.String()); err != nil || p != f {
			t.Error(f, p, err)
		}
	}
}

func TestLinearRMS(t *testing.T) {
	var a obsio.Arc
	for i := 0; i < 5; i++ {
		a.Obs = append(a.Obs, astro.Observation{
			Epoch: 2459970 + float64(i)*.01,
			RA:    unit.RA(1 + float64(i)*1e-4),
			Dec:   unit.Angle(.3),
		})
	}
	r := a.LinearRMS()
	if r.Sec() > 1 {
		t.Fatal("rms of steady motion", r.Sec())
	}
	n := len(a.Obs)
	for i := 0; i < n/2; i++ {
		a.Obs[i], a.Obs[n-1-i] = a.Obs[n-1-i], a.Obs[i]
	}
	if rr := a.LinearRMS(); rr != r {
		t.Error("reversed arc", rr.Sec(), r.Sec())
	}
	if a.Obs[0].Epoch < a.Obs[1].Epoch {
		t.Error("arc reordered")
	}
}

func mpcLine(desig, date, ra, dec string) string {
	// columns: desig 1-12, notes 13-15, date 16-32, ra 33-44, dec 45-56,
	// mag 66-71, code 78-80; ra and dec each carry a trailing blank
	return desig + "  C" + date + " " + ra + " " + dec + " " +
		strings.Repeat(" ", 9) + "19.5 V" + strings.Repeat(" ", 6) + "G96"
}

func TestReadMPC(t *testing.T) {
	lines := []string{
		mpcLine("     K23B00U", "2023 01 25.50000", "09 48 47.36", "+43 41 03.0"),
		mpcLine("     K23B00U", "2023 01 25.54167", "09 49 12.10", "+43 39 58.2"),
		mpcLine("     K23B00U", "2023 01 25.58333", "09 49 40.00", "+43 38 00.0"),
	}
	for _, l := range lines {
		if len(l) != 80 {
			t.Fatal("test line length", len(l))
		}
	}
	ocd := observation.ParallaxMap{"G96": &observation.ParallaxConst{}}
	arcs, rep, err := obsio.ReadMPC(strings.NewReader(strings.Join(lines, "\n")+"\n"), ocd, utc)
	if err != nil {
		t.Fatal(err)
	}
	if len(arcs) != 1 || len(arcs[0].Obs) != 3 || rep.Lines != 3 {
		t.Fatalf("%d arcs, report %+v", len(arcs), rep)
	}
	o := arcs[0].Obs[0]
	if !floats.EqualWithinAbs(o.Epoch, 2459970, 1e-6) ||
		!floats.EqualWithinAbs(o.RA.Rad(), hms(9, 48, 47.36), 1e-9) {
		t.Errorf("%+v", o)
	}
}
