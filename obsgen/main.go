package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/obsio"
	"github.com/soniakeys/diffcor/internal/prop"
)

const parentImport = "github.com/soniakeys/diffcor"
const versionString = "obsgen version 1.0"
const copyrightString = "Public domain."

func main() {
	defer exit.Handler()
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
   obsgen [options] <statefile>
   obsgen -v

Options:
   -desig <designation>   state to use, default the first
   -e vsop87|approx       Earth ephemeris
   -d <directory>         VSOP87 files, default from the VSOP87 variable
   -t0 <days>             first observation, days from the state epoch
   -n <count>             number of observations
   -step <days>
   -noise <arc seconds>   standard deviation, 0 for none
   -seed <n>              noise seed, 0 for time based

For full documentation:
   go doc ` + parentImport + `/obsgen
`)
	}
	desig := flag.String("desig", "", "")
	eName := flag.String("e", "vsop87", "")
	dir := flag.String("d", "", "")
	t0 := flag.Float64("t0", 0, "")
	n := flag.Int("n", 20, "")
	step := flag.Float64("step", 1, "")
	noise := flag.Float64("noise", 0, "")
	seed := flag.Int64("seed", 0, "")
	vers := flag.Bool("v", false, "")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *n < 1 || *noise < 0 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		exit.Log(err)
	}
	gs, err := obsio.ReadStates(f)
	f.Close()
	if err != nil {
		exit.Log(err)
	}
	if len(gs) == 0 {
		exit.Log("no states in " + flag.Arg(0))
	}
	s := gs[0].State
	if *desig > "" {
		var ok bool
		if s, ok = obsio.Find(gs, *desig); !ok {
			exit.Log("no state for " + *desig)
		}
	}
	eph, err := ephem.New(*eName, *dir)
	if err != nil {
		exit.Log(err)
	}

	jd := make([]float64, *n)
	for i := range jd {
		jd[i] = s.Epoch + *t0 + float64(i)**step
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	obs, err := synth(s, jd, eph, unit.AngleFromSec(*noise), rand.New(rand.NewSource(*seed)))
	if err != nil {
		exit.Log(err)
	}
	fmt.Printf("# %s, noise %g\", seed %d\n", flag.Arg(0), *noise, *seed)
	if err := obsio.WriteSimple(os.Stdout, obs, nil); err != nil {
		exit.Log(err)
	}
}

// synth computes observations of s at epochs jd from Earth, with Gaussian
// noise of standard deviation sigma on the sky.
func synth(s astro.State, jd []float64, eph ephem.Provider, sigma unit.Angle, rnd *rand.Rand) ([]astro.Observation, error) {
	states, err := prop.Default.PropagateMany(s, jd, astro.MuSun)
	if err != nil {
		return nil, err
	}
	earth, err := eph.Positions(ephem.Earth, jd)
	if err != nil {
		return nil, err
	}
	var nd *distmv.Normal
	if sigma > 0 {
		v := sigma.Rad() * sigma.Rad()
		var ok bool
		nd, ok = distmv.NewNormal([]float64{0, 0}, mat64.NewSymDense(2, []float64{v, 0, 0, v}), rnd)
		if !ok {
			return nil, errors.New("noise covariance not positive definite")
		}
	}
	obs := make([]astro.Observation, len(jd))
	for i, st := range states {
		ra, dec, err := dcsolver.Predict(st.R, earth[i])
		if err != nil {
			return nil, err
		}
		if nd != nil {
			d := nd.Rand(nil)
			// noise is on the sky; RA offsets grow toward the poles
			ra += d[0] / math.Cos(dec)
			dec = math.Max(-math.Pi/2, math.Min(math.Pi/2, dec+d[1]))
			ra = math.Mod(ra, 2*math.Pi)
			if ra < 0 {
				ra += 2 * math.Pi
			}
		}
		obs[i] = astro.Observation{Epoch: jd[i], RA: unit.RA(ra), Dec: unit.Angle(dec)}
	}
	return obs, nil
}
