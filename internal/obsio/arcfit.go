// Public domain.

package obsio

import (
	"sort"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/lmfit"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
)

// LinearRMS fits uniform great circle motion to the arc and returns the
// rms of the fit.  It measures the scatter of the astrometry itself,
// independent of any orbit, and is meaningful for short arcs where
// motion is close to linear.  Arcs of two observations return zero.
//
// The fit runs on a time ordered copy; a.Obs is not reordered.
func (a *Arc) LinearRMS() unit.Angle {
	if len(a.Obs) < 3 {
		return 0
	}
	obs := append([]astro.Observation(nil), a.Obs...)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Epoch < obs[j].Epoch })
	t := make([]float64, len(obs))
	s := make(coord.EquaS, len(obs))
	for i, o := range obs {
		t[i] = o.Epoch
		s[i] = coord.Equa{RA: o.RA, Dec: o.Dec}
	}
	return lmfit.New(t, s).Rms()
}
