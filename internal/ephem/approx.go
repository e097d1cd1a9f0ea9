// Public domain.

package ephem

import (
	"fmt"
	"math"

	sa "github.com/soniakeys/astro"
	"github.com/soniakeys/coord"

	"github.com/soniakeys/diffcor/astro"
)

// Approx is the low precision USNO solar ephemeris, good to about an
// arc minute.  It needs no data files.
type Approx struct{}

// Positions implements Provider.
func (Approx) Positions(b Body, jd []float64) ([]coord.Cart, error) {
	if b != Earth {
		return nil, fmt.Errorf("%w: %v", ErrBody, b)
	}
	c := make([]coord.Cart, len(jd))
	for i, t := range jd {
		// Se2000 gives the Earth to Sun vector, referred to the mean
		// equator and equinox of date.
		se, soe, coe := sa.Se2000(t - 2400000.5)
		x := -se.X
		y := -se.Y*coe - se.Z*soe
		z := se.Y*soe - se.Z*coe
		// general precession in longitude back to J2000
		pa := 5029.0966 / 3600 * math.Pi / 180 * (t - 2451545) / 36525
		sp, cp := math.Sincos(-pa)
		c[i] = astro.EquatorialFromEcliptic(coord.Cart{
			X: x*cp - y*sp,
			Y: x*sp + y*cp,
			Z: z,
		})
	}
	return c, nil
}
