// Public domain.

package ephem

import (
	"fmt"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/planetposition"

	"github.com/soniakeys/diffcor/astro"
)

// VSOP87 computes Earth positions from the VSOP87B series.
type VSOP87 struct {
	earth *planetposition.V87Planet
}

// NewVSOP87 loads the Earth series from dir, or from the directory named
// by the VSOP87 environment variable if dir is empty.
func NewVSOP87(dir string) (*VSOP87, error) {
	var (
		p   *planetposition.V87Planet
		err error
	)
	if dir == "" {
		p, err = planetposition.LoadPlanet(planetposition.Earth)
	} else {
		p, err = planetposition.LoadPlanetPath(planetposition.Earth, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading VSOP87 Earth: %w", err)
	}
	return &VSOP87{earth: p}, nil
}

// Positions implements Provider.
func (v *VSOP87) Positions(b Body, jd []float64) ([]coord.Cart, error) {
	if b != Earth {
		return nil, fmt.Errorf("%w: %v", ErrBody, b)
	}
	c := make([]coord.Cart, len(jd))
	for i, t := range jd {
		l, bb, r := v.earth.Position2000(t)
		sl, cl := math.Sincos(l.Rad())
		sb, cb := math.Sincos(bb.Rad())
		c[i] = astro.EquatorialFromEcliptic(coord.Cart{
			X: r * cb * cl,
			Y: r * cb * sl,
			Z: r * sb,
		})
	}
	return c, nil
}
