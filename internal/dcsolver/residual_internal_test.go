// Public domain.

package dcsolver

import (
	"errors"
	"math"
	"testing"

	"github.com/soniakeys/coord"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/prop"
)

func TestResidualsNonFinite(t *testing.T) {
	p := &Problem{
		Obs: []astro.Observation{
			{Epoch: 2459980.5, RA: 1, Dec: .2},
			{Epoch: 2459990.5, RA: 1.1, Dec: .2},
		},
		Earth: []coord.Cart{{X: 1}, {X: 1}},
	}
	states := []astro.State{
		{Epoch: 2459980.5, R: coord.Cart{X: -1, Y: 1}},
		{Epoch: 2459990.5, R: coord.Cart{X: math.NaN(), Y: 1}},
	}
	_, err := p.residuals(2459970.5, states, nil)
	var se *prop.SingularityError
	if !errors.As(err, &se) {
		t.Fatal(err)
	}
	if se.From != 2459970.5 || se.To != 2459990.5 {
		t.Errorf("interval %.1f to %.1f", se.From, se.To)
	}
}
