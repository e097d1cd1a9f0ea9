// Public domain.

package obsio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soniakeys/diffcor/astro"
)

// Guess is an initial state for an object.
type Guess struct {
	Desig string
	State astro.State
}

// ReadStates reads initial states, one per line:
//
//	[desig] epoch x y z vx vy vz
//
// with the epoch a Julian date, TDB, and the state heliocentric
// equatorial in AU and AU/day.  Lines starting with # are comments.
// Any malformed line is an error.
func ReadStates(r io.Reader) ([]Guess, error) {
	var gs []Guess
	ln := 0
	for sc := bufio.NewScanner(r); sc.Scan(); {
		ln++
		l := strings.TrimSpace(sc.Text())
		if l == "" || l[0] == '#' {
			continue
		}
		f := strings.Fields(l)
		var g Guess
		switch len(f) {
		case 8:
			g.Desig = f[0]
			f = f[1:]
		case 7:
		default:
			return nil, &LineError{Line: ln, Text: l,
				Err: fmt.Errorf("%d fields, expected 7 or 8", len(f))}
		}
		var v [7]float64
		for i, s := range f {
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, &LineError{Line: ln, Text: l, Err: err}
			}
			v[i] = x
		}
		g.State = astro.StateFromVec(v[0], v[1:])
		if !g.State.Finite() {
			return nil, &LineError{Line: ln, Text: l, Err: fmt.Errorf("non-finite state")}
		}
		gs = append(gs, g)
	}
	return gs, nil
}

// WriteState writes a line in the format read by ReadStates.
func WriteState(w io.Writer, desig string, s astro.State) error {
	if desig == "" {
		desig = "-"
	}
	_, err := fmt.Fprintf(w, "%s %.6f %.16e %.16e %.16e %.16e %.16e %.16e\n",
		desig, s.Epoch, s.R.X, s.R.Y, s.R.Z, s.V.X, s.V.Y, s.V.Z)
	return err
}

// Find returns the guess for desig.  A single guess with no designation
// matches any object.
func Find(gs []Guess, desig string) (astro.State, bool) {
	for _, g := range gs {
		if g.Desig == desig {
			return g.State, true
		}
	}
	if len(gs) == 1 && (gs[0].Desig == "" || gs[0].Desig == "-") {
		return gs[0].State, true
	}
	return astro.State{}, false
}
