// Public domain.

// Package astro holds the data model shared by the orbit refinement
// packages: observations, heliocentric state vectors, and Keplerian
// elements.
//
// Units throughout are AU, days, and radians.  Times are Julian dates
// in the TDB time scale.  Vectors are heliocentric, equatorial J2000.
package astro

import (
	"errors"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// MuSun is the heliocentric gravitational parameter in AU³/day².  It is
// the square of the Gaussian gravitational constant.
const MuSun = 0.00029591220828559104

// Obliquity of the ecliptic at J2000, IAU 1976 value.
const Obliquity = 23.4392911 * math.Pi / 180

const twoPi = 2 * math.Pi

// Observation is a single astrometric position of an object.
type Observation struct {
	Epoch float64    // Julian date, TDB
	RA    unit.RA    // right ascension, [0, 2π)
	Dec   unit.Angle // declination, [-π/2, π/2]
}

// State is a heliocentric position and velocity at an epoch.
type State struct {
	Epoch float64   // Julian date, TDB
	R     coord.Cart // AU
	V     coord.Cart // AU/day
}

// Vec returns the state as the six element parameter vector
// x, y, z, vx, vy, vz.
func (s *State) Vec() []float64 {
	return []float64{s.R.X, s.R.Y, s.R.Z, s.V.X, s.V.Y, s.V.Z}
}

// StateFromVec is the inverse of Vec.  v must have at least six elements.
func StateFromVec(epoch float64, v []float64) State {
	return State{
		Epoch: epoch,
		R:     coord.Cart{X: v[0], Y: v[1], Z: v[2]},
		V:     coord.Cart{X: v[3], Y: v[4], Z: v[5]},
	}
}

// Finite reports whether the epoch and all six components are finite.
func (s *State) Finite() bool {
	if !finite(s.Epoch) {
		return false
	}
	for _, x := range s.Vec() {
		if !finite(x) {
			return false
		}
	}
	return true
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Ecliptic returns the state rotated from the equatorial to the
// ecliptic J2000 frame.
func (s *State) Ecliptic() State {
	se, ce := math.Sincos(Obliquity)
	rot := func(c coord.Cart) coord.Cart {
		return coord.Cart{
			X: c.X,
			Y: c.Y*ce + c.Z*se,
			Z: -c.Y*se + c.Z*ce,
		}
	}
	return State{Epoch: s.Epoch, R: rot(s.R), V: rot(s.V)}
}

// EquatorialFromEcliptic rotates an ecliptic J2000 vector to the
// equatorial J2000 frame.
func EquatorialFromEcliptic(c coord.Cart) coord.Cart {
	se, ce := math.Sincos(Obliquity)
	return coord.Cart{
		X: c.X,
		Y: c.Y*ce - c.Z*se,
		Z: c.Y*se + c.Z*ce,
	}
}

// ErrNotElliptic is returned when elements are requested for an orbit
// that is not a bound ellipse.
var ErrNotElliptic = errors.New("orbit not elliptic")

// Elements are osculating Keplerian elements.  The reference plane is
// the plane of the frame of the state they were computed from.
type Elements struct {
	Epoch  float64    // Julian date, TDB
	A      float64    // semimajor axis, AU
	E      float64    // eccentricity
	I      unit.Angle // inclination
	Node   unit.Angle // longitude of ascending node
	ArgP   unit.Angle // argument of perihelion
	M      unit.Angle // mean anomaly at Epoch
	Period float64    // days
}

// Q returns perihelion distance.
func (el *Elements) Q() float64 { return el.A * (1 - el.E) }

// thresholds for the circular and equatorial special cases
const (
	eZero = 1e-11
	iZero = 1e-11
)

// NewElements computes Keplerian elements from a state vector.
//
// For orbits with negligible inclination, Node is zero and ArgP is
// measured from the X axis.  For negligible eccentricity ArgP is zero
// and M is measured from the node.
func NewElements(s State, mu float64) (*Elements, error) {
	p := s.R
	v := s.V
	r := math.Sqrt(p.Square())
	if r == 0 || mu <= 0 {
		return nil, ErrNotElliptic
	}
	// momentum vector
	var hv coord.Cart
	hv.Cross(&p, &v)
	hm := math.Sqrt(hv.Square())
	if hm == 0 {
		return nil, ErrNotElliptic
	}
	vsq := v.Square()
	temp := 2/r - vsq/mu
	if temp <= 0 {
		return nil, ErrNotElliptic
	}
	a := 1 / temp

	// eccentricity vector
	rv := p.Dot(&v)
	var ev, t coord.Cart
	ev.MulScalar(&p, vsq-mu/r)
	t.MulScalar(&v, rv)
	ev.Sub(&ev, &t)
	ev.MulScalar(&ev, 1/mu)
	e := math.Sqrt(ev.Square())
	if e >= 1 {
		return nil, ErrNotElliptic
	}

	el := &Elements{
		Epoch:  s.Epoch,
		A:      a,
		E:      e,
		I:      unit.Angle(math.Acos(clamp(hv.Z / hm))),
		Period: twoPi * math.Sqrt(a*a*a/mu),
	}
	var hu coord.Cart
	hu.MulScalar(&hv, 1/hm)

	// node vector, zero for equatorial orbits
	nv := coord.Cart{X: -hv.Y, Y: hv.X}
	nm := math.Sqrt(nv.Square())
	equatorial := nm < iZero*hm
	if equatorial {
		// x axis stands in for the node line
		nv = coord.Cart{X: 1}
		nm = 1
		if hv.Z < 0 {
			el.I = math.Pi
		} else {
			el.I = 0
		}
	} else {
		el.Node = unit.Angle(pmod(math.Atan2(hv.X, -hv.Y)))
	}
	nv.MulScalar(&nv, 1/nm)

	var nu float64 // true anomaly
	if e < eZero {
		// argument of latitude stands in for true anomaly
		nu = angleIn(&hu, &nv, &p)
		el.E = 0
	} else {
		el.ArgP = unit.Angle(pmod(angleIn(&hu, &nv, &ev)))
		nu = angleIn(&hu, &ev, &p)
	}
	sn, cn := math.Sincos(nu / 2)
	ea := 2 * math.Atan2(math.Sqrt(1-el.E)*sn, math.Sqrt(1+el.E)*cn)
	el.M = unit.Angle(pmod(ea - el.E*math.Sin(ea)))
	return el, nil
}

// angleIn returns the angle from a to b measured counterclockwise about
// the unit normal n.
func angleIn(n, a, b *coord.Cart) float64 {
	var c coord.Cart
	c.Cross(a, b)
	return math.Atan2(n.Dot(&c), a.Dot(b))
}

func clamp(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}

// pmod reduces an angle to [0, 2π).
func pmod(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	if x >= twoPi {
		x = 0
	}
	return x
}

// State computes the position and velocity at Julian date jd by
// advancing the mean anomaly.
func (el *Elements) State(jd, mu float64) (State, error) {
	if el.E < 0 || el.E >= 1 || el.A <= 0 || mu <= 0 {
		return State{}, ErrNotElliptic
	}
	n := math.Sqrt(mu / (el.A * el.A * el.A))
	m := el.M.Rad() + n*(jd-el.Epoch)
	ea := Kepler(el.E, m)

	sw, cw := math.Sincos(el.ArgP.Rad())
	sn, cn := math.Sincos(el.Node.Rad())
	si, ci := math.Sincos(el.I.Rad())
	pv := coord.Cart{
		X: cw*cn - sw*sn*ci,
		Y: cw*sn + sw*cn*ci,
		Z: sw * si,
	}
	qv := coord.Cart{
		X: -sw*cn - cw*sn*ci,
		Y: -sw*sn + cw*cn*ci,
		Z: cw * si,
	}
	se, ce := math.Sincos(ea)
	b := math.Sqrt(1 - el.E*el.E)
	r := el.A * (1 - el.E*ce)
	vf := math.Sqrt(mu*el.A) / r

	s := State{Epoch: jd}
	var t coord.Cart
	s.R.MulScalar(&pv, el.A*(ce-el.E))
	t.MulScalar(&qv, el.A*b*se)
	s.R.Add(&s.R, &t)
	s.V.MulScalar(&pv, -vf*se)
	t.MulScalar(&qv, vf*b*ce)
	s.V.Add(&s.V, &t)
	return s, nil
}

// Kepler solves Kepler's equation E - e sin E = M for the eccentric
// anomaly E by Newton iteration.  e must be in [0, 1).
func Kepler(e, m float64) float64 {
	m = pmod(m)
	ea := m
	if e > .8 {
		ea = math.Pi
	}
	for i := 0; i < 50; i++ {
		se, ce := math.Sincos(ea)
		d := (ea - e*se - m) / (1 - e*ce)
		ea -= d
		if math.Abs(d) < 1e-15 {
			break
		}
	}
	return ea
}
