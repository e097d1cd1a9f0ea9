// Public domain.

// Package ephem supplies heliocentric positions of reference bodies.
//
// Positions are equatorial J2000 in AU.  Times are Julian dates, TDB.
// Providers answer a whole batch of epochs in one call so that a
// refinement queries its ephemeris once.
package ephem

import (
	"errors"
	"fmt"

	"github.com/soniakeys/coord"
)

// Body identifies a reference body.
type Body int

const (
	Earth Body = iota
)

func (b Body) String() string {
	if b == Earth {
		return "Earth"
	}
	return fmt.Sprintf("Body(%d)", int(b))
}

// Provider returns heliocentric positions of a body at each of the
// given epochs.  The result has one position per epoch, in order.
type Provider interface {
	Positions(b Body, jd []float64) ([]coord.Cart, error)
}

var (
	// ErrOutOfRange is returned for epochs a provider cannot cover.
	ErrOutOfRange = errors.New("epoch outside ephemeris range")
	// ErrBody is returned for bodies a provider does not carry.
	ErrBody = errors.New("body not available")
)

// Position is a convenience for a single epoch.
func Position(p Provider, b Body, jd float64) (coord.Cart, error) {
	c, err := p.Positions(b, []float64{jd})
	if err != nil {
		return coord.Cart{}, err
	}
	return c[0], nil
}

// New returns a provider by name: "vsop87", "approx", or "table".
// arg is the VSOP87 directory for "vsop87" (empty to use the VSOP87
// environment variable) or the table file for "table".
func New(name, arg string) (Provider, error) {
	switch name {
	case "vsop87":
		return NewVSOP87(arg)
	case "approx":
		return Approx{}, nil
	case "table":
		return ReadTableFile(arg)
	}
	return nil, fmt.Errorf("unknown ephemeris %q", name)
}
