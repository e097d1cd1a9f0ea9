// Public domain.

// Package obsio reads astrometric observations and initial state vectors.
//
// Supported observation formats are MPC 80 column records, JPL HORIZONS
// observer tables, and a simple columnar format of calendar date, RA,
// and Dec.  Input times are taken as UTC and shifted to TDB by
// Options.TDBMinusUTC.
//
// Malformed lines are skipped and recorded in a Report, unless
// Options.Strict is set, in which case the first malformed line ends
// reading with a *LineError.
package obsio

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/diffcor/astro"
)

// ErrMalformed matches every *LineError and validation failure.
var ErrMalformed = errors.New("malformed input")

// LineError describes a rejected input line.
type LineError struct {
	Line int    // 1 based, 0 if not known
	Text string // offending text
	Err  error
}

func (e *LineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

// Is makes errors.Is(err, ErrMalformed) true.
func (e *LineError) Is(target error) bool { return target == ErrMalformed }

func (e *LineError) Unwrap() error { return e.Err }

// Report counts the lines read and keeps the ones skipped.
type Report struct {
	Lines   int          // data lines considered
	Skipped []*LineError // lines rejected
}

// Options control reading.
type Options struct {
	TDBMinusUTC float64 // seconds
	Strict      bool    // fail on the first malformed line
}

// DefaultTDBMinusUTC is TT-UTC since 2017, 32.184 s plus 37 leap seconds.
// TDB differs from TT by under 2 ms.
const DefaultTDBMinusUTC = 69.184

// DefaultOptions skip malformed lines and apply DefaultTDBMinusUTC.
func DefaultOptions() *Options {
	return &Options{TDBMinusUTC: DefaultTDBMinusUTC}
}

// skip records a malformed line.  In strict mode it returns the error
// that should end reading.
func (o *Options) skip(rep *Report, le *LineError) error {
	rep.Skipped = append(rep.Skipped, le)
	if o.Strict {
		return le
	}
	return nil
}

func (o *Options) tdb(jdUTC float64) float64 {
	return jdUTC + o.TDBMinusUTC/86400
}

// Arc is the observations of one object, in input order.
type Arc struct {
	Desig string
	Obs   []astro.Observation
}

// Validate checks the ranges of an observation.
func Validate(o astro.Observation) error {
	switch {
	case math.IsNaN(o.Epoch) || math.IsInf(o.Epoch, 0):
		return fmt.Errorf("%w: epoch %v", ErrMalformed, o.Epoch)
	case !(o.RA >= 0 && o.RA < 2*math.Pi):
		return fmt.Errorf("%w: ra %v not in [0, 2π)", ErrMalformed, o.RA.Rad())
	case !(o.Dec >= -math.Pi/2 && o.Dec <= math.Pi/2):
		return fmt.Errorf("%w: dec %v not in [-π/2, π/2]", ErrMalformed, o.Dec.Rad())
	}
	return nil
}

// Check verifies an arc is usable for refinement: at least two
// observations and some motion over the arc.  Observations need not be
// in time order.
func (a *Arc) Check() error {
	if len(a.Obs) < 2 {
		return fmt.Errorf("%s: %d observations, need at least 2", a.Desig, len(a.Obs))
	}
	first := a.Obs[0]
	for _, o := range a.Obs[1:] {
		if o.RA != first.RA || o.Dec != first.Dec {
			return nil
		}
	}
	return fmt.Errorf("%s: no motion over arc", a.Desig)
}
