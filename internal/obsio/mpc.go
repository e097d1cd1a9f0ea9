// Public domain.

package obsio

import (
	"fmt"
	"io"
	"log"

	"github.com/soniakeys/mpcformat"
	"github.com/soniakeys/observation"

	"github.com/soniakeys/diffcor/astro"
)

// ReadMPC reads MPC 80 column observations, grouped by object.  ocdMap
// supplies the observatory codes that observations may reference.
//
// Observatory parallax is not applied; observations are treated as
// geocentric.
func ReadMPC(r io.Reader, ocdMap observation.ParallaxMap, opt *Options) ([]*Arc, *Report, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	rep := &Report{}
	var arcs []*Arc
	for s := mpcformat.ArcSplitter(r, ocdMap); ; {
		a, err := s()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(mpcformat.ArcError); ok {
				if serr := opt.skip(rep, &LineError{Text: err.Error(), Err: ErrMalformed}); serr != nil {
					return nil, rep, serr
				}
				continue
			}
			return nil, rep, err
		}
		arc, err := convertArc(a, opt, rep)
		if err != nil {
			return nil, rep, err
		}
		if len(arc.Obs) > 0 {
			arcs = append(arcs, arc)
		}
	}
	return arcs, rep, nil
}

func convertArc(a *observation.Arc, opt *Options, rep *Report) (*Arc, error) {
	arc := &Arc{Desig: a.Desig}
	for _, vo := range a.Obs {
		rep.Lines++
		m := vo.Meas()
		o := astro.Observation{
			Epoch: opt.tdb(m.MJD + 2400000.5),
			RA:    m.RA,
			Dec:   m.Dec,
		}
		if err := Validate(o); err != nil {
			le := &LineError{Text: fmt.Sprintf("%s %.6f", a.Desig, m.MJD), Err: err}
			if serr := opt.skip(rep, le); serr != nil {
				return nil, serr
			}
			continue
		}
		arc.Obs = append(arc.Obs, o)
	}
	return arc, nil
}

// ReadObscodes reads an MPC obscode.dat file, fetching a fresh copy from
// the MPC if the file cannot be read.
func ReadObscodes(fn string) (observation.ParallaxMap, error) {
	ocdMap, readErr := mpcformat.ReadObscodeDatFile(fn)
	if readErr == nil {
		return ocdMap, nil
	}
	// that didn't work.  try getting a fresh copy.
	if err := mpcformat.FetchObscodeDat(fn); err != nil {
		log.Println(readErr) // show error from read attempt
		return nil, err
	}
	return mpcformat.ReadObscodeDatFile(fn)
}
