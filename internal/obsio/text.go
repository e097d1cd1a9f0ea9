// Public domain.

package obsio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
)

// ReadHorizons reads a JPL HORIZONS observer table.  Rows between $$SOE
// and $$EOE are parsed as a date, a time, optional marker columns, then
// RA as "HH MM SS.ss" and Dec as "sDD MM SS.s".  Further columns are
// ignored.  Dates may be calendar dates, "2023-Jan-25 00:00" with
// optional seconds, or Julian dates.
func ReadHorizons(r io.Reader, desig string, opt *Options) (*Arc, *Report, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	rep := &Report{}
	arc := &Arc{Desig: desig}
	inData := false
	ln := 0
	for sc := bufio.NewScanner(r); sc.Scan(); {
		ln++
		l := sc.Text()
		switch strings.TrimSpace(l) {
		case "$$SOE":
			inData = true
			continue
		case "$$EOE":
			inData = false
			continue
		}
		if !inData || strings.TrimSpace(l) == "" {
			continue
		}
		rep.Lines++
		o, err := parseHorizonsRow(l)
		if err == nil {
			o.Epoch = opt.tdb(o.Epoch)
			err = Validate(o)
		}
		if err != nil {
			if serr := opt.skip(rep, &LineError{Line: ln, Text: l, Err: err}); serr != nil {
				return nil, rep, serr
			}
			continue
		}
		arc.Obs = append(arc.Obs, o)
	}
	return arc, rep, nil
}

var horizonsLayouts = []string{
	"2006-Jan-02 15:04",
	"2006-Jan-02 15:04:05",
	"2006-Jan-02 15:04:05.000",
}

func parseHorizonsRow(l string) (o astro.Observation, err error) {
	f := strings.Fields(l)
	if len(f) < 7 {
		return o, errors.New("too few columns")
	}
	var rest []string
	if jd, jerr := strconv.ParseFloat(f[0], 64); jerr == nil {
		o.Epoch = jd
		rest = f[1:]
	} else {
		var t time.Time
		for _, layout := range horizonsLayouts {
			if t, err = time.Parse(layout, f[0]+" "+f[1]); err == nil {
				break
			}
		}
		if err != nil {
			return o, fmt.Errorf("date: %v", err)
		}
		o.Epoch = julian.TimeToJD(t)
		rest = f[2:]
	}
	// skip solar presence and lunar presence markers
	for len(rest) > 0 {
		if _, err := strconv.Atoi(rest[0]); err == nil {
			break
		}
		rest = rest[1:]
	}
	if len(rest) < 6 {
		return o, errors.New("missing RA/Dec")
	}
	if o.RA, err = parseHMS(rest[0], rest[1], rest[2]); err != nil {
		return o, err
	}
	o.Dec, err = parseDMS(rest[3], rest[4], rest[5])
	return o, err
}

// ReadSimple reads lines of the form
//
//	YYYY MM DD.dddddd HH MM SS.sss sDD MM SS.ss
//
// giving a UTC date with fractional day, RA, and Dec.  Lines starting
// with # are comments.
func ReadSimple(r io.Reader, desig string, opt *Options) (*Arc, *Report, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	rep := &Report{}
	arc := &Arc{Desig: desig}
	ln := 0
	for sc := bufio.NewScanner(r); sc.Scan(); {
		ln++
		l := sc.Text()
		t := strings.TrimSpace(l)
		if t == "" || t[0] == '#' {
			continue
		}
		rep.Lines++
		o, err := parseSimple(t)
		if err == nil {
			o.Epoch = opt.tdb(o.Epoch)
			err = Validate(o)
		}
		if err != nil {
			if serr := opt.skip(rep, &LineError{Line: ln, Text: l, Err: err}); serr != nil {
				return nil, rep, serr
			}
			continue
		}
		arc.Obs = append(arc.Obs, o)
	}
	return arc, rep, nil
}

func parseSimple(l string) (o astro.Observation, err error) {
	f := strings.Fields(l)
	if len(f) != 9 {
		return o, fmt.Errorf("%d fields, expected 9", len(f))
	}
	y, err := strconv.Atoi(f[0])
	if err != nil {
		return o, err
	}
	m, err := strconv.Atoi(f[1])
	if err != nil || m < 1 || m > 12 {
		return o, fmt.Errorf("month %q", f[1])
	}
	d, err := strconv.ParseFloat(f[2], 64)
	if err != nil || d < 1 || d >= 32 {
		return o, fmt.Errorf("day %q", f[2])
	}
	o.Epoch = julian.CalendarGregorianToJD(y, m, d)
	if o.RA, err = parseHMS(f[3], f[4], f[5]); err != nil {
		return o, err
	}
	o.Dec, err = parseDMS(f[6], f[7], f[8])
	return o, err
}

// WriteSimple writes observations in the format read by ReadSimple.
// Times are converted from TDB back to UTC with opt.TDBMinusUTC.
func WriteSimple(w io.Writer, obs []astro.Observation, opt *Options) error {
	if opt == nil {
		opt = DefaultOptions()
	}
	bw := bufio.NewWriter(w)
	for _, o := range obs {
		y, m, d := julian.JDToCalendar(o.Epoch - opt.TDBMinusUTC/86400)
		fmt.Fprintf(bw, "%4d %02d %09.6f %s %s\n", y, m, d,
			fmtHMS(o.RA.Rad()), fmtDMS(o.Dec.Rad()))
	}
	return bw.Flush()
}

func parseHMS(hs, ms, ss string) (unit.RA, error) {
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("ra hours %q", hs)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("ra minutes %q", ms)
	}
	s, err := strconv.ParseFloat(ss, 64)
	if err != nil || s < 0 || s >= 60 {
		return 0, fmt.Errorf("ra seconds %q", ss)
	}
	return unit.RA((float64(h*60+m)*60 + s) * math.Pi / (12 * 3600)), nil
}

func parseDMS(ds, ms, ss string) (unit.Angle, error) {
	neg := strings.HasPrefix(ds, "-")
	d, err := strconv.Atoi(strings.TrimLeft(ds, "+-"))
	if err != nil || d > 90 {
		return 0, fmt.Errorf("dec degrees %q", ds)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("dec minutes %q", ms)
	}
	s, err := strconv.ParseFloat(ss, 64)
	if err != nil || s < 0 || s >= 60 {
		return 0, fmt.Errorf("dec seconds %q", ss)
	}
	a := (float64(d*60+m)*60 + s) * math.Pi / (180 * 3600)
	if neg {
		a = -a
	}
	return unit.Angle(a), nil
}

// fmtHMS formats radians of RA as "HH MM SS.ssss".
func fmtHMS(ra float64) string {
	s := ra * 12 * 3600 / math.Pi
	s = math.Round(s*1e4) / 1e4
	if s >= 24*3600 {
		s -= 24 * 3600
	}
	h := math.Floor(s / 3600)
	s -= h * 3600
	m := math.Floor(s / 60)
	s -= m * 60
	return fmt.Sprintf("%02.0f %02.0f %07.4f", h, m, s)
}

// fmtDMS formats radians of Dec as "sDD MM SS.sss".
func fmtDMS(dec float64) string {
	sign := '+'
	if dec < 0 {
		sign = '-'
		dec = -dec
	}
	s := dec * 180 * 3600 / math.Pi
	s = math.Round(s*1e3) / 1e3
	d := math.Floor(s / 3600)
	s -= d * 3600
	m := math.Floor(s / 60)
	s -= m * 60
	return fmt.Sprintf("%c%02.0f %02.0f %06.3f", sign, d, m, s)
}
