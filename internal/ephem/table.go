// Public domain.

package ephem

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/soniakeys/coord"
)

// Table is a tabulated Earth ephemeris.  Between rows it interpolates
// with cubic Hermite polynomials when velocities are present and
// linearly otherwise.  Epochs outside the table are an error.
type Table struct {
	JD  []float64    // strictly increasing
	Pos []coord.Cart // AU
	Vel []coord.Cart // AU/day, nil if not tabulated
}

// ReadTableFile reads a table file.  See ReadTable.
func ReadTableFile(fn string) (*Table, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return t, nil
}

// ReadTable reads either of two formats.
//
// The plain format has lines of whitespace separated fields
//
//	jd x y z [vx vy vz]
//
// with # comments.  Velocities must be present on all lines or none.
//
// A JPL HORIZONS vector table in CSV form (heliocentric, equatorial
// reference frame, AU and days) is recognized by its $$SOE marker.
// Rows are read up to $$EOE.
func ReadTable(r io.Reader) (*Table, error) {
	var lines []string
	horizons := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l == "$$SOE" {
			horizons = true
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	var t Table
	inData := !horizons
	for i, l := range lines {
		switch {
		case l == "$$SOE":
			inData = true
			continue
		case l == "$$EOE":
			inData = false
			continue
		case !inData || l == "" || l[0] == '#':
			continue
		}
		var err error
		if horizons {
			err = t.addRow(csvFields(l), true)
		} else {
			err = t.addRow(strings.Fields(l), false)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	if len(t.JD) < 2 {
		return nil, fmt.Errorf("ephemeris table needs at least two rows")
	}
	return &t, nil
}

// csvFields splits a HORIZONS CSV row and drops the calendar date column.
func csvFields(l string) []string {
	f := strings.Split(l, ",")
	var r []string
	for i, s := range f {
		s = strings.TrimSpace(s)
		if i == 1 || s == "" {
			continue
		}
		r = append(r, s)
	}
	return r
}

func (t *Table) addRow(f []string, horizons bool) error {
	if len(f) != 4 && len(f) != 7 {
		if !horizons || len(f) < 7 {
			return fmt.Errorf("expected 4 or 7 fields, found %d", len(f))
		}
		// HORIZONS may append LT, RG, RR columns
		f = f[:7]
	}
	var v [7]float64
	for i, s := range f {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		v[i] = x
	}
	if n := len(t.JD); n > 0 {
		if v[0] <= t.JD[n-1] {
			return fmt.Errorf("epoch %v not increasing", v[0])
		}
		if (len(f) == 7) != (t.Vel != nil) {
			return fmt.Errorf("velocities on some rows but not others")
		}
	}
	t.JD = append(t.JD, v[0])
	t.Pos = append(t.Pos, coord.Cart{X: v[1], Y: v[2], Z: v[3]})
	if len(f) == 7 {
		t.Vel = append(t.Vel, coord.Cart{X: v[4], Y: v[5], Z: v[6]})
	}
	return nil
}

// Positions implements Provider.
func (t *Table) Positions(b Body, jd []float64) ([]coord.Cart, error) {
	if b != Earth {
		return nil, fmt.Errorf("%w: %v", ErrBody, b)
	}
	c := make([]coord.Cart, len(jd))
	for i, x := range jd {
		p, err := t.interp(x)
		if err != nil {
			return nil, err
		}
		c[i] = p
	}
	return c, nil
}

func (t *Table) interp(x float64) (coord.Cart, error) {
	n := len(t.JD)
	if !(x >= t.JD[0] && x <= t.JD[n-1]) {
		return coord.Cart{}, fmt.Errorf("%w: %.6f not in %.6f..%.6f",
			ErrOutOfRange, x, t.JD[0], t.JD[n-1])
	}
	// first row at or after x, then back to the interval start
	i := sort.SearchFloat64s(t.JD, x)
	if i < n && t.JD[i] == x {
		return t.Pos[i], nil
	}
	i--
	h := t.JD[i+1] - t.JD[i]
	s := (x - t.JD[i]) / h
	p0, p1 := t.Pos[i], t.Pos[i+1]
	if t.Vel == nil {
		return coord.Cart{
			X: p0.X + s*(p1.X-p0.X),
			Y: p0.Y + s*(p1.Y-p0.Y),
			Z: p0.Z + s*(p1.Z-p0.Z),
		}, nil
	}
	v0, v1 := t.Vel[i], t.Vel[i+1]
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := (s3 - 2*s2 + s) * h
	h01 := -2*s3 + 3*s2
	h11 := (s3 - s2) * h
	return coord.Cart{
		X: h00*p0.X + h10*v0.X + h01*p1.X + h11*v1.X,
		Y: h00*p0.Y + h10*v0.Y + h01*p1.Y + h11*v1.Y,
		Z: h00*p0.Z + h10*v0.Z + h01*p1.Z + h11*v1.Z,
	}, nil
}

// Write writes t in the plain format read by ReadTable.
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if t.Vel != nil {
		fmt.Fprintln(bw, "# jd x y z vx vy vz")
	} else {
		fmt.Fprintln(bw, "# jd x y z")
	}
	for i, jd := range t.JD {
		p := t.Pos[i]
		fmt.Fprintf(bw, "%.6f %.15e %.15e %.15e", jd, p.X, p.Y, p.Z)
		if t.Vel != nil {
			v := t.Vel[i]
			fmt.Fprintf(bw, " %.15e %.15e %.15e", v.X, v.Y, v.Z)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// Tabulate builds a table of p's Earth from start to end, inclusive, at
// intervals of step days.  Velocities are central differences over
// ±0.01 day.  p is queried once.
func Tabulate(p Provider, start, end, step float64) (*Table, error) {
	if !(step > 0) || !(end >= start) {
		return nil, fmt.Errorf("invalid table range %v to %v step %v", start, end, step)
	}
	const h = .01
	n := int(math.Floor((end-start)/step+1e-9)) + 1
	jd := make([]float64, n)
	q := make([]float64, 0, 3*n)
	for i := range jd {
		jd[i] = start + float64(i)*step
		q = append(q, jd[i], jd[i]-h, jd[i]+h)
	}
	c, err := p.Positions(Earth, q)
	if err != nil {
		return nil, err
	}
	t := &Table{JD: jd, Pos: make([]coord.Cart, n), Vel: make([]coord.Cart, n)}
	for i := range jd {
		t.Pos[i] = c[3*i]
		lo, hi := c[3*i+1], c[3*i+2]
		t.Vel[i] = coord.Cart{
			X: (hi.X - lo.X) / (2 * h),
			Y: (hi.Y - lo.Y) / (2 * h),
			Z: (hi.Z - lo.Z) / (2 * h),
		}
	}
	return t, nil
}
