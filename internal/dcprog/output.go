// Public domain.

package dcprog

import (
	"fmt"
	"io"
	"strings"

	"github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/dcsolver"
)

// arcResult is everything printed for one object.
type arcResult struct {
	desig  string
	obs    []astro.Observation
	res    *dcsolver.Result
	linRMS unit.Angle
	err    error
}

func headings(w io.Writer) {
	fmt.Fprintln(w, versionString)
	fmt.Fprintln(w, "Desig.           Epoch  Status                 Iter     RMS0      RMS   LinRMS")
}

// rmsField formats arc seconds in a fixed width, stars on overflow.
func rmsField(a unit.Angle) string {
	if rs := fmt.Sprintf(" %8.2f", a.Sec()); len(rs) == 9 {
		return rs
	}
	return " ********"
}

// format builds the output lines for one object.
func (ar *arcResult) format(mu float64, elements bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s", ar.desig)
	if ar.err != nil {
		fmt.Fprintf(&b, " error: %v", ar.err)
		return b.String()
	}
	r := ar.res
	fmt.Fprintf(&b, " %13.5f  %-22s %4d", r.State.Epoch, r.Status, r.Iterations)
	b.WriteString(rmsField(dcsolver.RMS(r.Initial)))
	b.WriteString(rmsField(r.RMS()))
	if ar.linRMS > 0 {
		b.WriteString(rmsField(ar.linRMS))
	}
	s := r.State
	fmt.Fprintf(&b, "\n   r %16.12f %16.12f %16.12f AU", s.R.X, s.R.Y, s.R.Z)
	fmt.Fprintf(&b, "\n   v %16.12f %16.12f %16.12f AU/day", s.V.X, s.V.Y, s.V.Z)
	st := dcsolver.NewStats(r.Residuals)
	fmt.Fprintf(&b, "\n   rms RA %.2f\"  Dec %.2f\"  max %.2f\"",
		st.RA.Sec(), st.Dec.Sec(), st.Max.Sec())
	if elements {
		b.WriteString("\n   ")
		b.WriteString(elementsLine(s, mu))
	}
	return b.String()
}

// elementsLine formats ecliptic J2000 elements of s.
func elementsLine(s astro.State, mu float64) string {
	el, err := astro.NewElements(s.Ecliptic(), mu)
	if err != nil {
		return "elements: " + err.Error()
	}
	return fmt.Sprintf("a %.6f  e %.6f  i %.4f  node %.4f  peri %.4f  M %.4f  P %.2f d",
		el.A, el.E, el.I.Deg(), el.Node.Deg(), el.ArgP.Deg(), el.M.Deg(), el.Period)
}

// writeResiduals lists residuals by observation, initial and final, in
// arc seconds.
func writeResiduals(w io.Writer, ar *arcResult) error {
	if ar.err != nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# %s\n#          JD (TDB)  RA            Dec           dRA0     dDec0    dRA      dDec\n",
		ar.desig); err != nil {
		return err
	}
	for i, o := range ar.obs {
		_, err := fmt.Fprintf(w, "%18.6f  %.3s  %.2s %8.2f %8.2f %8.2f %8.2f\n",
			o.Epoch, sexa.FmtRA(o.RA), sexa.FmtAngle(o.Dec),
			unit.Angle(ar.res.Initial[2*i]).Sec(), unit.Angle(ar.res.Initial[2*i+1]).Sec(),
			unit.Angle(ar.res.Residuals[2*i]).Sec(), unit.Angle(ar.res.Residuals[2*i+1]).Sec())
		if err != nil {
			return err
		}
	}
	return nil
}
