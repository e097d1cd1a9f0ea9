package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gonum/floats"
	"github.com/gonum/stat"
)

const parentImport = "github.com/soniakeys/diffcor"
const versionString = "reshist version 1.0"
const copyrightString = "Public domain."

func main() {
	// parse command line
	flag.Usage = func() {
		os.Stderr.WriteString(
			"Usage: reshist [options] <residual-file>\n")
		flag.PrintDefaults()
		os.Stderr.WriteString(`
For full documentation:
   go doc ` + parentImport + `/reshist
`)
	}
	width := flag.Float64("w", .5, "bin width, arc seconds")
	nBins := flag.Int("n", 12, "number of bins")
	coord := flag.String("c", "both", "coordinate: ra, dec, or both")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() != 1 || !(*width > 0) || *nBins < 1 {
		flag.Usage()
		os.Exit(1)
	}
	sel, ok := selectors[*coord]
	if !ok {
		flag.Usage()
		os.Exit(1)
	}
	b, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}
	rs, ignored := parseResiduals(string(b))
	if len(rs) == 0 {
		log.Fatalln("no residuals in", flag.Arg(0))
	}
	initial, final := sel(rs)
	h := newHist(*width, *nBins)

	// report
	fmt.Println("\nResidual file:  ", flag.Arg(0))
	fmt.Println("Observations:   ", len(rs))
	if ignored != 0 {
		fmt.Println("Lines ignored:  ", ignored)
	}
	fmt.Println("Coordinate:     ", *coord)
	fmt.Println()
	fmt.Println("                      initial      final")
	for _, s := range []struct {
		name string
		f    func([]float64) float64
	}{
		{"mean", func(x []float64) float64 { return stat.Mean(x, nil) }},
		{"std. dev.", func(x []float64) float64 { return stat.StdDev(x, nil) }},
		{"rms", rms},
		{"max abs", maxAbs},
	} {
		fmt.Printf("%-18s %10.2f %10.2f\n", s.name, s.f(initial), s.f(final))
	}
	fmt.Println()
	fmt.Println("   arc seconds      initial      final")
	ci := h.counts(initial)
	cf := h.counts(final)
	for i := range ci {
		fmt.Printf("%-15s %10.0f %10.0f  %s\n", h.label(i), ci[i], cf[i], bar(cf[i], len(final)))
	}
}

// residual is one line of a diffcor residual listing, arc seconds.
type residual struct {
	ra0, dec0, ra, dec float64
}

// parseResiduals reads the last four columns of each data line.  Lines
// starting with # are headings.  Lines that don't parse are counted.
func parseResiduals(s string) (rs []residual, ignored int) {
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || t[0] == '#' {
			continue
		}
		f := strings.Fields(t)
		if len(f) < 5 {
			ignored++
			continue
		}
		var v [4]float64
		var err error
		for i, fs := range f[len(f)-4:] {
			if v[i], err = strconv.ParseFloat(fs, 64); err != nil {
				break
			}
		}
		if err != nil {
			ignored++
			continue
		}
		rs = append(rs, residual{v[0], v[1], v[2], v[3]})
	}
	return
}

var selectors = map[string]func([]residual) (initial, final []float64){
	"ra": func(rs []residual) (i, f []float64) {
		for _, r := range rs {
			i = append(i, r.ra0)
			f = append(f, r.ra)
		}
		return
	},
	"dec": func(rs []residual) (i, f []float64) {
		for _, r := range rs {
			i = append(i, r.dec0)
			f = append(f, r.dec)
		}
		return
	},
	"both": func(rs []residual) (i, f []float64) {
		for _, r := range rs {
			i = append(i, r.ra0, r.dec0)
			f = append(f, r.ra, r.dec)
		}
		return
	},
}

// hist has nBins bins of equal width centered on zero, plus an open bin
// at each end.
type hist struct {
	dividers []float64
}

func newHist(width float64, nBins int) *hist {
	half := width * float64(nBins) / 2
	d := make([]float64, nBins+3)
	floats.Span(d[1:nBins+2], -half, half)
	d[0] = math.Inf(-1)
	d[nBins+2] = math.Inf(1)
	return &hist{d}
}

func (h *hist) counts(x []float64) []float64 {
	s := append([]float64{}, x...)
	sort.Float64s(s)
	return stat.Histogram(nil, h.dividers, s, nil)
}

func (h *hist) label(i int) string {
	lo, hi := h.dividers[i], h.dividers[i+1]
	switch {
	case math.IsInf(lo, -1):
		return fmt.Sprintf("     < %6.2f", hi)
	case math.IsInf(hi, 1):
		return fmt.Sprintf("    >= %6.2f", lo)
	}
	return fmt.Sprintf("%6.2f %6.2f", lo, hi)
}

func rms(x []float64) float64 {
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

func maxAbs(x []float64) float64 {
	return math.Max(floats.Max(x), -floats.Min(x))
}

// bar draws a count as a fraction of n, 40 characters full scale.
func bar(c float64, n int) string {
	return strings.Repeat("*", int(math.Round(40*c/float64(n))))
}
