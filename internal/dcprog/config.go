// Public domain.

package dcprog

import (
	"bufio"
	"flag"
	"fmt"
	"go/build"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/obsio"
	"github.com/soniakeys/diffcor/internal/prop"
)

const parentImport = "github.com/soniakeys/diffcor"
const versionString = "diffcor version 1.0 Go source."
const copyrightString = "Public domain."

type commandLine struct {
	dc     string // config file
	do     string // obscode file
	dp     string // default path
	ds     string // initial states
	df     string // observation format
	dr     string // residual listing
	fnObs  string // observations
	format obsio.Format
	v      bool // -v option
}

func parseCommandLine() *commandLine {
	pp, ppErr := build.Import(parentImport, "", build.FindOnly)
	var cl commandLine
	if ppErr == nil {
		cl.dp = pp.Dir
	}
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.dc, "c", "", "")
	flag.StringVar(&cl.do, "o", "", "")
	flag.StringVar(&cl.dp, "p", cl.dp, "")
	flag.StringVar(&cl.ds, "s", "", "")
	flag.StringVar(&cl.df, "f", "auto", "")
	flag.StringVar(&cl.dr, "r", "", "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: diffcor [options] -s <statefile> <obsfile>    refine orbits
       diffcor [options] -s <statefile> -            observations from stdin
       diffcor -h                     display help and quick reference
       diffcor -v                     display version and copyright

Options:
       -c <config-file>
       -o <obscode-file>
       -p <path>
       -s <initial-state-file>
       -f auto|mpc|horizons|simple
       -r <residual-file>
`)
		if ppErr == nil {
			os.Stderr.WriteString(`
Default:
       -p=` + pp.Dir + "\n")
		}
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	case flag.NArg() != 1 || cl.ds == "":
		flag.Usage()
		os.Exit(1)
	}
	f, err := obsio.ParseFormat(cl.df)
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}
	cl.format = f
	cl.fnObs = flag.Arg(0)
	return &cl
}

func (cl *commandLine) fixupCP(fnSpec, fnDefault string) string {
	if fnSpec > "" {
		return fnSpec
	}
	return filepath.Join(cl.dp, fnDefault)
}

// settings collects everything the config file can change.
type settings struct {
	solve     *dcsolver.Options
	prop      prop.Propagator
	read      obsio.Options
	ephem     string // provider name
	vsop87    string // VSOP87 directory
	ephemFile string // table for ephem table
	headings  bool
	elements  bool
	verbose   bool
}

func defaultSettings() *settings {
	s := &settings{
		solve:    dcsolver.DefaultOptions(),
		prop:     prop.Default,
		read:     *obsio.DefaultOptions(),
		ephem:    "vsop87",
		headings: true,
		elements: true,
	}
	s.solve.Prop = &s.prop
	return s
}

// readConfig reads the config file into s.  A missing default config file
// is not an error; a missing named one is.
func readConfig(cl *commandLine, s *settings) error {
	f, err := os.Open(cl.fixupCP(cl.dc, "diffcor.config"))
	if err != nil {
		if cl.dc == "" {
			return nil
		}
		return err
	}
	defer f.Close()
	return parseConfig(f, s)
}

// parseConfig reads config lines.  Each line is a keyword, optionally
// followed by a value.  Blank lines and lines starting with # are ignored.
func parseConfig(r io.Reader, s *settings) error {
	ln := 0
	for sc := bufio.NewScanner(r); sc.Scan(); {
		ln++
		l := strings.TrimSpace(sc.Text())
		if l == "" || l[0] == '#' {
			continue
		}
		kw, val := l, ""
		if i := strings.IndexAny(l, " \t="); i > 0 {
			kw = l[:i]
			val = strings.TrimSpace(strings.TrimLeft(l[i:], " \t="))
		}
		if err := s.set(kw, val); err != nil {
			return fmt.Errorf("config line %d: %v\n  %s", ln, err, l)
		}
	}
	return nil
}

func (s *settings) set(kw, val string) error {
	flagWord := func(b *bool, v bool) error {
		if val != "" {
			return fmt.Errorf("%s takes no value", kw)
		}
		*b = v
		return nil
	}
	num := func() (float64, error) {
		if val == "" {
			return 0, fmt.Errorf("%s requires a value", kw)
		}
		return strconv.ParseFloat(val, 64)
	}
	switch kw {
	case "headings":
		return flagWord(&s.headings, true)
	case "noheadings":
		return flagWord(&s.headings, false)
	case "elements":
		return flagWord(&s.elements, true)
	case "noelements":
		return flagWord(&s.elements, false)
	case "verbose":
		return flagWord(&s.verbose, true)
	case "strict":
		return flagWord(&s.read.Strict, true)
	case "lenient":
		return flagWord(&s.read.Strict, false)
	case "jacobian":
		m, err := dcsolver.ParseJacobian(val)
		s.solve.Jacobian = m
		return err
	case "integrator":
		m, err := prop.ParseMethod(val)
		s.prop.Method = m
		return err
	case "ephem":
		switch val {
		case "vsop87", "approx", "table":
			s.ephem = val
			return nil
		}
		return fmt.Errorf("unknown ephemeris %q", val)
	case "vsop87":
		s.vsop87 = val
		return nil
	case "ephemfile":
		s.ephemFile = val
		s.ephem = "table"
		return nil
	case "maxiter":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("maxiter %q", val)
		}
		s.solve.MaxIter = n
		return nil
	}
	x, err := num()
	if err != nil {
		if _, known := numericKeywords[kw]; !known {
			return fmt.Errorf("unrecognized keyword %q", kw)
		}
		return err
	}
	switch kw {
	case "mu":
		if !(x > 0) {
			return fmt.Errorf("mu must be positive")
		}
		s.solve.Mu = x
	case "xtol":
		s.solve.XTol = x
	case "ftol":
		s.solve.FTol = x
	case "rmslimit":
		// arc seconds, 0 for none
		s.solve.RMSLimit = unit.AngleFromSec(x)
	case "rk4step":
		if !(x > 0) {
			return fmt.Errorf("rk4step must be positive")
		}
		s.prop.Step = x
	case "tdbutc":
		s.read.TDBMinusUTC = x
	default:
		return fmt.Errorf("unrecognized keyword %q", kw)
	}
	return nil
}

var numericKeywords = map[string]struct{}{
	"mu": {}, "xtol": {}, "ftol": {}, "rmslimit": {}, "rk4step": {}, "tdbutc": {},
}

func printHelp() {
	fmt.Println(`
Diffcor refines heliocentric orbits by differential correction.  Input is
a file of astrometric observations and a file of initial state vectors.
Output is the refined state at the epoch of the initial state, residual
statistics, and orbital elements.

Observation formats:
   mpc        80 column MPC format, any number of objects
   horizons   JPL HORIZONS observer table, one object
   simple     YYYY MM DD.ddddd HH MM SS.sss sDD MM SS.ss, one object

State file lines:
   [desig] epoch x y z vx vy vz      (JD TDB, AU, AU/day, equatorial J2000)

Config file keywords:
   mu <AU^3/day^2>
   xtol <relative>
   ftol <relative>
   maxiter <n>
   rmslimit <arc seconds>
   jacobian fd|stm
   integrator dopri|rk4
   rk4step <days>
   ephem vsop87|approx|table
   vsop87 <directory>
   ephemfile <table-file>
   tdbutc <seconds>
   strict
   lenient
   headings
   noheadings
   elements
   noelements
   verbose

For full documentation:
   go doc github.com/soniakeys/diffcor`)
}
