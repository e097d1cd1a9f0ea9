package main

import (
	"bufio"
	"flag"
	"fmt"
	"go/build"
	"os"
	"path/filepath"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/soniakeys/diffcor/internal/ephem"
)

const parentImport = "github.com/soniakeys/diffcor"
const versionString = "ephgen version 1.0 Go source."
const copyrightString = "Public domain."
const tabfn = "earth.tab"

func main() {
	defer exit.Handler()

	// parent dir, default location for the output file
	parentDir := ""
	if pkg, err := build.Import(parentImport, "", build.FindOnly); err == nil {
		parentDir = pkg.Dir
	}
	defPath := filepath.Join(parentDir, tabfn)

	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
  ephgen [options]       Write an Earth ephemeris table.
  ephgen -v              Display version and copyright.

Options:
  -e vsop87|approx       Ephemeris to tabulate.
  -d <directory>         VSOP87 files, default from the VSOP87 variable.
  -start <date>          First epoch, JD or YYYY-MM-DD.
  -end <date>            Last epoch, JD or YYYY-MM-DD.
  -step <days>
  -o <file>              Output file, - for stdout.

Default:
  -o=` + defPath + `

For full documentation:
   go doc ` + parentImport + `/ephgen
`)
	}
	eName := flag.String("e", "vsop87", "")
	dir := flag.String("d", "", "")
	startS := flag.String("start", "2023-01-01", "")
	endS := flag.String("end", "2024-01-01", "")
	step := flag.Float64("step", 1, "")
	out := flag.String("o", defPath, "")
	vers := flag.Bool("v", false, "")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() > 0 || (*eName != "vsop87" && *eName != "approx") {
		flag.Usage()
		os.Exit(1)
	}
	start, err := parseDate(*startS)
	if err != nil {
		exit.Log(err)
	}
	end, err := parseDate(*endS)
	if err != nil {
		exit.Log(err)
	}

	p, err := ephem.New(*eName, *dir)
	if err != nil {
		exit.Log(err)
	}
	t, err := ephem.Tabulate(p, start, end, *step)
	if err != nil {
		exit.Log(err)
	}

	w := os.Stdout
	if *out != "-" {
		if w, err = os.Create(*out); err != nil {
			exit.Log(err)
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Earth, heliocentric equatorial J2000, AU, AU/day, %s\n", *eName)
	if err = t.Write(bw); err == nil {
		err = bw.Flush()
	}
	if w != os.Stdout {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		exit.Log(err)
	}
	if *out != "-" {
		fmt.Printf("%d rows written to %s\n", len(t.JD), *out)
	}
}

// parseDate accepts a Julian date or a Gregorian calendar date.
func parseDate(s string) (float64, error) {
	var jd float64
	if _, err := fmt.Sscanf(s, "%f", &jd); err == nil && len(s) > 4 && s[4] != '-' {
		return jd, nil
	}
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &y, &m, &d); err != nil {
		return 0, fmt.Errorf("invalid date %q", s)
	}
	return julian.CalendarGregorianToJD(y, m, float64(d)), nil
}
