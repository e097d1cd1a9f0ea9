// Public domain.

package obsio

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Format identifies an observation file format.
type Format int

const (
	Auto Format = iota
	MPC
	Horizons
	Simple
)

var formatNames = [...]string{"auto", "mpc", "horizons", "simple"}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat parses the names returned by Format.String.
func ParseFormat(s string) (Format, error) {
	for i, n := range formatNames {
		if s == n {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown observation format %q", s)
}

// Detect guesses the format of file contents b.  A $$SOE marker means
// a HORIZONS table, a first data line of 80 columns means MPC format,
// anything else is taken as the simple format.
func Detect(b []byte) Format {
	if bytes.Contains(b, []byte("$$SOE")) {
		return Horizons
	}
	for sc := bufio.NewScanner(bytes.NewReader(b)); sc.Scan(); {
		l := strings.TrimRight(sc.Text(), "\r")
		if t := strings.TrimSpace(l); t == "" || t[0] == '#' {
			continue
		}
		if len(l) == 80 {
			return MPC
		}
		return Simple
	}
	return Simple
}
