// Public domain.

// Package dcprog is the diffcor command.
package dcprog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/exit"
	"github.com/soniakeys/observation"

	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/obsio"
)

func Main() {
	defer exit.Handler()

	// these functions all terminate on error
	cl := parseCommandLine()
	s := defaultSettings()
	if err := readConfig(cl, s); err != nil {
		exit.Log(err)
	}
	guesses := readGuesses(cl)
	eph := openEphemeris(s)
	arcs := readArcs(cl, s, guesses)

	var resFile *bufio.Writer
	if cl.dr > "" {
		f, err := os.Create(cl.dr)
		if err != nil {
			exit.Log(err)
		}
		defer f.Close()
		resFile = bufio.NewWriter(f)
		defer resFile.Flush()
	}

	var logger kitlog.Logger
	if s.verbose {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	}

	// an interrupt cancels refinements in progress
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// prCh keeps results in submission order.  it is buffered so a fast
	// worker can drop off a result without waiting for workers ahead of
	// it.  the size must be at least maxWorkers.
	maxWorkers := runtime.GOMAXPROCS(0)
	prCh := make(chan chan *arcResult, maxWorkers*2)
	arcChSeq := make(chan *arcSeq)

	// dispatcher.  for each arc, attach a return channel that works like
	// a ticket for picking up the result, send the arc to a worker and
	// drop the ticket in the queue for printing.
	go func() {
		for _, a := range arcs {
			rch := make(chan *arcResult, 1)
			arcChSeq <- &arcSeq{a, rch}
			prCh <- rch
		}
		close(prCh)
	}()

	// workers are started only as arcs arrive, up to maxWorkers.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			a, ok := <-arcChSeq
			if !ok {
				return
			}
			go solve(ctx, a, arcChSeq, guesses, eph, s, logger)
		}
	}()

	// headings delayed until now so an initialization failure doesn't
	// print them.
	if s.headings {
		headings(os.Stdout)
	}

	for rch := range prCh {
		r := <-rch
		if errors.Is(r.err, context.Canceled) {
			exit.Log("interrupted")
		}
		fmt.Println(r.format(s.solve.Mu, s.elements))
		if resFile != nil {
			if err := writeResiduals(resFile, r); err != nil {
				exit.Log(err)
			}
		}
	}
}

type arcSeq struct {
	a   *obsio.Arc
	rch chan *arcResult
}

// worker, refines arcs.  the first arc is passed in a, more are received
// on arcCh.  it runs until the program shuts down.
func solve(ctx context.Context,
	a *arcSeq,
	arcCh chan *arcSeq,
	gs []obsio.Guess,
	eph ephem.Provider,
	s *settings,
	logger kitlog.Logger) {
	for ; ; a = <-arcCh {
		a.rch <- refineArc(ctx, a.a, gs, eph, s, logger) // buffered
	}
}

func refineArc(ctx context.Context, a *obsio.Arc, gs []obsio.Guess, eph ephem.Provider,
	s *settings, logger kitlog.Logger) *arcResult {
	ar := &arcResult{desig: a.Desig, obs: a.Obs}
	if ar.err = a.Check(); ar.err != nil {
		return ar
	}
	guess, ok := obsio.Find(gs, a.Desig)
	if !ok {
		ar.err = errors.New("no initial state")
		return ar
	}
	opt := *s.solve
	if logger != nil {
		opt.Logger = kitlog.With(logger, "desig", a.Desig)
	}
	ar.res, ar.err = dcsolver.Refine(ctx, guess, a.Obs, eph, &opt)
	ar.linRMS = a.LinearRMS()
	return ar
}

func readGuesses(cl *commandLine) []obsio.Guess {
	f, err := os.Open(cl.ds)
	if err != nil {
		exit.Log(err)
	}
	defer f.Close()
	gs, err := obsio.ReadStates(f)
	if err != nil {
		exit.Log(err)
	}
	if len(gs) == 0 {
		exit.Log("no states in " + cl.ds)
	}
	return gs
}

func openEphemeris(s *settings) ephem.Provider {
	arg := s.vsop87
	if s.ephem == "table" {
		if s.ephemFile == "" {
			exit.Log("ephem table requires an ephemfile keyword")
		}
		arg = s.ephemFile
	}
	p, err := ephem.New(s.ephem, arg)
	if err != nil {
		if s.ephem == "vsop87" {
			log.Println(err)
			exit.Log(`Set the VSOP87 environment variable or the vsop87 keyword,
or use "ephem approx" for a low precision Earth.`)
		}
		exit.Log(err)
	}
	return p
}

func readArcs(cl *commandLine, s *settings, gs []obsio.Guess) []*obsio.Arc {
	var b []byte
	var err error
	if cl.fnObs == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(cl.fnObs)
	}
	if err != nil {
		exit.Log(err)
	}
	format := cl.format
	if format == obsio.Auto {
		format = obsio.Detect(b)
	}
	var arcs []*obsio.Arc
	var rep *obsio.Report
	if format == obsio.MPC {
		arcs, rep, err = obsio.ReadMPC(bytes.NewReader(b), readOcd(cl), &s.read)
	} else {
		var a *obsio.Arc
		desig := singleDesig(cl.fnObs, gs)
		if format == obsio.Horizons {
			a, rep, err = obsio.ReadHorizons(bytes.NewReader(b), desig, &s.read)
		} else {
			a, rep, err = obsio.ReadSimple(bytes.NewReader(b), desig, &s.read)
		}
		if a != nil {
			arcs = []*obsio.Arc{a}
		}
	}
	if err != nil {
		exit.Log(err)
	}
	for _, le := range rep.Skipped {
		log.Println("skipped", le)
	}
	return arcs
}

// singleDesig names the object of a single object file: the designation
// of a lone initial state, else the file name.
func singleDesig(fn string, gs []obsio.Guess) string {
	if len(gs) == 1 && gs[0].Desig != "" && gs[0].Desig != "-" {
		return gs[0].Desig
	}
	if fn == "-" {
		return "stdin"
	}
	return strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
}

func readOcd(cl *commandLine) observation.ParallaxMap {
	ocdMap, err := obsio.ReadObscodes(cl.fixupCP(cl.do, "diffcor.obscodes"))
	if err != nil {
		exit.Log(err)
	}
	return ocdMap
}
