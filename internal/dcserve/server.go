// Public domain.

// Package dcserve is an HTTP service for orbit refinement.
//
// POST /api/refine takes an initial state and observations as JSON and
// returns the refined state.  GET /health reports liveness and GET
// /metrics serves Prometheus metrics.
package dcserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/diffcor/astro"
	"github.com/soniakeys/diffcor/internal/dcsolver"
	"github.com/soniakeys/diffcor/internal/ephem"
	"github.com/soniakeys/diffcor/internal/obsio"
)

// Server holds what handlers share.  Eph must be safe for concurrent use.
type Server struct {
	cfg     *Config
	eph     ephem.Provider
	logger  kitlog.Logger
	reg     *prometheus.Registry
	metrics *metrics
}

// New returns a server.  A nil logger discards log records.
func New(cfg *Config, eph ephem.Provider, logger kitlog.Logger) *Server {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	reg := prometheus.NewRegistry()
	return &Server{
		cfg:     cfg,
		eph:     eph,
		logger:  logger,
		reg:     reg,
		metrics: newMetrics(reg),
	}
}

// Router returns the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.metrics.middleware)
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
	r.POST("/api/refine", s.refine)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StateJSON is a state vector, AU and AU/day, equatorial J2000.
type StateJSON struct {
	Epoch float64    `json:"epoch"` // JD TDB
	R     [3]float64 `json:"r"`
	V     [3]float64 `json:"v"`
}

func (sj *StateJSON) state() astro.State {
	s := astro.State{Epoch: sj.Epoch}
	s.R.X, s.R.Y, s.R.Z = sj.R[0], sj.R[1], sj.R[2]
	s.V.X, s.V.Y, s.V.Z = sj.V[0], sj.V[1], sj.V[2]
	return s
}

func stateJSON(s astro.State) StateJSON {
	return StateJSON{
		Epoch: s.Epoch,
		R:     [3]float64{s.R.X, s.R.Y, s.R.Z},
		V:     [3]float64{s.V.X, s.V.Y, s.V.Z},
	}
}

// ObsJSON is an observation with angles in radians.
type ObsJSON struct {
	Epoch float64 `json:"epoch"` // JD TDB
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
}

// RefineRequest is the body of POST /api/refine.  Observations are given
// either as Observations or as ObsText, the contents of a simple format
// or HORIZONS observer file, with UTC times.
type RefineRequest struct {
	Desig        string    `json:"desig"`
	State        StateJSON `json:"state"`
	Observations []ObsJSON `json:"observations"`
	ObsText      string    `json:"obs_text"`
	Jacobian     string    `json:"jacobian"` // fd or stm, default fd
	MaxIter      int       `json:"maxiter"`
}

// RefineResponse is the result of POST /api/refine.
type RefineResponse struct {
	Desig      string    `json:"desig"`
	State      StateJSON `json:"state"`
	Status     string    `json:"status"`
	Converged  bool      `json:"converged"`
	Iterations int       `json:"iterations"`
	RMS0       float64   `json:"rms0_arcsec"`
	RMS        float64   `json:"rms_arcsec"`
	Residuals  []float64 `json:"residuals_arcsec"`
	Skipped    int       `json:"skipped_lines,omitempty"`
	Elements   *ElemJSON `json:"elements,omitempty"`
}

// ElemJSON is ecliptic J2000 elements, angles in degrees.
type ElemJSON struct {
	A      float64 `json:"a"`
	E      float64 `json:"e"`
	I      float64 `json:"i"`
	Node   float64 `json:"node"`
	ArgP   float64 `json:"argp"`
	M      float64 `json:"m"`
	Period float64 `json:"period"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) refine(c *gin.Context) {
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	guess := req.State.state()
	if !guess.Finite() || guess.Epoch == 0 {
		badRequest(c, errors.New("state missing or not finite"))
		return
	}
	obs, skipped, err := req.observations()
	if err != nil {
		badRequest(c, err)
		return
	}
	if len(obs) < 2 || len(obs) > s.cfg.MaxObs {
		badRequest(c, fmt.Errorf("%d observations, need 2 to %d", len(obs), s.cfg.MaxObs))
		return
	}
	opt := dcsolver.DefaultOptions()
	opt.MaxIter = s.cfg.MaxIter
	if req.MaxIter > 0 && req.MaxIter < opt.MaxIter {
		opt.MaxIter = req.MaxIter
	}
	if req.Jacobian != "" {
		if opt.Jacobian, err = dcsolver.ParseJacobian(req.Jacobian); err != nil {
			badRequest(c, err)
			return
		}
	}
	logger := kitlog.With(s.logger, "desig", req.Desig)
	opt.Logger = logger

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Timeout)
	defer cancel()
	res, err := dcsolver.Refine(ctx, guess, obs, s.eph, opt)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		s.metrics.refinements.WithLabelValues("error").Inc()
		logger.Log("level", "warn", "msg", "refine failed", "err", err)
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	s.metrics.refinements.WithLabelValues(res.Status.String()).Inc()
	s.metrics.iterations.Observe(float64(res.Iterations))

	out := RefineResponse{
		Desig:      req.Desig,
		State:      stateJSON(res.State),
		Status:     res.Status.String(),
		Converged:  res.Converged,
		Iterations: res.Iterations,
		RMS0:       dcsolver.RMS(res.Initial).Sec(),
		RMS:        res.RMS().Sec(),
		Residuals:  make([]float64, len(res.Residuals)),
		Skipped:    skipped,
	}
	for i, r := range res.Residuals {
		out.Residuals[i] = unit.Angle(r).Sec()
	}
	if el, err := astro.NewElements(res.State.Ecliptic(), opt.Mu); err == nil {
		out.Elements = &ElemJSON{
			A: el.A, E: el.E, I: el.I.Deg(), Node: el.Node.Deg(),
			ArgP: el.ArgP.Deg(), M: el.M.Deg(), Period: el.Period,
		}
	}
	c.JSON(http.StatusOK, out)
}

// observations returns request observations, validated, and the number
// of text lines skipped.
func (req *RefineRequest) observations() ([]astro.Observation, int, error) {
	if req.ObsText != "" {
		if len(req.Observations) > 0 {
			return nil, 0, errors.New("give observations or obs_text, not both")
		}
		read := obsio.ReadSimple
		if obsio.Detect([]byte(req.ObsText)) == obsio.Horizons {
			read = obsio.ReadHorizons
		}
		a, rep, err := read(strings.NewReader(req.ObsText), req.Desig, nil)
		if err != nil {
			return nil, 0, err
		}
		return a.Obs, len(rep.Skipped), nil
	}
	obs := make([]astro.Observation, len(req.Observations))
	for i, o := range req.Observations {
		obs[i] = astro.Observation{Epoch: o.Epoch, RA: unit.RA(o.RA), Dec: unit.Angle(o.Dec)}
		if err := obsio.Validate(obs[i]); err != nil {
			return nil, 0, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return obs, 0, nil
}
