/*
Command dcserve serves orbit refinement over HTTP.

  Usage: dcserve [-c <config-dir>]

Configuration is read from dcserve.toml in the config directory, default
the current directory, and from environment variables.  Keys, with
defaults:

  addr = ":8080"         DCSERVE_ADDR
  ephem = "vsop87"       DCSERVE_EPHEM, vsop87, approx, or table
  vsop87 = ""            DCSERVE_VSOP87, VSOP87 directory
  ephemfile = ""         DCSERVE_EPHEMFILE, table for ephem table
  timeout = "30s"        DCSERVE_TIMEOUT, limit on one refinement
  maxobs = 2000          DCSERVE_MAXOBS
  maxiter = 200          DCSERVE_MAXITER

Endpoints:

  POST /api/refine    refine a state against observations
  GET  /health        liveness
  GET  /metrics       Prometheus metrics

A refine request:

  {
    "desig": "2023BU",
    "state": {"epoch": 2459969.5,
              "r": [-0.5585807, 0.7466856, 0.3255045],
              "v": [-0.0135131, -0.0095621, -0.0049967]},
    "observations": [{"epoch": 2459979.5, "ra": 2.5668, "dec": 0.7624}, ...],
    "jacobian": "stm"
  }

Epochs are Julian dates, TDB, and angles are radians.  In place of
"observations", "obs_text" may carry the contents of a simple format or
HORIZONS observer file, with UTC times, as read by diffcor.

The response has the refined state, status, residuals in arc seconds, and
ecliptic elements.  Invalid requests get status 400, refinements that fail
422, and refinements over the time limit 504.

-------------
Public domain.
*/
package main
