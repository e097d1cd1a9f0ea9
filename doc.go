/*
Command diffcor refines the heliocentric orbit of a small solar system body
from astrometric observations by differential correction.

Contents

  Program overview
  Command line usage
  Configuring file locations
  File formats
  Algorithm outline


Program overview

Input is a file of observations, right ascension and declination versus
time, and a file of initial state vectors.  For each object the program
adjusts the initial state until two-body predictions match the observations
in a least squares sense.  Output is the refined state, residual statistics,
and osculating orbital elements.

Sample run, using observations of 2023 BU in the simple format described
below, and an initial state in bu.state:

  diffcor -s bu.state bu.obs

Output:

  diffcor version 1.0 Go source.
  Desig.           Epoch  Status                 Iter     RMS0      RMS   LinRMS
  2023BU   2459969.50000  converged (ftol)          9  3867.41     0.42     0.38
     r  -0.558580733411   0.746685604160   0.325504478335 AU
     v  -0.013513053441  -0.009562138901  -0.004996700279 AU/day
     rms RA 0.45"  Dec 0.39"  max 1.02"
     a 0.985712  e 0.071023  i 2.5921  node 305.5431  peri 356.2312  M 27.9102  P 357.46 d

RMS0 is the root mean square residual of the initial state, RMS that of the
refined state, both in arc seconds.  LinRMS is the rms of a uniform great
circle motion fit to the observations alone.  It is a check on the quality
of the observations that does not depend on any orbit, and is meaningful
for short arcs.

Elements are ecliptic J2000.  Angles are in degrees.


Command line usage

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

With -r, residuals of each observation, initial and final, are written to
the named file.  Objects are refined concurrently, one per processor core.
Output is in input order.


Configuring file locations

	File              Command line option
	diffcor.obscodes  -o
	diffcor.config    -c

The default location is the source directory of the diffcor package, shown
as the -p default in the usage message.  A configuration file is required
to be present if -c is used.  diffcor.obscodes is needed only for MPC format
input.  If it is missing, diffcor downloads a copy from the Minor Planet
Center.


File formats

Observation format is detected from file contents unless given with -f.

MPC format is the 80 column format documented at
http://www.minorplanetcenter.net/iau/info/OpticalObs.html.  It may contain
any number of objects, grouped by designation.  Observations of an
object need not be in time order; they are used in the order given.

Horizons format is an observer table from JPL HORIZONS.  Rows between
$$SOE and $$EOE are read.  Solar and lunar presence markers are skipped.

Simple format has one observation per line,

  2023 01 25.500000 09 48 47.360 +43 41 03.00

a UTC date with fractional day, RA in hours, minutes, seconds, and Dec in
degrees, minutes, seconds.  Lines starting with # are comments.

Observation times are UTC.  They are converted to TDB by adding tdbutc
seconds, 69.184 by default.  Observations are treated as geocentric.

Malformed lines are skipped and reported on stderr.  With the keyword
strict, the first malformed line is an error.

The state file has one state per line,

  [desig] epoch x y z vx vy vz

The epoch is a Julian date, TDB.  Position and velocity are heliocentric
equatorial J2000 in AU and AU/day.  Designations match observation
designations.  A single state with no designation, or "-", is used for any
object.

diffcor.config is a text file of keywords, one per line, some with a value.
Empty lines and lines beginning with # are ignored.  A value may be
separated from its keyword by spaces or =.

   mu <AU^3/day^2>        gravitational parameter, default the Sun
   xtol <relative>        step tolerance, default 1e-12
   ftol <relative>        cost decrease tolerance, default 1e-12
   maxiter <n>            limit on damped steps, default 200
   rmslimit <arc sec>     largest rms called converged, default 60, 0 for none
   jacobian fd|stm        finite differences or state transition matrix
   integrator dopri|rk4   adaptive Dormand-Prince or fixed step Runge-Kutta
   rk4step <days>         step for rk4, default .01
   ephem vsop87|approx|table
   vsop87 <directory>     VSOP87 files, default from the VSOP87 env variable
   ephemfile <file>       Earth table, implies ephem table
   tdbutc <seconds>
   strict
   lenient
   headings
   noheadings
   elements
   noelements
   verbose                log iterations to stderr

The default ephemeris is VSOP87.  Approx is a low precision analytic Earth,
good for testing but not for real astrometry.  Table files are written by the command ephgen,
or may be HORIZONS vector tables.


Algorithm outline

1.  Earth positions are looked up once for all observation epochs.

2.  The state is propagated to each observation epoch by numerical
integration of the two-body equations, forward and backward from the epoch
of the state.

3.  Predicted RA and Dec are computed from the geocentric position of the
object.  Residuals are predicted minus observed, with RA differences wrapped
to (-180°, 180°].

4.  The state is adjusted by Levenberg-Marquardt damped least squares.
Partial derivatives are finite differences or come from integrating the
variational equations.  Iteration stops when the step or the relative
decrease in the sum of squares falls below tolerance.

5.  A fit that stops with rms above rmslimit is reported as not converged.

-------------
Public domain.
*/
package main
