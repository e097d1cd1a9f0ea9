/*
Command obsgen synthesizes observations of an orbit.

It propagates a state vector by two-body motion and writes predicted
geocentric RA and Dec at regular intervals, optionally with Gaussian noise,
in the simple observation format read by diffcor.  Synthetic observations
test diffcor: a noise free set should refine back to the generating state,
and with noise the final rms should approach the noise level.

Usage

   obsgen [options] <statefile>
   obsgen -v

Options:

   -desig <designation>   state to use, default the first
   -e vsop87|approx       Earth ephemeris
   -d <directory>         VSOP87 files, default from the VSOP87 variable
   -t0 <days>             first observation, days from the state epoch
   -n <count>             number of observations
   -step <days>
   -noise <arc seconds>   standard deviation, 0 for none
   -seed <n>              noise seed, 0 for time based

The state file is in the format read by diffcor -s.  Output goes to stdout.
Times written are UTC, 69.184 seconds before the TDB epochs computed.

Example:

   obsgen -n 30 -step 2 -noise .5 -seed 1 bu.state > bu.obs
   diffcor -s bu.state bu.obs

-------------
Public domain.
*/
package main
