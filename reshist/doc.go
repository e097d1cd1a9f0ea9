/*
Command reshist summarizes residuals written by diffcor.

  Usage: reshist [options] <residual-file>
    -c="both": coordinate: ra, dec, or both
    -n=12: number of bins
    -v=false: display version and copyright
    -w=0.5: bin width, arc seconds

The residual file is the one written with the diffcor -r option.  It lists,
for each observation, residuals in RA and Dec for the initial state and for
the refined state.  Reshist prints mean, standard deviation, rms, and
largest residual for both, then a histogram.

Bins are centered on zero, with an open bin at each end collecting
everything beyond the range covered.  The histogram of final residuals is
drawn as a bar chart.  Initial residuals of a poor guess will mostly fall
in the open bins.

Example:

  diffcor -s bu.state -r bu.res bu.obs
  reshist -w .25 bu.res

RA residuals are in arc seconds of RA, not multiplied by cos(Dec).

-------------
Public domain.
*/
package main
