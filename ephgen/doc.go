/*
Command ephgen writes an Earth ephemeris table for use by diffcor.

Diffcor can compute Earth positions from the VSOP87 theory directly, but
a table makes runs independent of the VSOP87 files and lets any
tabulated ephemeris, such as one from JPL HORIZONS, be substituted.

Usage

   ephgen [options]
   ephgen -v

Options:

   -e vsop87|approx       Ephemeris to tabulate.
   -d <directory>         VSOP87 files, default from the VSOP87 variable.
   -start <date>          First epoch, JD or YYYY-MM-DD.
   -end <date>            Last epoch, JD or YYYY-MM-DD.
   -step <days>
   -o <file>              Output file, - for stdout.

The table has lines

   jd x y z vx vy vz

of heliocentric equatorial J2000 position and velocity in AU and AU/day.
Velocities are central differences.  Diffcor interpolates the table with
cubic Hermite polynomials.  A one day step is ample.

Use the table with the diffcor config keyword

   ephemfile earth.tab

-------------
Public domain.
*/
package main
