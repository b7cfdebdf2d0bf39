// Package plot renders the viewer's figures with gonum/plot: the depth-band
// vector map on a Mercator latitude axis, with optional bathymetric contour
// and basemap, and the per-cast time series of ship and bottom variables.
package plot
