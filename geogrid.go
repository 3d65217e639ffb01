/*
Copyright © 2026 the SARmosaic authors.
This file is part of SARmosaic.

SARmosaic is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SARmosaic is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SARmosaic.  If not, see <http://www.gnu.org/licenses/>.
*/

package sarmosaic

import (
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/geom"
)

// A Geotransform maps pixel locations in (row, column) coordinates to
// (x, y) positions in a projected coordinate system, using the
// conventional six-element affine form: x = GT[0] + col*GT[1] and
// y = GT[3] + row*GT[5]. GT[1] is positive and GT[5] negative for
// north-up rasters.
type Geotransform [6]float64

// Origin returns the (x, y) position of the outer corner of the
// top-left pixel.
func (gt Geotransform) Origin() (x, y float64) { return gt[0], gt[3] }

// PixelSize returns the x and y sample spacing. The y spacing is
// negative for north-up rasters.
func (gt Geotransform) PixelSize() (dx, dy float64) { return gt[1], gt[5] }

// A RasterHandle identifies one single-band raster on disk together
// with the georeferencing needed to place it without reopening the
// file. Handles are passed between pipeline stages instead of bare
// paths.
type RasterHandle struct {
	Path string
	EPSG int
	GT   Geotransform
	W, H int
}

// Bounds returns the georeferenced bounding box of the raster.
func (h RasterHandle) Bounds() *geom.Bounds {
	b := geom.NewBoundsPoint(geom.Point{X: h.GT[0], Y: h.GT[3]})
	b.Extend(geom.NewBoundsPoint(geom.Point{
		X: h.GT[0] + h.GT[1]*float64(h.W),
		Y: h.GT[3] + h.GT[5]*float64(h.H),
	}))
	return b
}

// Center returns the georeferenced center point of the raster.
func (h RasterHandle) Center() geom.Point {
	b := h.Bounds()
	return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// A Geogrid accumulates the footprint that a mosaic must cover. It
// starts empty and is widened by each registered raster; the covered
// bounding box never shrinks. All registered rasters must share one
// coordinate system, so registration happens after any reprojection.
// A Geogrid may be shared between goroutines.
type Geogrid struct {
	mu     sync.Mutex
	epsg   int
	bounds *geom.Bounds
	dx, dy float64
}

// NewGeogrid returns an empty Geogrid.
func NewGeogrid() *Geogrid {
	return &Geogrid{bounds: geom.NewBounds()}
}

// Update widens the grid to cover the raster described by h. The grid
// adopts the finest pixel spacing it has seen. Registering the same
// raster twice leaves the grid unchanged. Update returns an error if
// h is referenced to a different coordinate system than the grid,
// which means the caller skipped harmonization.
func (g *Geogrid) Update(h RasterHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epsg == 0 {
		g.epsg = h.EPSG
	} else if g.epsg != h.EPSG {
		return fmt.Errorf("sarmosaic: geogrid update: raster %s has EPSG %d, grid has %d",
			h.Path, h.EPSG, g.epsg)
	}
	dx, dy := h.GT.PixelSize()
	if g.dx == 0 || math.Abs(dx) < g.dx {
		g.dx = math.Abs(dx)
	}
	if g.dy == 0 || math.Abs(dy) < g.dy {
		g.dy = math.Abs(dy)
	}
	g.bounds.Extend(h.Bounds())
	return nil
}

// Empty reports whether any raster has been registered.
func (g *Geogrid) Empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bounds.Empty()
}

// EPSG returns the coordinate system code shared by the registered
// rasters, or zero for an empty grid.
func (g *Geogrid) EPSG() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epsg
}

// Bounds returns a copy of the accumulated bounding box.
func (g *Geogrid) Bounds() *geom.Bounds {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bounds.Copy()
}

// Geotransform returns the affine transform of the accumulated grid:
// the top-left corner of the bounding box at the finest registered
// pixel spacing, north-up.
func (g *Geogrid) Geotransform() Geotransform {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Geotransform{g.bounds.Min.X, g.dx, 0, g.bounds.Max.Y, 0, -g.dy}
}

// Shape returns the raster dimensions needed to cover the accumulated
// bounding box at the grid's pixel spacing, rounding partial edge
// pixels outward.
func (g *Geogrid) Shape() (w, h int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bounds.Empty() || g.dx == 0 || g.dy == 0 {
		return 0, 0
	}
	w = int(math.Ceil((g.bounds.Max.X - g.bounds.Min.X) / g.dx))
	h = int(math.Ceil((g.bounds.Max.Y - g.bounds.Min.Y) / g.dy))
	return w, h
}
