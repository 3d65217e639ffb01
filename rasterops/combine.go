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

package rasterops

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/radarmodel/sarmosaic"
)

// combineRowBlock bounds per-input read memory during combination.
const combineRowBlock = 512

// Combine merges the given single-band rasters into one mosaic at
// output covering grid, using the requested combination mode. All
// inputs must already share grid's coordinate system and pixel
// spacing (the harmonizer guarantees both). nlooks optionally names
// per-pixel observation-count rasters parallel to inputs, used as
// weights in average mode; it may be nil. The accumulation planes for
// the full output grid are held in memory; the inputs are streamed in
// row blocks. The mosaic is written through a temporary name and
// renamed only on success.
func Combine(ctx context.Context, inputs []sarmosaic.RasterHandle, nlooks []string,
	output string, mode sarmosaic.Mode, grid *sarmosaic.Geogrid, scratch string) error {

	if len(inputs) == 0 {
		return fmt.Errorf("rasterops: combine: no input rasters")
	}
	if grid.Empty() {
		return fmt.Errorf("rasterops: combine: empty geogrid")
	}
	w, h := grid.Shape()
	gt := grid.Geotransform()

	dx, dy := gt.PixelSize()
	acc := newAccumulator(mode, h, w)
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rasterops: combine: %v", err)
		}
		// Placement below is integer pixel arithmetic, which is
		// only meaningful when the input shares the grid spacing.
		if idx, idy := in.GT.PixelSize(); math.Abs(idx-dx) > 1e-9 || math.Abs(idy-dy) > 1e-9 {
			return fmt.Errorf("rasterops: combine: %s pixel spacing (%g, %g) differs from the output grid (%g, %g)",
				in.Path, idx, idy, dx, dy)
		}
		var weights string
		if nlooks != nil && i < len(nlooks) {
			weights = nlooks[i]
		}
		if err := accumulateInput(acc, in, weights, gt); err != nil {
			return err
		}
	}
	mosaic := acc.finalize()

	return writeMosaic(output, mosaic, w, h, gt, grid.EPSG())
}

// An accumulator folds samples from successive rasters into the
// output grid according to one combination mode.
type accumulator struct {
	mode sarmosaic.Mode
	// sum holds accumulated values (average) or selected values
	// (first, burst_center); cnt holds accumulated weights or a
	// selection marker.
	sum, cnt *sparse.DenseArray
	// best holds the squared distance to the contributing
	// raster's center, for burst_center selection.
	best []float64
	// center of the raster currently being folded in.
	cx, cy float64
}

func newAccumulator(mode sarmosaic.Mode, h, w int) *accumulator {
	a := &accumulator{
		mode: mode,
		sum:  sparse.ZerosDense(h, w),
		cnt:  sparse.ZerosDense(h, w),
	}
	if mode == sarmosaic.ModeBurstCenter {
		a.best = make([]float64, h*w)
		for i := range a.best {
			a.best[i] = math.Inf(1)
		}
	}
	return a
}

// add folds one sample at flat grid index idx with georeferenced
// pixel center (x, y).
func (a *accumulator) add(idx int, v float64, weight float64, x, y float64) {
	switch a.mode {
	case sarmosaic.ModeAverage:
		a.sum.Elements[idx] += v * weight
		a.cnt.Elements[idx] += weight
	case sarmosaic.ModeFirst:
		if a.cnt.Elements[idx] == 0 {
			a.sum.Elements[idx] = v
			a.cnt.Elements[idx] = 1
		}
	case sarmosaic.ModeBurstCenter:
		d := (x-a.cx)*(x-a.cx) + (y-a.cy)*(y-a.cy)
		if d < a.best[idx] {
			a.best[idx] = d
			a.sum.Elements[idx] = v
			a.cnt.Elements[idx] = 1
		}
	}
}

// finalize produces the output plane; cells no raster contributed to
// become NaN.
func (a *accumulator) finalize() []float64 {
	if a.mode == sarmosaic.ModeAverage {
		// 0/0 yields the NaN no-data value for untouched cells.
		floats.Div(a.sum.Elements, a.cnt.Elements)
		return a.sum.Elements
	}
	for i, n := range a.cnt.Elements {
		if n == 0 {
			a.sum.Elements[i] = math.NaN()
		}
	}
	return a.sum.Elements
}

func accumulateInput(acc *accumulator, in sarmosaic.RasterHandle, weights string, gt sarmosaic.Geotransform) error {
	ds, err := godal.Open(in.Path)
	if err != nil {
		return fmt.Errorf("rasterops: opening %s: %v", in.Path, err)
	}
	defer ds.Close()
	var wds *godal.Dataset
	if weights != "" {
		if wds, err = godal.Open(weights); err != nil {
			return fmt.Errorf("rasterops: opening weights %s: %v", weights, err)
		}
		defer wds.Close()
	}

	band := ds.Bands()[0]
	nodata, hasNodata := band.NoData()

	// Placement of this raster within the output grid.
	dx, dy := gt.PixelSize()
	colOff := int(math.Round((in.GT[0] - gt[0]) / dx))
	rowOff := int(math.Round((in.GT[3] - gt[3]) / dy))

	gh, gw := acc.sum.Shape[0], acc.sum.Shape[1]
	c := in.Center()
	acc.cx, acc.cy = c.X, c.Y

	var buf, wbuf []float32
	rows := sarmosaic.Blocks(in.H, combineRowBlock)
	for rr, ok := rows.Next(); ok; rr, ok = rows.Next() {
		buf = growBlock(buf, rr.Len()*in.W)
		if err := band.Read(0, rr.Start, buf, in.W, rr.Len()); err != nil {
			return fmt.Errorf("rasterops: reading %s rows [%d,%d): %v", in.Path, rr.Start, rr.Stop, err)
		}
		if wds != nil {
			wbuf = growBlock(wbuf, rr.Len()*in.W)
			if err := wds.Bands()[0].Read(0, rr.Start, wbuf, in.W, rr.Len()); err != nil {
				return fmt.Errorf("rasterops: reading weights %s: %v", weights, err)
			}
		}
		for r := 0; r < rr.Len(); r++ {
			gr := rowOff + rr.Start + r
			if gr < 0 || gr >= gh {
				continue
			}
			y := gt[3] + (float64(gr)+0.5)*gt[5]
			for cI := 0; cI < in.W; cI++ {
				gc := colOff + cI
				if gc < 0 || gc >= gw {
					continue
				}
				v := float64(buf[r*in.W+cI])
				if math.IsNaN(v) || (hasNodata && v == nodata) {
					continue
				}
				weight := 1.0
				if wds != nil {
					weight = float64(wbuf[r*in.W+cI])
				}
				x := gt[0] + (float64(gc)+0.5)*gt[1]
				acc.add(gr*gw+gc, v, weight, x, y)
			}
		}
	}
	return nil
}

// growBlock returns b resized to n samples. The block decomposition
// merges a trailing remainder into the last range, so the final range
// can be up to one sample short of twice the block size; reallocate
// when the current capacity cannot hold it.
func growBlock(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}

func writeMosaic(output string, plane []float64, w, h int, gt sarmosaic.Geotransform, epsg int) error {
	tmp := output + ".partial"
	ds, err := createRaster(tmp, w, h, gt, epsg, math.NaN())
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	band := ds.Bands()[0]
	var buf []float32
	rows := sarmosaic.Blocks(h, combineRowBlock)
	for rr, ok := rows.Next(); ok; rr, ok = rows.Next() {
		buf = growBlock(buf, rr.Len()*w)
		for i := range buf {
			buf[i] = float32(plane[rr.Start*w+i])
		}
		if err := band.Write(0, rr.Start, buf, w, rr.Len()); err != nil {
			ds.Close()
			return fmt.Errorf("rasterops: writing %s: %v", tmp, err)
		}
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("rasterops: finalizing %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, output); err != nil {
		return fmt.Errorf("rasterops: publishing %s: %v", output, err)
	}
	return nil
}
