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
	"os"

	"github.com/airbusgeo/godal"
)

// DesignatedValue is the ceiling for backscatter samples: infinite
// samples are replaced with it and larger samples are clamped down to
// it before the raster is written.
const DesignatedValue float32 = 500

// Sanitize cleans one block of backscatter samples in place: infinite
// values become DesignatedValue, values above DesignatedValue are
// clamped to it, and exact zeros become NaN (the raster no-data
// value). Zero is treated as "no signal" rather than as a measured
// backscatter of zero; see the package documentation.
func Sanitize(block []float32) {
	for i, v := range block {
		switch {
		case math.IsInf(float64(v), 0):
			block[i] = DesignatedValue
		case v > DesignatedValue:
			block[i] = DesignatedValue
		case v == 0:
			block[i] = float32(math.NaN())
		}
	}
}

// WriteRaster streams src into a new single-band float32 GeoTIFF with
// lossless compression. The source is read in row stripes sized by
// rowBlock and written in rowBlock by colBlock windows; working memory
// is bounded by one stripe, rowBlock rows by the full raster width,
// which suits sources that read fastest in contiguous row runs. Every
// block is sanitized before it is written, and the
// metadata record is embedded as file-level tags once all blocks are
// on disk. The file is created under a temporary name and renamed to
// out only on success, so a mid-stream failure never leaves a file
// that consumers could mistake for a complete raster.
func WriteRaster(src ChannelSource, out string, gt Geotransform, epsg int,
	tags map[string]string, rowBlock, colBlock int) (RasterHandle, error) {

	rows, cols := src.Dims()
	partial := out + ".partial"

	ds, err := godal.Create(godal.GTiff, partial, 1, godal.Float32, cols, rows,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return RasterHandle{}, fmt.Errorf("sarmosaic: creating raster %s: %v", out, err)
	}
	defer os.Remove(partial) // no-op after the rename succeeds

	if err := writeBlocks(ds, src, gt, epsg, tags, rowBlock, colBlock); err != nil {
		ds.Close()
		return RasterHandle{}, err
	}
	if err := ds.Close(); err != nil {
		return RasterHandle{}, fmt.Errorf("sarmosaic: finalizing raster %s: %v", out, err)
	}
	if err := os.Rename(partial, out); err != nil {
		return RasterHandle{}, fmt.Errorf("sarmosaic: publishing raster %s: %v", out, err)
	}
	return RasterHandle{Path: out, EPSG: epsg, GT: gt, W: cols, H: rows}, nil
}

func writeBlocks(ds *godal.Dataset, src ChannelSource, gt Geotransform, epsg int,
	tags map[string]string, rowBlock, colBlock int) error {

	rows, cols := src.Dims()

	if err := ds.SetGeoTransform([6]float64(gt)); err != nil {
		return fmt.Errorf("sarmosaic: setting geotransform: %v", err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return fmt.Errorf("sarmosaic: EPSG %d: %v", epsg, err)
	}
	err = ds.SetSpatialRef(sr)
	sr.Close()
	if err != nil {
		return fmt.Errorf("sarmosaic: setting spatial reference: %v", err)
	}
	band := ds.Bands()[0]
	if err := band.SetNoData(math.NaN()); err != nil {
		return fmt.Errorf("sarmosaic: setting no-data value: %v", err)
	}

	block := make([]float32, 0, rowBlock*colBlock)
	rowRanges := Blocks(rows, rowBlock)
	for rr, ok := rowRanges.Next(); ok; rr, ok = rowRanges.Next() {
		stripe, err := src.ReadRows(rr.Start, rr.Stop)
		if err != nil {
			return err
		}
		colRanges := Blocks(cols, colBlock)
		for cr, ok := colRanges.Next(); ok; cr, ok = colRanges.Next() {
			block = block[:0]
			for r := 0; r < rr.Len(); r++ {
				off := r*cols + cr.Start
				block = append(block, stripe[off:off+cr.Len()]...)
			}
			Sanitize(block)
			if err := band.Write(cr.Start, rr.Start, block, cr.Len(), rr.Len()); err != nil {
				return fmt.Errorf("sarmosaic: writing block at (%d,%d): %v", rr.Start, cr.Start, err)
			}
			log.Debugf("wrote block rows [%d,%d) cols [%d,%d)", rr.Start, rr.Stop, cr.Start, cr.Stop)
		}
	}

	for k, v := range tags {
		if err := ds.SetMetadata(k, v); err != nil {
			return fmt.Errorf("sarmosaic: setting tag %s: %v", k, err)
		}
	}
	return nil
}
