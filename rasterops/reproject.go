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
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/radarmodel/sarmosaic"
)

// borderSamples is the number of points sampled along each raster
// edge when deriving the reprojected footprint; projected edges are
// curved, so corners alone under-cover.
const borderSamples = 21

// reprojectRowBlock bounds working memory on the output side of a
// warp.
const reprojectRowBlock = 512

// Proj4 returns the proj4 definition for the coordinate systems that
// RTC products are distributed in: geographic WGS84 and the WGS84 UTM
// zones.
func Proj4(epsg int) (string, error) {
	switch {
	case epsg == 4326:
		return "+proj=longlat +datum=WGS84 +no_defs", nil
	case epsg > 32600 && epsg <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", epsg-32600), nil
	case epsg > 32700 && epsg <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", epsg-32700), nil
	}
	return "", fmt.Errorf("rasterops: unsupported coordinate system EPSG:%d", epsg)
}

// transforms returns the forward (src to dst) and inverse (dst to
// src) point transformers between two coordinate systems.
func transforms(srcEPSG, dstEPSG int) (fwd, inv proj.Transformer, err error) {
	srcDef, err := Proj4(srcEPSG)
	if err != nil {
		return nil, nil, err
	}
	dstDef, err := Proj4(dstEPSG)
	if err != nil {
		return nil, nil, err
	}
	srcSR, err := proj.Parse(srcDef)
	if err != nil {
		return nil, nil, fmt.Errorf("rasterops: parsing EPSG:%d: %v", srcEPSG, err)
	}
	dstSR, err := proj.Parse(dstDef)
	if err != nil {
		return nil, nil, fmt.Errorf("rasterops: parsing EPSG:%d: %v", dstEPSG, err)
	}
	if fwd, err = srcSR.NewTransform(dstSR); err != nil {
		return nil, nil, fmt.Errorf("rasterops: EPSG:%d to EPSG:%d: %v", srcEPSG, dstEPSG, err)
	}
	if inv, err = dstSR.NewTransform(srcSR); err != nil {
		return nil, nil, fmt.Errorf("rasterops: EPSG:%d to EPSG:%d: %v", dstEPSG, srcEPSG, err)
	}
	return fwd, inv, nil
}

// footprint transforms the border of the raster described by h into
// the destination system and returns its bounding box there.
func footprint(h sarmosaic.RasterHandle, fwd proj.Transformer) (*geom.Bounds, error) {
	b := h.Bounds()
	out := geom.NewBounds()
	for i := 0; i < borderSamples; i++ {
		t := float64(i) / float64(borderSamples-1)
		edges := []geom.Point{
			{X: b.Min.X + t*(b.Max.X-b.Min.X), Y: b.Min.Y},
			{X: b.Min.X + t*(b.Max.X-b.Min.X), Y: b.Max.Y},
			{X: b.Min.X, Y: b.Min.Y + t*(b.Max.Y-b.Min.Y)},
			{X: b.Max.X, Y: b.Min.Y + t*(b.Max.Y-b.Min.Y)},
		}
		for _, p := range edges {
			x, y, err := fwd(p.X, p.Y)
			if err != nil {
				return nil, fmt.Errorf("rasterops: transforming footprint of %s: %v", h.Path, err)
			}
			out.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
		}
	}
	return out, nil
}

// Reproject warps the raster described by in onto the coordinate
// system dstEPSG, keeping the source pixel spacing. Output pixels the
// source does not cover receive nodata. The warped raster replaces
// the file at in.Path through a temporary file in scratch, and the
// updated handle is returned; on error the original file is left
// untouched. The resampling is nearest-neighbour over the inverse
// point transform, streamed in output row blocks; the source band is
// held in memory.
func Reproject(in sarmosaic.RasterHandle, dstEPSG int, nodata float64, scratch string) (sarmosaic.RasterHandle, error) {
	if in.EPSG == dstEPSG {
		return in, nil
	}
	fwd, inv, err := transforms(in.EPSG, dstEPSG)
	if err != nil {
		return sarmosaic.RasterHandle{}, err
	}
	b, err := footprint(in, fwd)
	if err != nil {
		return sarmosaic.RasterHandle{}, err
	}

	dx, dy := in.GT.PixelSize()
	dy = math.Abs(dy)
	w := int(math.Ceil((b.Max.X - b.Min.X) / dx))
	h := int(math.Ceil((b.Max.Y - b.Min.Y) / dy))
	gt := sarmosaic.Geotransform{b.Min.X, dx, 0, b.Max.Y, 0, -dy}

	src, err := readBand(in.Path)
	if err != nil {
		return sarmosaic.RasterHandle{}, err
	}

	tmp := filepath.Join(scratch, filepath.Base(in.Path)+".reproj")
	ds, err := createRaster(tmp, w, h, gt, dstEPSG, nodata)
	if err != nil {
		return sarmosaic.RasterHandle{}, err
	}
	defer os.Remove(tmp)

	band := ds.Bands()[0]
	var buf []float32
	rows := sarmosaic.Blocks(h, reprojectRowBlock)
	for rr, ok := rows.Next(); ok; rr, ok = rows.Next() {
		buf = growBlock(buf, rr.Len()*w)
		for r := 0; r < rr.Len(); r++ {
			y := gt[3] + (float64(rr.Start+r)+0.5)*gt[5]
			for c := 0; c < w; c++ {
				x := gt[0] + (float64(c)+0.5)*gt[1]
				sx, sy, err := inv(x, y)
				if err != nil {
					ds.Close()
					return sarmosaic.RasterHandle{}, fmt.Errorf("rasterops: inverse transform: %v", err)
				}
				buf[r*w+c] = src.sample(sx, sy, float32(nodata))
			}
		}
		if err := band.Write(0, rr.Start, buf, w, rr.Len()); err != nil {
			ds.Close()
			return sarmosaic.RasterHandle{}, fmt.Errorf("rasterops: writing %s: %v", tmp, err)
		}
	}
	if err := ds.Close(); err != nil {
		return sarmosaic.RasterHandle{}, fmt.Errorf("rasterops: finalizing %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, in.Path); err != nil {
		return sarmosaic.RasterHandle{}, fmt.Errorf("rasterops: replacing %s: %v", in.Path, err)
	}
	return sarmosaic.RasterHandle{Path: in.Path, EPSG: dstEPSG, GT: gt, W: w, H: h}, nil
}

// A memBand is a fully decoded single-band raster.
type memBand struct {
	data []float32
	gt   sarmosaic.Geotransform
	w, h int
}

func readBand(path string) (*memBand, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rasterops: opening %s: %v", path, err)
	}
	defer ds.Close()
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("rasterops: geotransform of %s: %v", path, err)
	}
	data := make([]float32, st.SizeX*st.SizeY)
	if err := ds.Bands()[0].Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("rasterops: reading %s: %v", path, err)
	}
	return &memBand{data: data, gt: sarmosaic.Geotransform(gt), w: st.SizeX, h: st.SizeY}, nil
}

// sample returns the nearest-neighbour value at the georeferenced
// point (x, y), or fill when the point falls outside the band.
func (b *memBand) sample(x, y float64, fill float32) float32 {
	c := int(math.Floor((x - b.gt[0]) / b.gt[1]))
	r := int(math.Floor((y - b.gt[3]) / b.gt[5]))
	if c < 0 || c >= b.w || r < 0 || r >= b.h {
		return fill
	}
	return b.data[r*b.w+c]
}

func createRaster(path string, w, h int, gt sarmosaic.Geotransform, epsg int, nodata float64) (*godal.Dataset, error) {
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, w, h,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return nil, fmt.Errorf("rasterops: creating %s: %v", path, err)
	}
	if err := ds.SetGeoTransform([6]float64(gt)); err != nil {
		ds.Close()
		return nil, fmt.Errorf("rasterops: setting geotransform of %s: %v", path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("rasterops: EPSG %d: %v", epsg, err)
	}
	err = ds.SetSpatialRef(sr)
	sr.Close()
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("rasterops: setting spatial reference of %s: %v", path, err)
	}
	if err := ds.Bands()[0].SetNoData(nodata); err != nil {
		ds.Close()
		return nil, fmt.Errorf("rasterops: setting no-data of %s: %v", path, err)
	}
	return ds, nil
}
