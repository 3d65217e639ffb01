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
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"

	"github.com/radarmodel/sarmosaic"
)

func TestProj4(t *testing.T) {
	tests := []struct {
		epsg int
		want string
	}{
		{4326, "+proj=longlat +datum=WGS84 +no_defs"},
		{32611, "+proj=utm +zone=11 +datum=WGS84 +units=m +no_defs"},
		{32660, "+proj=utm +zone=60 +datum=WGS84 +units=m +no_defs"},
		{32722, "+proj=utm +zone=22 +south +datum=WGS84 +units=m +no_defs"},
	}
	for _, test := range tests {
		have, err := Proj4(test.epsg)
		if err != nil {
			t.Errorf("Proj4(%d): %v", test.epsg, err)
			continue
		}
		if have != test.want {
			t.Errorf("Proj4(%d) = %q, want %q", test.epsg, have, test.want)
		}
	}
	for _, epsg := range []int{0, 3413, 32600, 32661, 32700} {
		if _, err := Proj4(epsg); err == nil {
			t.Errorf("Proj4(%d) should fail", epsg)
		}
	}
}

// TestTransformsRoundTrip checks that the forward and inverse
// transformers between two adjacent UTM zones invert each other.
func TestTransformsRoundTrip(t *testing.T) {
	fwd, inv, err := transforms(32611, 32612)
	if err != nil {
		t.Fatal(err)
	}
	// A point near the zone 11 / zone 12 boundary.
	x0, y0 := 700000.0, 3900000.0
	x1, y1, err := fwd(x0, y0)
	if err != nil {
		t.Fatal(err)
	}
	x2, y2, err := inv(x1, y1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x2-x0) > 1 || math.Abs(y2-y0) > 1 {
		t.Errorf("round trip (%v,%v) -> (%v,%v), drift > 1 m", x0, y0, x2, y2)
	}
}

func TestFootprintContainsCorners(t *testing.T) {
	h := sarmosaic.RasterHandle{Path: "a.tif", EPSG: 32611,
		GT: sarmosaic.Geotransform{600000, 30, 0, 3900000, 0, -30}, W: 100, H: 100}
	fwd, _, err := transforms(32611, 32612)
	if err != nil {
		t.Fatal(err)
	}
	b, err := footprint(h, fwd)
	if err != nil {
		t.Fatal(err)
	}
	src := h.Bounds()
	for _, p := range [][2]float64{
		{src.Min.X, src.Min.Y}, {src.Min.X, src.Max.Y},
		{src.Max.X, src.Min.Y}, {src.Max.X, src.Max.Y},
	} {
		x, y, err := fwd(p[0], p[1])
		if err != nil {
			t.Fatal(err)
		}
		if x < b.Min.X || x > b.Max.X || y < b.Min.Y || y > b.Max.Y {
			t.Errorf("transformed corner (%v,%v) outside footprint %+v", x, y, b)
		}
	}
}

func TestMemBandSample(t *testing.T) {
	b := &memBand{
		data: []float32{1, 2, 3, 4},
		gt:   sarmosaic.Geotransform{600, 30, 0, 3900, 0, -30},
		w:    2, h: 2,
	}
	tests := []struct {
		x, y float64
		want float32
	}{
		{615, 3885, 1}, // center of (0,0)
		{645, 3885, 2},
		{615, 3855, 3},
		{659.9, 3830.1, 4}, // anywhere inside the cell
		{599, 3885, 255},   // west of the raster
		{615, 3901, 255},   // north of the raster
		{700, 3885, 255},   // east of the raster
	}
	for _, test := range tests {
		if have := b.sample(test.x, test.y, 255); have != test.want {
			t.Errorf("sample(%v, %v) = %v, want %v", test.x, test.y, have, test.want)
		}
	}
}

// TestReprojectTallRaster warps a raster whose height is not a
// multiple of the output row block, so the write loop ends in a merged
// range longer than the block. It needs a GDAL installation with the
// GTiff driver.
func TestReprojectTallRaster(t *testing.T) {
	godal.RegisterAll()
	dir := t.TempDir()

	const rows, cols = 600, 4
	path := filepath.Join(dir, "t1_HH.tif")
	gt := sarmosaic.Geotransform{600000, 30, 0, 3900000, 0, -30}
	ds, err := createRaster(path, cols, rows, gt, 32611, 255)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = 7
	}
	if err := ds.Bands()[0].Write(0, 0, data, cols, rows); err != nil {
		t.Fatal(err)
	}
	if err := ds.Close(); err != nil {
		t.Fatal(err)
	}

	in := sarmosaic.RasterHandle{Path: path, EPSG: 32611, GT: gt, W: cols, H: rows}
	out, err := Reproject(in, 32612, 255, dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.EPSG != 32612 || out.Path != path {
		t.Fatalf("unexpected handle %+v", out)
	}
	if out.H < rows {
		t.Errorf("warped height %d, want at least %d", out.H, rows)
	}

	rds, err := godal.Open(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer rds.Close()
	st := rds.Structure()
	if st.SizeX != out.W || st.SizeY != out.H {
		t.Fatalf("dimensions (%d,%d), handle says (%d,%d)", st.SizeX, st.SizeY, out.W, out.H)
	}
	buf := make([]float32, out.W*out.H)
	if err := rds.Bands()[0].Read(0, 0, buf, out.W, out.H); err != nil {
		t.Fatal(err)
	}
	covered := 0
	for _, v := range buf {
		if v == 7 {
			covered++
		}
	}
	if covered == 0 {
		t.Error("no source samples survived the warp")
	}
}
