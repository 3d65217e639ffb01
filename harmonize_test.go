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
	"errors"
	"testing"
)

func countingMajority(codes []int) int {
	counts := map[int]int{}
	best, bestN := 0, 0
	for _, c := range codes {
		counts[c]++
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

func TestHarmonize(t *testing.T) {
	odd := RasterHandle{Path: "c.tif", EPSG: 32612,
		GT: Geotransform{840, 30, 0, 3900, 0, -30}, W: 4, H: 4}
	groups := map[string][]RasterHandle{
		"HH": {handleA, handleB, odd},
	}

	var reprojected []string
	reproject := func(in RasterHandle, dstEPSG int, nodata float64, scratch string) (RasterHandle, error) {
		reprojected = append(reprojected, in.Path)
		if nodata != ReprojectNoData {
			t.Errorf("nodata %v, want %v", nodata, ReprojectNoData)
		}
		out := in
		out.EPSG = dstEPSG
		return out, nil
	}

	grid := NewGeogrid()
	major, err := Harmonize(groups, []int{32611, 32611, 32612},
		countingMajority, reproject, grid, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if major != 32611 {
		t.Errorf("majority %d, want 32611", major)
	}
	if len(reprojected) != 1 || reprojected[0] != "c.tif" {
		t.Errorf("reprojected %v, want only c.tif", reprojected)
	}
	if groups["HH"][2].EPSG != 32611 {
		t.Errorf("group handle not updated: %+v", groups["HH"][2])
	}
	if grid.EPSG() != 32611 {
		t.Errorf("grid EPSG %d, want 32611", grid.EPSG())
	}
	// The grid covers all three rasters.
	b := grid.Bounds()
	if b.Min.X != 600 || b.Max.X != 960 {
		t.Errorf("grid bounds %+v, want x [600,960]", b)
	}
}

func TestHarmonizeConforming(t *testing.T) {
	groups := map[string][]RasterHandle{"HH": {handleA, handleB}}
	reproject := func(in RasterHandle, dstEPSG int, nodata float64, scratch string) (RasterHandle, error) {
		t.Errorf("reprojection invoked for conforming raster %s", in.Path)
		return in, nil
	}
	grid := NewGeogrid()
	if _, err := Harmonize(groups, []int{32611, 32611},
		countingMajority, reproject, grid, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if w, h := grid.Shape(); w != 8 || h != 4 {
		t.Errorf("grid shape (%d,%d), want (8,4)", w, h)
	}
}

func TestHarmonizeReprojectFailure(t *testing.T) {
	odd := handleA
	odd.EPSG = 32613
	groups := map[string][]RasterHandle{"HH": {odd, handleB}}
	fail := errors.New("projection engine exploded")
	reproject := func(in RasterHandle, dstEPSG int, nodata float64, scratch string) (RasterHandle, error) {
		return RasterHandle{}, fail
	}
	_, err := Harmonize(groups, []int{32613, 32611},
		countingMajority, reproject, NewGeogrid(), t.TempDir())
	if err == nil {
		t.Fatal("reprojection failure should be fatal")
	}
}
