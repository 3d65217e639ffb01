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
	"reflect"
	"testing"
)

// Two 4x4 rasters with adjacent footprints: A covers columns 0-3 and
// B columns 4-7 of the same rows.
var (
	handleA = RasterHandle{Path: "a.tif", EPSG: 32611,
		GT: Geotransform{600, 30, 0, 3900, 0, -30}, W: 4, H: 4}
	handleB = RasterHandle{Path: "b.tif", EPSG: 32611,
		GT: Geotransform{720, 30, 0, 3900, 0, -30}, W: 4, H: 4}
)

func TestGeogridUnion(t *testing.T) {
	g := NewGeogrid()
	if !g.Empty() {
		t.Fatal("new geogrid should be empty")
	}
	for _, h := range []RasterHandle{handleA, handleB} {
		if err := g.Update(h); err != nil {
			t.Fatal(err)
		}
	}
	b := g.Bounds()
	if b.Min.X != 600 || b.Max.X != 840 || b.Min.Y != 3780 || b.Max.Y != 3900 {
		t.Errorf("bounds %+v, want x [600,840] y [3780,3900]", b)
	}
	if w, h := g.Shape(); w != 8 || h != 4 {
		t.Errorf("shape (%d,%d), want (8,4)", w, h)
	}
	want := Geotransform{600, 30, 0, 3900, 0, -30}
	if gt := g.Geotransform(); !reflect.DeepEqual(gt, want) {
		t.Errorf("geotransform %v, want %v", gt, want)
	}
	if g.EPSG() != 32611 {
		t.Errorf("EPSG %d, want 32611", g.EPSG())
	}
}

func TestGeogridIdempotent(t *testing.T) {
	g := NewGeogrid()
	if err := g.Update(handleA); err != nil {
		t.Fatal(err)
	}
	before := g.Bounds()
	if err := g.Update(handleA); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.Bounds(), before) {
		t.Errorf("re-registering the same raster changed bounds: %+v -> %+v", before, g.Bounds())
	}
}

// TestGeogridMonotonic checks that registrations only ever widen the
// accumulated bounding box.
func TestGeogridMonotonic(t *testing.T) {
	g := NewGeogrid()
	if err := g.Update(handleB); err != nil {
		t.Fatal(err)
	}
	before := g.Bounds()
	// A raster strictly inside the current box must not shrink it.
	inside := RasterHandle{Path: "c.tif", EPSG: 32611,
		GT: Geotransform{750, 30, 0, 3870, 0, -30}, W: 2, H: 2}
	if err := g.Update(inside); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.Bounds(), before) {
		t.Errorf("interior raster changed bounds: %+v -> %+v", before, g.Bounds())
	}
	if err := g.Update(handleA); err != nil {
		t.Fatal(err)
	}
	after := g.Bounds()
	if after.Min.X > before.Min.X || after.Max.X < before.Max.X ||
		after.Min.Y > before.Min.Y || after.Max.Y < before.Max.Y {
		t.Errorf("bounds shrank: %+v -> %+v", before, after)
	}
}

func TestGeogridEPSGMismatch(t *testing.T) {
	g := NewGeogrid()
	if err := g.Update(handleA); err != nil {
		t.Fatal(err)
	}
	other := handleB
	other.EPSG = 32612
	if err := g.Update(other); err == nil {
		t.Error("registering a raster in a different CRS should fail")
	}
}
