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
)

// ReprojectNoData is the value assigned to output pixels that the
// source raster does not cover when a raster is reprojected to the
// majority coordinate system.
const ReprojectNoData = 255

// A MajorityFunc selects the most frequent code from a list of
// coordinate system codes.
type MajorityFunc func(codes []int) int

// A ReprojectFunc reprojects the raster described by in to dstEPSG,
// replacing the file at in.Path and returning the updated handle.
// Output pixels not covered by the source receive nodata.
type ReprojectFunc func(in RasterHandle, dstEPSG int, nodata float64, scratch string) (RasterHandle, error)

// Harmonize brings every intermediate raster onto the majority
// coordinate system of the input products and widens grid with each
// raster's footprint. Rasters already referenced to the majority
// system are left untouched; the rest are reprojected in place with
// ReprojectNoData marking uncovered pixels. Grid updates always happen
// after any required reprojection, so the accumulated footprint is
// expressed in the majority system throughout. The handle groups are
// updated in place. Harmonize returns the majority code.
func Harmonize(groups map[string][]RasterHandle, epsgs []int,
	majority MajorityFunc, reproject ReprojectFunc,
	grid *Geogrid, scratch string) (int, error) {

	if majority == nil || reproject == nil {
		return 0, fmt.Errorf("sarmosaic: harmonize: missing collaborator")
	}
	major := majority(epsgs)
	log.Infof("majority coordinate system: EPSG:%d", major)

	for name, handles := range groups {
		for i, h := range handles {
			if h.EPSG != major {
				log.Infof("reprojecting %s from EPSG:%d to EPSG:%d", h.Path, h.EPSG, major)
				hh, err := reproject(h, major, ReprojectNoData, scratch)
				if err != nil {
					return 0, fmt.Errorf("sarmosaic: reprojecting %s channel %s: %v", h.Path, name, err)
				}
				handles[i] = hh
				h = hh
			}
			if err := grid.Update(h); err != nil {
				return 0, err
			}
		}
	}
	return major, nil
}
