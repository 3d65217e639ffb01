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

// Package rasterops implements the numerical collaborators of the
// mosaicking pipeline: majority selection over coordinate system
// codes, raster reprojection, and the pixel combination strategies.
package rasterops

// Majority returns the most frequent code. Ties are broken toward the
// smallest code so the choice is deterministic. Majority returns zero
// for an empty list.
func Majority(codes []int) int {
	counts := make(map[int]int, len(codes))
	for _, c := range codes {
		counts[c]++
	}
	best, bestN := 0, 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best
}
