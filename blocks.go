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

// A Range is a half-open index interval [Start,Stop).
type Range struct {
	Start, Stop int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.Stop - r.Start }

// BlockRanges is a cursor over the block decomposition of [0,total).
// The ranges it produces cover [0,total) exactly once, in order, with
// no gaps and no overlaps. A trailing remainder shorter than the block
// size is merged into the preceding full block instead of being
// emitted undersized, so every range except possibly the first has
// length of at least the block size. The cursor can be rewound with
// Reset and reused.
type BlockRanges struct {
	total, block int
	pos          int
}

// Blocks returns a cursor over [0,total) in blocks of the given size.
// If total is smaller than block, the single range [0,total) is
// produced; if total is zero, nothing is produced. Blocks panics if
// block is not positive.
func Blocks(total, block int) *BlockRanges {
	if block <= 0 {
		panic("sarmosaic: block size must be positive")
	}
	if total < 0 {
		panic("sarmosaic: negative extent")
	}
	return &BlockRanges{total: total, block: block}
}

// Next returns the next range in the decomposition. The second return
// value is false when the extent is exhausted.
func (b *BlockRanges) Next() (Range, bool) {
	if b.pos >= b.total {
		return Range{}, false
	}
	start := b.pos
	stop := start + b.block
	if b.total-stop < b.block {
		// The remainder after this block would be a partial
		// block (or nothing); absorb it.
		stop = b.total
	}
	b.pos = stop
	return Range{Start: start, Stop: stop}, true
}

// Reset rewinds the cursor to the beginning of the extent.
func (b *BlockRanges) Reset() { b.pos = 0 }
