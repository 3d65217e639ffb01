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

// Package sarmosaic merges per-acquisition radar backscatter (RTC)
// products, possibly referenced to different projected coordinate
// systems, into one analysis-ready raster mosaic per polarization
// channel, plus a layover/shadow mask mosaic when at least one input
// carries the mask.
//
// The pipeline streams large arrays through bounded memory using
// block decomposition (Blocks), reconciles divergent coordinate
// systems against the majority system of the batch (Harmonize), and
// accumulates the shared output footprint (Geogrid) before a
// pluggable combination strategy produces the final mosaics.
//
// Sample sanitization replaces exact-zero backscatter with the raster
// no-data value. Zero is assumed to mean "no signal" upstream of this
// pipeline; a legitimate zero measurement would be discarded.
package sarmosaic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Logger) { log = l }

// Mode selects the pixel combination strategy used to merge
// overlapping rasters.
type Mode string

// Supported combination strategies.
const (
	ModeAverage     Mode = "average"
	ModeFirst       Mode = "first"
	ModeBurstCenter Mode = "burst_center"
)

// ParseMode validates a combination strategy name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAverage, ModeFirst, ModeBurstCenter:
		return Mode(s), nil
	}
	return "", fmt.Errorf("sarmosaic: unknown mosaic mode %q (want average, first or burst_center)", s)
}

// LayoverGroup is the handle-group key used for layover/shadow mask
// rasters.
const LayoverGroup = "layover"

// A CombineFunc merges the given single-band rasters, which all share
// one coordinate system, into a single mosaic at output covering
// grid. nlooks optionally holds per-pixel observation-count raster
// paths parallel to inputs; it may be nil.
type CombineFunc func(ctx context.Context, inputs []RasterHandle, nlooks []string,
	output string, mode Mode, grid *Geogrid, scratch string) error

// A WriteRasterFunc materializes one channel of one input product as
// an intermediate raster; see WriteRaster.
type WriteRasterFunc func(src ChannelSource, out string, gt Geotransform, epsg int,
	tags map[string]string, rowBlock, colBlock int) (RasterHandle, error)

// A Mosaicker runs the mosaicking pipeline: discover the channel set,
// stage intermediate rasters, harmonize coordinate systems, and
// combine. It is terminal on success or on the first fatal fault; no
// partial mosaics are published.
type Mosaicker struct {
	// Reader resolves input product archives.
	Reader ProductReader

	// OutputDir receives the final mosaics; ScratchDir receives
	// intermediate rasters. Concurrent runs must not share a
	// scratch directory.
	OutputDir, ScratchDir string

	// Mode is the combination strategy; Prefix is the output file
	// name prefix.
	Mode   Mode
	Prefix string

	// RowBlockSize and ColBlockSize bound per-operation memory
	// when streaming rasters.
	RowBlockSize, ColBlockSize int

	// Workers bounds the number of inputs staged concurrently and
	// the number of channels combined concurrently. Zero or one
	// reproduces strictly sequential reference behavior.
	Workers int

	// InputTimeout, if positive, is the deadline for staging any
	// one input product, so one corrupt or oversized archive
	// cannot stall the batch.
	InputTimeout time.Duration

	// Collaborators.
	Majority  MajorityFunc
	Reproject ReprojectFunc
	Combine   CombineFunc

	// writeRaster is replaceable in tests.
	writeRaster WriteRasterFunc
}

// stagedInput holds the intermediate rasters of one input product.
type stagedInput struct {
	product  *InputProduct
	channels map[string]RasterHandle
	layover  *RasterHandle
}

// Run mosaics the given input products. On any fatal fault it returns
// before publishing any output: missing inputs and inconsistent
// polarization sets abort during discovery, before any file is
// written. A layover mask missing from some or all inputs is a soft
// condition; the layover mosaic is built from the inputs that carry
// the mask and skipped entirely when none does.
func (m *Mosaicker) Run(ctx context.Context, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("sarmosaic: no input products")
	}
	if err := m.setDefaults(); err != nil {
		return err
	}

	// Discover.
	pols, err := m.Reader.Polarizations(inputs)
	if err != nil {
		return err
	}
	log.Infof("mosaicking %d products, polarizations %v", len(inputs), pols)

	// Stage.
	staged, err := m.stage(ctx, inputs)
	if err != nil {
		return err
	}

	// Group handles by channel, preserving input order.
	groups := make(map[string][]RasterHandle, len(pols)+1)
	epsgs := make([]int, len(staged))
	for i, s := range staged {
		epsgs[i] = s.product.EPSG
		for _, pol := range pols {
			groups[pol] = append(groups[pol], s.channels[pol])
		}
		if s.layover != nil {
			groups[LayoverGroup] = append(groups[LayoverGroup], *s.layover)
		}
	}
	if len(groups[LayoverGroup]) == 0 {
		log.Warn("no input product carries a layover/shadow mask; skipping layover mosaic")
		delete(groups, LayoverGroup)
	}

	// Harmonize.
	grid := NewGeogrid()
	if _, err := Harmonize(groups, epsgs, m.Majority, m.Reproject, grid, m.ScratchDir); err != nil {
		return err
	}

	// Combine.
	return m.combine(ctx, groups, grid)
}

func (m *Mosaicker) setDefaults() error {
	if m.Reader == nil {
		return fmt.Errorf("sarmosaic: no product reader configured")
	}
	if m.Combine == nil || m.Majority == nil || m.Reproject == nil {
		return fmt.Errorf("sarmosaic: missing collaborator")
	}
	if m.Mode == "" {
		m.Mode = ModeFirst
	}
	if _, err := ParseMode(string(m.Mode)); err != nil {
		return err
	}
	if m.RowBlockSize <= 0 {
		m.RowBlockSize = 1024
	}
	if m.ColBlockSize <= 0 {
		m.ColBlockSize = 1024
	}
	if m.Workers <= 0 {
		m.Workers = 1
	}
	if m.Prefix == "" {
		m.Prefix = "mosaic"
	}
	if m.writeRaster == nil {
		m.writeRaster = WriteRaster
	}
	for _, dir := range []string{m.OutputDir, m.ScratchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sarmosaic: creating directory %s: %v", dir, err)
		}
	}
	return nil
}

// stage materializes every input product x channel (plus the layover
// mask where present) as intermediate rasters, fanning out over a
// bounded worker pool. Results keep input order regardless of
// completion order.
func (m *Mosaicker) stage(ctx context.Context, inputs []string) ([]*stagedInput, error) {
	staged := make([]*stagedInput, len(inputs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, m.Workers)
	for i, path := range inputs {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			s, err := m.stageOne(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			staged[i] = s
		}(i, path)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return staged, nil
}

func (m *Mosaicker) stageOne(ctx context.Context, path string) (*stagedInput, error) {
	if m.InputTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.InputTimeout)
		defer cancel()
	}
	p, err := m.Reader.ReadProduct(path)
	if err != nil {
		return nil, err
	}
	s := &stagedInput{product: p, channels: make(map[string]RasterHandle, len(p.Polarizations))}

	for _, pol := range p.Polarizations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sarmosaic: staging %s: %v", path, err)
		}
		out := filepath.Join(m.ScratchDir, fmt.Sprintf("%s_%s.tif", p.Stem, pol))
		h, err := m.stageDataset(p, p.Channels[pol], out)
		if err != nil {
			return nil, err
		}
		s.channels[pol] = h
	}

	if !p.HasLayover {
		log.Warnf("%s: no layover/shadow mask dataset", path)
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sarmosaic: staging %s: %v", path, err)
	}
	out := filepath.Join(m.ScratchDir, fmt.Sprintf("%s_layover.tif", p.Stem))
	h, err := m.stageDataset(p, LayoverDataset(), out)
	if err != nil {
		return nil, err
	}
	s.layover = &h
	return s, nil
}

func (m *Mosaicker) stageDataset(p *InputProduct, dataset, out string) (RasterHandle, error) {
	src, err := m.Reader.OpenChannel(p.Path, dataset)
	if err != nil {
		return RasterHandle{}, err
	}
	defer src.Close()
	log.Infof("staging %s:%s -> %s", p.Path, dataset, out)
	return m.writeRaster(src, out, p.GT, p.EPSG, p.Metadata, m.RowBlockSize, m.ColBlockSize)
}

// combine produces one mosaic per channel group, fanning out per
// channel. Mosaics are built in the scratch directory and the complete
// set is moved into the output directory only after every channel has
// combined, so a failure in any channel leaves no published mosaics.
func (m *Mosaicker) combine(ctx context.Context, groups map[string][]RasterHandle, grid *Geogrid) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	built := make(map[string]string, len(groups))
	sem := make(chan struct{}, m.Workers)
	for name, handles := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(name string, handles []RasterHandle) {
			defer wg.Done()
			defer func() { <-sem }()
			staged := filepath.Join(m.ScratchDir, fmt.Sprintf("%s_%s.tif", m.Prefix, name))
			log.Infof("combining %d rasters into %s (%s)", len(handles), staged, m.Mode)
			err := m.Combine(ctx, handles, nil, staged, m.Mode, grid, m.ScratchDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("sarmosaic: combining channel %s: %v", name, err)
				}
				return
			}
			built[name] = staged
		}(name, handles)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	for name, staged := range built {
		out := filepath.Join(m.OutputDir, filepath.Base(staged))
		if err := os.Rename(staged, out); err != nil {
			return fmt.Errorf("sarmosaic: publishing channel %s: %v", name, err)
		}
		log.Infof("published %s", out)
	}
	return nil
}
