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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/spf13/cast"
)

// Faults that abort a mosaicking batch before any output is written.
var (
	// ErrInputNotFound indicates that an input product path does
	// not exist.
	ErrInputNotFound = errors.New("sarmosaic: input product not found")
	// ErrSchemaInconsistency indicates that the polarization sets
	// of the input products in one batch differ.
	ErrSchemaInconsistency = errors.New("sarmosaic: inconsistent polarizations among input products")
)

// Resource locations within an RTC product archive.
const (
	gridGroup = "science/LSAR/GCOV/grids/frequencyA"
	idGroup   = "science/LSAR/identification"
	metaGroup = "science/LSAR/GCOV/metadata"

	polListDataset = gridGroup + "/listOfPolarizations"
	xCoordDataset  = gridGroup + "/xCoordinates"
	yCoordDataset  = gridGroup + "/yCoordinates"
	xSpacingAttr   = gridGroup + "/xCoordinateSpacing"
	ySpacingAttr   = gridGroup + "/yCoordinateSpacing"
	projectionAttr = gridGroup + "/projection"
	layoverDataset = gridGroup + "/layoverShadowMask"
)

// metadataAttrs maps output raster tag names to the archive locations
// of the identification and processing metadata they come from.
var metadataAttrs = map[string]string{
	"ORBIT_PASS_DIRECTION":    idGroup + "/orbitPassDirection",
	"LOOK_DIRECTION":          idGroup + "/lookDirection",
	"PRODUCT_VERSION":         idGroup + "/productVersion",
	"ZERO_DOPPLER_START_TIME": idGroup + "/zeroDopplerStartTime",
	"ZERO_DOPPLER_END_TIME":   idGroup + "/zeroDopplerEndTime",
	"FRAME_NUMBER":            idGroup + "/frameNumber",
	"TRACK_NUMBER":            idGroup + "/trackNumber",
	"ABSOLUTE_ORBIT_NUMBER":   idGroup + "/absoluteOrbitNumber",
	"INPUT_L1_SLC_GRANULES":   metaGroup + "/processingInformation/inputs/l1SlcGranules",
}

// An InputProduct describes one radar backscatter product archive. It
// is read once and not modified afterwards.
type InputProduct struct {
	Path string
	// Stem is the file name identifier used to derive scratch
	// file names.
	Stem string
	// Polarizations holds the sorted polarization codes present
	// in the archive.
	Polarizations []string
	// Channels maps each polarization code to its dataset
	// location within the archive.
	Channels map[string]string
	// HasLayover reports whether the archive carries a
	// layover/shadow mask dataset.
	HasLayover bool
	EPSG       int
	GT         Geotransform
	W, H       int
	// Metadata holds the identification and processing metadata
	// as upper-cased raster tags.
	Metadata map[string]string
}

// A ChannelSource provides streaming row-stripe access to one
// two-dimensional dataset of an input product.
type ChannelSource interface {
	// Dims returns the dataset dimensions as (rows, columns).
	Dims() (rows, cols int)
	// ReadRows reads rows [start,stop) as a row-major float32
	// slice of (stop-start)*cols samples.
	ReadRows(start, stop int) ([]float32, error)
	Close() error
}

// A ProductReader resolves input product archives. There is one
// production implementation (ArchiveReader); tests substitute a
// double.
type ProductReader interface {
	// Polarizations returns the common sorted polarization set of
	// the given products, failing if any product is missing or if
	// the sets differ between products.
	Polarizations(paths []string) ([]string, error)
	// ReadProduct resolves the georeferencing, channel locations
	// and metadata of one product. It has no side effects.
	ReadProduct(path string) (*InputProduct, error)
	// OpenChannel opens one dataset of a product for streaming
	// reads.
	OpenChannel(path, dataset string) (ChannelSource, error)
}

// LayoverDataset returns the location of the layover/shadow mask
// dataset within a product archive.
func LayoverDataset() string { return layoverDataset }

// An ArchiveReader reads RTC product archives.
type ArchiveReader struct{}

// NewArchiveReader returns a reader for RTC product archives.
func NewArchiveReader() *ArchiveReader { return &ArchiveReader{} }

// Polarizations implements ProductReader.
func (r *ArchiveReader) Polarizations(paths []string) ([]string, error) {
	var common []string
	var first string
	for _, p := range paths {
		pols, err := r.readPolarizations(p)
		if err != nil {
			return nil, err
		}
		if common == nil {
			common, first = pols, p
			continue
		}
		if strings.Join(pols, ",") != strings.Join(common, ",") {
			return nil, fmt.Errorf("%w: %s has %v, %s has %v",
				ErrSchemaInconsistency, first, common, p, pols)
		}
	}
	return common, nil
}

func (r *ArchiveReader) readPolarizations(path string) ([]string, error) {
	f, cf, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dims := cf.Header.Lengths(polListDataset)
	if len(dims) != 2 {
		return nil, fmt.Errorf("sarmosaic: %s: missing polarization list %s", path, polListDataset)
	}
	n, w := dims[0], dims[1]
	rd := cf.Reader(polListDataset, nil, nil)
	buf := rd.Zero(n * w)
	if _, err := rd.Read(buf); err != nil {
		return nil, fmt.Errorf("sarmosaic: %s: reading polarization list: %v", path, err)
	}
	chars, ok := buf.([]byte)
	if !ok {
		return nil, fmt.Errorf("sarmosaic: %s: polarization list is not a character array", path)
	}
	pols := make([]string, n)
	for i := 0; i < n; i++ {
		pols[i] = strings.TrimRight(string(chars[i*w:(i+1)*w]), "\x00 ")
	}
	sort.Strings(pols)
	return pols, nil
}

// ReadProduct implements ProductReader.
func (r *ArchiveReader) ReadProduct(path string) (*InputProduct, error) {
	pols, err := r.readPolarizations(path)
	if err != nil {
		return nil, err
	}
	f, cf, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gt, nx, ny, epsg, err := readGeodata(cf, path)
	if err != nil {
		return nil, err
	}
	meta, err := readMetadata(cf, path)
	if err != nil {
		return nil, err
	}

	channels := make(map[string]string, len(pols))
	for _, pol := range pols {
		// Channel datasets are keyed by the doubled
		// polarization code (HH -> HHHH).
		name := gridGroup + "/" + pol + pol
		if len(cf.Header.Lengths(name)) != 2 {
			return nil, fmt.Errorf("sarmosaic: %s: missing channel dataset %s", path, name)
		}
		channels[pol] = name
	}

	return &InputProduct{
		Path:          path,
		Stem:          productStem(path),
		Polarizations: pols,
		Channels:      channels,
		HasLayover:    len(cf.Header.Lengths(layoverDataset)) == 2,
		EPSG:          epsg,
		GT:            gt,
		W:             nx,
		H:             ny,
		Metadata:      meta,
	}, nil
}

// OpenChannel implements ProductReader.
func (r *ArchiveReader) OpenChannel(path, dataset string) (ChannelSource, error) {
	f, cf, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	dims := cf.Header.Lengths(dataset)
	if len(dims) != 2 {
		f.Close()
		return nil, fmt.Errorf("sarmosaic: %s: no such dataset %s", path, dataset)
	}
	return &archiveChannel{f: f, cf: cf, name: dataset, rows: dims[0], cols: dims[1]}, nil
}

type archiveChannel struct {
	f          *os.File
	cf         *cdf.File
	name       string
	rows, cols int
}

func (c *archiveChannel) Dims() (int, int) { return c.rows, c.cols }

func (c *archiveChannel) ReadRows(start, stop int) ([]float32, error) {
	if start < 0 || stop > c.rows || start >= stop {
		return nil, fmt.Errorf("sarmosaic: %s: row range [%d,%d) outside [0,%d)", c.name, start, stop, c.rows)
	}
	rd := c.cf.Reader(c.name, []int{start, 0}, nil)
	n := (stop - start) * c.cols
	buf := rd.Zero(n)
	if _, err := rd.Read(buf); err != nil {
		return nil, fmt.Errorf("sarmosaic: %s: reading rows [%d,%d): %v", c.name, start, stop, err)
	}
	vals, ok := buf.([]float32)
	if !ok {
		return nil, fmt.Errorf("sarmosaic: %s: dataset is not float32", c.name)
	}
	return vals, nil
}

func (c *archiveChannel) Close() error { return c.f.Close() }

func openArchive(path string) (*os.File, *cdf.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("sarmosaic: opening %s: %v", path, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("sarmosaic: %s is not a product archive: %v", path, err)
	}
	return f, cf, nil
}

func readGeodata(cf *cdf.File, path string) (gt Geotransform, nx, ny, epsg int, err error) {
	xdims := cf.Header.Lengths(xCoordDataset)
	ydims := cf.Header.Lengths(yCoordDataset)
	if len(xdims) != 1 || len(ydims) != 1 {
		err = fmt.Errorf("sarmosaic: %s: missing coordinate datasets", path)
		return
	}
	nx, ny = xdims[0], ydims[0]

	xmin, err := readFirstFloat(cf, xCoordDataset)
	if err != nil {
		err = fmt.Errorf("sarmosaic: %s: %v", path, err)
		return
	}
	ymax, err := readFirstFloat(cf, yCoordDataset)
	if err != nil {
		err = fmt.Errorf("sarmosaic: %s: %v", path, err)
		return
	}
	xres, err := floatAttr(cf, xSpacingAttr)
	if err != nil {
		err = fmt.Errorf("sarmosaic: %s: %v", path, err)
		return
	}
	yres, err := floatAttr(cf, ySpacingAttr)
	if err != nil {
		err = fmt.Errorf("sarmosaic: %s: %v", path, err)
		return
	}
	code, err := intAttr(cf, projectionAttr)
	if err != nil {
		err = fmt.Errorf("sarmosaic: %s: %v", path, err)
		return
	}
	epsg = code

	// Coordinate vectors hold pixel centers; shift the origin by
	// half a pixel to the outer corner.
	gt = Geotransform{xmin - xres/2, xres, 0, ymax - yres/2, 0, yres}
	return
}

func readMetadata(cf *cdf.File, path string) (map[string]string, error) {
	meta := make(map[string]string, len(metadataAttrs))
	for tag, attr := range metadataAttrs {
		v := cf.Header.GetAttribute("", attr)
		if v == nil {
			return nil, fmt.Errorf("sarmosaic: %s: missing metadata %s", path, attr)
		}
		s, err := attrString(v)
		if err != nil {
			return nil, fmt.Errorf("sarmosaic: %s: metadata %s: %v", path, attr, err)
		}
		meta[tag] = s
	}
	return meta, nil
}

func attrString(v interface{}) (string, error) {
	switch vv := v.(type) {
	case string:
		return vv, nil
	case []int32:
		if len(vv) > 0 {
			return cast.ToString(vv[0]), nil
		}
	case []float64:
		if len(vv) > 0 {
			return cast.ToString(vv[0]), nil
		}
	case []float32:
		if len(vv) > 0 {
			return cast.ToString(vv[0]), nil
		}
	}
	return "", fmt.Errorf("unsupported attribute type %T", v)
}

func readFirstFloat(cf *cdf.File, dataset string) (float64, error) {
	rd := cf.Reader(dataset, nil, nil)
	buf := rd.Zero(1)
	if _, err := rd.Read(buf); err != nil {
		return 0, fmt.Errorf("reading %s: %v", dataset, err)
	}
	switch vv := buf.(type) {
	case []float64:
		return vv[0], nil
	case []float32:
		return float64(vv[0]), nil
	}
	return 0, fmt.Errorf("%s is not a float dataset", dataset)
}

func floatAttr(cf *cdf.File, attr string) (float64, error) {
	v := cf.Header.GetAttribute("", attr)
	if v == nil {
		return 0, fmt.Errorf("missing attribute %s", attr)
	}
	switch vv := v.(type) {
	case []float64:
		if len(vv) > 0 {
			return vv[0], nil
		}
	case []float32:
		if len(vv) > 0 {
			return float64(vv[0]), nil
		}
	}
	return 0, fmt.Errorf("attribute %s is not a float scalar", attr)
}

func intAttr(cf *cdf.File, attr string) (int, error) {
	v := cf.Header.GetAttribute("", attr)
	if v == nil {
		return 0, fmt.Errorf("missing attribute %s", attr)
	}
	if vv, ok := v.([]int32); ok && len(vv) > 0 {
		return int(vv[0]), nil
	}
	return 0, fmt.Errorf("attribute %s is not an integer scalar", attr)
}

// productStem extracts the file name identifier that scratch and
// output names are derived from.
func productStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "-"); i > 0 {
		base = base[:i]
	}
	return base
}
