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

package mosaicutil

import (
	"reflect"
	"testing"

	"github.com/radarmodel/sarmosaic"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		name string
		want interface{}
	}{
		{"OutputDir", "."},
		{"ScratchDir", "scratch"},
		{"MosaicMode", "first"},
		{"MosaicPrefix", "mosaic"},
		{"RowBlockSize", 1024},
		{"ColBlockSize", 1024},
		{"Workers", 1},
		{"LogLevel", "info"},
	}
	for _, test := range tests {
		if have := Cfg.Get(test.name); !reflect.DeepEqual(have, test.want) {
			t.Errorf("%s default = %v (%T), want %v", test.name, have, have, test.want)
		}
	}
}

func TestNewMosaicker(t *testing.T) {
	Cfg.Set("InputFiles", []string{"a.nc", "b.nc"})
	Cfg.Set("MosaicMode", "average")
	Cfg.Set("Workers", 4)
	defer func() {
		Cfg.Set("InputFiles", []string{})
		Cfg.Set("MosaicMode", "first")
		Cfg.Set("Workers", 1)
	}()

	m, inputs, err := newMosaicker()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.nc", "b.nc"}; !reflect.DeepEqual(inputs, want) {
		t.Errorf("inputs %v, want %v", inputs, want)
	}
	if m.Mode != sarmosaic.ModeAverage {
		t.Errorf("mode %s, want average", m.Mode)
	}
	if m.Workers != 4 {
		t.Errorf("workers %d, want 4", m.Workers)
	}
	if m.Reader == nil || m.Majority == nil || m.Reproject == nil || m.Combine == nil {
		t.Error("collaborators not wired")
	}
}

func TestNewMosaickerNoInputs(t *testing.T) {
	if _, _, err := newMosaicker(); err == nil {
		t.Error("empty InputFiles should fail")
	}
}

func TestNewMosaickerBadMode(t *testing.T) {
	Cfg.Set("InputFiles", []string{"a.nc"})
	Cfg.Set("MosaicMode", "median")
	defer func() {
		Cfg.Set("InputFiles", []string{})
		Cfg.Set("MosaicMode", "first")
	}()
	if _, _, err := newMosaicker(); err == nil {
		t.Error("unknown mosaic mode should fail")
	}
}

func TestExpandStringSlice(t *testing.T) {
	t.Setenv("SARMOSAIC_TEST_DIR", "/data")
	have := expandStringSlice([]string{"${SARMOSAIC_TEST_DIR}/a.nc", "b.nc"})
	if want := []string{"/data/a.nc", "b.nc"}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}
