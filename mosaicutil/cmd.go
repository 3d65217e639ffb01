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

// Package mosaicutil wires the mosaicking pipeline to its
// configuration surface and command-line interface.
package mosaicutil

import (
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/radarmodel/sarmosaic"
	"github.com/radarmodel/sarmosaic/rasterops"
)

// Root is the base command.
var Root = &cobra.Command{
	Use:   "sarmosaic",
	Short: "sarmosaic mosaics radar backscatter products.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
		if err != nil {
			return fmt.Errorf("mosaicutil: %v", err)
		}
		logrus.SetLevel(level)
		return nil
	},
	SilenceUsage: true,
}

var mosaicCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Mosaic input RTC products into per-channel output rasters.",
	Long: `mosaic merges the configured input RTC product archives into one
output raster per polarization channel, plus a layover/shadow mask
mosaic when at least one input carries the mask.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		godal.RegisterAll()
		m, inputs, err := newMosaicker()
		if err != nil {
			return err
		}
		return m.Run(cmd.Context(), inputs)
	},
}

func init() {
	Root.AddCommand(mosaicCmd)
	initOptions()
}

// newMosaicker builds the pipeline from the configuration surface,
// wiring the production collaborators.
func newMosaicker() (*sarmosaic.Mosaicker, []string, error) {
	inputs := expandStringSlice(Cfg.GetStringSlice("InputFiles"))
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("mosaicutil: no input files specified; set InputFiles")
	}
	mode, err := sarmosaic.ParseMode(Cfg.GetString("MosaicMode"))
	if err != nil {
		return nil, nil, err
	}
	m := &sarmosaic.Mosaicker{
		Reader:       sarmosaic.NewArchiveReader(),
		OutputDir:    os.ExpandEnv(Cfg.GetString("OutputDir")),
		ScratchDir:   os.ExpandEnv(Cfg.GetString("ScratchDir")),
		Mode:         mode,
		Prefix:       Cfg.GetString("MosaicPrefix"),
		RowBlockSize: Cfg.GetInt("RowBlockSize"),
		ColBlockSize: Cfg.GetInt("ColBlockSize"),
		Workers:      Cfg.GetInt("Workers"),
		InputTimeout: Cfg.GetDuration("InputTimeout"),
		Majority:     rasterops.Majority,
		Reproject:    rasterops.Reproject,
		Combine:      rasterops.Combine,
	}
	return m, inputs, nil
}
