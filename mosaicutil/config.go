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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func initOptions() {
	// Options are the configuration options available to the
	// mosaicking pipeline.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFiles",
			usage: `
              InputFiles is the list of input RTC product archives to be
              mosaicked.`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory that receives the mosaicked output
              rasters.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "ScratchDir",
			usage: `
              ScratchDir is the directory that receives intermediate
              rasters. Concurrent runs must use distinct scratch
              directories.`,
			defaultVal: "scratch",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "MosaicMode",
			usage: `
              MosaicMode selects the pixel combination strategy: average,
              first, or burst_center.`,
			defaultVal: "first",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "MosaicPrefix",
			usage: `
              MosaicPrefix is the output mosaic file name prefix.`,
			defaultVal: "mosaic",
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "RowBlockSize",
			usage: `
              RowBlockSize is the number of rows read from an input dataset
              at a time.`,
			defaultVal: 1024,
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "ColBlockSize",
			usage: `
              ColBlockSize is the number of columns written to an output
              raster at a time.`,
			defaultVal: 1024,
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers bounds how many input products are staged concurrently
              and how many channels are combined concurrently. One
              reproduces strictly sequential behavior.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "InputTimeout",
			usage: `
              InputTimeout, when positive, is the deadline for staging any
              one input product (for example "10m").`,
			defaultVal: time.Duration(0),
			flagsets:   []*pflag.FlagSet{mosaicCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the logging verbosity: debug, info, warning, or
              error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()
	for _, option := range options {
		for _, set := range option.flagsets {
			if set.Lookup(option.name) == nil {
				switch d := option.defaultVal.(type) {
				case string:
					set.StringP(option.name, option.shorthand, d, option.usage)
				case []string:
					set.StringSliceP(option.name, option.shorthand, d, option.usage)
				case int:
					set.IntP(option.name, option.shorthand, d, option.usage)
				case time.Duration:
					set.DurationP(option.name, option.shorthand, d, option.usage)
				default:
					panic(fmt.Sprintf("mosaicutil: invalid option type %T", d))
				}
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
		Cfg.SetDefault(option.name, option.defaultVal)
	}
}

// setConfig reads the configuration file specified by the config
// option, if any.
func setConfig() error {
	file := Cfg.GetString("config")
	if file == "" {
		return nil
	}
	Cfg.SetConfigFile(os.ExpandEnv(file))
	if err := Cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("mosaicutil: reading configuration file: %v", err)
	}
	return nil
}

// expandStringSlice expands the environment variables in a slice of
// strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(cast.ToString(s[i]))
	}
	return s
}
