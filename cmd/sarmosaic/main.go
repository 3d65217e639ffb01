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

// Command sarmosaic is the command-line interface for the radar
// backscatter mosaicking pipeline.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/radarmodel/sarmosaic"
	"github.com/radarmodel/sarmosaic/mosaicutil"
)

func main() {
	if err := mosaicutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, sarmosaic.ErrInputNotFound):
			os.Exit(2)
		case errors.Is(err, sarmosaic.ErrSchemaInconsistency):
			os.Exit(3)
		}
		os.Exit(1)
	}
}
