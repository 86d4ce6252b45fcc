/*
Copyright © 2024 the STAR authors.
This file is part of STAR.

STAR is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

STAR is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with STAR.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command star is a command-line interface for STAR threat
// decomposition and aggregation.
package main

import (
	"fmt"
	"os"

	"github.com/quantifyearth/STAR/starutil"
)

func main() {
	if err := starutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
