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

package starutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// checkInputFile makes sure the named input file is specified and
// exists, expanding any environment variables.
func checkInputFile(f, name string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("star: the --%s flag is required", name)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return "", fmt.Errorf("star: %s file: %v", name, err)
	}
	return f, nil
}

// checkInputDir makes sure the input directory is specified and is a
// directory, expanding any environment variables.
func checkInputDir(d string) (string, error) {
	if d == "" {
		return "", fmt.Errorf("star: an input directory must be specified")
	}
	d = os.ExpandEnv(d)
	info, err := os.Stat(d)
	if err != nil {
		return "", fmt.Errorf("star: input directory: %v", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("star: %s is not a directory", d)
	}
	return d, nil
}

// checkOutputDir makes sure the output directory is specified,
// expanding any environment variables and creating it as needed.
func checkOutputDir(d string) (string, error) {
	if d == "" {
		return "", fmt.Errorf("star: an output directory must be specified")
	}
	d = os.ExpandEnv(d)
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", fmt.Errorf("star: output directory: %v", err)
	}
	return d, nil
}

// checkOutputFile makes sure the output file is specified and its
// directory exists, expanding any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("star: an output file must be specified")
	}
	f = os.ExpandEnv(f)
	if dir := filepath.Dir(f); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("star: output file directory: %v", err)
		}
	}
	return f, nil
}

// checkWorkers applies the worker-count default: half the available
// CPUs, and never less than one.
func checkWorkers(workers int) int {
	if workers < 1 {
		workers = runtime.NumCPU() / 2
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
