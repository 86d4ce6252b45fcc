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
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// scenario is the assessment scenario tasks are generated for.
// Historic ("pnv") scenarios are not part of threat attribution.
const scenario = "current"

// A Task pairs one species summary record with its area-of-habitat
// raster and the directory its threat rasters should be written to.
type Task struct {
	Species string
	Habitat string
	Output  string
}

// TaskList walks a directory of taxa folders, each holding
// {taxa}/current/{taxon_id}.geojson species records, and pairs each
// record with its raster at
// {datadir}/aohs/current/{taxa}/{taxon_id}_all.tif. Species whose
// raster does not exist are skipped: their area of habitat could not
// be modeled, so they have no threat contribution to decompose.
func TaskList(inputDir, dataDir string) ([]Task, error) {
	taxaDirs, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("star: reading taxa directory: %w", err)
	}
	var tasks []Task
	for _, taxa := range taxaDirs {
		if !taxa.IsDir() || strings.HasPrefix(taxa.Name(), ".") {
			continue
		}
		speciesPaths, err := filepath.Glob(filepath.Join(inputDir, taxa.Name(), scenario, "*.geojson"))
		if err != nil {
			return nil, fmt.Errorf("star: %w", err)
		}
		sort.Strings(speciesPaths)
		for _, speciesPath := range speciesPaths {
			taxonID := strings.TrimSuffix(filepath.Base(speciesPath), ".geojson")
			habitatPath := filepath.Join(dataDir, "aohs", scenario, taxa.Name(), taxonID+"_all.tif")
			if _, err := os.Stat(habitatPath); err != nil {
				continue
			}
			tasks = append(tasks, Task{
				Species: speciesPath,
				Habitat: habitatPath,
				Output:  filepath.Join(dataDir, "threat_rasters", taxa.Name()),
			})
		}
	}
	return tasks, nil
}

// WriteTaskList writes the task list for inputDir and dataDir as a
// CSV at outputPath, one decompose invocation per row, and returns
// the number of tasks written.
func WriteTaskList(inputDir, dataDir, outputPath string) (int, error) {
	tasks, err := TaskList(inputDir, dataDir)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("star: creating task list: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"--species", "--habitat", "--output"}); err != nil {
		f.Close()
		return 0, fmt.Errorf("star: writing task list: %w", err)
	}
	for _, t := range tasks {
		if err := w.Write([]string{t.Species, t.Habitat, t.Output}); err != nil {
			f.Close()
			return 0, fmt.Errorf("star: writing task list: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return 0, fmt.Errorf("star: writing task list: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("star: writing task list: %w", err)
	}
	return len(tasks), nil
}
