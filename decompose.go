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

package star

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantifyearth/STAR/grid"
)

// Decompose splits one species' area-of-habitat raster into one
// contribution raster per threat code, written to
// {outputDir}/{code}/{taxonID}.tif. Each contribution is
//
//	habitat/aohTotal * categoryWeight * weight/totalWeight
//
// so that the per-threat rasters for a species sum to the species'
// full STAR contribution. aohTotal comes from the raster's JSON
// sidecar when present; otherwise the habitat raster is summed
// directly. The sidecar value is trusted verbatim: whether it was
// computed over this exact raster is a contract with the caller.
//
// A habitat raster that cannot be read is fatal for the species and
// nothing is written.
func Decompose(record *SpeciesRecord, habitatPath, outputDir string) error {
	if err := record.Validate(); err != nil {
		return err
	}
	habitat, err := grid.Open(habitatPath)
	if err != nil {
		return fmt.Errorf("star: species %d: %w", record.TaxonID, err)
	}
	aohTotal, ok := grid.ReadSidecarTotal(habitatPath)
	if !ok {
		aohTotal = habitat.Sum()
	}
	if aohTotal == 0 {
		return fmt.Errorf("star: species %d has zero total habitat in %s",
			record.TaxonID, habitatPath)
	}
	totalWeight := record.TotalWeight()
	if totalWeight <= 0 {
		return fmt.Errorf("star: species %d has non-positive total threat weight %d",
			record.TaxonID, totalWeight)
	}

	// The species' whole STAR contribution; each threat gets its
	// proportional share of it.
	weighted := habitat.Copy()
	weighted.Scale(float64(record.CategoryWeight) / aohTotal)

	for _, t := range record.Threats {
		contribution := weighted.Copy()
		contribution.Scale(float64(t.Weight) / float64(totalWeight))

		dir := filepath.Join(outputDir, t.Code)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("star: species %d: %w", record.TaxonID, err)
		}
		out := filepath.Join(dir, fmt.Sprintf("%d.tif", record.TaxonID))
		if err := contribution.Write(out); err != nil {
			return fmt.Errorf("star: species %d threat %s: %w", record.TaxonID, t.Code, err)
		}
	}
	return nil
}

// DecomposeFile reads the species summary record at speciesPath and
// runs Decompose with it.
func DecomposeFile(speciesPath, habitatPath, outputDir string) error {
	record, err := ReadSpeciesRecord(speciesPath)
	if err != nil {
		return err
	}
	return Decompose(record, habitatPath, outputDir)
}
