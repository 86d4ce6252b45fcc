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
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"
)

// RootBucket is the bucket key for codes with no parent: the global
// STAR total.
const RootBucket = "top"

// findRasters returns the paths of all .tif files under dir,
// recursively.
func findRasters(dir string) ([]string, error) {
	var o []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".tif") {
			o = append(o, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("star: walking %s: %w", dir, err)
	}
	return o, nil
}

// parentCode returns the bucket key one level up from code: the code
// with its last dot-segment removed, or RootBucket for a code with
// no dot.
func parentCode(code string) string {
	if i := strings.LastIndex(code, "."); i >= 0 {
		return code[:i]
	}
	return RootBucket
}

// bucketFromSpecies groups per-species contribution rasters, laid
// out as {dir}/{code}/{taxonID}.tif, by their code truncated to two
// dot-segments. Species threat codes are always level 2 or level 3,
// so both collapse onto the same level-2 key; a single-segment code
// violates that invariant and is a fatal data error.
func bucketFromSpecies(files []string) (map[string][]string, error) {
	buckets := make(map[string][]string)
	for _, f := range files {
		code := filepath.Base(filepath.Dir(f))
		segments := strings.Split(code, ".")
		if len(segments) < 2 || len(segments) > 3 {
			return nil, fmt.Errorf("star: species raster %s has level-%d threat code %s, want level 2 or 3",
				f, len(segments), code)
		}
		key := strings.Join(segments[:2], ".")
		buckets[key] = append(buckets[key], f)
	}
	return buckets, nil
}

// bucketFromLevel groups aggregated rasters, laid out as
// {dir}/{code}.tif, by the code's parent.
func bucketFromLevel(files []string) map[string][]string {
	buckets := make(map[string][]string)
	for _, f := range files {
		code := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		key := parentCode(code)
		buckets[key] = append(buckets[key], f)
	}
	return buckets
}

// reduceBuckets sums each bucket into {outputDir}/{key}.tif, one
// bucket at a time, each with the full worker budget.
func reduceBuckets(buckets map[string][]string, outputDir string, workers int) error {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	log.Printf("found %d threat codes at current level", len(keys))
	for _, key := range keys {
		files := buckets[key]
		log.Printf("summing %s: %d rasters", key, len(files))
		if err := RasterSum(files, filepath.Join(outputDir, key+".tif"), workers); err != nil {
			return err
		}
	}
	return nil
}

// ReduceFromSpecies aggregates the per-species contribution rasters
// under inputDir into one level-2 raster per threat code, written to
// outputDir. An inputDir with no rasters is fatal.
func ReduceFromSpecies(inputDir, outputDir string, workers int) error {
	files, err := findRasters(inputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("star: no rasters in %s", inputDir)
	}
	log.Printf("total rasters: %d", len(files))
	buckets, err := bucketFromSpecies(files)
	if err != nil {
		return err
	}
	return reduceBuckets(buckets, outputDir, workers)
}

// ReduceToNextLevel aggregates the per-code rasters under inputDir
// one level up the threat hierarchy, writing one raster per parent
// code to outputDir. Codes with no parent aggregate into the
// RootBucket raster.
func ReduceToNextLevel(inputDir, outputDir string, workers int) error {
	files, err := findRasters(inputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("star: no rasters in %s", inputDir)
	}
	log.Printf("total rasters: %d", len(files))
	return reduceBuckets(bucketFromLevel(files), outputDir, workers)
}

// Summation runs the full three-stage aggregation: per-species
// contribution rasters to level-2 totals, level-2 to level-1, and
// level-1 to the level-0 roots (including the global RootBucket
// total). Each stage completes before the next begins, since each
// stage's outputs are the next stage's inputs.
func Summation(inputDir, outputDir string, workers int) error {
	log.Println("processing level 2")
	level2 := filepath.Join(outputDir, "level2")
	if err := ReduceFromSpecies(inputDir, level2, workers); err != nil {
		return err
	}

	log.Println("processing level 1")
	level1 := filepath.Join(outputDir, "level1")
	if err := ReduceToNextLevel(level2, level1, workers); err != nil {
		return err
	}

	log.Println("processing level 0")
	return ReduceToNextLevel(level1, filepath.Join(outputDir, "level0"), workers)
}
