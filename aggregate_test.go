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
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestParentCode(t *testing.T) {
	tests := []struct {
		code, want string
	}{
		{"2.3.2", "2.3"},
		{"2.3", "2"},
		{"2", "top"},
		{"11.1", "11"},
	}
	for _, test := range tests {
		if have := parentCode(test.code); have != test.want {
			t.Errorf("parentCode(%q): have %q, want %q", test.code, have, test.want)
		}
	}
}

func TestBucketFromSpecies(t *testing.T) {
	files := []string{
		filepath.Join("rasters", "2.1.1", "100.tif"),
		filepath.Join("rasters", "2.1.2", "100.tif"),
		filepath.Join("rasters", "2.1.1", "200.tif"),
		filepath.Join("rasters", "2.3", "100.tif"),
	}
	buckets, err := bucketFromSpecies(files)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"2.1": {files[0], files[1], files[2]},
		"2.3": {files[3]},
	}
	for k := range buckets {
		sort.Strings(buckets[k])
	}
	for k := range want {
		sort.Strings(want[k])
	}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("have %v, want %v", buckets, want)
	}
}

func TestBucketFromSpeciesBadCode(t *testing.T) {
	files := []string{filepath.Join("rasters", "2", "100.tif")}
	if _, err := bucketFromSpecies(files); err == nil {
		t.Error("expected error for level-1 species threat code")
	}
	files = []string{filepath.Join("rasters", "2.1.1.5", "100.tif")}
	if _, err := bucketFromSpecies(files); err == nil {
		t.Error("expected error for level-4 species threat code")
	}
}

func TestBucketFromLevel(t *testing.T) {
	files := []string{
		filepath.Join("level2", "2.1.tif"),
		filepath.Join("level2", "2.3.tif"),
		filepath.Join("level2", "7.1.tif"),
	}
	buckets := bucketFromLevel(files)
	want := map[string][]string{
		"2": {files[0], files[1]},
		"7": {files[2]},
	}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("have %v, want %v", buckets, want)
	}

	// Codes with no dot collapse into the root bucket.
	buckets = bucketFromLevel([]string{
		filepath.Join("level1", "2.tif"),
		filepath.Join("level1", "7.tif"),
	})
	if len(buckets) != 1 || len(buckets[RootBucket]) != 2 {
		t.Errorf("have %v, want a single %q bucket of 2", buckets, RootBucket)
	}
}

func TestReduceEmptyDirectory(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	if err := ReduceFromSpecies(input, output, 1); err == nil {
		t.Error("expected error for directory with no rasters")
	}
	if err := ReduceToNextLevel(input, output, 1); err == nil {
		t.Error("expected error for directory with no rasters")
	}
	entries, err := os.ReadDir(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no output should be produced, have %d entries", len(entries))
	}
}

func TestFindRasters(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{
		filepath.Join(dir, "2.1", "100.tif"),
		filepath.Join(dir, "2.1", "notes.txt"),
		filepath.Join(dir, "7.3", "nested", "200.tif"),
	} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := findRasters(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("have %d rasters, want 2: %v", len(files), files)
	}
}

// TestSummation runs the full three-level aggregation over a small
// synthetic set of per-species rasters and checks every level's
// totals, including that the level-0 root is the sum of everything.
func TestSummation(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()

	species := map[string][]float64{
		filepath.Join("2.1.1", "100.tif"): {1, 0},
		filepath.Join("2.1.2", "100.tif"): {2, 0},
		filepath.Join("2.1.1", "200.tif"): {4, 0},
		filepath.Join("2.3", "300.tif"):   {0, 8},
		filepath.Join("7.3", "300.tif"):   {0, 16},
	}
	for rel, values := range species {
		path := filepath.Join(input, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		writeRaster(t, path, values)
	}

	if err := Summation(input, output, 2); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		path string
		want []float64
	}{
		{filepath.Join(output, "level2", "2.1.tif"), []float64{7, 0}},
		{filepath.Join(output, "level2", "2.3.tif"), []float64{0, 8}},
		{filepath.Join(output, "level2", "7.3.tif"), []float64{0, 16}},
		{filepath.Join(output, "level1", "2.tif"), []float64{7, 8}},
		{filepath.Join(output, "level1", "7.tif"), []float64{0, 16}},
		{filepath.Join(output, "level0", "top.tif"), []float64{7, 24}},
	}
	for _, check := range checks {
		l := readRaster(t, check.path)
		for i, want := range check.want {
			if have := l.Data.Elements[i]; have != want {
				t.Errorf("%s cell %d: have %g, want %g", check.path, i, have, want)
			}
		}
	}
}
