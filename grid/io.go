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

package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/ctessum/sparse"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Open reads the first band of the GeoTIFF (or any other
// GDAL-readable raster) at path into a Layer. Cells equal to the
// band's nodata value are replaced with NaN.
func Open(path string) (*Layer, error) {
	register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: opening %s: %w", path, err)
	}
	defer ds.Close()

	s := ds.Structure()
	if s.NrBands < 1 {
		return nil, fmt.Errorf("grid: %s has no raster bands", path)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("grid: reading geotransform of %s: %w", path, err)
	}

	band := ds.Bands()[0]
	data := make([]float64, s.SizeX*s.SizeY)
	if err := band.Read(0, 0, data, s.SizeX, s.SizeY); err != nil {
		return nil, fmt.Errorf("grid: reading %s: %w", path, err)
	}

	l := &Layer{
		Data:       sparse.ZerosDense(s.SizeY, s.SizeX),
		Transform:  gt,
		Projection: ds.Projection(),
	}
	copy(l.Data.Elements, data)
	if nd, ok := band.NoData(); ok {
		l.NoData = nd
		l.HasNoData = true
		for i, v := range l.Data.Elements {
			if v == nd {
				l.Data.Elements[i] = math.NaN()
			}
		}
	}
	return l, nil
}

// Write persists l as a single-band float64 GeoTIFF at path. If the
// layer has a nodata convention, NaN cells are written as the nodata
// value; otherwise they are written as NaN, which GeoTIFF stores
// faithfully for floating-point bands.
func (l *Layer) Write(path string) error {
	register()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, l.Cols(), l.Rows(),
		godal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("grid: creating %s: %w", path, err)
	}
	if err := ds.SetGeoTransform(l.Transform); err != nil {
		ds.Close()
		return fmt.Errorf("grid: setting geotransform of %s: %w", path, err)
	}
	if l.Projection != "" {
		if err := ds.SetProjection(l.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("grid: setting projection of %s: %w", path, err)
		}
	}
	data := l.Data.Elements
	if l.HasNoData {
		if err := ds.SetNoData(l.NoData); err != nil {
			ds.Close()
			return fmt.Errorf("grid: setting nodata of %s: %w", path, err)
		}
		data = make([]float64, len(l.Data.Elements))
		for i, v := range l.Data.Elements {
			if math.IsNaN(v) {
				data[i] = l.NoData
			} else {
				data[i] = v
			}
		}
	}
	if err := ds.Bands()[0].Write(0, 0, data, l.Cols(), l.Rows()); err != nil {
		ds.Close()
		return fmt.Errorf("grid: writing %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("grid: closing %s: %w", path, err)
	}
	return nil
}

// ReadSidecarTotal reads the precomputed cell total for the raster
// at rasterPath from its JSON sidecar (the raster path with its
// extension replaced by ".json", key "aoh_total"). The second return
// is false when the sidecar is missing, unreadable, or lacks the
// key; callers fall back to summing the raster itself.
func ReadSidecarTotal(rasterPath string) (float64, bool) {
	base := strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath))
	b, err := os.ReadFile(base + ".json")
	if err != nil {
		return 0, false
	}
	var sidecar struct {
		AoHTotal *float64 `json:"aoh_total"`
	}
	if err := json.Unmarshal(b, &sidecar); err != nil || sidecar.AoHTotal == nil {
		return 0, false
	}
	return *sidecar.AoHTotal, true
}
