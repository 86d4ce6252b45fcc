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

// Package grid implements georeferenced raster layers for the STAR
// threat engine. A Layer is a rectangular array of float64 cells
// with a GDAL-style geotransform and a projection. Arithmetic is
// only defined between layers whose windows align; mixing
// incompatible layers is an error rather than an implicit resample.
package grid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// transformTolerance is the maximum absolute difference between two
// geotransform coefficients for the windows to be considered aligned.
const transformTolerance = 1.0e-9

// Layer is a single-band georeferenced raster held in memory.
type Layer struct {
	// Data holds the cell values in row-major order with shape
	// [rows, columns]. The special value NaN marks nodata cells.
	Data *sparse.DenseArray

	// Transform is the GDAL geotransform: {originX, cellWidth,
	// rowRotation, originY, columnRotation, cellHeight}. cellHeight
	// is negative for north-up rasters.
	Transform [6]float64

	// Projection is the spatial reference system in WKT format.
	Projection string

	// NoData is the nodata marker used when the layer is persisted,
	// if HasNoData is true.
	NoData    float64
	HasNoData bool
}

// NewLayer creates a zero-filled layer with the given number of rows
// and columns, geotransform, and projection.
func NewLayer(rows, cols int, transform [6]float64, projection string) (*Layer, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid: invalid layer size %d×%d", rows, cols)
	}
	return &Layer{
		Data:       sparse.ZerosDense(rows, cols),
		Transform:  transform,
		Projection: projection,
	}, nil
}

// NewLayerLike creates a zero-filled layer with the same window,
// projection, and nodata convention as l.
func NewLayerLike(l *Layer) *Layer {
	return &Layer{
		Data:       sparse.ZerosDense(l.Data.Shape...),
		Transform:  l.Transform,
		Projection: l.Projection,
		NoData:     l.NoData,
		HasNoData:  l.HasNoData,
	}
}

// Copy returns a deep copy of l.
func (l *Layer) Copy() *Layer {
	o := NewLayerLike(l)
	copy(o.Data.Elements, l.Data.Elements)
	return o
}

// Rows returns the number of rows in the layer.
func (l *Layer) Rows() int { return l.Data.Shape[0] }

// Cols returns the number of columns in the layer.
func (l *Layer) Cols() int { return l.Data.Shape[1] }

// Compatible reports whether l and o have windows that align:
// the same shape and the same geotransform. Projection strings are
// not compared because the same reference system has many spellings;
// callers are expected to work within a single projection.
func (l *Layer) Compatible(o *Layer) bool {
	if l.Rows() != o.Rows() || l.Cols() != o.Cols() {
		return false
	}
	for i, v := range l.Transform {
		if math.Abs(v-o.Transform[i]) > transformTolerance {
			return false
		}
	}
	return true
}

// Add adds o to l elementwise, in place. It is an error if the two
// layers are not compatible; the error reports each layer's
// geographic extent to make the offending raster findable.
func (l *Layer) Add(o *Layer) error {
	if !l.Compatible(o) {
		lb, ob := l.Bounds(), o.Bounds()
		return fmt.Errorf("grid: incompatible layers: %d×%d covering (%g,%g)-(%g,%g) != %d×%d covering (%g,%g)-(%g,%g)",
			l.Rows(), l.Cols(), lb.Min.X, lb.Min.Y, lb.Max.X, lb.Max.Y,
			o.Rows(), o.Cols(), ob.Min.X, ob.Min.Y, ob.Max.X, ob.Max.Y)
	}
	l.Data.AddDense(o.Data)
	return nil
}

// Scale multiplies every cell by v, in place. NaN cells stay NaN.
func (l *Layer) Scale(v float64) {
	l.Data.Scale(v)
}

// NaNToNum replaces every NaN cell with zero, in place.
func (l *Layer) NaNToNum() {
	for i, v := range l.Data.Elements {
		if math.IsNaN(v) {
			l.Data.Elements[i] = 0
		}
	}
}

// Sum returns the sum of all cells. NaN cells contribute zero, so a
// layer with nodata holes still has a finite total.
func (l *Layer) Sum() float64 {
	var s float64
	for _, v := range l.Data.Elements {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

// Bounds returns the geographic extent of the layer, derived from
// its geotransform and shape.
func (l *Layer) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	nx, ny := float64(l.Cols()), float64(l.Rows())
	for _, corner := range [][2]float64{{0, 0}, {nx, 0}, {0, ny}, {nx, ny}} {
		x := l.Transform[0] + corner[0]*l.Transform[1] + corner[1]*l.Transform[2]
		y := l.Transform[3] + corner[0]*l.Transform[4] + corner[1]*l.Transform[5]
		b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
	}
	return b
}
