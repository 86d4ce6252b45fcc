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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
)

var testTransform = [6]float64{0, 1, 0, 0, 0, -1}

func testLayer(t *testing.T, values []float64, rows, cols int) *Layer {
	t.Helper()
	l, err := NewLayer(rows, cols, testTransform, "")
	if err != nil {
		t.Fatal(err)
	}
	copy(l.Data.Elements, values)
	return l
}

func TestNewLayer(t *testing.T) {
	if _, err := NewLayer(0, 4, testTransform, ""); err == nil {
		t.Error("expected error for zero rows")
	}
	if _, err := NewLayer(4, -1, testTransform, ""); err == nil {
		t.Error("expected error for negative columns")
	}
	l, err := NewLayer(3, 4, testTransform, "")
	if err != nil {
		t.Fatal(err)
	}
	if l.Rows() != 3 || l.Cols() != 4 {
		t.Errorf("have %d×%d, want 3×4", l.Rows(), l.Cols())
	}
}

func TestNewLayerLike(t *testing.T) {
	l := testLayer(t, []float64{1, 2, 3, 4}, 2, 2)
	l.NoData = -9999
	l.HasNoData = true
	o := NewLayerLike(l)
	if !l.Compatible(o) {
		t.Error("like-layer should be compatible with its source")
	}
	if o.Sum() != 0 {
		t.Errorf("like-layer sum: have %g, want 0", o.Sum())
	}
	if !o.HasNoData || o.NoData != -9999 {
		t.Error("like-layer should carry the nodata convention")
	}
}

func TestAdd(t *testing.T) {
	a := testLayer(t, []float64{1, 2, 3, 4}, 2, 2)
	b := testLayer(t, []float64{10, 20, 30, 40}, 2, 2)
	if err := a.Add(b); err != nil {
		t.Fatal(err)
	}
	want := []float64{11, 22, 33, 44}
	if !floats.Equal(a.Data.Elements, want) {
		t.Errorf("have %v, want %v", a.Data.Elements, want)
	}
}

func TestAddIncompatible(t *testing.T) {
	a := testLayer(t, make([]float64, 4), 2, 2)

	b := testLayer(t, make([]float64, 6), 2, 3)
	if err := a.Add(b); err == nil {
		t.Error("expected error for mismatched shapes")
	}

	c := testLayer(t, make([]float64, 4), 2, 2)
	c.Transform[0] = 100 // shifted origin
	err := a.Add(c)
	if err == nil {
		t.Fatal("expected error for mismatched geotransforms")
	}
	// The diagnostic names both extents so the stray raster can be
	// tracked down.
	if !strings.Contains(err.Error(), "covering") {
		t.Errorf("error should report layer extents, have: %v", err)
	}
}

func TestNaNToNum(t *testing.T) {
	l := testLayer(t, []float64{math.NaN(), 2, math.NaN(), 4}, 2, 2)
	l.NaNToNum()
	want := []float64{0, 2, 0, 4}
	if !floats.Equal(l.Data.Elements, want) {
		t.Errorf("have %v, want %v", l.Data.Elements, want)
	}
}

func TestSumSkipsNaN(t *testing.T) {
	l := testLayer(t, []float64{math.NaN(), 2, 3, math.NaN()}, 2, 2)
	if s := l.Sum(); s != 5 {
		t.Errorf("have %g, want 5", s)
	}
}

func TestScale(t *testing.T) {
	l := testLayer(t, []float64{1, 2, 3, 4}, 2, 2)
	l.Scale(0.5)
	want := []float64{0.5, 1, 1.5, 2}
	if !floats.Equal(l.Data.Elements, want) {
		t.Errorf("have %v, want %v", l.Data.Elements, want)
	}
}

func TestBounds(t *testing.T) {
	l, err := NewLayer(180, 360, [6]float64{-180, 1, 0, 90, 0, -1}, "")
	if err != nil {
		t.Fatal(err)
	}
	b := l.Bounds()
	if b.Min.X != -180 || b.Max.X != 180 || b.Min.Y != -90 || b.Max.Y != 90 {
		t.Errorf("have %+v, want [-180,-90] to [180,90]", b)
	}
}

func TestReadSidecarTotal(t *testing.T) {
	dir := t.TempDir()

	raster := filepath.Join(dir, "1234.tif")
	if _, ok := ReadSidecarTotal(raster); ok {
		t.Error("missing sidecar should report not-ok")
	}

	sidecar := filepath.Join(dir, "1234.json")
	if err := os.WriteFile(sidecar, []byte(`{"aoh_total": 42.5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	total, ok := ReadSidecarTotal(raster)
	if !ok {
		t.Fatal("sidecar should have been read")
	}
	if total != 42.5 {
		t.Errorf("have %g, want 42.5", total)
	}

	if err := os.WriteFile(sidecar, []byte(`{"other_key": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := ReadSidecarTotal(raster); ok {
		t.Error("sidecar without aoh_total should report not-ok")
	}

	if err := os.WriteFile(sidecar, []byte(`not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := ReadSidecarTotal(raster); ok {
		t.Error("malformed sidecar should report not-ok")
	}
}

func TestWriteOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.tif")
	l := testLayer(t, []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}, 2, 3)
	if err := l.Write(path); err != nil {
		t.Fatal(err)
	}
	o, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Compatible(o) {
		t.Error("round-tripped layer should be compatible with its source")
	}
	if !floats.EqualApprox(l.Data.Elements, o.Data.Elements, 1e-12) {
		t.Errorf("have %v, want %v", o.Data.Elements, l.Data.Elements)
	}
}

func TestWriteOpenNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodata.tif")
	l := testLayer(t, []float64{math.NaN(), 2, 3, 4}, 2, 2)
	l.NoData = -9999
	l.HasNoData = true
	if err := l.Write(path); err != nil {
		t.Fatal(err)
	}
	o, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !o.HasNoData || o.NoData != -9999 {
		t.Errorf("nodata convention lost: have (%g, %t)", o.NoData, o.HasNoData)
	}
	if !math.IsNaN(o.Data.Elements[0]) {
		t.Errorf("nodata cell should read as NaN, have %g", o.Data.Elements[0])
	}
	if o.Sum() != 9 {
		t.Errorf("have %g, want 9", o.Sum())
	}
}
