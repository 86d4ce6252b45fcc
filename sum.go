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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/quantifyearth/STAR/grid"
)

// accumulate folds the rasters arriving on paths into a running
// elementwise sum, replacing NaN cells with zero before each
// addition. It returns nil if no path arrived before the channel
// closed. The first unreadable or window-mismatched raster aborts
// the fold.
func accumulate(ctx context.Context, paths <-chan string) (*grid.Layer, error) {
	var acc *grid.Layer
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case path, ok := <-paths:
			if !ok {
				return acc, nil
			}
			l, err := grid.Open(path)
			if err != nil {
				return nil, err
			}
			l.NaNToNum()
			if acc == nil {
				acc = l
			} else if err := acc.Add(l); err != nil {
				return nil, fmt.Errorf("star: summing %s: %w", path, err)
			}
		}
	}
}

// RasterSum computes the elementwise sum of the rasters at paths and
// writes it to output, using a fixed budget of `workers` parallel
// accumulators so that at most O(workers) rasters are in memory at
// any time. NaN cells read as zero. The reduction runs in two
// phases: the workers drain a shared path queue into private running
// sums and write those partial sums to a temporary directory, then a
// single pass folds the partial sums into the final raster. A bucket
// of one raster reduces through the same path.
//
// The first worker error cancels the remaining workers and is
// returned; no file is written at output in that case. An empty
// paths list is an error: silently producing nothing would hide a
// misconfigured input directory.
func RasterSum(paths []string, output string, workers int) error {
	if len(paths) == 0 {
		return fmt.Errorf("star: no rasters to sum into %s", output)
	}
	if workers < 1 {
		return fmt.Errorf("star: invalid worker count %d", workers)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("star: %w", err)
		}
	}
	tempDir, err := os.MkdirTemp("", "star_sum")
	if err != nil {
		return fmt.Errorf("star: %w", err)
	}
	defer os.RemoveAll(tempDir)

	g, ctx := errgroup.WithContext(context.Background())
	queue := make(chan string)
	g.Go(func() error {
		defer close(queue)
		for _, p := range paths {
			select {
			case queue <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			partial, err := accumulate(ctx, queue)
			if err != nil {
				return err
			}
			if partial == nil { // More workers than inputs.
				return nil
			}
			return partial.Write(filepath.Join(tempDir, fmt.Sprintf("%d.tif", i)))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	partials, err := filepath.Glob(filepath.Join(tempDir, "*.tif"))
	if err != nil {
		return fmt.Errorf("star: %w", err)
	}
	sort.Strings(partials)
	merged := make(chan string, len(partials))
	for _, p := range partials {
		merged <- p
	}
	close(merged)
	final, err := accumulate(context.Background(), merged)
	if err != nil {
		return err
	}
	if final == nil {
		return fmt.Errorf("star: no partial sums produced for %s", output)
	}
	return final.Write(output)
}
