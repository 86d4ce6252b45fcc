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

// Package star computes Species Threat Abatement and Restoration
// (STAR) threat-attribution rasters. It decomposes each species'
// area-of-habitat raster into per-threat contribution rasters
// weighted by the STAR scope/severity table, and aggregates the
// resulting millions of rasters up the IUCN threat-code hierarchy
// into level-2, level-1, and level-0 totals.
package star

// Version gives the current model version.
const Version = "1.0.0"
