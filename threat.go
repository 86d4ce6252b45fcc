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
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// scopes are the recognized threat scope categories, in weighting
// table row order.
var scopes = []string{
	"whole (>90%)",
	"majority (50-90%)",
	"minority (<50%)",
}

// DefaultScope is used when a threat's scope is missing or unknown.
const DefaultScope = "majority (50-90%)"

// severities are the recognized threat severity categories, in
// weighting table column order.
var severities = []string{
	"very rapid declines",
	"rapid declines",
	"slow, significant declines",
	"negligible declines",
	"no decline",
	"causing/could cause fluctuations",
}

// DefaultSeverity is used when a threat's severity is missing or
// unknown.
const DefaultSeverity = "slow, significant declines"

// threatWeightTable gives the STAR weight for each (scope, severity)
// combination, from Muir et al. (2021) supplementary table 2.
var threatWeightTable = [3][6]int{
	{63, 24, 10, 1, 0, 10},
	{52, 18, 9, 0, 0, 9},
	{24, 7, 5, 0, 0, 5},
}

// categoryWeights gives the STAR threat abatement score for each
// IUCN Red List category that contributes to STAR: 100 for Near
// Threatened through 400 for Critically Endangered. Least Concern
// species score zero and are excluded upstream.
var categoryWeights = map[string]int{
	"NT": 100,
	"VU": 200,
	"EN": 300,
	"CR": 400,
}

// CategoryWeight returns the STAR category weight for an IUCN Red
// List category code such as "VU". The second return is false for
// categories that do not contribute to STAR.
func CategoryWeight(category string) (int, bool) {
	w, ok := categoryWeights[strings.ToUpper(strings.TrimSpace(category))]
	return w, ok
}

func scopeIndex(scope string) int {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" || scope == "unknown" {
		scope = DefaultScope
	}
	for i, s := range scopes {
		if s == scope {
			return i
		}
	}
	return scopeIndex(DefaultScope)
}

func severityIndex(severity string) int {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" || severity == "unknown" {
		severity = DefaultSeverity
	}
	for i, s := range severities {
		if s == severity {
			return i
		}
	}
	return severityIndex(DefaultSeverity)
}

// ThreatWeight returns the STAR weight for a threat with the given
// scope and severity. Matching is case-insensitive; missing or
// unrecognized values fall back to the defaults ("majority" scope,
// "slow, significant declines" severity). A zero return means the
// threat contributes nothing to STAR.
func ThreatWeight(scope, severity string) int {
	return threatWeightTable[scopeIndex(scope)][severityIndex(severity)]
}

// A Threat is one entry in a species' threat list: a dot-delimited
// hierarchical IUCN threat code (e.g. "2.3.2") and its STAR weight.
type Threat struct {
	Code   string
	Weight int
}

// Level returns the threat code's depth in the hierarchy: the
// number of dot-separated segments.
func (t Threat) Level() int {
	return strings.Count(t.Code, ".") + 1
}

// A RawThreat is a threat as assessed, before scope/severity
// weighting.
type RawThreat struct {
	Code     string
	Scope    string
	Severity string
}

// CleanThreats converts assessed threats into weighted ones,
// dropping threats whose scope/severity weight is zero. The result
// may be empty, in which case the species contributes nothing and
// should be skipped by the caller.
func CleanThreats(raw []RawThreat) []Threat {
	var o []Threat
	for _, r := range raw {
		if w := ThreatWeight(r.Scope, r.Severity); w > 0 {
			o = append(o, Threat{Code: r.Code, Weight: w})
		}
	}
	return o
}

// A SpeciesRecord is the standardized per-species summary consumed
// by the decomposer: the taxon identifier, the Red List category
// weight, and the weighted threat list. Records with empty threat
// lists are filtered out upstream; Validate rejects them here.
type SpeciesRecord struct {
	TaxonID        int64
	CategoryWeight int
	Threats        []Threat
}

// TotalWeight returns the sum of all threat weights in the record.
func (r *SpeciesRecord) TotalWeight() int {
	var total int
	for _, t := range r.Threats {
		total += t.Weight
	}
	return total
}

// Validate checks the record invariants: at least one threat, every
// weight positive.
func (r *SpeciesRecord) Validate() error {
	if len(r.Threats) == 0 {
		return fmt.Errorf("star: species %d has no threats", r.TaxonID)
	}
	for _, t := range r.Threats {
		if t.Weight <= 0 {
			return fmt.Errorf("star: species %d threat %s has non-positive weight %d",
				r.TaxonID, t.Code, t.Weight)
		}
		if t.Code == "" {
			return fmt.Errorf("star: species %d has a threat with an empty code", r.TaxonID)
		}
	}
	return nil
}

// speciesProperties is the property bag of the one-feature GeoJSON
// species summary produced by the data preparation stage. The
// threats property holds a JSON-encoded [[code, weight], ...] array,
// itself serialized as a string inside the GeoJSON.
type speciesProperties struct {
	IDNo           json.Number     `json:"id_no"`
	CategoryWeight json.Number     `json:"category_weight"`
	Threats        json.RawMessage `json:"threats"`
}

type speciesFeature struct {
	Properties speciesProperties `json:"properties"`
}

type speciesFile struct {
	Type       string             `json:"type"`
	Features   []speciesFeature   `json:"features"`
	Properties *speciesProperties `json:"properties"`
}

// ReadSpeciesRecord reads a species summary record from the GeoJSON
// file at path. The file must hold exactly one feature (or be a bare
// Feature) with id_no, category_weight, and threats properties. The
// record's geometry, if any, is ignored.
func ReadSpeciesRecord(path string) (*SpeciesRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("star: reading species record %s: %w", path, err)
	}
	var f speciesFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("star: parsing species record %s: %w", path, err)
	}
	var props *speciesProperties
	switch {
	case len(f.Features) == 1:
		props = &f.Features[0].Properties
	case len(f.Features) > 1:
		return nil, fmt.Errorf("star: species record %s has %d features, want 1", path, len(f.Features))
	case f.Properties != nil:
		props = f.Properties
	default:
		return nil, fmt.Errorf("star: species record %s has no feature properties", path)
	}

	r := new(SpeciesRecord)
	if r.TaxonID, err = props.IDNo.Int64(); err != nil {
		return nil, fmt.Errorf("star: species record %s: bad id_no %q: %w", path, props.IDNo, err)
	}
	cw, err := props.CategoryWeight.Int64()
	if err != nil {
		return nil, fmt.Errorf("star: species record %s: bad category_weight %q: %w", path, props.CategoryWeight, err)
	}
	r.CategoryWeight = int(cw)
	if r.Threats, err = parseThreats(props.Threats); err != nil {
		return nil, fmt.Errorf("star: species record %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// parseThreats decodes a [[code, weight], ...] threat list. The list
// may be embedded directly in the JSON or doubly encoded as a JSON
// string, which is how tabular GeoJSON writers store it.
func parseThreats(raw json.RawMessage) ([]Threat, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing threats property")
	}
	if raw[0] == '"' { // Doubly-encoded: unwrap the string first.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("unwrapping threats: %w", err)
		}
		raw = json.RawMessage(s)
	}
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("parsing threats: %w", err)
	}
	o := make([]Threat, len(pairs))
	for i, p := range pairs {
		var code string
		if err := json.Unmarshal(p[0], &code); err != nil {
			// Threat codes extracted from some databases are bare
			// numbers rather than strings.
			var n json.Number
			if err := json.Unmarshal(p[0], &n); err != nil {
				return nil, fmt.Errorf("parsing threat code %s: %w", p[0], err)
			}
			code = n.String()
		}
		var weight int
		if err := json.Unmarshal(p[1], &weight); err != nil {
			return nil, fmt.Errorf("parsing weight of threat %s: %w", code, err)
		}
		o[i] = Threat{Code: code, Weight: weight}
	}
	return o, nil
}
