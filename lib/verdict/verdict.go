// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package verdict maps similarity scores to the human verdicts printed
// by compare and analyze.
package verdict

import (
	"errors"
	"fmt"
	"math"
)

// Verdict classifies how closely two samples are related.
type Verdict int

const (
	Unrelated Verdict = iota
	Related
	Variant
	Identical
)

// String returns the short machine-readable name used in JSON output.
func (v Verdict) String() string {
	switch v {
	case Identical:
		return "identical"
	case Variant:
		return "variant"
	case Related:
		return "related"
	default:
		return "unrelated"
	}
}

// Description is the sentence shown to operators.
func (v Verdict) Description() string {
	switch v {
	case Identical:
		return "very similar, judged to be the same sample"
	case Variant:
		return "highly similar, likely a variant of the same family"
	case Related:
		return "partially similar, possibly related"
	default:
		return "low similarity, judged to be a different sample"
	}
}

// MarshalText lets verdicts appear by name in JSON output.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Bands holds the minimum score for each verdict above Unrelated.
// Boundaries are inclusive: a score equal to Variant is a variant.
type Bands struct {
	Identical float64
	Variant   float64
	Related   float64
}

// DefaultBands are the historical boundaries 0.95, 0.85, and 0.70.
var DefaultBands = Bands{Identical: 0.95, Variant: 0.85, Related: 0.70}

// Validate checks that each boundary lies in [0, 1] and that they do
// not decrease from Related to Identical.
func (b Bands) Validate() error {
	var errs []error
	for _, band := range []struct {
		name  string
		value float64
	}{
		{"identical", b.Identical},
		{"variant", b.Variant},
		{"related", b.Related},
	} {
		if math.IsNaN(band.value) || band.value < 0 || band.value > 1 {
			errs = append(errs, fmt.Errorf("%s band %v is outside [0, 1]", band.name, band.value))
		}
	}
	if b.Related > b.Variant || b.Variant > b.Identical {
		errs = append(errs, fmt.Errorf("bands must satisfy related <= variant <= identical (got %v, %v, %v)",
			b.Related, b.Variant, b.Identical))
	}
	return errors.Join(errs...)
}

// Classify returns the verdict for score.
func (b Bands) Classify(score float64) Verdict {
	switch {
	case score >= b.Identical:
		return Identical
	case score >= b.Variant:
		return Variant
	case score >= b.Related:
		return Related
	default:
		return Unrelated
	}
}

// Classify classifies score with DefaultBands.
func Classify(score float64) Verdict {
	return DefaultBands.Classify(score)
}
