// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package match finds references that are byte-identical to a target
// digest. Results are always indices into the reference list in
// ascending order. No match is an empty result, not an error.
package match

import (
	"fmt"

	"github.com/detective-h/detective/lib/batch"
	"github.com/detective-h/detective/lib/digest"
)

// parallelThreshold is the reference count above which scans are
// split across the worker pool.
const parallelThreshold = 4096

// Matcher holds the worker bound for large scans.
type Matcher struct {
	// Workers bounds scan parallelism. Zero means one per logical CPU.
	Workers int
}

// BatchCompare returns the ascending indices of references equal to
// target. References of a different length never match.
func BatchCompare(target digest.Digest, references []digest.Digest) []int {
	return (&Matcher{}).BatchCompare(target, references)
}

// BatchCompareHex is BatchCompare over hex strings. Both sides are
// case-normalized before conversion to binary. An invalid target is
// an error wrapping digest.ErrInvalidDigestFormat; an invalid
// reference simply never matches.
func BatchCompareHex(target string, references []string) ([]int, error) {
	return (&Matcher{}).BatchCompareHex(target, references)
}

// BatchCompare is the package-level BatchCompare with this matcher's
// worker bound.
func (m *Matcher) BatchCompare(target digest.Digest, references []digest.Digest) []int {
	return m.scan(len(references), func(index int) bool {
		return digest.Equal(target, references[index])
	})
}

// BatchCompareHex is the package-level BatchCompareHex with this
// matcher's worker bound.
func (m *Matcher) BatchCompareHex(target string, references []string) ([]int, error) {
	targetDigest, err := digest.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return m.scan(len(references), func(index int) bool {
		reference, err := digest.Parse(references[index])
		if err != nil {
			return false
		}
		return digest.Equal(targetDigest, reference)
	}), nil
}

func (m *Matcher) scan(count int, matches func(index int) bool) []int {
	indices := []int{}
	if count < parallelThreshold {
		for index := range count {
			if matches(index) {
				indices = append(indices, index)
			}
		}
		return indices
	}

	hits := make([]bool, count)
	batch.ForEach(m.Workers, count, func(index int) {
		hits[index] = matches(index)
	})
	for index, hit := range hits {
		if hit {
			indices = append(indices, index)
		}
	}
	return indices
}
