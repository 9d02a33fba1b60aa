// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package similarity

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/detective-h/detective/lib/batch"
	"github.com/detective-h/detective/lib/digest"
)

// ErrLengthMismatch reports digests that cannot be compared because
// their lengths differ. It is a digest.ErrInvalidInput kind.
var ErrLengthMismatch = fmt.Errorf("%w: digest length mismatch", digest.ErrInvalidInput)

// DefaultThreshold is the score at or above which a reference is
// reported as a likely variant when the caller has no better value.
const DefaultThreshold = 0.85

// HammingDistance returns the number of bit positions at which a and
// b differ. The inputs must have the same length.
func HammingDistance(a, b []byte) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d bytes vs %d bytes", ErrLengthMismatch, len(a), len(b))
	}
	return hamming(a, b), nil
}

// Score returns 1 - HammingDistance(a, b)/bits. Equal inputs score
// exactly 1.0. Empty inputs are rejected since they have no bits to
// compare.
func Score(a, b []byte) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d bytes vs %d bytes", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty digest", digest.ErrInvalidInput)
	}
	return score(a, b), nil
}

// score assumes equal, non-zero lengths.
func score(a, b []byte) float64 {
	if bytes.Equal(a, b) {
		return 1.0
	}
	return 1.0 - float64(hamming(a, b))/float64(len(a)*8)
}

func hamming(a, b []byte) int {
	distance := 0
	index := 0
	for ; index+8 <= len(a); index += 8 {
		distance += bits.OnesCount64(binary.LittleEndian.Uint64(a[index:]) ^ binary.LittleEndian.Uint64(b[index:]))
	}
	for ; index < len(a); index++ {
		distance += bits.OnesCount8(a[index] ^ b[index])
	}
	return distance
}

// Result is one reference that met the threshold.
type Result struct {
	// Index is the reference's position in the searched slice.
	Index int

	// Score is in [0, 1].
	Score float64
}

// Engine ranks references against a target digest.
type Engine struct {
	// HashLength is the number of leading bytes compared. Zero means
	// the target's length. Longer digests are truncated to their
	// first HashLength bytes; shorter ones are ErrLengthMismatch.
	HashLength int

	// Workers bounds scoring parallelism. Zero means one per logical
	// CPU.
	Workers int
}

// parallelThreshold is the reference count above which scoring is
// split across the worker pool.
const parallelThreshold = 1024

// Search scores every reference against target and returns those with
// score >= threshold, highest score first, ties by ascending index.
// An empty reference list returns an empty result, and so does a
// threshold above 1, since no score can reach it. A negative or NaN
// threshold or an unusable length is an error wrapping
// digest.ErrInvalidInput; no partial results are returned.
func (e *Engine) Search(target digest.Digest, references []digest.Digest, threshold float64) ([]Result, error) {
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("%w: threshold %v below 0", digest.ErrInvalidInput, threshold)
	}
	if e.HashLength < 0 {
		return nil, fmt.Errorf("%w: negative hash length %d", digest.ErrInvalidInput, e.HashLength)
	}

	length := e.HashLength
	if length == 0 {
		length = len(target)
	}
	if length == 0 {
		return nil, fmt.Errorf("%w: empty target digest", digest.ErrInvalidInput)
	}
	if len(target) < length {
		return nil, fmt.Errorf("%w: target is %d bytes, hash length is %d", ErrLengthMismatch, len(target), length)
	}
	for index, reference := range references {
		if len(reference) < length {
			return nil, fmt.Errorf("%w: reference %d is %d bytes, hash length is %d",
				ErrLengthMismatch, index, len(reference), length)
		}
	}

	target = target[:length]
	scores := make([]float64, len(references))
	scoreOne := func(index int) {
		scores[index] = score(target, references[index][:length])
	}
	if len(references) < parallelThreshold {
		for index := range references {
			scoreOne(index)
		}
	} else {
		batch.ForEach(e.Workers, len(references), scoreOne)
	}

	results := []Result{}
	for index, value := range scores {
		if value >= threshold {
			results = append(results, Result{Index: index, Score: value})
		}
	}
	slices.SortFunc(results, func(a, b Result) int {
		if byScore := cmp.Compare(b.Score, a.Score); byScore != 0 {
			return byScore
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return results, nil
}

// Search is Engine.Search with the given hash length and default
// parallelism.
func Search(target digest.Digest, references []digest.Digest, threshold float64, hashLength int) ([]Result, error) {
	return (&Engine{HashLength: hashLength}).Search(target, references, threshold)
}
