// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"errors"
	"fmt"

	"github.com/detective-h/detective/lib/digest"
)

// ErrItemFailed is recorded in a Result whose input could not be
// hashed. Hashing an in-memory buffer does not fail in normal
// operation; this guards the pool against a panic in one item taking
// down the whole batch.
var ErrItemFailed = errors.New("batch item failed")

// Result is the outcome for one input. Exactly one of Digest and Err
// is set.
type Result struct {
	Digest digest.Digest
	Err    error
}

// Hasher hashes batches of inputs with a shared digest engine.
type Hasher struct {
	// Engine computes each digest. Nil means digest.Default().
	Engine *digest.Engine

	// Workers bounds the number of goroutines. Zero means one per
	// logical CPU.
	Workers int
}

// Hash returns one Result per input, in input order. Empty inputs are
// valid and hash to the digest of zero bytes. A nil or empty slice
// produces an empty, non-nil result.
func (h *Hasher) Hash(inputs [][]byte) []Result {
	engine := h.engine()
	results := make([]Result, len(inputs))
	ForEach(h.Workers, len(inputs), func(index int) {
		results[index] = hashOne(engine, index, inputs[index])
	})
	return results
}

// HashStrings is Hash over the UTF-8 bytes of each string.
func (h *Hasher) HashStrings(inputs []string) []Result {
	engine := h.engine()
	results := make([]Result, len(inputs))
	ForEach(h.Workers, len(inputs), func(index int) {
		results[index] = hashOne(engine, index, []byte(inputs[index]))
	})
	return results
}

func (h *Hasher) engine() *digest.Engine {
	if h.Engine == nil {
		return digest.Default()
	}
	return h.Engine
}

func hashOne(engine *digest.Engine, index int, input []byte) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = Result{Err: fmt.Errorf("%w: input %d: %v", ErrItemFailed, index, recovered)}
		}
	}()
	return Result{Digest: engine.Hash(input)}
}

// Hexes renders results as lowercase hex strings, one per result in
// order. Failed slots render as the empty string.
func Hexes(results []Result) []string {
	hexes := make([]string, len(results))
	for index, result := range results {
		if result.Err == nil {
			hexes[index] = result.Digest.String()
		}
	}
	return hexes
}

// FirstError returns the first failed result's error, or nil when
// every input hashed successfully.
func FirstError(results []Result) error {
	for _, result := range results {
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}
