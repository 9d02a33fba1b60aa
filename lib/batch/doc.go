// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch hashes many independent inputs in parallel.
//
// A [Hasher] fans inputs out over a bounded pool of goroutines and
// writes each digest into a pre-sized result slice at the input's
// position, so output order always equals input order no matter which
// worker finishes first. A failure while hashing one input is
// recorded in that input's [Result] and never affects its neighbours.
//
// [ForEach] is the underlying index-parallel loop. The exact matcher
// and the similarity engine use it to split reference scans across
// the same kind of pool.
package batch
