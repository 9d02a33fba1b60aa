// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package similarity scores how close fixed-length digests are at the
// bit level and ranks references against a target.
//
// The score of two digests of n bits that differ in k bit positions is
// 1 - k/n. Byte-identical digests short-circuit to exactly 1.0 without
// counting bits. The score is symmetric.
//
// What the score means depends on what the digests are. Over plain
// cryptographic digests a single flipped input bit flips about half
// the output bits, so any non-identical pair scores near 0.5. Over
// locality-sensitive fingerprints (see package fingerprint) the score
// tracks how much content two inputs share.
//
// [Engine.Search] compares every reference over a fixed hash length,
// keeps scores at or above the threshold, and orders results by score
// descending with ties broken by ascending index.
package similarity
