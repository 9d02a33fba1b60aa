// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint computes locality-sensitive content fingerprints
// for variant detection.
//
// A cryptographic digest changes completely when one byte of a sample
// changes, so comparing digests bit by bit says nothing about how
// related two samples are. A fingerprint is built to do the opposite:
//
//  1. The sample is split into content-defined chunks with a GearHash
//     rolling hash (minimum 64 bytes, about 512 on average, at most
//     4 KiB). Boundaries depend only on nearby content, so an edit
//     disturbs only the chunks it touches and the rest realign.
//  2. Each chunk is hashed with BLAKE3 in a dedicated derive-key
//     domain.
//  3. The chunk hashes are folded into a 256-bit SimHash: every chunk
//     votes on every bit, and a bit is set when more chunks have it
//     set than clear.
//
// Two samples that share most of their chunks produce fingerprints
// with a small Hamming distance, which package similarity turns into
// a score close to 1. Fingerprints are [digest.Digest] values of
// [Size] bytes and are stored, parsed, and compared like any digest.
package fingerprint
