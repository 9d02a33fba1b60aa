// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package sigdb is the in-memory signature database: an ordered,
// append-only list of known digests that exact and similarity
// searches run against.
//
// An entry's index is its insertion position and never changes.
// Every entry holds both the lowercase hex form and the binary form
// of its digest, and the two always agree. Invalid hex is rejected at
// insertion with digest.ErrInvalidDigestFormat. [Options.LossyHex]
// restores the older behaviour of storing an empty digest instead; it
// exists only for importing legacy data and is off by default.
//
// A Database does no locking. Mutating calls (Add, AddLabeled,
// AddMany) must not run concurrently with each other or with reads;
// any number of reads may run concurrently. Callers that share a
// Database across goroutines serialize writers themselves.
//
// The database never persists itself. Package catalog loads entries
// into it and package snapshot reads and writes portable copies.
package sigdb
