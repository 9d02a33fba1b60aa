// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest is the hashing core of Detective: it turns raw bytes
// into [Digest] values and converts digests between their binary and
// lowercase hexadecimal encodings.
//
// All hashing goes through an [Engine], an explicit object constructed
// once (typically at process start from configuration) and passed to
// whatever needs it. There is no package-level hasher state. An Engine
// fixes two things: the algorithm ([BLAKE3] or [BLAKE2b]) and the
// digest size in bytes (1 through [MaxSize]).
//
// Three initialization modes share the same underlying algorithm:
//
//   - plain hashing: [Engine.Hash], [Engine.HashStream],
//     [Engine.HashReader], [Engine.HashFile], [Engine.NewHasher]
//   - keyed hashing with a 32-byte key (MAC use): [Engine.HashKeyed],
//     [Engine.NewKeyedHasher]
//   - domain-separated key derivation from a context string and key
//     material: [Engine.DeriveKey]
//
// Streaming and whole-buffer hashing produce identical digests for
// identical bytes regardless of how the input is split into chunks.
//
// The hex boundary is strict: [Parse] rejects odd-length strings and
// any character outside [0-9a-fA-F] with [ErrInvalidDigestFormat].
// Uppercase input is accepted and normalized; [Digest.String] always
// produces lowercase.
package digest
