// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot reads and writes portable signature database
// snapshots, the format behind "detective export" and "detective
// import".
//
// A snapshot is a fixed 20-byte header followed by one compressed
// body and a checksum:
//
//	offset  size  field
//	0       8     magic "DETSIG" + version byte + reserved zero
//	8       1     compression tag (see package compress)
//	9       3     reserved, zero
//	12      4     compressed body size, little-endian
//	16      4     uncompressed body size, little-endian
//	20      n     body
//	20+n    32    BLAKE3 checksum of the uncompressed body
//
// The body is a CBOR map (Core Deterministic Encoding) holding the
// digest algorithm name and the ordered list of signature entries:
// name, hash, fingerprint, type, description, size, and added time.
// Digests travel as lowercase hex and are validated on read, so a
// snapshot never introduces an unparseable signature.
package snapshot
