// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Detective's standard CBOR encoding
// configuration.
//
// Detective uses two serialization formats:
//
//   - JSON for external interfaces: CLI --json output and the legacy
//     metadata.json import.
//   - CBOR for its own files: signature database snapshots written by
//     export and read by import.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Exporting the same signatures twice produces identical bytes, so
// snapshot files can be compared and hashed directly.
//
// Types implementing encoding.TextMarshaler (digest.Digest) encode as
// CBOR text strings, which keeps digests in their canonical lowercase
// hex form on disk.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Use `cbor` struct tags for types that are only ever written as
// CBOR, and `json` tags for types that also appear in CLI output;
// fxamacker/cbor reads `json` tags when `cbor` tags are absent.
package codec
