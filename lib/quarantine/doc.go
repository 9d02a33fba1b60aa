// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package quarantine keeps inert copies of added samples.
//
// A sample is never stored in executable or even readable form. Each
// one is compressed, encrypted with age to the vault's X25519
// recipient, and written as <dir>/<hash>.age, where hash is the
// sample's lowercase hex digest. Scanning tools that walk the samples
// directory see only age ciphertext.
//
// The vault's identity lives in a separate file created with mode
// 0600 on first use. Losing it makes every stored sample unreadable;
// the signatures in the catalog are unaffected.
//
// Inside the ciphertext each sample is framed as:
//
//	magic "DQS1" | compression tag (1 byte) | original size (8 bytes, big-endian) | body
package quarantine
