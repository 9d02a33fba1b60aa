// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Detective
// packages.
//
// [SampleBytes] produces deterministic pseudo-random sample content so
// that tests hashing and fingerprinting "binaries" are reproducible
// without checking fixtures into the tree. [WriteSample] writes such
// content (or any bytes) into a test's temporary directory.
//
// [UniqueName] generates monotonically increasing names for tests that
// add many signatures to one catalog.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Detective-internal dependencies.
package testutil
