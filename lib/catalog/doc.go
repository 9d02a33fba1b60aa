// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog stores signature metadata in SQLite.
//
// Each [Record] names one known sample: its digest in lowercase hex,
// an optional content fingerprint, where it came from, and free-form
// type and description fields. Names are unique. Adding a record
// whose name is taken stores it under the name with a
// _YYYYMMDDHHMMSS suffix instead of failing, so repeated imports of
// the same file never lose data.
//
// The catalog is the persistence layer for package sigdb: [Catalog.Load]
// feeds every record, in insertion order, into an in-memory database
// and returns the records so callers can map search indices back to
// names.
package catalog
