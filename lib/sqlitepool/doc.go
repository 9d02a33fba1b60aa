// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with Detective's standard
// settings and hands out connections from a fixed-size pool.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Every connection
// gets the same pragmas:
//
//   - journal_mode=WAL so listing and analysis never block an add
//   - synchronous=NORMAL
//   - busy_timeout=5000 to ride out a concurrent writer
//   - foreign_keys=ON
//   - temp_store=MEMORY
//
// [Config].Schema is executed once when the pool opens, inside an
// immediate transaction, so tables exist before any caller takes a
// connection. Callers use [Pool.WithConn] for reads and
// [Pool.Transaction] for writes; both return the connection to the
// pool on every path.
//
// Connections are not safe for concurrent use. The pool is.
package sqlitepool
