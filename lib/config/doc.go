// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Detective.
//
// Configuration is loaded from a single file named by either the
// DETECTIVE_CONFIG environment variable (via [Load]) or the --config
// flag (via [LoadFile]). [Resolve] implements the CLI rule: an
// explicit path wins, then DETECTIVE_CONFIG, and with neither the
// built-in [Default] is used. There is no directory search.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// defaults are stricter: lossy hex import is forced off.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${DETECTIVE_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Digest, Analysis, Batch,
//     Compat, Quarantine
//   - [Default] -- returns a Config with development defaults
//   - [Load], [LoadFile], [Resolve] -- the entry points for loading
//
// This package depends on no other Detective packages; callers map
// the string-typed digest settings onto package digest themselves.
package config
