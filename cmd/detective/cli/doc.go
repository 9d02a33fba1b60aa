// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the detective
// CLI.
//
// The central type is [Command], which represents a named subcommand
// with optional nested [Command.Subcommands], a [pflag.FlagSet]
// factory, and a Run function. Commands are assembled into a tree in
// cmd/detective and dispatched via [Command.Execute], which handles
// flag parsing, subcommand routing, and structured help output with
// examples.
//
// Flags are declared as tagged struct fields and bound with
// [FlagsFromParams]. Embedding [JSONOutput] adds a --json flag and the
// [JSONOutput.EmitJSON] helper.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3).
//
// Errors returned by commands are classified with [ToolError]
// categories, and [ExitError] carries a deliberate non-zero exit code
// (analyze uses exit code 1 to report a match).
package cli
