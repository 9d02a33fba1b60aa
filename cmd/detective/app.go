// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/config"
	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/quarantine"
	"github.com/detective-h/detective/lib/sigdb"
	"github.com/detective-h/detective/lib/verdict"
)

// app holds the process streams shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// commonParams are accepted by every command that reads configuration.
type commonParams struct {
	ConfigPath string `flag:"config" desc:"configuration file (default: $DETECTIVE_CONFIG, else built-in defaults)"`
	Verbose    bool   `flag:"verbose,v" desc:"log progress to stderr"`
}

// session is the per-invocation state built from configuration.
type session struct {
	config *config.Config
	engine *digest.Engine
	logger *slog.Logger
}

func (a *app) open(params commonParams, command string) (*session, error) {
	cfg, err := config.Resolve(params.ConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NotFound("%w", err)
		}
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}

	engine, err := digest.NewEngine(digest.Options{
		Algorithm: digest.Algorithm(cfg.Digest.Algorithm),
		Size:      cfg.Digest.Size,
	})
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	level := slog.LevelWarn
	if params.Verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(a.stderr, level).With("command", command)

	return &session{config: cfg, engine: engine, logger: logger}, nil
}

func (s *session) openCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if err := s.config.EnsurePaths(); err != nil {
		return nil, cli.Internal("%w", err)
	}
	opened, err := catalog.Open(ctx, catalog.Config{
		Path:   s.config.Paths.Catalog,
		Logger: s.logger,
	})
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	return opened, nil
}

// openVault returns nil when quarantine is disabled.
func (s *session) openVault() (*quarantine.Vault, error) {
	if !s.config.Quarantine.Enabled {
		return nil, nil
	}
	vault, err := quarantine.Open(quarantine.Config{
		Dir:          s.config.Paths.Samples,
		IdentityFile: s.config.Quarantine.IdentityFile,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	return vault, nil
}

func (s *session) database() (*sigdb.Database, error) {
	return sigdb.New(sigdb.Options{
		LossyHex:   s.config.Compat.LossyHex,
		HashLength: s.config.Analysis.HashLength,
		Workers:    s.config.Batch.Workers,
		Logger:     s.logger,
	})
}

func (s *session) bands() verdict.Bands {
	bands := s.config.Analysis.Bands
	return verdict.Bands{Identical: bands.Identical, Variant: bands.Variant, Related: bands.Related}
}

// classifyError maps library errors onto CLI categories.
func classifyError(err error) error {
	var toolError *cli.ToolError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &toolError):
		return err
	case errors.Is(err, digest.ErrFileNotFound), errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, quarantine.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &cli.ToolError{Category: cli.CategoryNotFound, Err: err}
	case errors.Is(err, digest.ErrInvalidInput), errors.Is(err, digest.ErrInvalidDigestFormat),
		errors.Is(err, digest.ErrInvalidKeyLength):
		return &cli.ToolError{Category: cli.CategoryValidation, Err: err}
	default:
		return &cli.ToolError{Category: cli.CategoryInternal, Err: err}
	}
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, minimum, maximum int, usage string) error {
	if len(args) < minimum || (maximum >= 0 && len(args) > maximum) {
		return cli.Validation("usage: %s", usage)
	}
	return nil
}
