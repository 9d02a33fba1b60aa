// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/batch"
	"github.com/detective-h/detective/lib/digest"
)

type hashParams struct {
	commonParams
	cli.JSONOutput
	Size          int    `flag:"size" desc:"digest size in bytes, 1-64 (default from config)"`
	Algorithm     string `flag:"algorithm" desc:"blake3 or blake2b (default from config)"`
	KeyFile       string `flag:"key-file" desc:"hash in keyed mode with the 32-byte key in this file (raw or hex)"`
	DeriveContext string `flag:"derive-context" desc:"derive key material from the input under this context string"`
}

type hashResult struct {
	Path   string `json:"path"`
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (a *app) hashCommand() *cli.Command {
	var params hashParams
	return &cli.Command{
		Name:    "hash",
		Summary: "Print the digest of files",
		Description: `Print the digest of each file, one "<hex>  <path>" line per file.
Files are hashed in parallel in fixed-size reads; "-" reads stdin.`,
		Usage: "detective hash <file|->... [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("hash", &params) },
		Examples: []cli.Example{
			{Description: "Default BLAKE3 digest", Command: "detective hash sample.bin"},
			{Description: "64-byte BLAKE2b digest, as the legacy tracker produced", Command: "detective hash --algorithm blake2b --size 64 sample.bin"},
			{Description: "Keyed digest", Command: "detective hash --key-file site.key sample.bin"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, -1, "detective hash <file|->..."); err != nil {
				return err
			}
			if params.KeyFile != "" && params.DeriveContext != "" {
				return cli.Validation("--key-file and --derive-context are mutually exclusive")
			}
			s, err := a.open(params.commonParams, "hash")
			if err != nil {
				return err
			}
			engine, err := s.engineWith(params.Algorithm, params.Size)
			if err != nil {
				return err
			}
			var key []byte
			if params.KeyFile != "" {
				if key, err = readKeyFile(params.KeyFile); err != nil {
					return classifyError(err)
				}
			}

			results := make([]hashResult, len(args))
			failures := make([]error, len(args))
			hashOne := func(index int) {
				results[index].Path = args[index]
				value, err := a.hashPath(engine, args[index], key, params.DeriveContext)
				if err != nil {
					failures[index] = err
					results[index].Error = err.Error()
					return
				}
				results[index].Digest = value.String()
			}
			// stdin cannot be shared between workers.
			if len(args) == 1 || slices.Contains(args, "-") {
				for index := range args {
					hashOne(index)
				}
			} else {
				batch.ForEach(s.config.Batch.Workers, len(args), hashOne)
			}

			failed := 0
			var firstFailure error
			for _, failure := range failures {
				if failure != nil {
					failed++
					if firstFailure == nil {
						firstFailure = failure
					}
				}
			}
			if done, err := params.EmitJSON(a.stdout, results); done {
				if err != nil {
					return err
				}
			} else {
				for _, result := range results {
					if result.Error != "" {
						fmt.Fprintf(a.stderr, "detective: %s\n", result.Error)
						continue
					}
					fmt.Fprintf(a.stdout, "%s  %s\n", result.Digest, result.Path)
				}
			}
			if failed > 0 {
				// The category follows the first failure, so a missing
				// file reads as not found and a read error as internal.
				return classifyError(fmt.Errorf("%d of %d inputs could not be hashed: %w", failed, len(args), firstFailure))
			}
			return nil
		},
	}
}

func (a *app) hashStringCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "hash-string",
		Summary: "Print the digests of text arguments",
		Description: `Hash each argument's UTF-8 bytes as its own input. Output order
matches argument order.`,
		Usage: "detective hash-string <text>... [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("hash-string", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, -1, "detective hash-string <text>..."); err != nil {
				return err
			}
			s, err := a.open(params.commonParams, "hash-string")
			if err != nil {
				return err
			}
			hasher := &batch.Hasher{Engine: s.engine, Workers: s.config.Batch.Workers}
			results := hasher.HashStrings(args)
			if err := batch.FirstError(results); err != nil {
				return cli.Internal("%w", err)
			}

			type stringResult struct {
				Input  string `json:"input"`
				Digest string `json:"digest"`
			}
			output := make([]stringResult, len(args))
			for index, hexDigest := range batch.Hexes(results) {
				output[index] = stringResult{Input: args[index], Digest: hexDigest}
			}
			if done, err := params.EmitJSON(a.stdout, output); done {
				return err
			}
			for _, result := range output {
				fmt.Fprintf(a.stdout, "%s  %s\n", result.Digest, result.Input)
			}
			return nil
		},
	}
}

// engineWith returns the session engine, or one with the algorithm or
// size overridden.
func (s *session) engineWith(algorithm string, size int) (*digest.Engine, error) {
	if algorithm == "" && size == 0 {
		return s.engine, nil
	}
	options := digest.Options{Algorithm: s.engine.Algorithm(), Size: s.engine.Size()}
	if algorithm != "" {
		options.Algorithm = digest.Algorithm(algorithm)
	}
	if size != 0 {
		options.Size = size
	}
	engine, err := digest.NewEngine(options)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return engine, nil
}

// hashPath hashes one file (or stdin for "-") in plain, keyed, or
// derive-key mode.
func (a *app) hashPath(engine *digest.Engine, path string, key []byte, deriveContext string) (digest.Digest, error) {
	if path == "-" {
		return hashStream(engine, a.stdin, key, deriveContext)
	}
	if key == nil && deriveContext == "" {
		return engine.HashFile(path)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", digest.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", digest.ErrIO, err)
	}
	defer file.Close()
	value, err := hashStream(engine, file, key, deriveContext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return value, nil
}

func hashStream(engine *digest.Engine, reader io.Reader, key []byte, deriveContext string) (digest.Digest, error) {
	switch {
	case key != nil:
		hasher, err := engine.NewKeyedHasher(key)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(hasher, reader); err != nil {
			return nil, fmt.Errorf("%w: %w", digest.ErrIO, err)
		}
		return hasher.Sum(), nil
	case deriveContext != "":
		material, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", digest.ErrIO, err)
		}
		return engine.DeriveKey(deriveContext, material)
	default:
		return engine.HashReader(reader)
	}
}

// readKeyFile accepts either exactly KeySize raw bytes or their hex
// encoding (surrounding whitespace ignored).
func readKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	if trimmed := strings.TrimSpace(string(data)); len(trimmed) == 2*digest.KeySize {
		if key, err := digest.Parse(trimmed); err == nil {
			return key, nil
		}
	}
	if len(data) != digest.KeySize {
		return nil, fmt.Errorf("%w: key file %s holds %d bytes, want %d raw or %d hex",
			digest.ErrInvalidKeyLength, path, len(data), digest.KeySize, 2*digest.KeySize)
	}
	return data, nil
}
