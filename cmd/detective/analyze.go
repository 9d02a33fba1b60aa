// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/config"
	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/fingerprint"
	"github.com/detective-h/detective/lib/verdict"
)

type analyzeMatch struct {
	Name       string          `json:"name"`
	Type       string          `json:"type,omitempty"`
	Exact      bool            `json:"exact"`
	Similarity float64         `json:"similarity"`
	Verdict    verdict.Verdict `json:"verdict"`
}

type analyzeResult struct {
	File      string         `json:"file"`
	Hash      string         `json:"hash"`
	By        string         `json:"by"`
	Threshold float64        `json:"threshold"`
	Matches   []analyzeMatch `json:"matches"`

	// Skipped counts signatures left out of similarity scoring
	// because their digest size cannot be compared with the sample's.
	Skipped int `json:"skipped,omitempty"`
}

func (a *app) analyzeCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
		Threshold float64 `flag:"threshold" default:"-1" desc:"minimum similarity to report, 0-1 (default from config)"`
		By        string  `flag:"by" desc:"similarity over fingerprint or digest (default from config)"`
	}
	return &cli.Command{
		Name:    "analyze",
		Summary: "Check a file against known signatures",
		Description: `Look the file up in the catalog: first for signatures with an
identical digest, then for signatures whose similarity meets the
threshold. Matches are printed best first.

Exits 0 when nothing matches and 1 when at least one signature
matches, so scripts can branch on the result.`,
		Usage: "detective analyze <file> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("analyze", &params) },
		Examples: []cli.Example{
			{Description: "Report variants at 90% similarity or more", Command: "detective analyze --threshold 0.9 sample.bin"},
			{Description: "Gate a pipeline step", Command: "detective analyze upload.bin || quarantine upload.bin"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective analyze <file>"); err != nil {
				return err
			}
			path := args[0]
			s, err := a.open(params.commonParams, "analyze")
			if err != nil {
				return err
			}
			threshold := params.Threshold
			if threshold < 0 {
				threshold = s.config.Analysis.Threshold
			}
			if math.IsNaN(threshold) || threshold > 1 {
				return cli.Validation("--threshold must be between 0 and 1, got %v", threshold)
			}
			by := params.By
			if by == "" {
				by = s.config.Analysis.By
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return cli.NotFound("reading sample: %w", err)
			}
			hash := s.engine.Hash(data)
			var target digest.Digest
			field := catalog.FieldHash
			switch by {
			case config.ByFingerprint:
				target = fingerprint.Compute(data)
				field = catalog.FieldFingerprint
			case config.ByDigest:
				target = hash
			default:
				return cli.Validation("--by must be %q or %q, got %q", config.ByFingerprint, config.ByDigest, by)
			}

			signatures, err := s.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer signatures.Close()

			result := analyzeResult{File: path, Hash: hash.String(), By: by, Threshold: threshold, Matches: []analyzeMatch{}}
			seen := make(map[string]bool)

			exact, err := s.database()
			if err != nil {
				return cli.Internal("%w", err)
			}
			exactRecords, err := signatures.Load(ctx, exact, catalog.FieldHash)
			if err != nil {
				return classifyError(err)
			}
			for _, index := range exact.SearchDigest(hash) {
				record := exactRecords[index]
				seen[record.Name] = true
				result.Matches = append(result.Matches, analyzeMatch{
					Name:       record.Name,
					Type:       record.Type,
					Exact:      true,
					Similarity: 1,
					Verdict:    verdict.Identical,
				})
			}

			similar, err := s.database()
			if err != nil {
				return cli.Internal("%w", err)
			}
			hashLength := s.config.Analysis.HashLength
			similarRecords, err := signatures.LoadWhere(ctx, similar, field, func(record catalog.Record, length int) bool {
				if comparableLength(length, len(target), hashLength) {
					return true
				}
				s.logger.Warn("signature skipped for similarity, digest size differs",
					"name", record.Name,
					"size", length,
					"target_size", len(target),
				)
				result.Skipped++
				return false
			})
			if err != nil {
				return classifyError(err)
			}
			scored, err := similar.SimilaritySearch(target, threshold)
			if err != nil {
				return classifyError(err)
			}
			bands := s.bands()
			for _, candidate := range scored {
				record := similarRecords[candidate.Index]
				if seen[record.Name] {
					continue
				}
				result.Matches = append(result.Matches, analyzeMatch{
					Name:       record.Name,
					Type:       record.Type,
					Similarity: candidate.Score,
					Verdict:    bands.Classify(candidate.Score),
				})
			}
			s.logger.Info("analysis complete",
				"file", path,
				"signatures", len(exactRecords),
				"matches", len(result.Matches),
			)

			if done, err := params.EmitJSON(a.stdout, result); done {
				if err != nil {
					return err
				}
			} else {
				a.printAnalysis(result)
			}
			if len(result.Matches) > 0 {
				return &cli.ExitError{Code: exitMatch}
			}
			return nil
		},
	}
}

func (a *app) printAnalysis(result analyzeResult) {
	if len(result.Matches) == 0 {
		fmt.Fprintf(a.stdout, "%s does not match any known signature\n", result.File)
		return
	}
	style := newStyles(a.stdout)
	fmt.Fprintf(a.stdout, "%s matches %d known signature(s):\n", result.File, len(result.Matches))
	for _, match := range result.Matches {
		kind := "similar"
		if match.Exact {
			kind = "exact"
		}
		fmt.Fprintf(a.stdout, "  %-24s %6.2f%%  %-7s  %s\n", match.Name, match.Similarity*100, kind, style.name(match.Verdict))
	}
}

// comparableLength reports whether a reference of the given length can
// be scored against the target. With no hash length configured the
// sizes must agree; otherwise the reference must cover the prefix.
func comparableLength(reference, target, hashLength int) bool {
	if hashLength == 0 {
		return reference == target
	}
	return reference >= hashLength
}
