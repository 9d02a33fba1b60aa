// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/config"
	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/fingerprint"
	"github.com/detective-h/detective/lib/similarity"
	"github.com/detective-h/detective/lib/verdict"
)

type compareResult struct {
	First           string          `json:"first"`
	Second          string          `json:"second"`
	By              string          `json:"by"`
	FirstValue      string          `json:"first_value"`
	SecondValue     string          `json:"second_value"`
	HammingDistance int             `json:"hamming_distance"`
	Similarity      float64         `json:"similarity"`
	Verdict         verdict.Verdict `json:"verdict"`
}

func (a *app) compareCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
		By string `flag:"by" desc:"compare content fingerprints (fingerprint) or digests (digest); default from config"`
	}
	return &cli.Command{
		Name:    "compare",
		Summary: "Measure how similar two files are",
		Description: `Compare two files bit by bit and print the Hamming distance, the
similarity score, and a verdict.

By default the files' content fingerprints are compared, which keeps
related files close even when bytes differ. With --by digest the
cryptographic digests are compared instead: any change at all yields a
score near 0.5.`,
		Usage: "detective compare <file1> <file2> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("compare", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, 2, "detective compare <file1> <file2>"); err != nil {
				return err
			}
			s, err := a.open(params.commonParams, "compare")
			if err != nil {
				return err
			}
			by := params.By
			if by == "" {
				by = s.config.Analysis.By
			}

			first, err := s.measure(args[0], by)
			if err != nil {
				return err
			}
			second, err := s.measure(args[1], by)
			if err != nil {
				return err
			}
			distance, err := similarity.HammingDistance(first, second)
			if err != nil {
				return classifyError(err)
			}
			score, err := similarity.Score(first, second)
			if err != nil {
				return classifyError(err)
			}

			result := compareResult{
				First:           args[0],
				Second:          args[1],
				By:              by,
				FirstValue:      first.String(),
				SecondValue:     second.String(),
				HammingDistance: distance,
				Similarity:      score,
				Verdict:         s.bands().Classify(score),
			}
			if done, err := params.EmitJSON(a.stdout, result); done {
				return err
			}

			style := newStyles(a.stdout)
			fmt.Fprintf(a.stdout, "%s %s\n", style.label.Render("file 1:          "), result.First)
			fmt.Fprintf(a.stdout, "%s %s\n", style.label.Render("file 2:          "), result.Second)
			fmt.Fprintf(a.stdout, "%s %d of %d bits\n", style.label.Render("hamming distance:"), distance, first.Bits())
			fmt.Fprintf(a.stdout, "%s %.2f%%\n", style.label.Render("similarity:      "), score*100)
			fmt.Fprintf(a.stdout, "%s %s\n", style.label.Render("verdict:         "), style.verdict(result.Verdict))
			return nil
		},
	}
}

// measure returns the fingerprint or digest of the file at path.
func (s *session) measure(path, by string) (digest.Digest, error) {
	var value digest.Digest
	var err error
	switch by {
	case config.ByFingerprint:
		value, err = fingerprint.ComputeFile(path)
	case config.ByDigest:
		value, err = s.engine.HashFile(path)
	default:
		return nil, cli.Validation("--by must be %q or %q, got %q", config.ByFingerprint, config.ByDigest, by)
	}
	if err != nil {
		return nil, classifyError(err)
	}
	return value, nil
}

func (a *app) compareHexCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "compare-hex",
		Summary: "Check whether two hex digests are equal",
		Description: `Decode two hex digests and compare the bytes. Case is ignored.
Malformed hex is an error rather than a mismatch.`,
		Usage: "detective compare-hex <hex> <hex> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("compare-hex", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, 2, "detective compare-hex <hex> <hex>"); err != nil {
				return err
			}
			equal, err := digest.CompareHex(args[0], args[1])
			if err != nil {
				return classifyError(err)
			}
			if done, err := params.EmitJSON(a.stdout, map[string]bool{"equal": equal}); done {
				return err
			}
			if equal {
				fmt.Fprintln(a.stdout, "equal")
			} else {
				fmt.Fprintln(a.stdout, "different")
			}
			return nil
		},
	}
}
