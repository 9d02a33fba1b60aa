// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/fingerprint"
)

type addResult struct {
	catalog.Record
	Quarantined string `json:"quarantined,omitempty"`
}

func (a *app) addCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
		Name        string `flag:"name" desc:"signature name (default: the file name)"`
		Type        string `flag:"type" desc:"sample type, e.g. trojan or worm"`
		Description string `flag:"description" desc:"free-form description"`
	}
	return &cli.Command{
		Name:    "add",
		Summary: "Register a sample as a known signature",
		Description: `Hash and fingerprint a sample and record it in the catalog. If the
name is already taken, a timestamp suffix is appended. When quarantine
is enabled, an encrypted copy of the sample is kept as well.`,
		Usage: "detective add <file> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("add", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective add <file>"); err != nil {
				return err
			}
			path := args[0]
			s, err := a.open(params.commonParams, "add")
			if err != nil {
				return err
			}

			// The sample is read once: the digest, fingerprint, and
			// quarantine copy all come from the same bytes.
			data, err := os.ReadFile(path)
			if err != nil {
				return cli.NotFound("reading sample: %w", err)
			}
			name := params.Name
			if name == "" {
				name = filepath.Base(path)
			}
			absolute, err := filepath.Abs(path)
			if err != nil {
				absolute = path
			}
			hash := s.engine.Hash(data)

			signatures, err := s.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer signatures.Close()

			record, err := signatures.Add(ctx, catalog.Record{
				Name:         name,
				Hash:         hash.String(),
				Fingerprint:  fingerprint.Compute(data).String(),
				OriginalPath: absolute,
				Size:         int64(len(data)),
				Type:         params.Type,
				Description:  params.Description,
			})
			if err != nil {
				return classifyError(err)
			}
			result := addResult{Record: record}

			vault, err := s.openVault()
			if err != nil {
				return err
			}
			if vault != nil {
				stored, err := vault.Store(hash, data)
				if err != nil {
					return cli.Internal("quarantining sample: %w", err)
				}
				result.Quarantined = stored
			}

			if done, err := params.EmitJSON(a.stdout, result); done {
				return err
			}
			fmt.Fprintf(a.stdout, "added %s\n  hash:        %s\n  fingerprint: %s\n", record.Name, record.Hash, record.Fingerprint)
			if result.Quarantined != "" {
				fmt.Fprintf(a.stdout, "  quarantined: %s\n", result.Quarantined)
			}
			return nil
		},
	}
}

func (a *app) listCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "list",
		Summary: "List known signatures",
		Usage:   "detective list [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, 0, "detective list"); err != nil {
				return err
			}
			s, err := a.open(params.commonParams, "list")
			if err != nil {
				return err
			}
			signatures, err := s.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer signatures.Close()

			records, err := signatures.List(ctx)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if done, err := params.EmitJSON(a.stdout, records); done {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stdout, "no signatures registered")
				return nil
			}
			fmt.Fprintf(a.stdout, "%d signatures:\n", len(records))
			tw := tabwriter.NewWriter(a.stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "NAME\tTYPE\tADDED\n")
			for _, record := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", record.Name, orDash(record.Type), record.AddedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
		Extract string `flag:"extract" desc:"decrypt the quarantined sample into this file (mode 0600)"`
	}
	return &cli.Command{
		Name:    "show",
		Summary: "Show one signature's metadata",
		Description: `Print the catalog record for a signature. With --extract, the
sample kept in quarantine when it was added is decrypted and written
to the given file instead.`,
		Usage: "detective show <name> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("show", &params) },
		Examples: []cli.Example{
			{Description: "Recover a sample for analysis in a sandbox", Command: "detective show trojan_A --extract /sandbox/in/trojan_A.bin"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective show <name>"); err != nil {
				return err
			}
			s, err := a.open(params.commonParams, "show")
			if err != nil {
				return err
			}
			signatures, err := s.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer signatures.Close()

			record, err := signatures.Get(ctx, args[0])
			if err != nil {
				return classifyError(err)
			}
			if params.Extract != "" {
				return a.extractSample(s, record, params.Extract)
			}
			if done, err := params.EmitJSON(a.stdout, record); done {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "name:\t%s\n", record.Name)
			fmt.Fprintf(tw, "hash:\t%s\n", record.Hash)
			fmt.Fprintf(tw, "fingerprint:\t%s\n", orDash(record.Fingerprint))
			fmt.Fprintf(tw, "type:\t%s\n", orDash(record.Type))
			fmt.Fprintf(tw, "description:\t%s\n", orDash(record.Description))
			fmt.Fprintf(tw, "size:\t%d\n", record.Size)
			fmt.Fprintf(tw, "original path:\t%s\n", orDash(record.OriginalPath))
			fmt.Fprintf(tw, "added:\t%s\n", record.AddedAt.Format(time.RFC3339))
			return tw.Flush()
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// extractSample writes the decrypted quarantine copy of record's
// sample to path.
func (a *app) extractSample(s *session, record catalog.Record, path string) error {
	vault, err := s.openVault()
	if err != nil {
		return err
	}
	if vault == nil {
		return cli.Validation("quarantine is disabled, so no copy of %q is kept", record.Name)
	}
	key, err := digest.Parse(record.Hash)
	if err != nil {
		return classifyError(err)
	}
	data, err := vault.Retrieve(key)
	if err != nil {
		return classifyError(fmt.Errorf("extracting %q: %w", record.Name, err))
	}
	if err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return cli.Internal("writing extracted sample: %w", err)
	}
	s.logger.Info("sample extracted", "name", record.Name, "path", path, "size", len(data))
	fmt.Fprintf(a.stderr, "extracted %s (%d bytes) to %s\n", record.Name, len(data), path)
	return nil
}
