// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/compress"
	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/legacy"
	"github.com/detective-h/detective/lib/snapshot"
)

type importSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Names    []string `json:"names"`
}

func (a *app) exportCommand() *cli.Command {
	var params struct {
		commonParams
		Compression string `flag:"compression" default:"zstd" desc:"body compression: none, lz4, or zstd"`
	}
	return &cli.Command{
		Name:    "export",
		Summary: "Write the catalog's signatures to a snapshot file",
		Description: `Write every signature name and digest to a portable snapshot, for
loading into another catalog with "detective import". "-" writes to
stdout.`,
		Usage: "detective export <file|-> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("export", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective export <file|->"); err != nil {
				return err
			}
			tag, err := compress.ParseTag(params.Compression)
			if err != nil {
				return cli.Validation("%w", err)
			}
			s, err := a.open(params.commonParams, "export")
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
			content := snapshot.Snapshot{Algorithm: s.engine.Algorithm(), Records: records}

			if args[0] == "-" {
				buffered := bufio.NewWriter(a.stdout)
				if err := snapshot.Write(buffered, content, tag); err != nil {
					return cli.Internal("%w", err)
				}
				return buffered.Flush()
			}
			if err := writeFileAtomic(args[0], func(w io.Writer) error {
				return snapshot.Write(w, content, tag)
			}); err != nil {
				return cli.Internal("exporting: %w", err)
			}
			s.logger.Info("snapshot written", "path", args[0], "signatures", len(records), "compression", tag.String())
			fmt.Fprintf(a.stderr, "exported %d signatures to %s\n", len(records), args[0])
			return nil
		},
	}
}

func (a *app) importCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
		Inspect bool `flag:"inspect" desc:"print the snapshot body in CBOR diagnostic notation instead of importing"`
	}
	return &cli.Command{
		Name:    "import",
		Summary: "Add the signatures from a snapshot file",
		Description: `Add each signature in a snapshot written by "detective export".
Signatures whose digest is already in the catalog are skipped. The
snapshot must use the configured digest algorithm. "-" reads stdin.`,
		Usage: "detective import <file|-> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("import", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective import <file|->"); err != nil {
				return err
			}
			reader, closeInput, err := a.openInput(args[0])
			if err != nil {
				return err
			}
			defer closeInput()

			if params.Inspect {
				diagnostic, err := snapshot.Diagnose(reader)
				if err != nil {
					return cli.Validation("%w", err)
				}
				fmt.Fprintln(a.stdout, diagnostic)
				return nil
			}

			s, err := a.open(params.commonParams, "import")
			if err != nil {
				return err
			}
			content, err := snapshot.Read(reader)
			if err != nil {
				return cli.Validation("%w", err)
			}
			if content.Algorithm != s.engine.Algorithm() {
				return cli.Validation("snapshot digests use %s but the catalog uses %s", content.Algorithm, s.engine.Algorithm())
			}

			return a.importRecords(ctx, s, params.JSONOutput, content.Records)
		},
	}
}

func (a *app) importLegacyCommand() *cli.Command {
	var params struct {
		commonParams
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "import-legacy",
		Summary: "Import a legacy metadata.json catalog",
		Description: `Import the JSON metadata sidecar kept by the older virus tracker
(name to hash, date, path, size, type, and description). Entries whose
hash is already in the catalog are skipped.

The legacy tracker hashed with 64-byte BLAKE2b; configure
digest.algorithm and digest.size to match before importing if new
samples should match the imported ones exactly.`,
		Usage: "detective import-legacy <metadata.json> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("import-legacy", &params) },
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 1, 1, "detective import-legacy <metadata.json>"); err != nil {
				return err
			}
			s, err := a.open(params.commonParams, "import-legacy")
			if err != nil {
				return err
			}
			records, err := legacy.ReadFile(args[0])
			if err != nil {
				return classifyError(err)
			}
			return a.importRecords(ctx, s, params.JSONOutput, records)
		},
	}
}

// importRecords adds records whose hash is not yet cataloged and
// reports what happened.
func (a *app) importRecords(ctx context.Context, s *session, output cli.JSONOutput, records []catalog.Record) error {
	signatures, err := s.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer signatures.Close()

	if err := checkDigestSizes(records, s.engine); err != nil {
		return err
	}

	summary := importSummary{Names: []string{}}
	for _, record := range records {
		existing, err := signatures.FindByHash(ctx, record.Hash)
		if err != nil {
			return classifyError(err)
		}
		if len(existing) > 0 {
			s.logger.Debug("signature already cataloged", "name", record.Name, "existing", existing[0].Name)
			summary.Skipped++
			continue
		}
		stored, err := signatures.Add(ctx, record)
		if err != nil {
			return classifyError(err)
		}
		summary.Imported++
		summary.Names = append(summary.Names, stored.Name)
	}

	if done, err := output.EmitJSON(a.stdout, summary); done {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d signatures, skipped %d already present\n", summary.Imported, summary.Skipped)
	return nil
}

func (a *app) openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return bufio.NewReader(a.stdin), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, classifyError(fmt.Errorf("opening %s: %w", path, err))
	}
	return bufio.NewReader(file), func() { file.Close() }, nil
}

// writeFileAtomic writes through a temporary file in the destination
// directory and renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(temporary.Name())

	buffered := bufio.NewWriter(temporary)
	if err := write(buffered); err != nil {
		temporary.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Close(); err != nil {
		return err
	}
	return os.Rename(temporary.Name(), path)
}


// checkDigestSizes refuses records whose hash length differs from the
// configured digest size. Such records could never match exactly, and
// they would be scored against truncated prefixes in analyze.
func checkDigestSizes(records []catalog.Record, engine *digest.Engine) error {
	mismatched := 0
	first := -1
	for index, record := range records {
		if len(record.Hash) != 2*engine.Size() {
			mismatched++
			if first < 0 {
				first = index
			}
		}
	}
	if mismatched == 0 {
		return nil
	}
	return cli.Validation("%d of %d signatures (first %q, %d bytes) do not have %d-byte digests; "+
		"set digest.algorithm and digest.size to match the source before importing",
		mismatched, len(records), records[first].Name, len(records[first].Hash)/2, engine.Size())
}
