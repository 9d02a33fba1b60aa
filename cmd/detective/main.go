// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Command detective hashes samples, maintains a catalog of known
// malware signatures, and reports exact and near matches against it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/detective-h/detective/cmd/detective/cli"
)

// Exit codes. analyze reports a match with exitMatch so scripts can
// test for it; every failure uses exitError.
const (
	exitMatch = 1
	exitError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	application := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	err := application.root().Execute(ctx, args, stderr)
	if err == nil {
		return 0
	}
	// Commands that print their own output return an ExitError with
	// the desired code. Don't print a redundant "error:" line for those.
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		return coder.ExitCode()
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return exitError
}

// root builds the complete command tree.
func (a *app) root() *cli.Command {
	return &cli.Command{
		Name: "detective",
		Description: `Detective: malware signature matching.

Hash samples, keep a catalog of known signatures, and check new files
for exact matches and likely variants.`,
		Subcommands: []*cli.Command{
			a.hashCommand(),
			a.hashStringCommand(),
			a.compareCommand(),
			a.compareHexCommand(),
			a.addCommand(),
			a.analyzeCommand(),
			a.listCommand(),
			a.showCommand(),
			a.exportCommand(),
			a.importCommand(),
			a.importLegacyCommand(),
			a.versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Register a known sample",
				Command:     "detective add dropper.exe --name trojan_A --type trojan",
			},
			{
				Description: "Check a new file against the catalog (exit 1 on match)",
				Command:     "detective analyze suspicious.bin",
			},
			{
				Description: "Compare two files for variant similarity",
				Command:     "detective compare a.bin b.bin",
			},
		},
	}
}
