// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/detective-h/detective/cmd/detective/cli"
	"github.com/detective-h/detective/lib/version"
)

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(_ context.Context, args []string) error {
			if err := requireArgs(args, 0, 0, "detective version"); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "detective %s\n", version.Full())
			return nil
		},
	}
}
