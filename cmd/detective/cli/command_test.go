// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "detective",
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string) error { called = "version"; return nil }},
			{Name: "hash", Run: func(_ context.Context, args []string) error {
				called = "hash"
				receivedArgs = args
				return nil
			}},
		},
	}

	if err := root.Execute(context.Background(), []string{"hash", "sample.bin"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "hash" {
		t.Errorf("dispatched to %q, want hash", called)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "sample.bin" {
		t.Errorf("args = %v, want [sample.bin]", receivedArgs)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var params struct {
		Size      int     `flag:"size" default:"32"`
		Threshold float64 `flag:"threshold" default:"0.85"`
	}
	var positional []string
	command := &Command{
		Name:  "analyze",
		Flags: func() *pflag.FlagSet { return FlagsFromParams("analyze", &params) },
		Run: func(_ context.Context, args []string) error {
			positional = args
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--threshold", "0.9", "sample.bin"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if params.Threshold != 0.9 || params.Size != 32 {
		t.Errorf("params = %+v, want threshold 0.9 and default size 32", params)
	}
	if len(positional) != 1 || positional[0] != "sample.bin" {
		t.Errorf("positional = %v", positional)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "detective",
		Subcommands: []*Command{
			{Name: "analyze", Run: func(context.Context, []string) error { return nil }},
			{Name: "add", Run: func(context.Context, []string) error { return nil }},
		},
	}
	err := root.Execute(context.Background(), []string{"analyse"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("unknown command should fail")
	}
	if !strings.Contains(err.Error(), `did you mean "analyze"`) {
		t.Errorf("error = %q, want analyze suggestion", err)
	}
	if CategoryOf(err) != CategoryValidation {
		t.Errorf("category = %s, want validation", CategoryOf(err))
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzzzz"}, &bytes.Buffer{})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant command: error = %v, want no suggestion", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	var params struct {
		Threshold float64 `flag:"threshold"`
	}
	command := &Command{
		Name:  "analyze",
		Flags: func() *pflag.FlagSet { return FlagsFromParams("analyze", &params) },
		Run:   func(context.Context, []string) error { return nil },
	}
	err := command.Execute(context.Background(), []string{"--treshold", "0.5"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("unknown flag should fail")
	}
	if !strings.Contains(err.Error(), "did you mean --threshold") {
		t.Errorf("error = %q, want --threshold suggestion", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	var params struct {
		JSONOutput
	}
	command := &Command{
		Name:        "list",
		Summary:     "List signatures",
		Description: "List every signature in the catalog.",
		Examples:    []Example{{Description: "As JSON", Command: "detective list --json"}},
		Flags:       func() *pflag.FlagSet { return FlagsFromParams("list", &params) },
		Run: func(context.Context, []string) error {
			t.Error("Run should not be called for --help")
			return nil
		},
	}

	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}} {
		var help bytes.Buffer
		if err := command.Execute(context.Background(), args, &help); err != nil {
			t.Fatalf("Execute(%v): %v", args, err)
		}
		for _, want := range []string{"List every signature", "Usage:", "--json", "detective list --json"} {
			if !strings.Contains(help.String(), want) {
				t.Errorf("help for %v missing %q:\n%s", args, want, help.String())
			}
		}
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "detective",
		Subcommands: []*Command{{Name: "version", Summary: "Print version"}},
	}
	var help bytes.Buffer
	if err := root.Execute(context.Background(), nil, &help); err == nil {
		t.Error("missing subcommand should fail")
	}
	if !strings.Contains(help.String(), "version") {
		t.Errorf("help should list subcommands:\n%s", help.String())
	}
}
