// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

type commonParams struct {
	ConfigPath string `flag:"config,c" desc:"config file"`
}

type sampleParams struct {
	commonParams
	JSONOutput
	Name      string   `flag:"name" desc:"signature name"`
	Size      int      `flag:"size" default:"32"`
	Threshold float64  `flag:"threshold" default:"0.85"`
	Lossy     bool     `flag:"lossy" default:"true"`
	Tags      []string `flag:"tag" default:"a,b"`
	Ignored   string
}

func TestBindFlagsDefaults(t *testing.T) {
	var params sampleParams
	flagSet := FlagsFromParams("sample", &params)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Size != 32 || params.Threshold != 0.85 || !params.Lossy {
		t.Errorf("defaults = %+v", params)
	}
	if strings.Join(params.Tags, ",") != "a,b" {
		t.Errorf("Tags = %v, want [a b]", params.Tags)
	}
	if flagSet.Lookup("ignored") != nil {
		t.Error("untagged field should not become a flag")
	}
}

func TestBindFlagsEmbeddedAndShorthand(t *testing.T) {
	var params sampleParams
	flagSet := FlagsFromParams("sample", &params)
	err := flagSet.Parse([]string{"-c", "/etc/detective.yaml", "--json", "--name", "worm", "--size=16"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.ConfigPath != "/etc/detective.yaml" {
		t.Errorf("ConfigPath = %q", params.ConfigPath)
	}
	if !params.OutputJSON {
		t.Error("--json not bound through embedded JSONOutput")
	}
	if params.Name != "worm" || params.Size != 16 {
		t.Errorf("params = %+v", params)
	}
}

func TestBindFlagsRejectsInvalidInput(t *testing.T) {
	if err := BindFlags(sampleParams{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("non-pointer params should fail")
	}

	var unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("unsupported field type should fail")
	}

	var badDefault struct {
		Size int `flag:"size" default:"big"`
	}
	if err := BindFlags(&badDefault, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("unparseable default should fail")
	}
}
