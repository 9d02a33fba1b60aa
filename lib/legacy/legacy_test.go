// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package legacy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/detective-h/detective/lib/digest"
)

const sampleMetadata = `{
	// exported from the old tracker
	"worm_B": {
		"hash": "ABCDEF0123456789",
		"added_date": "2024-05-01T12:34:56.123456",
		"size": 2048,
	},
	"trojan_A": {
		"hash": "0011223344556677",
		"added_date": "2024-04-30T08:00:00Z",
		"original_path": "/samples/trojan_A.bin",
		"size": 4096,
		"type": "trojan",
		"description": "dropper", /* trailing comma */
	},
	"unknown_C": {
		"hash": "ffee",
	},
}`

func TestParseMetadata(t *testing.T) {
	records, err := ParseMetadata([]byte(sampleMetadata))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	names := []string{records[0].Name, records[1].Name, records[2].Name}
	if strings.Join(names, ",") != "trojan_A,unknown_C,worm_B" {
		t.Errorf("names = %v, want sorted", names)
	}

	trojan := records[0]
	if trojan.Hash != "0011223344556677" || trojan.Size != 4096 || trojan.Type != "trojan" ||
		trojan.Description != "dropper" || trojan.OriginalPath != "/samples/trojan_A.bin" {
		t.Errorf("trojan_A = %+v", trojan)
	}
	if want := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC); !trojan.AddedAt.Equal(want) {
		t.Errorf("trojan_A AddedAt = %v, want %v", trojan.AddedAt, want)
	}

	worm := records[2]
	if worm.Hash != "abcdef0123456789" {
		t.Errorf("worm_B hash = %q, want lowercase", worm.Hash)
	}
	if want := time.Date(2024, 5, 1, 12, 34, 56, 123456000, time.UTC); !worm.AddedAt.Equal(want) {
		t.Errorf("worm_B AddedAt = %v, want %v", worm.AddedAt, want)
	}

	if !records[1].AddedAt.IsZero() {
		t.Errorf("unknown_C AddedAt = %v, want zero for missing date", records[1].AddedAt)
	}
}

func TestParseMetadataReportsAllInvalidEntries(t *testing.T) {
	data := `{
		"good": {"hash": "aa"},
		"bad_hash": {"hash": "xyz"},
		"missing_hash": {},
		"bad_date": {"hash": "bb", "added_date": "last tuesday"}
	}`
	_, err := ParseMetadata([]byte(data))
	if err == nil {
		t.Fatal("ParseMetadata should fail")
	}
	if !errors.Is(err, digest.ErrInvalidDigestFormat) {
		t.Errorf("error should wrap ErrInvalidDigestFormat: %v", err)
	}
	for _, name := range []string{"bad_hash", "missing_hash", "bad_date"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not mention %q: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), `"good"`) {
		t.Errorf("error mentions a valid entry: %v", err)
	}
}

func TestParseMetadataMalformed(t *testing.T) {
	for _, data := range []string{"", "[]", `{"a": "not an object"}`, "{"} {
		if _, err := ParseMetadata([]byte(data)); err == nil {
			t.Errorf("ParseMetadata(%q) should fail", data)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(sampleMetadata), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}
