// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package legacy imports the JSON metadata sidecar written by earlier
// virus-tracker tooling. The file maps each sample name to its record:
//
//	{
//	  "trojan_A": {
//	    "hash": "9f86d081...",
//	    "added_date": "2024-05-01T12:34:56.123456",
//	    "original_path": "/samples/trojan_A.bin",
//	    "size": 4096,
//	    "type": "trojan",
//	    "description": "dropper"
//	  }
//	}
//
// Comments and trailing commas are tolerated, since these files were
// often edited by hand.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/digest"
)

type metadataEntry struct {
	Hash         string `json:"hash"`
	AddedDate    string `json:"added_date"`
	OriginalPath string `json:"original_path"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	Description  string `json:"description"`
}

// addedDateLayouts are tried in order. Timestamps without a zone are
// taken as UTC.
var addedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseMetadata converts a metadata sidecar into catalog records,
// sorted by name. Every entry must carry a valid hex hash; all invalid
// entries are reported together.
func ParseMetadata(data []byte) ([]catalog.Record, error) {
	stripped := jsonc.ToJSON(data)

	var entries map[string]metadataEntry
	if err := json.Unmarshal(stripped, &entries); err != nil {
		return nil, fmt.Errorf("parsing legacy metadata: %w", err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)

	records := make([]catalog.Record, 0, len(names))
	var errs []error
	for _, name := range names {
		entry := entries[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("entry with empty name: %w", digest.ErrInvalidInput))
			continue
		}
		hash, err := digest.Normalize(entry.Hash)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: hash: %w", name, err))
			continue
		}
		addedAt, err := parseAddedDate(entry.AddedDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", name, err))
			continue
		}
		records = append(records, catalog.Record{
			Name:         name,
			Hash:         hash,
			AddedAt:      addedAt,
			OriginalPath: entry.OriginalPath,
			Size:         entry.Size,
			Type:         entry.Type,
			Description:  entry.Description,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("legacy metadata has invalid entries:\n%w", err)
	}
	return records, nil
}

// ReadFile reads and parses a metadata sidecar from disk.
func ReadFile(path string) ([]catalog.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	records, err := ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// parseAddedDate returns the zero time for a missing date, which the
// catalog replaces with the import time.
func parseAddedDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range addedDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized added_date %q", value)
}
