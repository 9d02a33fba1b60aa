// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/sigdb"
)

var fixedTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
		Now:  func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := catalog.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return catalog
}

func hexOf(s string) string {
	return digest.Default().HashString(s).String()
}

func TestAddAndGet(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	stored, err := catalog.Add(ctx, Record{
		Name:         "trojan.exe",
		Hash:         strings.ToUpper(hexOf("trojan")),
		OriginalPath: "/samples/trojan.exe",
		Size:         4096,
		Type:         "trojan",
		Description:  "dropper",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if stored.Hash != hexOf("trojan") {
		t.Errorf("stored hash = %s, want lowercase %s", stored.Hash, hexOf("trojan"))
	}
	if !stored.AddedAt.Equal(fixedTime) {
		t.Errorf("AddedAt = %v, want %v", stored.AddedAt, fixedTime)
	}

	got, err := catalog.Get(ctx, "trojan.exe")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.AddedAt.Equal(stored.AddedAt) {
		t.Errorf("AddedAt = %v, want %v", got.AddedAt, stored.AddedAt)
	}
	got.AddedAt = stored.AddedAt
	if got != stored {
		t.Errorf("Get = %+v, want %+v", got, stored)
	}
}

func TestGetNotFound(t *testing.T) {
	catalog := openTestCatalog(t)
	_, err := catalog.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestAddDuplicateNameGetsSuffix(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	first, err := catalog.Add(ctx, Record{Name: "sample", Hash: hexOf("one")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := catalog.Add(ctx, Record{Name: "sample", Hash: hexOf("two")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	third, err := catalog.Add(ctx, Record{Name: "sample", Hash: hexOf("three")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if first.Name != "sample" {
		t.Errorf("first name = %q, want sample", first.Name)
	}
	if second.Name != "sample_20260314150926" {
		t.Errorf("second name = %q, want sample_20260314150926", second.Name)
	}
	if third.Name != "sample_20260314150926_2" {
		t.Errorf("third name = %q, want sample_20260314150926_2", third.Name)
	}

	count, err := catalog.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestAddRejectsInvalidRecords(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record Record
		want   error
	}{
		{"empty name", Record{Hash: hexOf("x")}, digest.ErrInvalidInput},
		{"bad hash", Record{Name: "x", Hash: "xyz"}, digest.ErrInvalidDigestFormat},
		{"bad fingerprint", Record{Name: "x", Hash: hexOf("x"), Fingerprint: "0"}, digest.ErrInvalidDigestFormat},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := catalog.Add(ctx, test.record); !errors.Is(err, test.want) {
				t.Errorf("Add error = %v, want %v", err, test.want)
			}
		})
	}

	count, err := catalog.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d after rejected adds, want 0", count)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if _, err := catalog.Add(ctx, Record{Name: name, Hash: hexOf(name)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	records, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var listed []string
	for _, record := range records {
		listed = append(listed, record.Name)
	}
	if !slices.Equal(listed, names) {
		t.Errorf("List order = %v, want %v", listed, names)
	}
}

func TestFindByHash(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	for _, record := range []Record{
		{Name: "a", Hash: hexOf("shared")},
		{Name: "b", Hash: hexOf("other")},
		{Name: "c", Hash: hexOf("shared")},
	} {
		if _, err := catalog.Add(ctx, record); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	found, err := catalog.FindByHash(ctx, strings.ToUpper(hexOf("shared")))
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if len(found) != 2 || found[0].Name != "a" || found[1].Name != "c" {
		t.Errorf("FindByHash = %+v, want a and c", found)
	}
}

func TestLoadIntoDatabase(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	fingerprint := digest.Default().HashString("fp").String()
	for _, record := range []Record{
		{Name: "virus_A", Hash: hexOf("virus_A"), Fingerprint: fingerprint},
		{Name: "virus_B", Hash: hexOf("virus_B")},
	} {
		if _, err := catalog.Add(ctx, record); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	database, err := sigdb.New(sigdb.Options{})
	if err != nil {
		t.Fatalf("sigdb.New: %v", err)
	}
	records, err := catalog.Load(ctx, database, FieldHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if database.Count() != 2 || len(records) != 2 {
		t.Fatalf("loaded %d entries and %d records, want 2 and 2", database.Count(), len(records))
	}
	found, err := database.Search(hexOf("virus_B"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || records[found[0]].Name != "virus_B" {
		t.Errorf("Search(virus_B) = %v, records %+v", found, records)
	}

	fingerprints, err := sigdb.New(sigdb.Options{})
	if err != nil {
		t.Fatalf("sigdb.New: %v", err)
	}
	records, err = catalog.Load(ctx, fingerprints, FieldFingerprint)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fingerprints.Count() != 1 || records[0].Name != "virus_A" {
		t.Errorf("fingerprint load = %d entries, records %+v", fingerprints.Count(), records)
	}
}

func TestLoadWhereFiltersByLength(t *testing.T) {
	catalog := openTestCatalog(t)
	ctx := context.Background()

	wide, err := digest.Default().WithSize(64)
	if err != nil {
		t.Fatalf("WithSize: %v", err)
	}
	for _, record := range []Record{
		{Name: "narrow_A", Hash: hexOf("narrow_A")},
		{Name: "wide_B", Hash: wide.HashString("wide_B").String()},
		{Name: "narrow_C", Hash: hexOf("narrow_C")},
	} {
		if _, err := catalog.Add(ctx, record); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	database, err := sigdb.New(sigdb.Options{})
	if err != nil {
		t.Fatalf("sigdb.New: %v", err)
	}
	var skipped []string
	records, err := catalog.LoadWhere(ctx, database, FieldHash, func(record Record, length int) bool {
		if length != 64 {
			skipped = append(skipped, record.Name)
			return false
		}
		return true
	})
	if err != nil {
		t.Fatalf("LoadWhere: %v", err)
	}
	if database.Count() != 1 || len(records) != 1 || records[0].Name != "wide_B" {
		t.Errorf("loaded %d entries, records %+v, want only wide_B", database.Count(), records)
	}
	if !slices.Equal(skipped, []string{"narrow_A", "narrow_C"}) {
		t.Errorf("skipped = %v, want [narrow_A narrow_C]", skipped)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	catalog, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := catalog.Add(ctx, Record{Name: "kept", Hash: hexOf("kept")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := catalog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	record, err := reopened.Get(ctx, "kept")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if record.Hash != hexOf("kept") {
		t.Errorf("hash after reopen = %s, want %s", record.Hash, hexOf("kept"))
	}
}
