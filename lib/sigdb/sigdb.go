// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package sigdb

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/match"
	"github.com/detective-h/detective/lib/similarity"
)

// ErrIndexOutOfRange is returned by Get for an index outside
// [0, Count()).
var ErrIndexOutOfRange = errors.New("index out of range")

// Entry is one stored signature. Label is opaque to the database.
type Entry struct {
	Label  string
	Hex    string
	Digest digest.Digest
}

// Lossy reports whether the entry was stored by LossyHex mode from
// hex that did not parse. Lossy entries never match anything.
func (e Entry) Lossy() bool {
	return len(e.Digest) == 0
}

// Options configures a Database.
type Options struct {
	// LossyHex stores entries with unparseable hex (as given) and an
	// empty digest instead of rejecting them.
	LossyHex bool

	// HashLength is passed to the similarity engine. Zero compares
	// over the full length of the search target.
	HashLength int

	// Workers bounds search parallelism. Zero means one per logical
	// CPU.
	Workers int

	// Logger receives a warning for every lossy insertion. Nil
	// discards.
	Logger *slog.Logger
}

// Database is an ordered collection of signatures.
type Database struct {
	options Options
	logger  *slog.Logger
	entries []Entry
	digests []digest.Digest
}

// New returns a database holding the given entries in order. Each
// entry is inserted as by AddLabeled using its Hex field; a supplied
// Digest is ignored in favour of the parsed hex.
func New(options Options, entries ...Entry) (*Database, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	database := &Database{
		options: options,
		logger:  logger,
		entries: make([]Entry, 0, len(entries)),
		digests: make([]digest.Digest, 0, len(entries)),
	}
	for index, entry := range entries {
		if err := database.AddLabeled(entry.Label, entry.Hex); err != nil {
			return nil, fmt.Errorf("initial entry %d: %w", index, err)
		}
	}
	return database, nil
}

// FromHexes returns a database of unlabeled entries.
func FromHexes(options Options, hexes []string) (*Database, error) {
	database, err := New(options)
	if err != nil {
		return nil, err
	}
	if err := database.AddMany(hexes); err != nil {
		return nil, err
	}
	return database, nil
}

// Add appends an unlabeled entry.
func (d *Database) Add(hexDigest string) error {
	return d.AddLabeled("", hexDigest)
}

// AddLabeled appends an entry carrying label.
func (d *Database) AddLabeled(label, hexDigest string) error {
	parsed, err := digest.Parse(hexDigest)
	if err != nil {
		if !d.options.LossyHex {
			return err
		}
		d.logger.Warn("storing signature with unparseable hex as empty digest",
			"label", label,
			"index", len(d.entries),
			"error", err,
		)
		d.entries = append(d.entries, Entry{Label: label, Hex: hexDigest, Digest: digest.Digest{}})
		d.digests = append(d.digests, digest.Digest{})
		return nil
	}
	d.entries = append(d.entries, Entry{Label: label, Hex: parsed.String(), Digest: parsed})
	d.digests = append(d.digests, parsed)
	return nil
}

// AddDigest appends an entry from a binary digest.
func (d *Database) AddDigest(label string, value digest.Digest) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: empty digest", digest.ErrInvalidInput)
	}
	stored := value.Clone()
	d.entries = append(d.entries, Entry{Label: label, Hex: stored.String(), Digest: stored})
	d.digests = append(d.digests, stored)
	return nil
}

// AddMany adds each hex digest in order. It stops at the first
// invalid one; entries before it remain added.
func (d *Database) AddMany(hexes []string) error {
	for position, hexDigest := range hexes {
		if err := d.Add(hexDigest); err != nil {
			return fmt.Errorf("digest %d of %d: %w", position, len(hexes), err)
		}
	}
	return nil
}

// Count returns the number of entries.
func (d *Database) Count() int {
	return len(d.entries)
}

// Get returns a copy of the entry at index.
func (d *Database) Get(index int) (Entry, error) {
	if index < 0 || index >= len(d.entries) {
		return Entry{}, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, index, len(d.entries))
	}
	entry := d.entries[index]
	entry.Digest = entry.Digest.Clone()
	return entry, nil
}

// Entries returns a copy of every entry in index order.
func (d *Database) Entries() []Entry {
	entries := make([]Entry, len(d.entries))
	for index, entry := range d.entries {
		entry.Digest = entry.Digest.Clone()
		entries[index] = entry
	}
	return entries
}

// Hexes returns the stored hex form of every entry in index order.
func (d *Database) Hexes() []string {
	hexes := make([]string, len(d.entries))
	for index, entry := range d.entries {
		hexes[index] = entry.Hex
	}
	return hexes
}

// Search returns the ascending indices of entries whose digest equals
// targetHex. An invalid target is digest.ErrInvalidDigestFormat.
func (d *Database) Search(targetHex string) ([]int, error) {
	target, err := digest.Parse(targetHex)
	if err != nil {
		return nil, err
	}
	return d.SearchDigest(target), nil
}

// SearchDigest is Search for a binary target.
func (d *Database) SearchDigest(target digest.Digest) []int {
	if len(target) == 0 {
		return []int{}
	}
	matcher := &match.Matcher{Workers: d.options.Workers}
	return matcher.BatchCompare(target, d.digests)
}

// SimilaritySearch ranks entries by bit-level similarity to target and
// returns those scoring at least threshold. Result indices are
// database indices. Lossy entries are skipped. An empty database
// returns an empty result.
func (d *Database) SimilaritySearch(target digest.Digest, threshold float64) ([]similarity.Result, error) {
	engine := &similarity.Engine{HashLength: d.options.HashLength, Workers: d.options.Workers}

	references := d.digests
	var positions []int
	if d.hasLossyEntries() {
		references = make([]digest.Digest, 0, len(d.digests))
		positions = make([]int, 0, len(d.digests))
		for index, value := range d.digests {
			if len(value) > 0 {
				references = append(references, value)
				positions = append(positions, index)
			}
		}
	}

	results, err := engine.Search(target, references, threshold)
	if err != nil {
		return nil, err
	}
	if positions != nil {
		for position := range results {
			results[position].Index = positions[results[position].Index]
		}
	}
	return results, nil
}

func (d *Database) hasLossyEntries() bool {
	for _, value := range d.digests {
		if len(value) == 0 {
			return true
		}
	}
	return false
}
