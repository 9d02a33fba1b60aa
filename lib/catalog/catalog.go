// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/detective-h/detective/lib/digest"
	"github.com/detective-h/detective/lib/sigdb"
	"github.com/detective-h/detective/lib/sqlitepool"
)

// ErrNotFound is returned when no record has the requested name.
var ErrNotFound = errors.New("signature not found")

// Record is the metadata for one signature.
type Record struct {
	Name         string    `json:"name"`
	Hash         string    `json:"hash"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	AddedAt      time.Time `json:"added_at"`
	OriginalPath string    `json:"original_path,omitempty"`
	Size         int64     `json:"size"`
	Type         string    `json:"type,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Field selects which digest Load feeds into a signature database.
type Field int

const (
	// FieldHash loads each record's content digest.
	FieldHash Field = iota
	// FieldFingerprint loads each record's fingerprint, skipping
	// records that have none.
	FieldFingerprint
)

// suffixLayout is appended to a duplicate name.
const suffixLayout = "20060102150405"

const schema = `
CREATE TABLE IF NOT EXISTS signatures (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	hash          TEXT NOT NULL,
	fingerprint   TEXT NOT NULL DEFAULT '',
	added_at      TEXT NOT NULL,
	original_path TEXT NOT NULL DEFAULT '',
	size          INTEGER NOT NULL DEFAULT 0,
	type          TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS signatures_hash ON signatures (hash);
`

const selectColumns = `SELECT name, hash, fingerprint, added_at, original_path, size, type, description FROM signatures`

// Config configures Open.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// Logger receives a message per stored record. Nil discards.
	Logger *slog.Logger

	// Now supplies timestamps. Nil means time.Now.
	Now func() time.Time
}

// Catalog is an open signature catalog.
type Catalog struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the catalog at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:   cfg.Path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return &Catalog{pool: pool, logger: logger, now: now}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.pool.Close()
}

// Add stores record and returns it as stored: hex normalized to
// lowercase, AddedAt filled in if zero, and Name suffixed if the
// requested name was already taken.
func (c *Catalog) Add(ctx context.Context, record Record) (Record, error) {
	if record.Name == "" {
		return Record{}, fmt.Errorf("%w: empty signature name", digest.ErrInvalidInput)
	}
	hash, err := digest.Normalize(record.Hash)
	if err != nil {
		return Record{}, fmt.Errorf("signature %q hash: %w", record.Name, err)
	}
	record.Hash = hash
	if record.Fingerprint != "" {
		fingerprint, err := digest.Normalize(record.Fingerprint)
		if err != nil {
			return Record{}, fmt.Errorf("signature %q fingerprint: %w", record.Name, err)
		}
		record.Fingerprint = fingerprint
	}
	if record.AddedAt.IsZero() {
		record.AddedAt = c.now()
	}
	record.AddedAt = record.AddedAt.UTC()

	requested := record.Name
	err = c.pool.Transaction(ctx, func(conn *sqlite.Conn) error {
		name, err := c.availableName(conn, requested)
		if err != nil {
			return err
		}
		record.Name = name
		return sqlitex.Execute(conn, `
			INSERT INTO signatures (name, hash, fingerprint, added_at, original_path, size, type, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{
				record.Name,
				record.Hash,
				record.Fingerprint,
				record.AddedAt.Format(time.RFC3339Nano),
				record.OriginalPath,
				record.Size,
				record.Type,
				record.Description,
			},
		})
	})
	if err != nil {
		return Record{}, fmt.Errorf("adding signature %q: %w", requested, err)
	}

	if record.Name != requested {
		c.logger.Info("signature name taken, stored under suffixed name",
			"requested", requested,
			"name", record.Name,
		)
	}
	c.logger.Debug("signature stored", "name", record.Name, "hash", record.Hash)
	return record, nil
}

// availableName returns name if unused, else name with a timestamp
// suffix, adding a counter if that is taken too.
func (c *Catalog) availableName(conn *sqlite.Conn, name string) (string, error) {
	taken, err := nameExists(conn, name)
	if err != nil || !taken {
		return name, err
	}
	base := name + "_" + c.now().Format(suffixLayout)
	candidate := base
	for attempt := 2; ; attempt++ {
		taken, err := nameExists(conn, candidate)
		if err != nil || !taken {
			return candidate, err
		}
		candidate = fmt.Sprintf("%s_%d", base, attempt)
	}
}

func nameExists(conn *sqlite.Conn, name string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, `SELECT 1 FROM signatures WHERE name = ?`, &sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	return exists, err
}

// Get returns the record named name.
func (c *Catalog) Get(ctx context.Context, name string) (Record, error) {
	records, err := c.query(ctx, selectColumns+` WHERE name = ?`, name)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return records[0], nil
}

// FindByHash returns the records whose hash equals hexDigest, in
// insertion order.
func (c *Catalog) FindByHash(ctx context.Context, hexDigest string) ([]Record, error) {
	hash, err := digest.Normalize(hexDigest)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, selectColumns+` WHERE hash = ? ORDER BY id`, hash)
}

// List returns every record in insertion order.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	return c.query(ctx, selectColumns+` ORDER BY id`)
}

// Count returns the number of records.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var count int
	err := c.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT COUNT(*) FROM signatures`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("counting signatures: %w", err)
	}
	return count, nil
}

// Load appends the chosen digest of every record to database in
// insertion order and returns the loaded records, so that
// database index i corresponds to the returned record i. With
// FieldFingerprint, records without a fingerprint are skipped.
func (c *Catalog) Load(ctx context.Context, database *sigdb.Database, field Field) ([]Record, error) {
	return c.LoadWhere(ctx, database, field, nil)
}

// LoadWhere is Load restricted to the records for which keep returns
// true. keep receives the record and the decoded byte length of the
// chosen field. A nil keep loads everything.
func (c *Catalog) LoadWhere(ctx context.Context, database *sigdb.Database, field Field, keep func(record Record, length int) bool) ([]Record, error) {
	records, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	loaded := make([]Record, 0, len(records))
	for _, record := range records {
		value := record.Hash
		if field == FieldFingerprint {
			value = record.Fingerprint
			if value == "" {
				continue
			}
		}
		if keep != nil && !keep(record, len(value)/2) {
			continue
		}
		if err := database.AddLabeled(record.Name, value); err != nil {
			return nil, fmt.Errorf("loading signature %q: %w", record.Name, err)
		}
		loaded = append(loaded, record)
	}
	c.logger.Debug("signatures loaded", "count", len(loaded), "field", field.String())
	return loaded, nil
}

// String returns the field's name.
func (f Field) String() string {
	if f == FieldFingerprint {
		return "fingerprint"
	}
	return "hash"
}

func (c *Catalog) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	records := []Record{}
	err := c.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRecord(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	return records, nil
}

func scanRecord(stmt *sqlite.Stmt) (Record, error) {
	addedAt, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(3))
	if err != nil {
		return Record{}, fmt.Errorf("signature %q: parsing added_at: %w", stmt.ColumnText(0), err)
	}
	return Record{
		Name:         stmt.ColumnText(0),
		Hash:         stmt.ColumnText(1),
		Fingerprint:  stmt.ColumnText(2),
		AddedAt:      addedAt,
		OriginalPath: stmt.ColumnText(4),
		Size:         stmt.ColumnInt64(5),
		Type:         stmt.ColumnText(6),
		Description:  stmt.ColumnText(7),
	}, nil
}
