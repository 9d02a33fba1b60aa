// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/detective-h/detective/lib/catalog"
	"github.com/detective-h/detective/lib/codec"
	"github.com/detective-h/detective/lib/compress"
	"github.com/detective-h/detective/lib/digest"
)

// ErrCorrupt is returned by Read for input that is not a well-formed
// snapshot.
var ErrCorrupt = errors.New("corrupt snapshot")

const (
	formatVersion = 1
	headerSize    = 20
	checksumSize  = 32

	// maxBodySize bounds the uncompressed body accepted by Read.
	maxBodySize = 1 << 30
)

var magic = [8]byte{'D', 'E', 'T', 'S', 'I', 'G', formatVersion, 0}

// Snapshot is the decoded content of a snapshot file.
type Snapshot struct {
	// Algorithm is the digest algorithm the entries were computed
	// with. Importers refuse a snapshot from a different algorithm.
	Algorithm digest.Algorithm

	// Records are the exported signatures. OriginalPath is local to
	// the exporting machine and is not written.
	Records []catalog.Record
}

type body struct {
	Algorithm string      `cbor:"algorithm"`
	Entries   []bodyEntry `cbor:"entries"`
}

type bodyEntry struct {
	Label       string `cbor:"label,omitempty"`
	Hex         string `cbor:"hex"`
	Fingerprint string `cbor:"fingerprint,omitempty"`
	Type        string `cbor:"type,omitempty"`
	Description string `cbor:"description,omitempty"`
	Size        int64  `cbor:"size,omitempty"`
	AddedAt     string `cbor:"added_at,omitempty"`
}

// Write encodes snapshot to w, compressing the body with tag (falling
// back to no compression if the body does not shrink). Records whose
// hash or fingerprint does not parse as hex are rejected.
func Write(w io.Writer, snapshot Snapshot, tag compress.Tag) error {
	encoded := body{
		Algorithm: string(snapshot.Algorithm),
		Entries:   make([]bodyEntry, 0, len(snapshot.Records)),
	}
	for index, record := range snapshot.Records {
		entry, err := encodeRecord(record)
		if err != nil {
			return fmt.Errorf("record %d (%q): %w", index, record.Name, err)
		}
		encoded.Entries = append(encoded.Entries, entry)
	}

	raw, err := codec.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encoding snapshot body: %w", err)
	}
	if len(raw) > maxBodySize {
		return fmt.Errorf("snapshot body is %d bytes, limit is %d", len(raw), maxBodySize)
	}
	stored, usedTag, err := compress.CompressOrStore(raw, tag)
	if err != nil {
		return fmt.Errorf("compressing snapshot body: %w", err)
	}

	var header [headerSize]byte
	copy(header[:8], magic[:])
	header[8] = byte(usedTag)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(stored)))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(raw)))
	checksum := digest.Default().Hash(raw)

	for _, part := range [][]byte{header[:], stored, checksum} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	return nil
}

func encodeRecord(record catalog.Record) (bodyEntry, error) {
	hash, err := digest.Normalize(record.Hash)
	if err != nil {
		return bodyEntry{}, fmt.Errorf("hash: %w", err)
	}
	entry := bodyEntry{
		Label:       record.Name,
		Hex:         hash,
		Type:        record.Type,
		Description: record.Description,
		Size:        record.Size,
	}
	if record.Fingerprint != "" {
		if entry.Fingerprint, err = digest.Normalize(record.Fingerprint); err != nil {
			return bodyEntry{}, fmt.Errorf("fingerprint: %w", err)
		}
	}
	if !record.AddedAt.IsZero() {
		entry.AddedAt = record.AddedAt.UTC().Format(time.RFC3339Nano)
	}
	return entry, nil
}

// Read decodes a snapshot from r. Every hash and fingerprint is
// validated and returned in lowercase.
func Read(r io.Reader) (Snapshot, error) {
	raw, err := readBody(r)
	if err != nil {
		return Snapshot{}, err
	}

	var decoded body
	if err := codec.Unmarshal(raw, &decoded); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decoding body: %w", ErrCorrupt, err)
	}
	algorithm, err := digest.ParseAlgorithm(decoded.Algorithm)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	snapshot := Snapshot{
		Algorithm: algorithm,
		Records:   make([]catalog.Record, 0, len(decoded.Entries)),
	}
	for index, entry := range decoded.Entries {
		record, err := decodeEntry(entry)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: entry %d (%q): %w", ErrCorrupt, index, entry.Label, err)
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	return snapshot, nil
}

func decodeEntry(entry bodyEntry) (catalog.Record, error) {
	hash, err := digest.Normalize(entry.Hex)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("hash: %w", err)
	}
	record := catalog.Record{
		Name:        entry.Label,
		Hash:        hash,
		Type:        entry.Type,
		Description: entry.Description,
		Size:        entry.Size,
	}
	if entry.Fingerprint != "" {
		if record.Fingerprint, err = digest.Normalize(entry.Fingerprint); err != nil {
			return catalog.Record{}, fmt.Errorf("fingerprint: %w", err)
		}
	}
	if entry.AddedAt != "" {
		if record.AddedAt, err = time.Parse(time.RFC3339Nano, entry.AddedAt); err != nil {
			return catalog.Record{}, fmt.Errorf("added_at: %w", err)
		}
	}
	return record, nil
}

// Diagnose returns the CBOR diagnostic notation of a snapshot's
// decompressed body, for inspecting snapshots by hand.
func Diagnose(r io.Reader) (string, error) {
	raw, err := readBody(r)
	if err != nil {
		return "", err
	}
	return codec.Diagnose(raw)
}

// readBody validates the header and checksum and returns the
// uncompressed body bytes.
func readBody(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrCorrupt, err)
	}
	if !bytes.Equal(header[:6], magic[:6]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, header[:6])
	}
	if version := header[6]; version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d is not supported (expected %d)", ErrCorrupt, version, formatVersion)
	}

	tag := compress.Tag(header[8])
	compressedSize := binary.LittleEndian.Uint32(header[12:16])
	uncompressedSize := binary.LittleEndian.Uint32(header[16:20])
	if uncompressedSize > maxBodySize || compressedSize > maxBodySize {
		return nil, fmt.Errorf("%w: body size %d exceeds limit %d", ErrCorrupt, max(compressedSize, uncompressedSize), maxBodySize)
	}

	stored := make([]byte, int(compressedSize)+checksumSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrCorrupt, err)
	}
	checksum := stored[compressedSize:]
	raw, err := compress.Decompress(stored[:compressedSize], tag, int(uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if !digest.Equal(digest.Default().Hash(raw), checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return raw, nil
}
