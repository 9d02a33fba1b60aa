// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/zeebo/blake3"

	"github.com/detective-h/detective/lib/digest"
)

// Size is the fingerprint length in bytes.
const Size = 32

const bits = Size * 8

// chunkContext separates chunk feature hashes from every other BLAKE3
// use in Detective.
const chunkContext = "detective 2026-01 fingerprint chunk feature"

// Builder accumulates a fingerprint incrementally. Writing data in any
// split produces the same fingerprint as Compute on the concatenation.
// The zero value is ready to use.
type Builder struct {
	pending  []byte
	counters [bits]int32
	chunks   int
	feature  *blake3.Hasher
}

// Write adds data. It never returns an error.
func (b *Builder) Write(data []byte) (int, error) {
	b.pending = append(b.pending, data...)
	// A boundary is fully determined once MaxChunkSize bytes are
	// buffered, so chunks can be emitted without seeing the rest.
	consumed := 0
	for len(b.pending)-consumed > MaxChunkSize {
		length := findBoundary(b.pending[consumed:])
		b.addChunk(b.pending[consumed : consumed+length])
		consumed += length
	}
	if consumed > 0 {
		b.pending = append(b.pending[:0], b.pending[consumed:]...)
	}
	return len(data), nil
}

// Sum returns the fingerprint of everything written. It flushes the
// buffered tail, so call it once, after the last Write.
func (b *Builder) Sum() digest.Digest {
	for len(b.pending) > 0 {
		length := findBoundary(b.pending)
		b.addChunk(b.pending[:length])
		b.pending = b.pending[length:]
	}

	fingerprint := make(digest.Digest, Size)
	for bit, count := range b.counters {
		if count > 0 {
			fingerprint[bit/8] |= 1 << (bit % 8)
		}
	}
	return fingerprint
}

// Chunks returns how many chunks have been folded in so far.
func (b *Builder) Chunks() int {
	return b.chunks
}

func (b *Builder) addChunk(chunk []byte) {
	if b.feature == nil {
		b.feature = blake3.NewDeriveKey(chunkContext)
	} else {
		b.feature.Reset()
	}
	b.feature.Write(chunk)
	var feature [Size]byte
	b.feature.Sum(feature[:0])

	for bit := range bits {
		if feature[bit/8]&(1<<(bit%8)) != 0 {
			b.counters[bit]++
		} else {
			b.counters[bit]--
		}
	}
	b.chunks++
}

// Compute returns the fingerprint of data. Empty data has the all-zero
// fingerprint.
func Compute(data []byte) digest.Digest {
	var builder Builder
	builder.Write(data)
	return builder.Sum()
}

// ComputeReader fingerprints everything read from reader.
func ComputeReader(reader io.Reader) (digest.Digest, error) {
	var builder Builder
	buffer := make([]byte, digest.ChunkSize)
	if _, err := io.CopyBuffer(&builder, struct{ io.Reader }{reader}, buffer); err != nil {
		return nil, fmt.Errorf("%w: %w", digest.ErrIO, err)
	}
	return builder.Sum(), nil
}

// ComputeFile fingerprints the file at path, reading it in chunks.
// Missing files fail with digest.ErrFileNotFound.
func ComputeFile(path string) (digest.Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", digest.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: opening %s: %w", digest.ErrIO, path, err)
	}
	defer file.Close()

	fingerprint, err := ComputeReader(file)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return fingerprint, nil
}
