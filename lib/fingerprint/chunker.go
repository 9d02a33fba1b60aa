// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Chunking parameters. Changing any of them changes every fingerprint
// ever computed, so stored fingerprints would no longer compare.
const (
	// MinChunkSize is the smallest chunk, apart from the last one.
	MinChunkSize = 64

	// TargetChunkSize is the expected average chunk size.
	TargetChunkSize = 512

	// MaxChunkSize forces a boundary when no natural one occurs.
	MaxChunkSize = 4096
)

// boundaryMask has 9 high bits set, giving a boundary probability of
// 1/512 per byte once MinChunkSize is reached.
const boundaryMask uint64 = 0xFF80_0000_0000_0000

// gearTable maps each byte value to a pseudo-random 64-bit constant.
// The table is derived from BLAKE3 so it is fixed across builds
// without carrying a literal table.
var gearTable = deriveGearTable()

func deriveGearTable() [256]uint64 {
	var table [256]uint64
	raw := make([]byte, len(table)*8)
	hasher := blake3.NewDeriveKey("detective 2026-01 fingerprint gear table")
	if _, err := hasher.Digest().Read(raw); err != nil {
		panic("fingerprint: deriving gear table: " + err.Error())
	}
	for index := range table {
		table[index] = binary.LittleEndian.Uint64(raw[index*8:])
	}
	return table
}

// findBoundary returns the length of the chunk starting at data[0]:
// the first position at or after MinChunkSize where the rolling hash
// meets the boundary mask, or MaxChunkSize, or len(data), whichever
// comes first. The result depends only on the bytes it scans, so a
// stream and a whole buffer split identically.
func findBoundary(data []byte) int {
	limit := min(len(data), MaxChunkSize)
	var hash uint64
	for position := 0; position < limit; position++ {
		hash = (hash << 1) + gearTable[data[position]]
		if position+1 >= MinChunkSize && hash&boundaryMask == 0 {
			return position + 1
		}
	}
	return limit
}

// Chunks splits data into content-defined chunks. The returned slices
// alias data.
func Chunks(data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		length := findBoundary(data)
		chunks = append(chunks, data[:length])
		data = data[length:]
	}
	return chunks
}
