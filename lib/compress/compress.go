// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress implements the block compression used by
// signature snapshots and the sample quarantine. Each compressed
// block is identified by a one-byte [Tag] stored alongside it.
package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies a compression algorithm. Tag values are written to
// disk; never renumber them.
type Tag uint8

const (
	// None stores data as-is.
	None Tag = 0

	// LZ4 is LZ4 block compression: fast, modest ratio.
	LZ4 Tag = 1

	// Zstd is zstd at the default level. Hex-heavy snapshot bodies
	// and executable samples both compress well with it.
	Zstd Tag = 2
)

// ErrIncompressible is returned by Compress when the output would not
// be smaller than the input. Callers store the data with None instead.
var ErrIncompressible = errors.New("data is incompressible")

// String returns the tag's name as accepted by ParseTag.
func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseTag parses a tag name.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with tag. None returns data unchanged.
func Compress(data []byte, tag Tag) ([]byte, error) {
	switch tag {
	case None:
		return data, nil
	case LZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports incompressible input as 0 bytes.
		if written == 0 || written >= len(data) {
			return nil, ErrIncompressible
		}
		return destination[:written], nil
	case Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, ErrIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", tag)
	}
}

// CompressOrStore compresses with tag, falling back to None when the
// data does not shrink. It returns the bytes and the tag they were
// actually written with.
func CompressOrStore(data []byte, tag Tag) ([]byte, Tag, error) {
	compressed, err := Compress(data, tag)
	if errors.Is(err, ErrIncompressible) {
		return data, None, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, tag, nil
}

// Decompress reverses Compress. size is the original length and is
// verified.
func Decompress(compressed []byte, tag Tag, size int) ([]byte, error) {
	switch tag {
	case None:
		if len(compressed) != size {
			return nil, fmt.Errorf("uncompressed block: size %d does not match expected %d", len(compressed), size)
		}
		return compressed, nil
	case LZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case Zstd:
		result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", tag)
	}
}
