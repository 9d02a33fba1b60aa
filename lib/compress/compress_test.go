// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("af1349b9f5f9a1a6a0404dea36dcc949 virus_A\n", 200))

	for _, tag := range []Tag{None, LZ4, Zstd} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, err := Compress(data, tag)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if tag != None && len(compressed) >= len(data) {
				t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
			}
			restored, err := Decompress(compressed, tag, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(restored, data) {
				t.Error("round trip changed the data")
			}
		})
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	for _, tag := range []Tag{LZ4, Zstd} {
		if _, err := Compress(data, tag); !errors.Is(err, ErrIncompressible) {
			t.Errorf("%s: Compress(random) error = %v, want ErrIncompressible", tag, err)
		}
		stored, used, err := CompressOrStore(data, tag)
		if err != nil {
			t.Fatalf("CompressOrStore: %v", err)
		}
		if used != None || !bytes.Equal(stored, data) {
			t.Errorf("%s: CompressOrStore used %s, want none with data unchanged", tag, used)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 1000)
	for _, tag := range []Tag{None, LZ4, Zstd} {
		compressed, err := Compress(data, tag)
		if err != nil {
			t.Fatalf("Compress: %v", err)
		}
		if _, err := Decompress(compressed, tag, len(data)+1); err == nil {
			t.Errorf("%s: expected size mismatch error", tag)
		}
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range []Tag{None, LZ4, Zstd} {
		parsed, err := ParseTag(tag.String())
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", tag.String(), err)
		}
		if parsed != tag {
			t.Errorf("ParseTag(%q) = %v, want %v", tag.String(), parsed, tag)
		}
	}
	if _, err := ParseTag("gzip"); err == nil {
		t.Error("expected error for unknown compression")
	}
	if _, err := Compress(nil, Tag(9)); err == nil {
		t.Error("expected error for unknown tag")
	}
}
