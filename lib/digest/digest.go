// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by this package and by the matching packages
// built on it. Callers test with errors.Is; every returned error wraps
// exactly one of these.
var (
	// ErrInvalidInput is the parent kind for malformed arguments.
	// ErrInvalidDigestSize and ErrUnknownAlgorithm wrap it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDigestSize reports a digest size outside 1..MaxSize.
	ErrInvalidDigestSize = fmt.Errorf("%w: digest size out of range", ErrInvalidInput)

	// ErrUnknownAlgorithm reports an algorithm name this package does
	// not implement.
	ErrUnknownAlgorithm = fmt.Errorf("%w: unknown digest algorithm", ErrInvalidInput)

	// ErrInvalidDigestFormat reports a hex string that does not decode
	// to a digest.
	ErrInvalidDigestFormat = errors.New("invalid digest format")

	// ErrInvalidKeyLength reports a keyed-mode key that is not
	// exactly KeySize bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrFileNotFound reports that a file to be hashed does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrIO reports any other failure reading hash input.
	ErrIO = errors.New("i/o error")
)

// Digest is the output of a hash function: between 1 and MaxSize
// bytes. Values produced by this package are freshly allocated and
// never retained, so callers own them. Treat a Digest as immutable
// once it has been handed to another component.
type Digest []byte

// String returns the lowercase hex encoding of the digest. This is
// the canonical text form used in the catalog, snapshots, and CLI
// output.
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Len returns the digest length in bytes.
func (d Digest) Len() int {
	return len(d)
}

// Bits returns the digest length in bits.
func (d Digest) Bits() int {
	return len(d) * 8
}

// Clone returns a copy of the digest that shares no memory with d.
func (d Digest) Clone() Digest {
	if d == nil {
		return nil
	}
	return bytes.Clone(d)
}

// Format returns the lowercase hex encoding of a digest.
func Format(d Digest) string {
	return d.String()
}

// Parse decodes a hex string into a Digest. Uppercase hex digits are
// normalized to lowercase before decoding. Empty strings, odd-length
// strings, and strings containing any non-hex character fail with
// ErrInvalidDigestFormat; nothing is silently truncated.
func Parse(hexString string) (Digest, error) {
	if hexString == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidDigestFormat)
	}
	if len(hexString)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidDigestFormat, len(hexString))
	}
	decoded, err := hex.DecodeString(strings.ToLower(hexString))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigestFormat, err)
	}
	return Digest(decoded), nil
}

// MustParse is Parse for digests known to be valid at compile time
// (test fixtures, constants). Panics on invalid input.
func MustParse(hexString string) Digest {
	parsed, err := Parse(hexString)
	if err != nil {
		panic("digest.MustParse: " + err.Error())
	}
	return parsed
}

// Normalize returns the canonical lowercase form of a hex digest,
// validating it on the way.
func Normalize(hexString string) (string, error) {
	parsed, err := Parse(hexString)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// Equal reports whether a and b are byte-identical. Digests of
// different lengths are unequal; that is not an error.
func Equal(a, b Digest) bool {
	return len(a) == len(b) && bytes.Equal(a, b)
}

// CompareHex reports whether two hex digests encode the same bytes.
// Comparison happens on the decoded binary forms, so case differences
// never cause a mismatch. Either string failing to parse is an error.
func CompareHex(a, b string) (bool, error) {
	left, err := Parse(a)
	if err != nil {
		return false, fmt.Errorf("first digest: %w", err)
	}
	right, err := Parse(b)
	if err != nil {
		return false, fmt.Errorf("second digest: %w", err)
	}
	return Equal(left, right), nil
}

// MarshalText encodes the digest as lowercase hex, so digests appear
// in hex in JSON output and CBOR text fields.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses hex with the same rules as Parse.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
