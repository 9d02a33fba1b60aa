// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// Algorithm names a supported hash function.
type Algorithm string

const (
	// BLAKE3 is the default algorithm. Digests shorter or longer than
	// its native 32 bytes are read from the extendable output, so a
	// 16-byte BLAKE3 digest is the prefix of the 32-byte one.
	BLAKE3 Algorithm = "blake3"

	// BLAKE2b is BLAKE2b with the digest size as a parameter. Unlike
	// BLAKE3, different sizes produce unrelated outputs.
	BLAKE2b Algorithm = "blake2b"
)

const (
	// MaxSize is the largest digest size in bytes any Engine accepts.
	MaxSize = 64

	// DefaultSize is the digest size used when Options.Size is zero.
	DefaultSize = 32

	// KeySize is the exact key length for keyed hashing.
	KeySize = 32

	// ChunkSize is the read size used when hashing files and readers.
	ChunkSize = 8192
)

// ParseAlgorithm converts a configuration or flag value into an
// Algorithm. The empty string selects BLAKE3.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", BLAKE3:
		return BLAKE3, nil
	case BLAKE2b:
		return BLAKE2b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Options configures an Engine.
type Options struct {
	// Algorithm selects the hash function. Empty means BLAKE3.
	Algorithm Algorithm

	// Size is the digest size in bytes, 1 through MaxSize. Zero means
	// DefaultSize.
	Size int
}

// Engine computes digests with a fixed algorithm and size. An Engine
// holds no mutable state and is safe for concurrent use; each hashing
// call builds its own hasher.
type Engine struct {
	algorithm Algorithm
	size      int
}

// NewEngine validates options and returns an Engine.
func NewEngine(options Options) (*Engine, error) {
	algorithm, err := ParseAlgorithm(string(options.Algorithm))
	if err != nil {
		return nil, err
	}
	size := options.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 1 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidDigestSize, size, MaxSize)
	}
	return &Engine{algorithm: algorithm, size: size}, nil
}

// Default returns a BLAKE3 engine producing DefaultSize-byte digests.
func Default() *Engine {
	return &Engine{algorithm: BLAKE3, size: DefaultSize}
}

// Algorithm returns the engine's hash function.
func (e *Engine) Algorithm() Algorithm { return e.algorithm }

// Size returns the digest size in bytes.
func (e *Engine) Size() int { return e.size }

// WithSize returns an engine with the same algorithm and a different
// digest size.
func (e *Engine) WithSize(size int) (*Engine, error) {
	return NewEngine(Options{Algorithm: e.algorithm, Size: size})
}

// Hasher is an incremental hash computation. Only Write, Sum, and
// Reset are exposed; algorithm internals stay private.
type Hasher interface {
	io.Writer

	// Sum returns the digest of everything written so far. It does
	// not change the hasher state, so more data can be written after.
	Sum() Digest

	// Reset returns the hasher to its initial state, keeping its key
	// if it was created in keyed mode.
	Reset()
}

// NewHasher returns an unkeyed incremental hasher.
func (e *Engine) NewHasher() Hasher {
	switch e.algorithm {
	case BLAKE2b:
		inner, err := blake2b.New(e.size, nil)
		if err != nil {
			// Size was validated in NewEngine and no key is passed.
			panic("digest: BLAKE2b initialization failed: " + err.Error())
		}
		return &blake2bHasher{inner: inner}
	default:
		return &blake3Hasher{inner: blake3.New(), size: e.size}
	}
}

// NewKeyedHasher returns a hasher initialized in keyed mode. The key
// must be exactly KeySize bytes.
func (e *Engine) NewKeyedHasher(key []byte) (Hasher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), KeySize)
	}
	switch e.algorithm {
	case BLAKE2b:
		inner, err := blake2b.New(e.size, key)
		if err != nil {
			return nil, fmt.Errorf("initializing keyed BLAKE2b: %w", err)
		}
		return &blake2bHasher{inner: inner}, nil
	default:
		inner, err := blake3.NewKeyed(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
		}
		return &blake3Hasher{inner: inner, size: e.size}, nil
	}
}

// Hash returns the digest of data.
func (e *Engine) Hash(data []byte) Digest {
	hasher := e.NewHasher()
	hasher.Write(data)
	return hasher.Sum()
}

// HashString returns the digest of the UTF-8 bytes of s.
func (e *Engine) HashString(s string) Digest {
	return e.Hash([]byte(s))
}

// HashStream feeds chunks to a single hasher in order and returns the
// digest. The result equals Hash of the concatenated chunks.
func (e *Engine) HashStream(chunks [][]byte) Digest {
	hasher := e.NewHasher()
	for _, chunk := range chunks {
		hasher.Write(chunk)
	}
	return hasher.Sum()
}

// HashKeyed returns the keyed-mode digest of data.
func (e *Engine) HashKeyed(key, data []byte) (Digest, error) {
	hasher, err := e.NewKeyedHasher(key)
	if err != nil {
		return nil, err
	}
	hasher.Write(data)
	return hasher.Sum(), nil
}

// DeriveKey derives Size bytes of key material from a context string
// and input key material. BLAKE3 uses its native derive-key mode.
// BLAKE2b has no such mode, so HKDF over BLAKE2b-512 stands in, with
// the context as the HKDF info parameter.
func (e *Engine) DeriveKey(context string, material []byte) (Digest, error) {
	if context == "" {
		return nil, fmt.Errorf("%w: empty derivation context", ErrInvalidInput)
	}
	switch e.algorithm {
	case BLAKE2b:
		reader := hkdf.New(newBLAKE2b512, material, nil, []byte(context))
		derived := make(Digest, e.size)
		if _, err := io.ReadFull(reader, derived); err != nil {
			return nil, fmt.Errorf("deriving key: %w", err)
		}
		return derived, nil
	default:
		hasher := &blake3Hasher{inner: blake3.NewDeriveKey(context), size: e.size}
		hasher.Write(material)
		return hasher.Sum(), nil
	}
}

// HashReader hashes everything read from reader in ChunkSize reads.
func (e *Engine) HashReader(reader io.Reader) (Digest, error) {
	hasher := e.NewHasher()
	buffer := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(hasher, readerOnly{reader}, buffer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return hasher.Sum(), nil
}

// HashFile streams the file at path through the hasher in ChunkSize
// reads, so memory use is constant regardless of file size. A missing
// file fails with ErrFileNotFound; other failures wrap ErrIO.
func (e *Engine) HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: opening %s for hashing: %w", ErrIO, path, err)
	}
	defer file.Close()

	result, err := e.HashReader(file)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return result, nil
}

// readerOnly hides any WriterTo implementation on the wrapped reader
// so io.CopyBuffer actually uses the fixed-size buffer.
type readerOnly struct {
	io.Reader
}

func newBLAKE2b512() hash.Hash {
	hasher, err := blake2b.New512(nil)
	if err != nil {
		panic("digest: BLAKE2b-512 initialization failed: " + err.Error())
	}
	return hasher
}

type blake3Hasher struct {
	inner *blake3.Hasher
	size  int
}

func (h *blake3Hasher) Write(data []byte) (int, error) {
	return h.inner.Write(data)
}

// Sum reads size bytes from the extendable output. Digest snapshots
// the state, leaving the hasher usable.
func (h *blake3Hasher) Sum() Digest {
	output := make(Digest, h.size)
	if _, err := h.inner.Digest().Read(output); err != nil {
		panic("digest: BLAKE3 output read failed: " + err.Error())
	}
	return output
}

func (h *blake3Hasher) Reset() {
	h.inner.Reset()
}

type blake2bHasher struct {
	inner hash.Hash
}

func (h *blake2bHasher) Write(data []byte) (int, error) {
	return h.inner.Write(data)
}

func (h *blake2bHasher) Sum() Digest {
	return Digest(h.inner.Sum(nil))
}

func (h *blake2bHasher) Reset() {
	h.inner.Reset()
}
