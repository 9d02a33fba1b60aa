// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package quarantine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/detective-h/detective/lib/compress"
	"github.com/detective-h/detective/lib/digest"
)

// ErrNotFound is returned by Retrieve for a digest with no stored
// sample.
var ErrNotFound = errors.New("sample not in quarantine")

const (
	frameMagic      = "DQS1"
	frameHeaderSize = len(frameMagic) + 1 + 8
	fileExtension   = ".age"
)

// Config configures Open.
type Config struct {
	// Dir holds the encrypted samples. It is created if missing.
	Dir string

	// IdentityFile holds the age identity. It is generated if
	// missing.
	IdentityFile string

	// Logger receives store and identity-generation messages. Nil
	// discards.
	Logger *slog.Logger
}

// Vault is an open quarantine directory.
type Vault struct {
	dir       string
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	logger    *slog.Logger
}

// Open opens the vault, creating its directory and identity as
// needed.
func Open(cfg Config) (*Vault, error) {
	if cfg.Dir == "" || cfg.IdentityFile == "" {
		return nil, fmt.Errorf("%w: quarantine needs a directory and an identity file", digest.ErrInvalidInput)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("creating quarantine directory: %w", err)
	}
	identity, err := loadOrCreateIdentity(cfg.IdentityFile, logger)
	if err != nil {
		return nil, err
	}
	return &Vault{
		dir:       cfg.Dir,
		identity:  identity,
		recipient: identity.Recipient(),
		logger:    logger,
	}, nil
}

func loadOrCreateIdentity(path string, logger *slog.Logger) (*age.X25519Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		identities, err := age.ParseIdentities(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing quarantine identity %s: %w", path, err)
		}
		identity, ok := identities[0].(*age.X25519Identity)
		if !ok {
			return nil, fmt.Errorf("quarantine identity %s is not an X25519 identity", path)
		}
		return identity, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading quarantine identity: %w", err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating quarantine identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating identity directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating quarantine identity: %w", err)
	}
	content := "# detective quarantine identity\n# public key: " + identity.Recipient().String() + "\n" + identity.String() + "\n"
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing quarantine identity: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("writing quarantine identity: %w", err)
	}
	logger.Info("generated quarantine identity",
		"path", path,
		"recipient", identity.Recipient().String(),
	)
	return identity, nil
}

// Recipient returns the vault's public key in age1... form.
func (v *Vault) Recipient() string {
	return v.recipient.String()
}

// Path returns where the sample with the given digest is stored.
func (v *Vault) Path(key digest.Digest) string {
	return filepath.Join(v.dir, key.String()+fileExtension)
}

// Exists reports whether a sample with the given digest is stored.
func (v *Vault) Exists(key digest.Digest) bool {
	_, err := os.Stat(v.Path(key))
	return err == nil
}

// Store encrypts data under key and returns the file path. Storing a
// digest that is already present leaves the existing file untouched.
func (v *Vault) Store(key digest.Digest, data []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("%w: empty quarantine key", digest.ErrInvalidInput)
	}
	path := v.Path(key)
	if v.Exists(key) {
		v.logger.Debug("sample already quarantined", "path", path)
		return path, nil
	}

	body, tag, err := compress.CompressOrStore(data, compress.Zstd)
	if err != nil {
		return "", fmt.Errorf("compressing sample: %w", err)
	}

	temporary, err := os.CreateTemp(v.dir, ".store-*")
	if err != nil {
		return "", fmt.Errorf("creating quarantine file: %w", err)
	}
	defer os.Remove(temporary.Name())

	if err := v.encryptFrame(temporary, tag, len(data), body); err != nil {
		temporary.Close()
		return "", err
	}
	if err := temporary.Close(); err != nil {
		return "", fmt.Errorf("writing quarantine file: %w", err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return "", fmt.Errorf("placing quarantine file: %w", err)
	}

	v.logger.Info("sample quarantined",
		"path", path,
		"size", len(data),
		"stored_size", len(body),
		"compression", tag.String(),
	)
	return path, nil
}

func (v *Vault) encryptFrame(destination io.Writer, tag compress.Tag, size int, body []byte) error {
	writer, err := age.Encrypt(destination, v.recipient)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	header := make([]byte, frameHeaderSize)
	copy(header, frameMagic)
	header[len(frameMagic)] = byte(tag)
	binary.BigEndian.PutUint64(header[len(frameMagic)+1:], uint64(size))

	if _, err := writer.Write(header); err != nil {
		return fmt.Errorf("encrypting sample: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("encrypting sample: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Retrieve decrypts and decompresses the sample stored under key.
func (v *Vault) Retrieve(key digest.Digest) ([]byte, error) {
	ciphertext, err := os.ReadFile(v.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading quarantine file: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), v.identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting sample %s: %w", key, err)
	}
	frame, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decrypting sample %s: %w", key, err)
	}

	if len(frame) < frameHeaderSize || string(frame[:len(frameMagic)]) != frameMagic {
		return nil, fmt.Errorf("sample %s: malformed quarantine frame", key)
	}
	tag := compress.Tag(frame[len(frameMagic)])
	size := binary.BigEndian.Uint64(frame[len(frameMagic)+1 : frameHeaderSize])
	data, err := compress.Decompress(frame[frameHeaderSize:], tag, int(size))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", key, err)
	}
	return data, nil
}
