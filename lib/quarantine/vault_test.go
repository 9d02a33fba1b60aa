// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package quarantine

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/detective-h/detective/lib/digest"
)

func openTestVault(t *testing.T, root string) *Vault {
	t.Helper()
	vault, err := Open(Config{
		Dir:          filepath.Join(root, "samples"),
		IdentityFile: filepath.Join(root, "keys", "quarantine.key"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return vault
}

func TestStoreAndRetrieve(t *testing.T) {
	vault := openTestVault(t, t.TempDir())

	random := make([]byte, 2048)
	if _, err := rand.Read(random); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	samples := map[string][]byte{
		"compressible":   bytes.Repeat([]byte("MZ\x90\x00 this program cannot be run in DOS mode "), 100),
		"incompressible": random,
		"empty":          {},
	}

	for name, data := range samples {
		t.Run(name, func(t *testing.T) {
			key := digest.Default().Hash(data)
			path, err := vault.Store(key, data)
			if err != nil {
				t.Fatalf("Store: %v", err)
			}
			if !strings.HasSuffix(path, key.String()+".age") {
				t.Errorf("path = %s, want <hash>.age", path)
			}

			stored, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if len(data) > 0 && bytes.Contains(stored, data[:min(len(data), 16)]) {
				t.Error("stored file contains plaintext")
			}

			restored, err := vault.Retrieve(key)
			if err != nil {
				t.Fatalf("Retrieve: %v", err)
			}
			if !bytes.Equal(restored, data) {
				t.Error("retrieved sample differs from stored sample")
			}
		})
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	vault := openTestVault(t, t.TempDir())
	data := []byte("duplicate sample")
	key := digest.Default().Hash(data)

	first, err := vault.Store(key, data)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	before, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	second, err := vault.Store(key, data)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	after, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if first != second || !bytes.Equal(before, after) {
		t.Error("storing an existing sample should leave the file untouched")
	}
}

func TestIdentityPersistsAcrossOpens(t *testing.T) {
	root := t.TempDir()
	first := openTestVault(t, root)

	info, err := os.Stat(filepath.Join(root, "keys", "quarantine.key"))
	if err != nil {
		t.Fatalf("Stat identity: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("identity mode = %o, want 0600", mode)
	}

	data := []byte("persisted sample")
	key := digest.Default().Hash(data)
	if _, err := first.Store(key, data); err != nil {
		t.Fatalf("Store: %v", err)
	}

	second := openTestVault(t, root)
	if second.Recipient() != first.Recipient() {
		t.Errorf("recipient changed across opens: %s vs %s", first.Recipient(), second.Recipient())
	}
	restored, err := second.Retrieve(key)
	if err != nil {
		t.Fatalf("Retrieve after reopen: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Error("retrieved sample differs after reopen")
	}
}

func TestRetrieveMissing(t *testing.T) {
	vault := openTestVault(t, t.TempDir())
	key := digest.Default().HashString("never stored")
	if vault.Exists(key) {
		t.Error("Exists reported a sample that was never stored")
	}
	if _, err := vault.Retrieve(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Retrieve error = %v, want ErrNotFound", err)
	}
}

func TestRetrieveWithWrongIdentityFails(t *testing.T) {
	samples := filepath.Join(t.TempDir(), "samples")
	owner, err := Open(Config{Dir: samples, IdentityFile: filepath.Join(t.TempDir(), "owner.key")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := []byte("secret sample")
	key := digest.Default().Hash(data)
	if _, err := owner.Store(key, data); err != nil {
		t.Fatalf("Store: %v", err)
	}

	intruder, err := Open(Config{Dir: samples, IdentityFile: filepath.Join(t.TempDir(), "intruder.key")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := intruder.Retrieve(key); err == nil {
		t.Fatal("a different identity must not decrypt the sample")
	}
}

func TestOpenRequiresPaths(t *testing.T) {
	if _, err := Open(Config{Dir: t.TempDir()}); !errors.Is(err, digest.ErrInvalidInput) {
		t.Errorf("Open without identity: error = %v, want ErrInvalidInput", err)
	}
}

func TestOpenRejectsGarbageIdentity(t *testing.T) {
	identityPath := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(identityPath, []byte("not an age identity\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(Config{Dir: t.TempDir(), IdentityFile: identityPath}); err == nil {
		t.Fatal("expected error for a malformed identity file")
	}
}
