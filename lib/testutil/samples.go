// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
)

// SampleBytes returns length pseudo-random bytes determined entirely
// by seed. Equal seeds give equal bytes on every platform.
func SampleBytes(seed uint64, length int) []byte {
	source := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(source.Uint32())
	}
	return data
}

// WriteSample writes data to name inside dir and returns the full
// path.
//
//	path := testutil.WriteSample(t, t.TempDir(), "dropper.bin", testutil.SampleBytes(1, 4096))
func WriteSample(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing sample %s: %v", path, err)
	}
	return path
}
