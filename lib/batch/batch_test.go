// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/detective-h/detective/lib/digest"
)

func TestHashPreservesOrder(t *testing.T) {
	engine := digest.Default()
	inputs := make([][]byte, 1000)
	for index := range inputs {
		inputs[index] = []byte(fmt.Sprintf("sample-%04d", index))
	}

	for _, workers := range []int{0, 1, 3, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			hasher := &Hasher{Engine: engine, Workers: workers}
			results := hasher.Hash(inputs)
			if len(results) != len(inputs) {
				t.Fatalf("got %d results, want %d", len(results), len(inputs))
			}
			for index, result := range results {
				if result.Err != nil {
					t.Fatalf("result %d: %v", index, result.Err)
				}
				if want := engine.Hash(inputs[index]); !digest.Equal(result.Digest, want) {
					t.Fatalf("result %d = %s, want %s", index, result.Digest, want)
				}
			}
		})
	}
}

func TestHashStringsMatchesSingleHashing(t *testing.T) {
	engine := digest.Default()
	inputs := []string{"virus_A", "virus_B", "safe_code"}

	hexes := Hexes((&Hasher{Engine: engine}).HashStrings(inputs))
	for index, input := range inputs {
		if want := engine.HashString(input).String(); hexes[index] != want {
			t.Errorf("hexes[%d] = %s, want %s", index, hexes[index], want)
		}
	}
}

func TestHashEmptyBatch(t *testing.T) {
	hasher := &Hasher{}
	if results := hasher.Hash(nil); results == nil || len(results) != 0 {
		t.Errorf("Hash(nil) = %v, want empty non-nil slice", results)
	}
	if results := hasher.HashStrings([]string{}); len(results) != 0 {
		t.Errorf("HashStrings(empty) = %v, want empty", results)
	}
}

func TestHashEmptyInputIsValid(t *testing.T) {
	engine := digest.Default()
	results := (&Hasher{Engine: engine}).Hash([][]byte{nil, {}, []byte("x")})
	if err := FirstError(results); err != nil {
		t.Fatalf("FirstError: %v", err)
	}
	if !digest.Equal(results[0].Digest, engine.Hash(nil)) {
		t.Error("nil input should hash as zero bytes")
	}
	if !digest.Equal(results[0].Digest, results[1].Digest) {
		t.Error("nil and empty inputs should produce the same digest")
	}
}

func TestHashUsesEngineSize(t *testing.T) {
	engine, err := digest.NewEngine(digest.Options{Algorithm: digest.BLAKE2b, Size: 20})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	results := (&Hasher{Engine: engine}).HashStrings([]string{"a", "b"})
	for index, result := range results {
		if result.Digest.Len() != 20 {
			t.Errorf("result %d length = %d, want 20", index, result.Digest.Len())
		}
	}
}

func TestHexesRendersFailedSlotsEmpty(t *testing.T) {
	results := []Result{
		{Digest: digest.Digest{0xab, 0xcd}},
		{Err: ErrItemFailed},
		{Digest: digest.Digest{0x01}},
	}
	hexes := Hexes(results)
	want := []string{"abcd", "", "01"}
	for index := range want {
		if hexes[index] != want[index] {
			t.Errorf("hexes[%d] = %q, want %q", index, hexes[index], want[index])
		}
	}
	if FirstError(results) != ErrItemFailed {
		t.Errorf("FirstError = %v, want ErrItemFailed", FirstError(results))
	}
}

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, count := range []int{0, 1, 7, 100, 1001} {
		for _, workers := range []int{-1, 0, 1, 4, 2000} {
			visits := make([]int32, count)
			ForEach(workers, count, func(index int) {
				atomic.AddInt32(&visits[index], 1)
			})
			for index, visited := range visits {
				if visited != 1 {
					t.Fatalf("count=%d workers=%d: index %d visited %d times", count, workers, index, visited)
				}
			}
		}
	}
}
