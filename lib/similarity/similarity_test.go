// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package similarity

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/detective-h/detective/lib/digest"
)

// flipBits returns a copy of d with the first count bits inverted.
func flipBits(d digest.Digest, count int) digest.Digest {
	flipped := d.Clone()
	for bit := range count {
		flipped[bit/8] ^= 1 << (bit % 8)
	}
	return flipped
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want int
	}{
		{"identical", []byte{0xff, 0x00}, []byte{0xff, 0x00}, 0},
		{"one bit", []byte{0x01}, []byte{0x00}, 1},
		{"all bits", []byte{0xff, 0xff}, []byte{0x00, 0x00}, 16},
		{"empty", nil, nil, 0},
		{"wide", make([]byte, 64), flipBits(make(digest.Digest, 64), 300), 300},
		{"unaligned tail", make([]byte, 11), flipBits(make(digest.Digest, 11), 85), 85},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := HammingDistance(test.a, test.b)
			if err != nil {
				t.Fatalf("HammingDistance: %v", err)
			}
			if got != test.want {
				t.Errorf("HammingDistance = %d, want %d", got, test.want)
			}
		})
	}
}

func TestHammingDistanceLengthMismatch(t *testing.T) {
	_, err := HammingDistance([]byte{1, 2}, []byte{1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("error = %v, want ErrLengthMismatch", err)
	}
	if !errors.Is(err, digest.ErrInvalidInput) {
		t.Errorf("ErrLengthMismatch should be an ErrInvalidInput: %v", err)
	}
}

func TestScoreReflexiveAndSymmetric(t *testing.T) {
	engine := digest.Default()
	for _, sample := range []string{"", "virus_A", "a longer sample with more bytes"} {
		hash := engine.HashString(sample)
		got, err := Score(hash, hash.Clone())
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if got != 1.0 {
			t.Errorf("Score(h, h) = %v, want exactly 1.0", got)
		}
	}

	a := engine.HashString("virus_A")
	b := engine.HashString("virus_B")
	forward, _ := Score(a, b)
	backward, _ := Score(b, a)
	if forward != backward {
		t.Errorf("Score not symmetric: %v vs %v", forward, backward)
	}
	if forward < 0 || forward > 1 {
		t.Errorf("Score = %v outside [0, 1]", forward)
	}
}

func TestScoreRejectsEmpty(t *testing.T) {
	if _, err := Score(nil, nil); !errors.Is(err, digest.ErrInvalidInput) {
		t.Errorf("Score(empty) error = %v, want ErrInvalidInput", err)
	}
}

func TestSearchThresholdBoundary(t *testing.T) {
	target := digest.Default().HashString("boundary")
	const flipped = 20
	reference := flipBits(target, flipped)
	totalBits := target.Bits()
	want := 1.0 - float64(flipped)/float64(totalBits)

	engine := &Engine{}
	results, err := engine.Search(target, []digest.Digest{reference}, want)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("threshold == score: got %d results, want 1", len(results))
	}
	if results[0].Score != want {
		t.Errorf("score = %v, want %v", results[0].Score, want)
	}

	above := math.Nextafter(want, 2)
	results, err = engine.Search(target, []digest.Digest{reference}, above)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("threshold just above score: got %v, want no results", results)
	}
}

func TestSearchThresholdAbovePerfectScore(t *testing.T) {
	target := digest.Default().HashString("perfect")
	references := []digest.Digest{target.Clone()}

	for _, threshold := range []float64{math.Nextafter(1, 2), 1.5} {
		results, err := (&Engine{}).Search(target, references, threshold)
		if err != nil {
			t.Fatalf("threshold %v: %v", threshold, err)
		}
		if len(results) != 0 {
			t.Errorf("threshold %v: got %v, want no results", threshold, results)
		}
	}

	results, err := (&Engine{}).Search(target, references, 1)
	if err != nil {
		t.Fatalf("threshold 1: %v", err)
	}
	if len(results) != 1 || results[0].Score != 1 {
		t.Errorf("threshold 1: got %v, want the identical reference", results)
	}
}

func TestSearchOrdering(t *testing.T) {
	target := digest.Default().HashString("ordering")
	references := []digest.Digest{
		flipBits(target, 40),  // 0
		target.Clone(),        // 1
		flipBits(target, 8),   // 2
		flipBits(target, 40),  // 3
		target.Clone(),        // 4
		flipBits(target, 200), // 5, below threshold
	}

	results, err := (&Engine{}).Search(target, references, 0.8)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantIndices := []int{1, 4, 2, 0, 3}
	if len(results) != len(wantIndices) {
		t.Fatalf("got %d results %v, want %d", len(results), results, len(wantIndices))
	}
	for position, result := range results {
		if result.Index != wantIndices[position] {
			t.Errorf("results[%d].Index = %d, want %d", position, result.Index, wantIndices[position])
		}
	}
	if results[0].Score != 1.0 || results[1].Score != 1.0 {
		t.Errorf("identical references should score exactly 1.0, got %v and %v", results[0].Score, results[1].Score)
	}
}

func TestSearchEmptyReferences(t *testing.T) {
	target := digest.Default().HashString("alone")
	results, err := (&Engine{}).Search(target, nil, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search(empty) = %v, want empty non-nil slice", results)
	}
}

func TestSearchHashLength(t *testing.T) {
	wide, err := digest.NewEngine(digest.Options{Size: 64})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	target := wide.HashString("prefix")

	// Differences beyond the compared prefix do not count.
	reference := target.Clone()
	reference[40] ^= 0xff
	results, err := (&Engine{HashLength: 32}).Search(target, []digest.Digest{reference}, 1.0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Score != 1.0 {
		t.Errorf("truncated comparison = %v, want one exact match", results)
	}

	short := target[:16]
	_, err = (&Engine{HashLength: 32}).Search(target, []digest.Digest{short}, 0.5)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short reference: error = %v, want ErrLengthMismatch", err)
	}

	_, err = (&Engine{HashLength: 32}).Search(short, []digest.Digest{target}, 0.5)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short target: error = %v, want ErrLengthMismatch", err)
	}

	_, err = (&Engine{}).Search(short, []digest.Digest{target}, 0.5)
	if err != nil {
		t.Errorf("zero hash length should use the target's length: %v", err)
	}
}

func TestSearchInvalidArguments(t *testing.T) {
	target := digest.Default().HashString("x")
	references := []digest.Digest{target}

	for _, threshold := range []float64{-0.1, math.NaN()} {
		if _, err := (&Engine{}).Search(target, references, threshold); !errors.Is(err, digest.ErrInvalidInput) {
			t.Errorf("threshold %v: error = %v, want ErrInvalidInput", threshold, err)
		}
	}
	if _, err := (&Engine{HashLength: -1}).Search(target, references, 0.5); !errors.Is(err, digest.ErrInvalidInput) {
		t.Errorf("negative hash length: error = %v, want ErrInvalidInput", err)
	}
	if _, err := (&Engine{}).Search(digest.Digest{}, references, 0.5); !errors.Is(err, digest.ErrInvalidInput) {
		t.Errorf("empty target: error = %v, want ErrInvalidInput", err)
	}
}

func TestSearchParallelMatchesSerial(t *testing.T) {
	engine := digest.Default()
	target := engine.HashString("target")
	references := make([]digest.Digest, 3*parallelThreshold)
	for index := range references {
		if index%5 == 0 {
			references[index] = flipBits(target, index%64)
		} else {
			references[index] = engine.HashString(fmt.Sprintf("ref-%d", index))
		}
	}

	parallel, err := (&Engine{Workers: 8}).Search(target, references, 0.7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	serial, err := (&Engine{Workers: 1}).Search(target, references, 0.7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(parallel) != len(serial) {
		t.Fatalf("parallel found %d, serial found %d", len(parallel), len(serial))
	}
	for position := range parallel {
		if parallel[position] != serial[position] {
			t.Fatalf("position %d: parallel %v, serial %v", position, parallel[position], serial[position])
		}
	}
	for position := 1; position < len(parallel); position++ {
		previous, current := parallel[position-1], parallel[position]
		if previous.Score < current.Score || (previous.Score == current.Score && previous.Index > current.Index) {
			t.Fatalf("results out of order at %d: %v then %v", position, previous, current)
		}
	}
}
