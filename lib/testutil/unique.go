// Copyright 2026 The Detective Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueName returns a string of the form "prefix-N" where N is a
// monotonically increasing integer, for signature names that must not
// collide within one test binary.
//
//	name := testutil.UniqueName("trojan") // "trojan-1", "trojan-2", ...
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
