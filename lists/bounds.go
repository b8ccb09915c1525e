// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lists

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/exp/constraints"
)

// OutOfBoundsPolicy selects what happens to gather indices that fall outside
// of [-n, n) for a list row of length n.
type OutOfBoundsPolicy int8

const (
	// DontCheck skips the per-row range check. Indices must already be in
	// range; an index that is not may pick an element of a neighboring row
	// or fail with arrow.ErrIndex when it leaves the child array.
	DontCheck OutOfBoundsPolicy = iota
	// Nullify turns out of range indices into null elements without reading
	// the source at that position.
	Nullify
)

func (p OutOfBoundsPolicy) String() string {
	switch p {
	case DontCheck:
		return "DONT_CHECK"
	case Nullify:
		return "NULLIFY"
	}
	return fmt.Sprintf("OutOfBoundsPolicy(%d)", int8(p))
}

// ParseOutOfBoundsPolicy accepts the names produced by String in any case.
func ParseOutOfBoundsPolicy(s string) (OutOfBoundsPolicy, error) {
	switch strings.ToUpper(s) {
	case "DONT_CHECK":
		return DontCheck, nil
	case "NULLIFY":
		return Nullify, nil
	}
	return DontCheck, fmt.Errorf("%w: unknown bounds policy %q, expected DONT_CHECK or NULLIFY",
		arrow.ErrInvalid, s)
}

// resolveIndex maps an index within a row of length rowLen to an offset
// from the start of that row. ok is false when the element must be null.
func resolveIndex(index, rowLen int64, policy OutOfBoundsPolicy) (offset int64, ok bool) {
	eff := index
	if index < 0 {
		eff += rowLen
	}
	if eff >= 0 && eff < rowLen {
		return eff, true
	}
	if policy == Nullify {
		return 0, false
	}
	return eff, true
}

// widen converts an index of any integer width to int64. Unsigned values
// that do not fit are reported as not representable.
func widen[T constraints.Integer](v T) (int64, bool) {
	if ^T(0) > 0 && uint64(v) > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

// resolveRaw is resolveIndex for an index of the gather map's own width.
func resolveRaw[T constraints.Integer](v T, rowLen int64, policy OutOfBoundsPolicy) (int64, bool) {
	idx, ok := widen(v)
	if !ok {
		if policy == Nullify {
			return 0, false
		}
		return math.MaxInt64, true
	}
	return resolveIndex(idx, rowLen, policy)
}
