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
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
)

// isOffsetList reports whether dt is one of the list layouts that carry
// their own offsets buffer.
func isOffsetList(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.LIST, arrow.LARGE_LIST:
		return true
	}
	return false
}

// validateInputs checks the source and gather map before anything is
// allocated. Every check runs; all failures are joined into the result.
func validateInputs(source, gatherMap arrow.Array) (array.ListLike, array.ListLike, error) {
	var errs []error

	src, srcOK := source.(array.ListLike)
	if !srcOK || !isOffsetList(source.DataType()) {
		errs = append(errs, fmt.Errorf("%w: source must be a list array, got %s",
			ErrTypeContract, source.DataType()))
	}

	if gatherMap.Len() != source.Len() {
		errs = append(errs, fmt.Errorf("%w: gather map has %d rows, source has %d",
			ErrShapeMismatch, gatherMap.Len(), source.Len()))
	}

	gm, gmOK := gatherMap.(array.ListLike)
	if !gmOK || !isOffsetList(gatherMap.DataType()) {
		errs = append(errs, fmt.Errorf("%w: gather map must be a list array, got %s",
			ErrTypeContract, gatherMap.DataType()))
		return nil, nil, errors.Join(errs...)
	}

	indices := gm.ListValues()
	switch elem := indices.DataType(); {
	case isOffsetList(elem) || elem.ID() == arrow.MAP || elem.ID() == arrow.FIXED_SIZE_LIST:
		errs = append(errs, fmt.Errorf("%w: gather map must have depth 1, got elements of %s",
			ErrTypeContract, elem))
	case !arrow.IsInteger(elem.ID()):
		errs = append(errs, fmt.Errorf("%w: gather map elements must be integers, got %s",
			ErrTypeContract, elem))
	}

	if n := referencedNulls(gm); n > 0 {
		errs = append(errs, fmt.Errorf("%w: found %d null indices", ErrInvalidArgument, n))
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return src, gm, nil
}

// referencedNulls counts the null elements of the child of lst that fall
// within the span of its rows.
func referencedNulls(lst array.ListLike) int {
	child := lst.ListValues()
	if child.NullN() == 0 || lst.Len() == 0 {
		return 0
	}
	lo, _ := lst.ValueOffsets(0)
	_, hi := lst.ValueOffsets(lst.Len() - 1)
	if hi <= lo {
		return 0
	}
	bitmap := child.NullBitmapBytes()
	if len(bitmap) == 0 {
		// null type children have no bitmap, every slot is null
		return int(hi - lo)
	}
	n := int(hi - lo)
	return n - bitutil.CountSetBits(bitmap, child.Data().Offset()+int(lo), n)
}
