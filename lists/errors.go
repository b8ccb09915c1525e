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

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	// ErrShapeMismatch is returned when the gather map and the source do not
	// have the same number of rows.
	ErrShapeMismatch = fmt.Errorf("%w: gather map shape mismatch", arrow.ErrInvalid)
	// ErrInvalidArgument is returned when the gather map holds null indices.
	ErrInvalidArgument = fmt.Errorf("%w: gather map contains nulls", arrow.ErrInvalid)
	// ErrTypeContract is returned when the gather map is not a list of
	// integers, or the source is not a list array.
	ErrTypeContract = fmt.Errorf("%w: unsupported list gather input", arrow.ErrType)
)
