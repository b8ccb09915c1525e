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

// Package lists implements a segmented gather over Arrow list arrays.
//
// Each row of a gather map lists the positions to pick out of the matching row
// of a source list array. The result is shaped like the gather map: row i has
// exactly as many elements as gather map row i, whatever the length of source
// row i. Negative positions count back from the end of the row.
//
//	source     : [["a","b","c","d"], ["1","2","3","4"], ["x","y","z"]]
//	gather map : [[0, 1, 3, 2], [1, 3, 2], []]
//	result     : [["a","b","d","c"], ["2","4","3"], []]
//
// Positions outside of [-n, n) for a row of length n are handled by an
// OutOfBoundsPolicy. With Nullify they produce null elements:
//
//	gather map : [[0, -1, 4, -5], [1, 3, 5], []]
//	result     : [["a","d",null,null], ["2","4",null], []]
//
// The source may be nested to any depth: rows of list-typed elements are
// copied whole, level by level, down to the first non-list element type where
// the compute package's take kernel does the copying.
package lists
