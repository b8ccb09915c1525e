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

import "github.com/apache/arrow/go/v17/arrow/memory"

type releaser interface {
	Release()
}

// bufferScope releases every reference it tracks when the call that owns it
// returns. Anything handed to the caller must hold its own reference
// (array.NewData and array.MakeFromData retain what they are given).
type bufferScope struct {
	held []releaser
}

func (s *bufferScope) track(r releaser) {
	s.held = append(s.held, r)
}

func (s *bufferScope) trackBuffer(b *memory.Buffer) {
	if b != nil {
		s.held = append(s.held, b)
	}
}

// newBuffer allocates a tracked buffer of size bytes.
func (s *bufferScope) newBuffer(mem memory.Allocator, size int) *memory.Buffer {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(size)
	s.held = append(s.held, buf)
	return buf
}

func (s *bufferScope) release() {
	for i := len(s.held) - 1; i >= 0; i-- {
		s.held[i].Release()
	}
	s.held = nil
}
