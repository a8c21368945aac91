// Copyright 2023 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package commonmark

// Span is a byte range within a source buffer or arena: [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsValid reports whether the span is non-negative and non-inverted.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// nullSpan is returned by scanners and accessors that have no byte range to report.
var nullSpan = Span{Start: -1, End: -1}

func (s Span) isNull() bool {
	return s == nullSpan
}

// slice returns the bytes of s within b.
func (s Span) slice(b []byte) []byte {
	return b[s.Start:s.End]
}
