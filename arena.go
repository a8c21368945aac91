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

import (
	"unsafe"

	"go4.org/bytereplacer"
)

// arena is append-only byte storage for normalized text that cannot be
// represented as a zero-copy subrange of the source buffer: whitespace-
// collapsed link labels, expanded entities, and CR/LF-rewritten code
// content. Once written, a region is never mutated again, so strings handed
// out over it stay valid for the arena's lifetime.
type arena struct {
	buf []byte
}

// crlfToLF rewrites "\r\n" and "\r" to "\n", matching the CommonMark
// requirement that line endings are normalized before further processing.
var crlfToLF = bytereplacer.New("\r\n", "\n", "\r", "\n")

// crlfToSpace rewrites "\r\n" and "\r" to a single space, the normalization
// code spans apply to embedded line breaks.
var crlfToSpace = bytereplacer.New("\r\n", " ", "\r", " ", "\n", " ")

// builder accumulates bytes for one arena-backed string.
type builder struct {
	a     *arena
	start int
}

// newBuilder begins a new allocation at the arena's current end.
func (a *arena) newBuilder() builder {
	return builder{a: a, start: len(a.buf)}
}

func (b *builder) writeByte(c byte) {
	b.a.buf = append(b.a.buf, c)
}

func (b *builder) writeString(s string) {
	b.a.buf = append(b.a.buf, s...)
}

// writeNormalizedCode appends s with CR/CRLF rewritten to a single space,
// used for code-span content.
func (b *builder) writeNormalizedCode(s string) {
	rewritten := crlfToSpace.Replace([]byte(s))
	b.a.buf = append(b.a.buf, rewritten...)
}

// writeNormalizedLines appends s with CR/CRLF rewritten to LF, used for
// indented and fenced code block content.
func (b *builder) writeNormalizedLines(s string) {
	rewritten := crlfToLF.Replace([]byte(s))
	b.a.buf = append(b.a.buf, rewritten...)
}

// finish returns a zero-copy string view of the bytes written since
// newBuilder, backed by the arena's storage.
func (b *builder) finish() string {
	end := len(b.a.buf)
	if end == b.start {
		return ""
	}
	region := b.a.buf[b.start:end]
	return unsafe.String(&region[0], len(region))
}

// sourceString returns a zero-copy string view of span within src.
func sourceString(src []byte, span Span) string {
	if span.Len() == 0 {
		return ""
	}
	region := span.slice(src)
	return unsafe.String(&region[0], len(region))
}
