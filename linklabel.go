// Copyright 2018 Google LLC
// Copyright 2023 Ross Light
//
// Use of the scanning algorithm in this file is governed by an MIT-style
// license (see the upstream [pulldown-cmark] license) in addition to the
// Apache License, Version 2.0 (the "License") that governs the rest of
// this repository; you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
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
//
// [pulldown-cmark]: https://github.com/raphlinus/pulldown-cmark

package commonmark

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// maxLinkLabelCodepoints caps link label length: a label with more than
// this many codepoints inside the square brackets (a backslash escape
// counting as two) fails to scan.
const maxLinkLabelCodepoints = 1000

var labelFoldCaser = cases.Fold()

// foldLabel returns the case-insensitive lookup key for a normalized link
// label, using full Unicode case folding rather than simple ASCII
// lowercasing (so e.g. a German "ß" and "SS" match, matching the "Unicode
// case folding, ASCII-compatible" requirement).
func foldLabel(normalized string) string {
	return labelFoldCaser.String(normalized)
}

// linebreakHandler is invoked by scanLinkLabel when it encounters a line
// break inside a label, to let the caller consume any container-prefix
// bytes (e.g. a blockquote '>') at the start of the next line before
// scanning continues. It returns the number of bytes to skip, or ok=false
// to abort the scan (the line break cannot be part of this label).
type linebreakHandler func(afterBreak []byte) (skip int, ok bool)

// scanLinkLabel scans the bytes in b (which must not include the opening
// '[') for a matching, unescaped ']', normalizing internal whitespace runs
// to single spaces along the way (a run may hold at most one line break).
// It returns the number of bytes consumed
// (including the closing ']'), the raw (unnormalized) label text, and the
// normalized label, or ok=false if no valid label is present.
//
// This is a direct translation of pulldown-cmark's
// scan_link_label_rest, which is also the origin of this repository's test
// scenarios for whitespace normalization and CRLF tolerance.
func scanLinkLabel(b []byte, arn *arena, onLinebreak linebreakHandler) (consumed int, raw string, normalized string, ok bool) {
	var out []byte // accumulated normalized form; built unconditionally, discarded if unneeded
	codepoints := 0
	collapsed := false // true once a run of >1 whitespace byte, or any tab/CR/LF, is seen
	i := 0
	runLen := 0
	runBreak := false // the current whitespace run already holds a line break

	endRun := func() {
		if runLen > 0 {
			out = append(out, ' ')
			if runLen > 1 {
				collapsed = true
			}
			runLen = 0
			runBreak = false
		}
	}

	for i < len(b) {
		c := b[i]
		switch {
		case c == ']':
			endRun()
			raw = string(b[:i])
			if collapsed {
				if arn != nil {
					bb := arn.newBuilder()
					bb.writeString(string(out))
					normalized = bb.finish()
				} else {
					normalized = string(out)
				}
			} else {
				normalized = raw
			}
			if codepoints == 0 || isAllWhitespace(normalized) {
				return 0, "", "", false
			}
			if codepoints > maxLinkLabelCodepoints {
				return 0, "", "", false
			}
			return i + 1, raw, normalized, true
		case c == '[':
			return 0, "", "", false
		case c == '\\' && i+1 < len(b) && isASCIIPunctuation(b[i+1]):
			endRun()
			out = append(out, c, b[i+1])
			codepoints += 2
			i += 2
			continue
		case c == ' ' || c == '\t':
			if c == '\t' {
				collapsed = true
			}
			runLen++
			codepoints++
			i++
			continue
		case c == '\n' || c == '\r':
			if runBreak {
				return 0, "", "", false
			}
			runBreak = true
			collapsed = true
			nl := scanEOL(b[i:])
			runLen++
			next := b[i+nl:]
			if onLinebreak != nil {
				skip, brOK := onLinebreak(next)
				if !brOK {
					return 0, "", "", false
				}
				next = next[skip:]
				i = len(b) - len(next)
			} else {
				i += nl
			}
			codepoints++
			continue
		default:
			endRun()
			_, size := utf8.DecodeRune(b[i:])
			out = append(out, b[i:i+size]...)
			i += size
			codepoints++
			continue
		}
	}
	return 0, "", "", false
}

func isAllWhitespace(s string) bool {
	for _, c := range s {
		if c != ' ' {
			return false
		}
	}
	return true
}
