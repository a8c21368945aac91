// Copyright 2018 Google LLC
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

// This file implements the public entry points: Options, Parser
// construction, and the pull-iterator accessors over Component H's
// preorderWalker. Grounded on the teacher's parse.go NewBlockParser/Parse
// (NUL-byte replacement, option bitset) adapted to this module's
// single-tree, single-pass-at-construction architecture.

package commonmark

import "bytes"

// Options is a bitset of GFM extensions and parsing modes, mirroring the
// teaser's own ParserOptions but renamed to this module's extension set.
type Options uint

const (
	// EnableTables turns on GFM pipe tables (Component E).
	EnableTables Options = 1 << iota
	// EnableFootnotes turns on GFM footnote references and definitions.
	EnableFootnotes
	// EnableStrikethrough turns on GFM ~~strikethrough~~.
	EnableStrikethrough
	// EnableTaskLists turns on GFM task list item markers.
	EnableTaskLists
	// FirstPassOnly restricts the parser to block structure only: Events and
	// OffsetEvents will not trigger inline resolution, and every node that
	// would otherwise hold resolved inline content instead reports its
	// Maybe* markers as literal text. Useful for callers that only need
	// block-level structure (e.g. a table of contents) and want to skip the
	// cost of inline parsing entirely.
	FirstPassOnly
)

// BrokenLinkCallback is invoked when a reference-style link or image's
// label has no matching definition. Returning ok=false leaves the link
// unresolved (rendered as literal text); returning ok=true supplies a
// destination and title to use instead.
type BrokenLinkCallback func(label string) (dest, title string, ok bool)

// Parser holds one document's parse state: the source buffer, the
// block-structure tree built eagerly by the first pass, and the side
// tables inline resolution consults lazily as the event stream is walked.
type Parser struct {
	source      []byte
	opts        Options
	brokenLink  BrokenLinkCallback
	tree        *tree[itemBody]
	arena       *arena
	allocations *allocations
	root        treeIndex
}

// NewParser builds a Parser over source, running the first pass (block
// structure) eagerly. Inline content is resolved lazily, the first time
// each block is visited by Events/OffsetEvents.
//
// A NUL byte in source is replaced with U+FFFD (the Unicode replacement
// character), matching CommonMark's required preprocessing step and the
// teacher's own NewBlockParser.
func NewParser(source []byte, opts Options) *Parser {
	if bytes.IndexByte(source, 0) >= 0 {
		source = bytes.ReplaceAll(source, []byte{0}, []byte("�"))
	}
	p := &Parser{
		source:      source,
		opts:        opts,
		tree:        newTree[itemBody](),
		arena:       &arena{},
		allocations: newAllocations(),
	}
	p.runFirstPass()
	p.root = treeIndex(1) // the document node, the first node ever created
	return p
}

// NewParserWithBrokenLinkCallback is like NewParser, but calls cb to
// resolve a reference link/image whose label has no matching definition,
// instead of leaving it as literal text.
func NewParserWithBrokenLinkCallback(source []byte, opts Options, cb BrokenLinkCallback) *Parser {
	p := NewParser(source, opts)
	p.brokenLink = cb
	return p
}

// EventIter pulls events one at a time from a Parser, resolving each
// block's inline content the first time it is reached. Its zero value is
// not usable; construct one with [Parser.Events].
type EventIter struct {
	w *preorderWalker
}

// Next returns the next event in document order, or ok=false once the
// document is exhausted.
func (it *EventIter) Next() (Event, bool) {
	return it.w.next()
}

// Events returns a pull-iterator over the document's event stream.
func (p *Parser) Events() *EventIter {
	return &EventIter{w: newPreorderWalker(p, p.root)}
}

// OffsetEvent pairs an Event with the byte range of source text it was
// produced from, for callers that need to slice back into the original
// document (e.g. syntax highlighting, diagnostics).
type OffsetEvent struct {
	Event Event
	Span  Span
}

// OffsetEventIter is the offset-aware counterpart to [EventIter].
type OffsetEventIter struct {
	p *Parser
	w *preorderWalker
}

// Next returns the next event and its source span, or ok=false once the
// document is exhausted. Container Start/End events carry the container's
// own delimiter span (e.g. a heading's '#' run, a fence's opening line)
// rather than the full block range, since block ranges are not tracked by
// this parser's tree (see DESIGN.md).
func (it *OffsetEventIter) Next() (OffsetEvent, bool) {
	ix := it.w.cur
	ev, ok := it.w.next()
	if !ok {
		return OffsetEvent{}, false
	}
	sp := nullSpan
	if ix.valid() {
		sp = it.p.tree.node(ix).item.span
	}
	return OffsetEvent{Event: ev, Span: sp}, true
}

// OffsetEvents is like Events, but returns an iterator pairing each event
// with the source byte range it covers.
func (p *Parser) OffsetEvents() *OffsetEventIter {
	return &OffsetEventIter{p: p, w: newPreorderWalker(p, p.root)}
}

// Parse is a convenience wrapper that parses source with opts and
// collects every event into a slice.
func Parse(source []byte, opts Options) []Event {
	p := NewParser(source, opts)
	it := p.Events()
	var events []Event
	for {
		ev, ok := it.Next()
		if !ok {
			break
		}
		events = append(events, ev)
	}
	return events
}
