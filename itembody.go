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

// itemKind discriminates the ~35 kinds of content a [treeNode]'s body can
// hold. Go has no sum types, so unlike pulldown-cmark's ItemBody enum,
// every kind shares one flat struct ([itemBody]) and reuses a small set of
// generically named fields — the same flattening the teacher's own Block
// struct already applies to n/char/indent.
type itemKind uint8

const (
	// documentItem is the sentinel body of the tree's root (document) node.
	documentItem itemKind = 1 + iota

	// Block containers.
	blockQuoteItem
	listItem
	listItemItem
	footnoteDefinitionItem

	// Block leaves.
	paragraphItem
	headingItem
	thematicBreakItem
	indentCodeBlockItem
	fencedCodeBlockItem
	htmlBlockItem
	linkReferenceDefinitionItem
	tableItem
	tableHeadItem
	tableRowItem
	tableCellItem

	// Pre-resolution inline markers recorded during the first pass.
	// Autolinks and inline HTML are resolved eagerly in the first pass
	// instead (see parseInlineMarkers): recognizing them is a pure function
	// of bytes with no dependency on anything resolved later, and deferring
	// them here would mean splicing mid-chain the way link/emphasis
	// resolution does, which isn't worth it for a lookahead that never
	// fails ambiguously.
	maybeEmphasisItem
	maybeCodeItem
	maybeLinkOpenItem
	maybeImageItem
	maybeLinkCloseItem
	backslashItem

	// Post-resolution inline leaves and containers.
	textItem
	softBreakItem
	hardBreakItem
	codeSpanItem
	inlineHTMLItem
	emphasisItem
	strongItem
	strikethroughItem
	linkItem
	imageItem
	footnoteReferenceItem
	taskListMarkerItem

	// elidedItem is a fully-consumed delimiter marker (emphasis, link
	// brackets spliced into a resolved link, etc.): structurally still a
	// sibling-chain link, but contributing no event and no span of its own.
	elidedItem
)

// itemBody is the uniform, mutable payload of every [treeNode] in the
// parser's tree. Resolution (inline passes 1 and 2) rewrites a node's
// body in place from a Maybe* marker kind to a concrete kind; no node is
// ever deleted to effect this.
type itemBody struct {
	kind itemKind

	// span is the node's byte range in the source buffer. Arena-synthesized
	// content (entity expansions, normalized code spans) sets textOwned and
	// carries its text in ownedText instead; its span is not a source range.
	span       Span
	textOwned  bool
	ownedText  string // valid iff textOwned

	// n is kind-specific: heading level (1-6), backtick run length,
	// emphasis delimiter run length, or list start index.
	n int

	// ch is the kind-specific delimiter byte: list marker char ('-' '+' '*'
	// '.' ')') or emphasis char ('*' '_' '~').
	ch byte

	// flagA/flagB are kind-specific booleans: canOpen/canClose for
	// maybeEmphasisItem, isTight (flagA) for listItem, checked (flagA) for
	// taskListMarkerItem.
	flagA bool
	flagB bool

	// idx indexes into the parser's allocations table: linkData for
	// linkItem/imageItem, alignments for tableItem, the info-string cow for
	// fencedCodeBlockItem. Kinds that do not use it leave it at zero.
	idx int

	// indent records container indent width (list items, footnote defs).
	indent int
}

func (b *itemBody) isInline() bool {
	switch b.kind {
	case maybeEmphasisItem, maybeCodeItem, maybeLinkOpenItem,
		maybeImageItem, maybeLinkCloseItem, backslashItem,
		textItem, softBreakItem, hardBreakItem, codeSpanItem, inlineHTMLItem,
		emphasisItem, strongItem, strikethroughItem, linkItem, imageItem,
		footnoteReferenceItem, taskListMarkerItem:
		return true
	default:
		return false
	}
}

func (b *itemBody) isUnresolvedMarker() bool {
	switch b.kind {
	case maybeEmphasisItem, maybeCodeItem, maybeLinkOpenItem,
		maybeImageItem, maybeLinkCloseItem:
		return true
	default:
		return false
	}
}

// isContainer reports whether the body is emitted as a Start/End event
// pair rather than a single leaf event. thematicBreakItem has no children
// but is still tag-shaped (RuleTag), so it is emitted as an immediately-
// closed Start/End pair, matching pulldown-cmark's Tag::Rule.
func (b *itemBody) isContainer() bool {
	switch b.kind {
	case documentItem, blockQuoteItem, listItem, listItemItem, footnoteDefinitionItem,
		tableItem, tableHeadItem, tableRowItem, tableCellItem, thematicBreakItem,
		paragraphItem, headingItem, indentCodeBlockItem, fencedCodeBlockItem:
		return true
	default:
		return false
	}
}
