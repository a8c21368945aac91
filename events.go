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

package commonmark

// EventKind discriminates the variants of [Event].
type EventKind uint8

const (
	StartEvent EventKind = 1 + iota
	EndEvent
	TextEvent
	CodeEvent
	HTMLEvent
	InlineHTMLEvent
	FootnoteReferenceEvent
	SoftBreakEvent
	HardBreakEvent
	TaskListMarkerEvent
)

// Event is one unit of the parser's output stream. Container nodes produce
// a matching StartEvent/EndEvent pair bracketing their children's events;
// everything else is a single leaf event.
type Event struct {
	Kind EventKind

	// Tag is populated for StartEvent and EndEvent.
	Tag Tag

	// Text carries the content for TextEvent, CodeEvent, HTMLEvent, and
	// InlineHTMLEvent.
	Text string

	// FootnoteLabel carries the label for FootnoteReferenceEvent.
	FootnoteLabel string

	// Checked carries the checkbox state for TaskListMarkerEvent.
	Checked bool
}

// TagKind discriminates the variants of [Tag].
type TagKind uint8

const (
	ParagraphTag TagKind = 1 + iota
	RuleTag
	HeaderTag
	BlockQuoteTag
	CodeBlockTag
	ListTag
	ItemTag
	FootnoteDefinitionTag
	HTMLBlockTag
	TableTag
	TableHeadTag
	TableRowTag
	TableCellTag
	EmphasisTag
	StrongTag
	StrikethroughTag
	LinkTag
	ImageTag
)

// LinkKind records how a link or image was written in the source, which a
// renderer may use to decide how much of the original syntax to preserve.
type LinkKind uint8

const (
	LinkInline LinkKind = 1 + iota
	LinkReference
	LinkReferenceUnknown
	LinkCollapsed
	LinkCollapsedUnknown
	LinkShortcut
	LinkShortcutUnknown
	LinkAutolink
	LinkEmail
)

// Tag carries the per-kind data for a StartEvent/EndEvent pair. Only the
// fields relevant to Kind are meaningful; the rest are zero.
type Tag struct {
	Kind TagKind

	// HeaderTag: 1 through 6.
	Level int

	// CodeBlockTag: the fence's info string (empty for an indented code
	// block, or for a fenced block with no info string).
	InfoString string

	// ListTag: the first item's explicit start index (0 if the list is
	// unordered or did not specify one) and whether the list is tight.
	StartIndex int
	IsOrdered  bool
	IsTight    bool

	// FootnoteDefinitionTag: the label as written in the source (neither
	// case-folded nor whitespace-normalized).
	Label string

	// TableTag: one alignment per column.
	Alignments []Alignment

	// LinkTag, ImageTag: how the link/image was written, its destination,
	// and its optional title.
	LinkKind LinkKind
	URL      string
	Title    string
}

// preorderWalker drives the Start/End event stream over a finished [tree]
// of [itemBody] nodes. It mirrors pulldown-cmark's Parser::next/
// item_to_event/item_to_tag, using an explicit stack instead of recursion,
// in the same spirit as the teacher's walk.go Cursor.
type preorderWalker struct {
	p       *Parser
	stack   []treeIndex // open container ancestors, innermost last
	cur     treeIndex
	started bool
}

// newPreorderWalker begins a walk over root's children (root itself,
// documentItem, produces no event of its own).
func newPreorderWalker(p *Parser, root treeIndex) *preorderWalker {
	return &preorderWalker{p: p, cur: p.tree.node(root).child}
}

// next advances the walker and returns the next event, or ok=false at the
// end of the tree.
func (w *preorderWalker) next() (Event, bool) {
	for {
		if !w.cur.valid() {
			if len(w.stack) == 0 {
				return Event{}, false
			}
			parent := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			node := w.p.tree.node(parent)
			w.cur = node.next
			return Event{Kind: EndEvent, Tag: itemToTag(w.p, node.item)}, true
		}

		node := w.p.tree.node(w.cur)
		item := node.item

		if item.isUnresolvedMarker() {
			w.p.resolveInline(w.cur)
			node = w.p.tree.node(w.cur)
			item = node.item
		}

		if item.isContainer() {
			w.stack = append(w.stack, w.cur)
			w.cur = node.child
			return Event{Kind: StartEvent, Tag: itemToTag(w.p, item)}, true
		}

		w.cur = node.next
		if ev, ok := itemToLeafEvent(w.p, item); ok {
			return ev, true
		}
		// backslashItem and similarly elided markers: skip to the sibling.
	}
}

// itemToTag converts a container's itemBody into its public Tag.
func itemToTag(p *Parser, item itemBody) Tag {
	switch item.kind {
	case documentItem:
		return Tag{}
	case thematicBreakItem:
		return Tag{Kind: RuleTag}
	case blockQuoteItem:
		return Tag{Kind: BlockQuoteTag}
	case listItem:
		return Tag{Kind: ListTag, StartIndex: item.n, IsOrdered: item.ch == '.' || item.ch == ')', IsTight: item.flagA}
	case listItemItem:
		return Tag{Kind: ItemTag}
	case footnoteDefinitionItem:
		return Tag{Kind: FootnoteDefinitionTag, Label: sourceString(p.source, item.span)}
	case paragraphItem:
		return Tag{Kind: ParagraphTag}
	case headingItem:
		return Tag{Kind: HeaderTag, Level: item.n}
	case indentCodeBlockItem:
		return Tag{Kind: CodeBlockTag}
	case fencedCodeBlockItem:
		info := ""
		if item.idx >= 0 {
			info = p.allocations.cows[item.idx]
		}
		return Tag{Kind: CodeBlockTag, InfoString: info}
	case tableItem:
		var alignments []Alignment
		if item.idx >= 0 {
			alignments = p.allocations.alignments[item.idx]
		}
		return Tag{Kind: TableTag, Alignments: alignments}
	case tableHeadItem:
		return Tag{Kind: TableHeadTag}
	case tableRowItem:
		return Tag{Kind: TableRowTag}
	case tableCellItem:
		return Tag{Kind: TableCellTag}
	case emphasisItem:
		return Tag{Kind: EmphasisTag}
	case strongItem:
		return Tag{Kind: StrongTag}
	case strikethroughItem:
		return Tag{Kind: StrikethroughTag}
	case linkItem:
		ld := p.allocations.links[item.idx]
		return Tag{Kind: LinkTag, LinkKind: ld.kind, URL: ld.dest, Title: ld.title}
	case imageItem:
		ld := p.allocations.links[item.idx]
		return Tag{Kind: ImageTag, LinkKind: ld.kind, URL: ld.dest, Title: ld.title}
	default:
		panic("commonmark: item kind is not a container")
	}
}

// itemToLeafEvent converts a leaf itemBody into its public Event, or
// ok=false for markers that are elided entirely (e.g. a resolved
// backslash escape, which has already contributed its literal byte to an
// adjacent text node).
func itemToLeafEvent(p *Parser, item itemBody) (Event, bool) {
	switch item.kind {
	case backslashItem:
		return Event{}, false
	case linkReferenceDefinitionItem:
		return Event{}, false
	case elidedItem:
		return Event{}, false
	case textItem:
		return Event{Kind: TextEvent, Text: itemText(p, item)}, true
	case softBreakItem:
		return Event{Kind: SoftBreakEvent}, true
	case hardBreakItem:
		return Event{Kind: HardBreakEvent}, true
	case codeSpanItem:
		return Event{Kind: CodeEvent, Text: itemText(p, item)}, true
	case inlineHTMLItem:
		return Event{Kind: InlineHTMLEvent, Text: itemText(p, item)}, true
	case htmlBlockItem:
		return Event{Kind: HTMLEvent, Text: itemText(p, item)}, true
	case footnoteReferenceItem:
		return Event{Kind: FootnoteReferenceEvent, FootnoteLabel: itemText(p, item)}, true
	case taskListMarkerItem:
		return Event{Kind: TaskListMarkerEvent, Checked: item.flagA}, true
	default:
		panic("commonmark: item kind is not a leaf")
	}
}

func itemText(p *Parser, item itemBody) string {
	if item.textOwned {
		return item.ownedText
	}
	return sourceString(p.source, item.span)
}
