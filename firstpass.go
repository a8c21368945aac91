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

// This file implements Component E, the first pass: a single eager sweep
// over the whole source that builds the block-structure tree (containers
// and leaves), recording but not resolving inline markers. It is grounded
// on two sources: the teacher's NextBlock/descendOpenBlocks/openNewBlocks
// (parse.go, deleted but re-read from _examples/zombiezen-go-commonmark for
// this port) for the match-then-open two-step line-processing loop, and
// pulldown-cmark's FirstPass::run/scan_containers/parse_block (not present
// in the retrieved pack) for container-continuation matching against an
// index tree and for list-tightness propagation.
//
// Unlike the teacher, which parses one top-level block (one blank-line-
// delimited run) per NextBlock call and returns a *RootBlock per call, this
// parser builds one tree for the whole document: SPEC_FULL.md's event
// stream has no concept of multiple roots, and lazy inline resolution
// (Component F/G, triggered from events.go) is what makes iteration pull-
// driven rather than the block structure itself.

package commonmark

// openContainer is one entry of the first pass's container stack, tracked
// in parallel with the tree's own spine so continuation matching has
// access to container-kind-specific data the tree doesn't store.
type openContainer struct {
	ix   treeIndex
	kind itemKind

	// contIndent is the column width a continuation line of this
	// container must be indented past its own start column to continue a
	// list item or footnote definition. Unused for blockQuoteItem.
	contIndent int

	lastLineBlank bool
}

// firstPassState carries the mutable cursor state of one first-pass sweep,
// analogous to the teacher's blockParser.
type firstPassState struct {
	p    *Parser
	open []openContainer

	// pendingParagraph is the tree index of an open paragraph awaiting a
	// possible setext-heading conversion or table conversion on the next
	// line; nilIndex otherwise.
	pendingParagraph treeIndex
	pendingLineSpan  Span // the paragraph's most recent line, for table-header column counting and hard-break detection

	// inFence is true while inside a fenced code block.
	inFence    bool
	fenceChar  byte
	fenceLen   int
	fenceStart int // byte offset of first content line

	// inIndentCode tracks a multi-line indented code block; pendingIndentCodeBlanks
	// buffers blank lines seen since the last real content line so trailing
	// ones can be dropped if the block ends before further content arrives.
	inIndentCode            bool
	pendingIndentCodeBlanks [][]byte

	inHTMLBlock   bool
	htmlBlockType int // 1-7, per CommonMark §4.6
}

func newFirstPassState(p *Parser) *firstPassState {
	return &firstPassState{
		p:    p,
		open: []openContainer{{ix: nilIndex, kind: documentItem}},
	}
}

// runFirstPass executes the first pass over the parser's entire source buffer.
func (p *Parser) runFirstPass() {
	p.tree.append(itemBody{kind: documentItem, span: nullSpan})
	p.tree.push()
	fp := newFirstPassState(p)
	fp.open[0].ix = p.tree.spine[0]

	src := p.source
	offset := 0
	for offset < len(src) {
		end := offset + nextLineEnd(src[offset:])
		fp.processLine(src[offset:end], offset)
		offset = end
	}
	if fp.inFence {
		fp.closeFence()
	}
	if fp.inIndentCode {
		fp.closeIndentCode()
	}
	if fp.inHTMLBlock {
		fp.closeHTMLBlock()
	}
	fp.closeContainersTo(0)
	p.tree.pop()
}

// nextLineEnd returns the index just past the next line ending in b
// (including the ending itself), or len(b) if b contains no more line
// endings.
func nextLineEnd(b []byte) int {
	for i := 0; i < len(b); i++ {
		if b[i] == '\n' || b[i] == '\r' {
			return i + scanEOL(b[i:])
		}
	}
	return len(b)
}

func (fp *firstPassState) tip() *openContainer {
	return &fp.open[len(fp.open)-1]
}

// processLine runs one line through container-continuation matching, then
// either lazy-paragraph-continues it or closes unmatched containers and
// opens new ones, then dispatches to leaf recognition.
func (fp *firstPassState) processLine(line []byte, offset int) {
	rest := line
	matched := 1 // the document container always matches
	for matched < len(fp.open) {
		c := &fp.open[matched]
		consumed, ok := fp.matchContinuation(c, rest)
		if !ok {
			break
		}
		rest = rest[consumed:]
		matched++
	}

	restBlank := scanBlankLine(rest)
	consumedOffset := offset + (len(line) - len(rest))

	if matched < len(fp.open) && !restBlank && fp.tipKindIsParagraph() {
		// Paragraph lazy continuation (CommonMark §5.2): the line doesn't
		// repeat every container prefix, but since the innermost open
		// block is a paragraph and there's no blank line or new block
		// start, the text still belongs to it.
		if !fp.looksLikeNewBlock(rest) {
			fp.appendParagraphLine(rest, consumedOffset)
			return
		}
	}

	if matched < len(fp.open) {
		// A fence/indented-code/HTML block pushed on top of these containers
		// cannot outlive them: CommonMark ends such a block wherever its
		// enclosing container does, with or without an explicit closing
		// fence. Close it first so the pop below doesn't walk into the
		// spine level it still occupies.
		if fp.inFence {
			fp.closeFence()
		}
		if fp.inIndentCode {
			fp.closeIndentCode()
		}
		if fp.inHTMLBlock {
			fp.closeHTMLBlock()
		}
		fp.closeContainersTo(matched)
	}

	fp.openAndParseLeaf(rest, consumedOffset)
}

func (fp *firstPassState) tipKindIsParagraph() bool {
	return fp.pendingParagraph.valid()
}

// matchContinuation attempts to consume container c's required prefix from
// line, returning the number of bytes consumed.
func (fp *firstPassState) matchContinuation(c *openContainer, line []byte) (consumed int, ok bool) {
	if scanBlankLine(line) {
		// Blank lines never need an indent/marker to "continue" a
		// container; whether the container actually survives a blank
		// line is decided by the leaf/close logic, not here.
		return 0, true
	}
	switch c.kind {
	case blockQuoteItem:
		n := scanBlockQuoteMarker(skipUpToIndent(line, 3))
		if n == 0 {
			return 0, false
		}
		return (len(line) - len(skipUpToIndent(line, 3))) + n, true
	case listItemItem, footnoteDefinitionItem:
		col := 0
		i := 0
		for i < len(line) && col < c.contIndent {
			switch line[i] {
			case ' ':
				col++
			case '\t':
				col = (col + tabStopSize) &^ (tabStopSize - 1)
			default:
				return 0, false
			}
			i++
		}
		if col < c.contIndent {
			return 0, false
		}
		return i, true
	default:
		return 0, true
	}
}

// skipUpToIndent returns line with up to max columns of leading space/tab
// indentation removed.
func skipUpToIndent(line []byte, max int) []byte {
	col := 0
	i := 0
	for i < len(line) && col < max {
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col = (col + tabStopSize) &^ (tabStopSize - 1)
		default:
			return line[i:]
		}
		i++
	}
	return line[i:]
}

// looksLikeNewBlock reports whether line (after matched container
// prefixes) opens a new container or leaf that should interrupt a lazily
// continued paragraph, per CommonMark's paragraph-interruption rules
// (simplified: block quotes, thematic breaks, ATX headings, fences, and
// list markers interrupt; indented code and setext underlines do not).
func (fp *firstPassState) looksLikeNewBlock(line []byte) bool {
	return canInterruptParagraph(skipUpToIndent(line, 3))
}

// closeContainersTo pops open containers down to depth (exclusive of
// depth itself), finalizing each one's tree node (tightness computation
// for lists, etc.) as it closes.
func (fp *firstPassState) closeContainersTo(depth int) {
	fp.finishPendingParagraph()
	for len(fp.open) > depth {
		c := fp.open[len(fp.open)-1]
		fp.open = fp.open[:len(fp.open)-1]
		if c.kind != documentItem {
			fp.p.tree.pop()
		}
		if c.kind == listItemItem && len(fp.open) > 0 && fp.open[len(fp.open)-1].kind == listItem {
			// A blank line between this item and the next item, or between
			// two blocks inside this item, makes the enclosing list loose
			// (CommonMark §5.3). A blank line that only precedes the very
			// end of the item's content (nothing follows) does not count;
			// markLooseIfBlank below handles that case as new content
			// actually appears after the blank run.
			if c.lastLineBlank {
				fp.open[len(fp.open)-1].lastLineBlank = true
			}
		}
	}
}

// markLooseIfBlank flips the nearest enclosing list to loose if a blank
// line was just seen immediately before the new block about to be opened
// (either a new sibling item, detected by the caller before pushing it, or
// a second block inside the same still-open item). It is a no-op if no
// blank line is pending.
func (fp *firstPassState) markLooseIfBlank() {
	for i := len(fp.open) - 1; i >= 0; i-- {
		if fp.open[i].kind != listItem && fp.open[i].kind != listItemItem {
			break
		}
		if fp.open[i].kind == listItem && fp.open[i].lastLineBlank {
			fp.p.tree.node(fp.open[i].ix).item.flagA = false
			fp.open[i].lastLineBlank = false
		}
		if fp.open[i].kind == listItemItem && fp.open[i].lastLineBlank {
			for j := i - 1; j >= 0; j-- {
				if fp.open[j].kind == listItem {
					fp.p.tree.node(fp.open[j].ix).item.flagA = false
					break
				}
			}
			fp.open[i].lastLineBlank = false
		}
	}
}

// openAndParseLeaf tries to open new containers (blockquote, list item)
// nested under whatever is still open, then recognizes and parses the
// remaining leaf block.
func (fp *firstPassState) openAndParseLeaf(line []byte, offset int) {
	if fp.inFence {
		fp.continueFence(line, offset)
		return
	}
	if fp.inHTMLBlock {
		if fp.htmlBlockType >= 6 && scanBlankLine(line) {
			fp.closeHTMLBlock()
		} else {
			fp.continueHTMLBlock(line, offset)
			return
		}
	}
	if fp.inIndentCode {
		if scanBlankLine(line) {
			fp.bufferIndentCodeBlank(line)
			return
		}
		indentCols := columnWidth(0, line[:indentLength(line)])
		if indentCols >= 4 {
			fp.appendIndentCodeContent(line[4:])
			return
		}
		fp.closeIndentCode()
	}

	for {
		if scanBlankLine(line) {
			fp.finishPendingParagraph()
			if len(fp.open) > 0 && fp.tip().kind == tableItem {
				fp.closeContainersTo(len(fp.open) - 1)
			}
			if len(fp.open) > 0 {
				fp.tip().lastLineBlank = true
			}
			return
		}

		fp.markLooseIfBlank()

		indent := skipUpToIndent(line, 3)
		consumedIndent := len(line) - len(indent)

		if n := scanBlockQuoteMarker(indent); n > 0 {
			fp.finishPendingParagraph()
			ix := fp.p.tree.append(itemBody{kind: blockQuoteItem, span: nullSpan})
			fp.p.tree.push()
			fp.open = append(fp.open, openContainer{ix: ix, kind: blockQuoteItem})
			line = indent[n:]
			offset += consumedIndent + n
			continue
		}

		if m := scanListItemMarker(indent); m.end >= 0 {
			rest := indent[m.end:]
			// CommonMark: a list marker eats 1-4 following spaces as
			// padding before the item's content column; 0 (tab/EOL) or 5+
			// spaces both collapse to a single space of padding (the rest,
			// if any, becomes part of the item's indented content).
			spaceCount := 0
			for spaceCount < len(rest) && spaceCount < 5 && rest[spaceCount] == ' ' {
				spaceCount++
			}
			padding := spaceCount
			if padding == 0 || padding == 5 || scanBlankLine(rest) {
				padding = 1
			}
			contIndent := consumedIndent + m.end + padding

			fp.finishPendingParagraph()
			fp.maybeCloseList(m)
			fp.openList(m)

			itemIx := fp.p.tree.append(itemBody{kind: listItemItem, span: nullSpan, indent: contIndent})
			fp.p.tree.push()
			fp.open = append(fp.open, openContainer{ix: itemIx, kind: listItemItem, contIndent: contIndent})

			if padding > len(rest) {
				line = nil
			} else {
				line = rest[padding:]
			}
			offset += consumedIndent + m.end + padding

			if fp.p.opts&EnableTaskLists != 0 {
				if n, checked, ok := scanTaskListMarker(line); ok {
					fp.p.tree.append(itemBody{kind: taskListMarkerItem, flagA: checked, span: nullSpan})
					line = line[n:]
					offset += n
				}
			}
			continue
		}

		break
	}

	fp.parseLeafLine(line, offset)
}

// maybeCloseList closes the currently open list if m's delimiter is
// incompatible with it (different bullet character or ordered delimiter,
// or ordered vs. unordered), so a new list can be opened in its place.
func (fp *firstPassState) maybeCloseList(m listMarker) {
	if len(fp.open) == 0 {
		return
	}
	top := fp.tip()
	if top.kind != listItem {
		return
	}
	node := fp.p.tree.node(top.ix)
	if node.item.ch == m.delim {
		return
	}
	fp.closeContainersTo(len(fp.open) - 1)
}

// openList opens a new listItem container if one matching m isn't already
// the tip.
func (fp *firstPassState) openList(m listMarker) {
	if len(fp.open) > 0 && fp.tip().kind == listItem {
		return
	}
	ix := fp.p.tree.append(itemBody{kind: listItem, ch: m.delim, n: m.n, flagA: true, span: nullSpan})
	fp.p.tree.push()
	fp.open = append(fp.open, openContainer{ix: ix, kind: listItem})
}

// parseLeafLine recognizes and dispatches to one leaf block kind, in
// CommonMark's priority order.
func (fp *firstPassState) parseLeafLine(line []byte, offset int) {
	if len(fp.open) > 0 && fp.tip().kind == tableItem {
		trimmed := line[indentLength(line):]
		leadBytes := len(line) - len(trimmed)
		if hasUnescapedPipe(trimmed) {
			cells := splitTableRow(trimmed)
			cols := len(fp.p.allocations.alignments[fp.p.tree.node(fp.tip().ix).item.idx])
			for len(cells) < cols {
				cells = append(cells, nil)
			}
			fp.appendTableRow(cells[:cols], offset+leadBytes)
			return
		}
		fp.closeContainersTo(len(fp.open) - 1)
	}

	if fp.tipKindIsParagraph() {
		if level := scanSetextHeading(line); level > 0 {
			fp.convertPendingParagraphToHeading(level)
			return
		}
		if fp.p.opts&EnableTables != 0 {
			if fp.tryConvertPendingParagraphToTable(line, offset) {
				return
			}
		}
		// Indented code, HTML block type 7, and reference/footnote
		// definitions are deliberately excluded from canInterruptParagraph:
		// CommonMark forbids all of them from interrupting a paragraph, so a
		// line that doesn't otherwise start an interrupting block continues
		// the paragraph as a lazy line instead of falling into the dispatch
		// chain below.
		if !canInterruptParagraph(skipUpToIndent(line, 3)) {
			fp.appendParagraphLine(line, offset)
			return
		}
	}
	fp.finishPendingParagraph()

	indentCols := columnWidth(0, line[:indentLength(line)])
	if indentCols >= 4 {
		fp.startIndentCodeBlock(line[4:], offset+4)
		return
	}

	trimmed := line[indentLength(line):]
	leadIndentBytes := len(line) - len(trimmed)

	if n := scanThematicBreak(trimmed); n >= 0 {
		fp.p.tree.append(itemBody{kind: thematicBreakItem, span: nullSpan})
		return
	}

	if h := scanATXHeading(trimmed); h.level > 0 {
		contentSpan := Span{Start: offset + leadIndentBytes + h.content.Start, End: offset + leadIndentBytes + h.content.End}
		ix := fp.p.tree.append(itemBody{kind: headingItem, n: h.level, span: nullSpan})
		fp.p.tree.push()
		fp.parseInlineMarkers(contentSpan)
		fp.p.tree.pop()
		_ = ix
		return
	}

	if f := scanCodeFence(trimmed); f.n >= 3 {
		info := ""
		if f.info.IsValid() && f.info.Len() > 0 {
			info = string(trimASCIISpace(f.info.slice(trimmed)))
			info = unescapeEntitiesAndBackslashes(fp.p, info)
		}
		idx := fp.p.allocations.addCow(info)
		fp.p.tree.append(itemBody{kind: fencedCodeBlockItem, span: nullSpan, idx: idx})
		fp.p.tree.push()
		fp.p.tree.append(itemBody{kind: textItem, span: nullSpan})
		fp.inFence = true
		fp.fenceChar = f.char
		fp.fenceLen = f.n
		fp.fenceStart = offset + len(line)
		return
	}

	if typ := scanHTMLBlockStart(trimmed); typ > 0 {
		fp.startHTMLBlock(typ, trimmed, offset+leadIndentBytes)
		return
	}

	if fp.p.opts&EnableFootnotes != 0 {
		if fp.tryOpenFootnoteDefinition(trimmed, offset+leadIndentBytes) {
			return
		}
	}

	if fp.tryOpenReferenceDefinition(trimmed, offset+leadIndentBytes) {
		return
	}

	fp.startOrContinueParagraph(line, offset)
}

// hasUnescapedPipe reports whether line contains a '|' not preceded by an
// odd number of backslashes, the quick test for "this line could be a
// table row."
func hasUnescapedPipe(line []byte) bool {
	for i, c := range line {
		if c == '|' && !isEndEscaped(line[:i]) {
			return true
		}
	}
	return false
}

// startIndentCodeBlock opens an indented code block container holding its
// first content line and sets inIndentCode; openAndParseLeaf then appends
// each following 4-space-indented (or blank) line to it until a line with
// less indentation closes it (an indented code block never contains
// further structure).
func (fp *firstPassState) startIndentCodeBlock(content []byte, offset int) {
	b := fp.p.arena.newBuilder()
	b.writeNormalizedLines(sourceString(fp.p.source, Span{Start: offset, End: offset + len(content)}))
	fp.p.tree.append(itemBody{kind: indentCodeBlockItem, span: nullSpan})
	fp.p.tree.push()
	fp.p.tree.append(itemBody{kind: textItem, textOwned: true, ownedText: b.finish(), span: nullSpan})
	fp.inIndentCode = true
}

// bufferIndentCodeBlank holds a blank line pending inclusion in the open
// indented code block: it only actually becomes part of the block's content
// if a further content line follows, per CommonMark's "strip trailing blank
// lines" rule.
func (fp *firstPassState) bufferIndentCodeBlank(line []byte) {
	fp.pendingIndentCodeBlanks = append(fp.pendingIndentCodeBlanks, line)
}

func (fp *firstPassState) appendIndentCodeContent(line []byte) {
	node := fp.p.tree.node(fp.p.tree.curIndex())
	b := fp.p.arena.newBuilder()
	if node.item.textOwned {
		b.writeString(node.item.ownedText)
	}
	for _, blank := range fp.pendingIndentCodeBlanks {
		b.writeNormalizedLines(string(blank))
	}
	fp.pendingIndentCodeBlanks = fp.pendingIndentCodeBlanks[:0]
	b.writeNormalizedLines(string(line))
	node.item.textOwned = true
	node.item.ownedText = b.finish()
}

func (fp *firstPassState) closeIndentCode() {
	fp.inIndentCode = false
	fp.pendingIndentCodeBlanks = fp.pendingIndentCodeBlanks[:0]
	fp.p.tree.pop()
}

func (fp *firstPassState) continueFence(line []byte, offset int) {
	indent := indentLength(line)
	if indent > 3 {
		indent = 0
	}
	body := line[indent:]
	if scanClosingCodeFence(body, fp.fenceChar, fp.fenceLen) {
		fp.closeFence()
		return
	}
	fp.appendFenceContent(line)
}

func (fp *firstPassState) appendFenceContent(line []byte) {
	node := fp.p.tree.node(fp.p.tree.curIndex())
	b := fp.p.arena.newBuilder()
	if node.item.textOwned {
		b.writeString(node.item.ownedText)
	}
	b.writeNormalizedLines(string(line))
	node.item.textOwned = true
	node.item.ownedText = b.finish()
}

func (fp *firstPassState) closeFence() {
	fp.inFence = false
	fp.p.tree.pop()
}

// startHTMLBlock opens an htmlBlockItem of the given type (CommonMark §4.6)
// and records line as its first content line, checking whether the block
// already closes on this same line (possible for types 1-5, e.g. a
// one-line "<!-- comment -->").
func (fp *firstPassState) startHTMLBlock(typ int, line []byte, offset int) {
	b := fp.p.arena.newBuilder()
	b.writeNormalizedLines(sourceString(fp.p.source, Span{Start: offset, End: offset + len(line)}))
	fp.p.tree.append(itemBody{kind: htmlBlockItem, textOwned: true, ownedText: b.finish(), span: nullSpan})
	fp.inHTMLBlock = true
	fp.htmlBlockType = typ
	if typ <= 5 && scanHTMLBlockEnd(line, typ) {
		fp.inHTMLBlock = false
	}
}

// continueHTMLBlock appends a further line to the open HTML block and, for
// types 1-5, checks whether this line satisfies its end condition (types 6
// and 7 end on the next blank line instead, handled by the caller).
func (fp *firstPassState) continueHTMLBlock(line []byte, offset int) {
	fp.appendHTMLBlockContent(line)
	if scanHTMLBlockEnd(line, fp.htmlBlockType) {
		fp.closeHTMLBlock()
	}
}

func (fp *firstPassState) appendHTMLBlockContent(line []byte) {
	node := fp.p.tree.node(fp.p.tree.curIndex())
	b := fp.p.arena.newBuilder()
	if node.item.textOwned {
		b.writeString(node.item.ownedText)
	}
	b.writeNormalizedLines(string(line))
	node.item.textOwned = true
	node.item.ownedText = b.finish()
}

func (fp *firstPassState) closeHTMLBlock() {
	fp.inHTMLBlock = false
}

func (fp *firstPassState) tryOpenFootnoteDefinition(line []byte, offset int) bool {
	if len(line) < 2 || line[0] != '[' || line[1] != '^' {
		return false
	}
	consumed, raw, normalized, ok := scanLinkLabel(line[2:], fp.p.arena, nil)
	if !ok {
		return false
	}
	rest := line[2+consumed:]
	if len(rest) == 0 || rest[0] != ':' {
		return false
	}
	_ = raw
	folded := foldLabel(normalized)

	labelSpan := Span{Start: offset + 2, End: offset + 2 + consumed - 1}
	ix := fp.p.tree.append(itemBody{kind: footnoteDefinitionItem, span: labelSpan, indent: 4})
	fp.p.tree.push()
	fp.open = append(fp.open, openContainer{ix: ix, kind: footnoteDefinitionItem, contIndent: 4})
	fp.p.allocations.insertFootnoteDef(folded, ix)

	after := rest[1:]
	after = after[indentLength(after):]
	if !scanBlankLine(after) {
		fp.startOrContinueParagraph(after, offset+2+consumed+1+(len(rest)-1-len(after)))
	}
	return true
}

// tryOpenReferenceDefinition recognizes "[label]: dest \"title\"", optional
// title on the following physical line is not supported by this
// line-at-a-time pass and is treated as absent (a documented simplification
// from the one-shot multi-line lookahead pulldown-cmark performs).
func (fp *firstPassState) tryOpenReferenceDefinition(line []byte, offset int) bool {
	if len(line) == 0 || line[0] != '[' {
		return false
	}
	consumed, _, normalized, ok := scanLinkLabel(line[1:], fp.p.arena, nil)
	if !ok {
		return false
	}
	rest := line[1+consumed:]
	if len(rest) == 0 || rest[0] != ':' {
		return false
	}
	rest = rest[1:]
	rest = rest[indentLength(rest):]
	destConsumed, destSpan, ok := scanLinkDestination(rest)
	if !ok {
		return false
	}
	dest := unescapeEntitiesAndBackslashes(fp.p, string(destSpan.slice(rest)))
	rest = rest[destConsumed:]

	title := ""
	titlePresent := false
	afterSpace := rest[indentLength(rest):]
	if tConsumed, tSpan, ok := scanLinkTitle(afterSpace); ok && scanBlankLine(afterSpace[tConsumed:]) {
		title = unescapeEntitiesAndBackslashes(fp.p, string(tSpan.slice(afterSpace)))
		titlePresent = true
		rest = afterSpace[tConsumed:]
	}
	if !scanBlankLine(rest) {
		return false
	}

	folded := foldLabel(normalized)
	fp.p.allocations.insertRefDef(folded, refDef{destination: dest, title: title, titlePresent: titlePresent})
	fp.p.tree.append(itemBody{kind: linkReferenceDefinitionItem, span: nullSpan})
	return true
}

func (fp *firstPassState) startOrContinueParagraph(line []byte, offset int) {
	trimmed := line[indentLength(line):]
	leadBytes := len(line) - len(trimmed)
	content := trimASCIISpace(trimmed)
	if len(content) == 0 {
		return
	}
	start := offset + leadBytes + (len(trimmed) - len(trimASCIISpace(trimmed)))
	contentSpan := Span{Start: start, End: start + len(content)}

	if !fp.pendingParagraph.valid() {
		ix := fp.p.tree.append(itemBody{kind: paragraphItem, span: nullSpan})
		fp.p.tree.push()
		fp.pendingParagraph = ix
		fp.pendingLineSpan = contentSpan
	} else {
		// Two or more trailing spaces, or an unescaped trailing backslash, on
		// the previous line make this a hard break.
		brk := softBreakItem
		src, prev := fp.p.source, fp.pendingLineSpan
		spaces := 0
		for prev.End+spaces < len(src) && src[prev.End+spaces] == ' ' {
			spaces++
		}
		if last := fp.p.tree.node(fp.p.tree.curIndex()); spaces >= 2 {
			brk = hardBreakItem
		} else if last.item.kind == textItem && !last.item.textOwned && last.item.span.End == prev.End &&
			src[prev.End-1] == '\\' && !isEndEscaped(src[prev.Start:prev.End-1]) {
			brk = hardBreakItem
			last.item.span.End--
			if last.item.span.Len() == 0 {
				last.item.kind = elidedItem
			}
		}
		fp.p.tree.append(itemBody{kind: brk, span: nullSpan})
		fp.pendingLineSpan = contentSpan
	}
	fp.parseInlineMarkers(contentSpan)
}

func (fp *firstPassState) appendParagraphLine(line []byte, offset int) {
	fp.startOrContinueParagraph(line, offset)
}

func (fp *firstPassState) finishPendingParagraph() {
	if !fp.pendingParagraph.valid() {
		return
	}
	fp.p.tree.pop()
	fp.pendingParagraph = nilIndex
}

func (fp *firstPassState) convertPendingParagraphToHeading(level int) {
	ix := fp.pendingParagraph
	node := fp.p.tree.node(ix)
	node.item.kind = headingItem
	node.item.n = level
	fp.p.tree.pop()
	fp.pendingParagraph = nilIndex
}

// tryConvertPendingParagraphToTable rewrites a one-line-so-far paragraph
// into a table if the header line holds an unescaped '|' and line is a
// valid GFM separator row matching the header's column count.
func (fp *firstPassState) tryConvertPendingParagraphToTable(line []byte, offset int) bool {
	alignments, ok := scanTableSeparatorRow(line)
	if !ok {
		return false
	}
	header := fp.pendingLineSpan.slice(fp.p.source)
	if !hasUnescapedPipe(header) {
		return false
	}
	headerCells := splitTableRow(header)
	if len(headerCells) != len(alignments) {
		return false
	}

	node := fp.p.tree.node(fp.pendingParagraph)
	for c := node.child; c.valid(); c = fp.p.tree.node(c).next {
		if k := fp.p.tree.node(c).item.kind; k == softBreakItem || k == hardBreakItem {
			return false
		}
	}
	node.item.kind = tableItem
	node.item.idx = fp.p.allocations.addAlignments(alignments)
	tableIx := fp.pendingParagraph
	fp.pendingParagraph = nilIndex

	// The header line's inline nodes are rebuilt per cell below.
	node.child = nilIndex
	fp.p.tree.cur = nilIndex

	fp.p.tree.append(itemBody{kind: tableHeadItem, span: nullSpan})
	fp.p.tree.push()
	fp.appendTableRow(headerCells, fp.pendingLineSpan.Start)
	fp.p.tree.pop() // head

	fp.open = append(fp.open, openContainer{ix: tableIx, kind: tableItem})
	return true
}

// appendTableRow builds one tableRowItem with a tableCellItem per cell,
// resolving each cell's inline content against its source span (cells is
// the result of splitTableRow on the original row's text, so the byte
// offsets line up by walking cells in order from rowStart, once past the
// leading pipe that splitTableRow drops).
func (fp *firstPassState) appendTableRow(cells [][]byte, rowStart int) {
	if rowStart < len(fp.p.source) && fp.p.source[rowStart] == '|' {
		rowStart++
	}
	fp.p.tree.append(itemBody{kind: tableRowItem, span: nullSpan})
	fp.p.tree.push()
	consumed := 0
	for _, cell := range cells {
		cellStart := rowStart + consumed
		consumed += len(cell) + 1
		trimmedCell := trimASCIISpace(cell)
		leadTrim := 0
		for leadTrim < len(cell) && (cell[leadTrim] == ' ' || cell[leadTrim] == '\t') {
			leadTrim++
		}
		start := cellStart + leadTrim
		fp.p.tree.append(itemBody{kind: tableCellItem, span: nullSpan})
		fp.p.tree.push()
		fp.parseInlineMarkers(Span{Start: start, End: start + len(trimmedCell)})
		fp.p.tree.pop()
	}
	fp.p.tree.pop() // row
}

// parseInlineMarkers scans span's source text for inline constructs,
// appending text nodes and unresolved Maybe* marker nodes as children of
// the current tree cursor. Resolution happens later, lazily, in
// inlinepass1.go/emphasis.go.
func (fp *firstPassState) parseInlineMarkers(span Span) {
	src := fp.p.source
	i := span.Start
	textStart := i
	flushText := func(end int) {
		if end > textStart {
			fp.p.tree.append(itemBody{kind: textItem, span: Span{Start: textStart, End: end}})
		}
	}
	for i < span.End {
		c := src[i]
		switch {
		case c == '\\' && i+1 < span.End && isASCIIPunctuation(src[i+1]):
			flushText(i)
			fp.p.tree.append(itemBody{kind: backslashItem, span: Span{Start: i, End: i + 1}})
			fp.p.tree.append(itemBody{kind: textItem, span: Span{Start: i + 1, End: i + 2}})
			i += 2
			textStart = i
		case c == '`':
			flushText(i)
			n := 0
			for i+n < span.End && src[i+n] == '`' {
				n++
			}
			fp.p.tree.append(itemBody{kind: maybeCodeItem, n: n, span: Span{Start: i, End: i + n}})
			i += n
			textStart = i
		case c == '*' || c == '_' || (c == '~' && fp.p.opts&EnableStrikethrough != 0):
			flushText(i)
			n := 0
			for i+n < span.End && src[i+n] == c {
				n++
			}
			before := byte(' ')
			if i > 0 {
				before = src[i-1]
			}
			after := byte(' ')
			if i+n < len(src) {
				after = src[i+n]
			}
			canOpen, canClose := emphasisFlanking(before, after, c)
			fp.p.tree.append(itemBody{kind: maybeEmphasisItem, n: n, ch: c, flagA: canOpen, flagB: canClose, span: Span{Start: i, End: i + n}})
			i += n
			textStart = i
		case c == '[':
			flushText(i)
			fp.p.tree.append(itemBody{kind: maybeLinkOpenItem, span: Span{Start: i, End: i + 1}})
			i++
			textStart = i
		case c == '!' && i+1 < span.End && src[i+1] == '[':
			flushText(i)
			fp.p.tree.append(itemBody{kind: maybeImageItem, span: Span{Start: i, End: i + 2}})
			i += 2
			textStart = i
		case c == ']':
			flushText(i)
			fp.p.tree.append(itemBody{kind: maybeLinkCloseItem, span: Span{Start: i, End: i + 1}})
			i++
			textStart = i
		case c == '<':
			flushText(i)
			rest := src[i:span.End]
			if n, dest, isEmail, ok := scanAutolink(rest); ok {
				kind := LinkAutolink
				text := dest
				if isEmail {
					kind = LinkEmail
					dest = "mailto:" + dest
				}
				idx := fp.p.allocations.addLink(linkData{kind: kind, dest: dest})
				fp.p.tree.append(itemBody{kind: linkItem, span: nullSpan, idx: idx})
				fp.p.tree.push()
				fp.p.tree.append(itemBody{kind: textItem, textOwned: true, ownedText: text, span: nullSpan})
				fp.p.tree.pop()
				i += n
			} else if n := scanInlineHTML(rest); n > 0 {
				fp.p.tree.append(itemBody{kind: inlineHTMLItem, span: Span{Start: i, End: i + n}})
				i += n
			} else {
				fp.p.tree.append(itemBody{kind: textItem, span: Span{Start: i, End: i + 1}})
				i++
			}
			textStart = i
		case c == '&':
			if n, text, ok := scanEntity(src[i:span.End]); ok {
				flushText(i)
				fp.p.tree.append(itemBody{kind: textItem, textOwned: true, ownedText: text})
				i += n
				textStart = i
			} else {
				i++
			}
		case c == '\n' || c == '\r':
			j := i
			trailingSpaces := 0
			for j > span.Start && src[j-1] == ' ' {
				j--
				trailingSpaces++
			}
			hard := trailingSpaces >= 2
			if !hard && j > span.Start && src[j-1] == '\\' && !isEndEscaped(src[span.Start:j-1]) {
				hard = true
				j-- // the backslash itself is consumed by the break, not emitted as text
			}
			flushText(j)
			if hard {
				fp.p.tree.append(itemBody{kind: hardBreakItem, span: nullSpan})
			} else {
				fp.p.tree.append(itemBody{kind: softBreakItem, span: nullSpan})
			}
			i += scanEOL(src[i:])
			textStart = i
		default:
			i++
		}
	}
	flushText(span.End)
}

// emphasisFlanking computes CommonMark's left/right-flanking delimiter-run
// rules for a run of emphasis character c bounded by before/after bytes.
func emphasisFlanking(before, after, c byte) (canOpen, canClose bool) {
	beforeSpace := isSpaceTabOrLineEnding(before)
	afterSpace := isSpaceTabOrLineEnding(after)
	beforePunct := isASCIIPunctuation(before)
	afterPunct := isASCIIPunctuation(after)

	leftFlanking := !afterSpace && !(afterPunct && !beforeSpace && !beforePunct)
	rightFlanking := !beforeSpace && !(beforePunct && !afterSpace && !afterPunct)

	if c == '_' {
		canOpen = leftFlanking && (!rightFlanking || beforePunct)
		canClose = rightFlanking && (!leftFlanking || afterPunct)
		return
	}
	canOpen = leftFlanking
	canClose = rightFlanking
	return
}

// unescapeEntitiesAndBackslashes resolves entity references and backslash
// escapes in a link destination/title/info string, which (unlike normal
// inline content) are resolved immediately during the first pass rather
// than through the Maybe* marker machinery, since they never participate
// in emphasis/link matching.
func unescapeEntitiesAndBackslashes(p *Parser, s string) string {
	b := []byte(s)
	hasSpecial := false
	for i := 0; i < len(b); i++ {
		if b[i] == '&' || b[i] == '\\' {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return s
	}
	bb := p.arena.newBuilder()
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '\\' && i+1 < len(b) && isASCIIPunctuation(b[i+1]):
			bb.writeByte(b[i+1])
			i += 2
		case b[i] == '&':
			if n, text, ok := scanEntity(b[i:]); ok {
				bb.writeString(text)
				i += n
			} else {
				bb.writeByte(b[i])
				i++
			}
		default:
			bb.writeByte(b[i])
			i++
		}
	}
	return bb.finish()
}
