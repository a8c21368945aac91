// Copyright 2018 Google LLC
// Copyright 2023 Ross Light
//
// Use of the delimiter-matching algorithm in this file is governed by an
// MIT-style license (see the upstream [pulldown-cmark] license) in addition
// to the Apache License, Version 2.0 (the "License") that governs the rest
// of this repository; you may not use this file except in compliance with
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

// resolveInline is the lazy entry point the walker calls the first time it
// reaches an unresolved marker within one block's flat child chain. Every
// Maybe* node before startIx in that chain has already been resolved (or
// was never a marker to begin with), so walking forward from startIx alone
// is enough to process the rest of the chain.
func (p *Parser) resolveInline(startIx treeIndex) {
	if p.opts&FirstPassOnly != 0 {
		for ix := startIx; ix.valid(); ix = p.tree.node(ix).next {
			if p.tree.node(ix).item.isUnresolvedMarker() {
				p.degradeToText(ix)
			}
		}
		return
	}

	p.resolveCodeAndLinks(startIx)

	var children []treeIndex
	for ix := startIx; ix.valid(); ix = p.tree.node(ix).next {
		children = append(children, ix)
	}
	p.resolveEmphasis(children)
}

// bracketMarker is one entry of the open-bracket stack resolveCodeAndLinks
// maintains while scanning a block's children left to right.
type bracketMarker struct {
	ix      treeIndex
	isImage bool
	active  bool
}

// resolveCodeAndLinks runs inline pass 1 over startIx's sibling chain: code
// spans (which take priority, since a backtick run can swallow bracket
// markers inside it) and link/image brackets, tracked with a LIFO stack the
// same way commonmark.js's InlineParser does. Emphasis is left for pass 2
// (resolveEmphasis), which needs the whole chain already settled.
func (p *Parser) resolveCodeAndLinks(startIx treeIndex) {
	var stack []bracketMarker
	ix := startIx
	for ix.valid() {
		item := p.tree.node(ix).item
		switch item.kind {
		case maybeCodeItem:
			if closeIx, ok := p.findCodeSpanClose(ix); ok {
				ix = p.wrapCodeSpan(ix, closeIx)
				continue
			}
			p.degradeToText(ix)
			ix = p.tree.node(ix).next
		case maybeLinkOpenItem:
			stack = append(stack, bracketMarker{ix: ix, active: true})
			ix = p.tree.node(ix).next
		case maybeImageItem:
			stack = append(stack, bracketMarker{ix: ix, isImage: true, active: true})
			ix = p.tree.node(ix).next
		case maybeLinkCloseItem:
			ix = p.tryCloseBracket(ix, &stack)
		default:
			ix = p.tree.node(ix).next
		}
	}
	for _, b := range stack {
		p.degradeToText(b.ix)
	}
}

// findCodeSpanClose scans forward from openIx (exclusive) for the next
// maybeCodeItem node with the same backtick run length, which is the node
// that closes it under CommonMark's code span matching rule.
func (p *Parser) findCodeSpanClose(openIx treeIndex) (treeIndex, bool) {
	n := p.tree.node(openIx).item.n
	for ix := p.tree.node(openIx).next; ix.valid(); ix = p.tree.node(ix).next {
		item := p.tree.node(ix).item
		if item.kind == maybeCodeItem && item.n == n {
			return ix, true
		}
	}
	return nilIndex, false
}

// wrapCodeSpan converts openIx in place into a resolved code span covering
// the raw source strictly between the two backtick runs, and rewires the
// chain directly from openIx to whatever followed closeIx, discarding every
// node in between (including closeIx itself, which is never visited again).
func (p *Parser) wrapCodeSpan(openIx, closeIx treeIndex) treeIndex {
	openSpan := p.tree.node(openIx).item.span
	closeSpan := p.tree.node(closeIx).item.span
	raw := sourceString(p.source, Span{Start: openSpan.End, End: closeSpan.Start})
	text := p.normalizeCodeSpanContent(raw)

	after := p.tree.node(closeIx).next
	open := p.tree.node(openIx)
	open.item.kind = codeSpanItem
	open.item.textOwned = true
	open.item.ownedText = text
	open.item.span = nullSpan
	open.next = after
	return after
}

// normalizeCodeSpanContent applies CommonMark's code span content rule:
// line endings become a single space, and if the result both begins and
// ends with a space but isn't made entirely of spaces, one space is
// stripped from each end.
func (p *Parser) normalizeCodeSpanContent(raw string) string {
	b := p.arena.newBuilder()
	b.writeNormalizedCode(raw)
	s := b.finish()
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && !isAllWhitespace(s) {
		s = s[1 : len(s)-1]
	}
	return s
}

// tryCloseBracket handles one maybeLinkCloseItem node against the top of
// the bracket stack, mirroring commonmark.js's look-for-link-or-image: only
// the innermost open bracket is ever considered, never ones further down.
// It returns the sibling chain index resolution should continue from.
func (p *Parser) tryCloseBracket(closeIx treeIndex, stack *[]bracketMarker) treeIndex {
	if len(*stack) == 0 {
		p.degradeToText(closeIx)
		return p.tree.node(closeIx).next
	}
	top := (*stack)[len(*stack)-1]
	if !top.active {
		*stack = (*stack)[:len(*stack)-1]
		p.degradeToText(top.ix)
		p.degradeToText(closeIx)
		return p.tree.node(closeIx).next
	}

	if !top.isImage {
		if after, ok := p.tryResolveFootnote(top.ix, closeIx); ok {
			*stack = (*stack)[:len(*stack)-1]
			return after
		}
	}

	ld, end, ok := p.tryResolveLink(top.ix, closeIx, top.isImage)
	if !ok {
		*stack = (*stack)[:len(*stack)-1]
		p.degradeToText(top.ix)
		p.degradeToText(closeIx)
		return p.tree.node(closeIx).next
	}

	idx := p.allocations.addLink(ld)
	kind := linkItem
	if top.isImage {
		kind = imageItem
	}
	after := p.wrapBracketRange(top.ix, closeIx, kind, idx, end)
	*stack = (*stack)[:len(*stack)-1]

	// A resolved link (not image) forbids any further link nested inside
	// what's left open below it; images may still nest inside either.
	if !top.isImage {
		for i := range *stack {
			if !(*stack)[i].isImage {
				(*stack)[i].active = false
			}
		}
	}

	return after
}

// tryResolveFootnote recognizes a bare "[^label]" reference against a
// known footnote definition. It does not look at the node structure
// between openIx and closeIx, only the raw source bytes, the same way an
// unmatched code span or emphasis run inside the label is simply discarded
// along with everything else between the brackets.
func (p *Parser) tryResolveFootnote(openIx, closeIx treeIndex) (treeIndex, bool) {
	if p.opts&EnableFootnotes == 0 {
		return nilIndex, false
	}
	open := p.tree.node(openIx)
	if open.item.kind != maybeLinkOpenItem {
		return nilIndex, false
	}
	closeSpan := p.tree.node(closeIx).item.span
	raw := sourceString(p.source, Span{Start: open.item.span.End, End: closeSpan.Start})
	if len(raw) < 2 || raw[0] != '^' {
		return nilIndex, false
	}
	label := raw[1:]
	folded := foldLabel(p.normalizeBracketText(label))
	if _, ok := p.allocations.lookupFootnoteDef(folded); !ok {
		return nilIndex, false
	}

	after := p.tree.node(closeIx).next
	open.item.kind = footnoteReferenceItem
	open.item.textOwned = true
	open.item.ownedText = label
	open.item.span = nullSpan
	open.next = after
	return after, true
}

// tryResolveLink attempts, in CommonMark's priority order, an inline
// "(dest \"title\")" trailer, a full "[label]" reference, a collapsed "[]"
// reference, and finally a shortcut reference using the bracketed text
// itself as the label. end is the absolute byte offset just past whatever
// trailer was consumed (closeSpan.End itself, for a shortcut).
func (p *Parser) tryResolveLink(openIx, closeIx treeIndex, isImage bool) (ld linkData, end int, ok bool) {
	closeSpan := p.tree.node(closeIx).item.span
	pos := closeSpan.End
	src := p.source

	if dest, title, tailEnd, inlineOK := p.scanInlineLinkTail(pos); inlineOK {
		return linkData{kind: LinkInline, dest: dest, title: title}, tailEnd, true
	}

	textSpan := Span{Start: p.tree.node(openIx).item.span.End, End: closeSpan.Start}
	rawText := sourceString(src, textSpan)

	if pos < len(src) && src[pos] == '[' {
		if n, _, normalized, labelOK := scanLinkLabel(src[pos+1:], p.arena, nil); labelOK {
			folded := foldLabel(normalized)
			if def, defOK := p.allocations.lookupRefDef(folded); defOK {
				return linkData{kind: LinkReference, dest: def.destination, title: def.title}, pos + 1 + n, true
			}
			if dest, title, cbOK := p.tryBrokenLink(normalized); cbOK {
				return linkData{kind: LinkReferenceUnknown, dest: dest, title: title}, pos + 1 + n, true
			}
			return linkData{}, 0, false
		}
		if pos+1 < len(src) && src[pos+1] == ']' {
			normalized := p.normalizeBracketText(rawText)
			folded := foldLabel(normalized)
			if def, defOK := p.allocations.lookupRefDef(folded); defOK {
				return linkData{kind: LinkCollapsed, dest: def.destination, title: def.title}, pos + 2, true
			}
			if dest, title, cbOK := p.tryBrokenLink(normalized); cbOK {
				return linkData{kind: LinkCollapsedUnknown, dest: dest, title: title}, pos + 2, true
			}
			return linkData{}, 0, false
		}
	}

	normalized := p.normalizeBracketText(rawText)
	if normalized == "" || isAllWhitespace(normalized) {
		return linkData{}, 0, false
	}
	folded := foldLabel(normalized)
	if def, defOK := p.allocations.lookupRefDef(folded); defOK {
		return linkData{kind: LinkShortcut, dest: def.destination, title: def.title}, pos, true
	}
	if dest, title, cbOK := p.tryBrokenLink(normalized); cbOK {
		return linkData{kind: LinkShortcutUnknown, dest: dest, title: title}, pos, true
	}
	return linkData{}, 0, false
}

// scanInlineLinkTail scans an inline link/image trailer "(dest \"title\")"
// starting at the absolute source offset of its opening paren, returning
// the byte offset just past the closing paren.
func (p *Parser) scanInlineLinkTail(pos int) (dest, title string, end int, ok bool) {
	src := p.source
	if pos >= len(src) || src[pos] != '(' {
		return "", "", 0, false
	}
	body := src[pos+1:]
	c := indentLength(body)
	body = body[c:]

	if len(body) > 0 && body[0] == ')' {
		return "", "", pos + 1 + c + 1, true
	}

	destConsumed, destSpan, destOK := scanLinkDestination(body)
	if !destOK {
		return "", "", 0, false
	}
	dest = unescapeEntitiesAndBackslashes(p, string(destSpan.slice(body)))
	c += destConsumed
	body = body[destConsumed:]

	spaceLen := indentLength(body)
	afterSpace := body[spaceLen:]
	if spaceLen > 0 {
		if tConsumed, tSpan, titleOK := scanLinkTitle(afterSpace); titleOK {
			title = unescapeEntitiesAndBackslashes(p, string(tSpan.slice(afterSpace)))
			c += spaceLen + tConsumed
			body = afterSpace[tConsumed:]
		}
	}

	trailing := indentLength(body)
	body = body[trailing:]
	c += trailing
	if len(body) == 0 || body[0] != ')' {
		return "", "", 0, false
	}
	c++
	return dest, title, pos + 1 + c, true
}

// tryBrokenLink invokes the parser's BrokenLinkCallback, if any, for a
// reference label with no matching definition.
func (p *Parser) tryBrokenLink(label string) (dest, title string, ok bool) {
	if p.brokenLink == nil {
		return "", "", false
	}
	return p.brokenLink(label)
}

// normalizeBracketText applies link-label whitespace normalization to raw
// bracketed text, for use as a collapsed or shortcut reference's label.
func (p *Parser) normalizeBracketText(raw string) string {
	buf := make([]byte, 0, len(raw)+1)
	buf = append(buf, raw...)
	buf = append(buf, ']')
	_, _, normalized, ok := scanLinkLabel(buf, p.arena, nil)
	if !ok {
		return ""
	}
	return normalized
}

// wrapBracketRange converts openIx in place into a resolved link or image
// container, re-parenting everything strictly between openIx and closeIx
// as its children (exactly as wrapOnePair does for emphasis), then skips
// the chain forward past whatever source bytes the matched trailer
// consumed, which were already tokenized as ordinary siblings by the first
// pass and so have to be spliced out or trimmed rather than simply ignored.
func (p *Parser) wrapBracketRange(openIx, closeIx treeIndex, kind itemKind, allocIdx int, trailerEnd int) treeIndex {
	first := p.tree.node(openIx).next
	child := nilIndex
	if first != closeIx {
		inner := first
		for p.tree.node(inner).next != closeIx {
			inner = p.tree.node(inner).next
		}
		p.tree.node(inner).next = nilIndex
		child = first
	}

	after := p.advancePast(p.tree.node(closeIx).next, trailerEnd)

	open := p.tree.node(openIx)
	open.item.kind = kind
	open.item.idx = allocIdx
	open.item.span = nullSpan
	open.child = child
	open.next = after
	return after
}

// advancePast walks forward from from, dropping any sibling whose span
// lies entirely before end and trimming the start of one that straddles
// it, returning the first node starting at or after end (or nilIndex at
// the end of the chain). A synthetic (textOwned or span-less) node can't
// straddle a trailer, since trailers are raw source bytes tokenized by the
// first pass; it marks the end of the region to skip.
func (p *Parser) advancePast(from treeIndex, end int) treeIndex {
	ix := from
	for ix.valid() {
		item := &p.tree.node(ix).item
		if item.textOwned || item.span.isNull() {
			return ix
		}
		if item.span.End <= end {
			ix = p.tree.node(ix).next
			continue
		}
		if item.span.Start < end {
			item.span.Start = end
		}
		return ix
	}
	return nilIndex
}
