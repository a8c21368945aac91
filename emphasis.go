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

// inlineStack holds the open emphasis/strikethrough delimiter runs seen so
// far while resolving one block's inline children, plus the lower-bound
// memoization pulldown-cmark's InlineStack uses to avoid re-scanning
// prefixes that are already known to contain no match.
//
// The five buckets index by delimiter identity the same way InlineStack
// does: underscore; asterisk where canOpen == canClose (ambiguous);
// asterisk (or tilde) bucketed by run length mod 3, since the rule of
// three only needs to distinguish those three residues.
type inlineStack struct {
	entries   []inlineEl
	lowerBound [5]int
}

type inlineEl struct {
	ix      treeIndex // the maybeEmphasisItem node
	ch      byte
	count   int  // remaining (unconsumed) delimiter length
	canOpen bool
	canClose bool
}

func bucketIndex(ch byte, canOpen, canClose bool, count int) int {
	if ch == '_' {
		return 0
	}
	if ch == '~' {
		return 4
	}
	if canOpen && canClose {
		return 1
	}
	return 2 + count%3
}

func (s *inlineStack) push(el inlineEl) {
	s.entries = append(s.entries, el)
}

func (s *inlineStack) popAll(drainInto func(inlineEl)) {
	for _, el := range s.entries {
		drainInto(el)
	}
	s.entries = s.entries[:0]
}

// findMatch searches from the top of the stack downward for the nearest
// entry satisfying the rule of three against a closer of character ch and
// length closeLen, skipping over (but not removing) entries whose bucket's
// lower bound proves they can't match. Every entry above a found match is
// degraded to text via degrade and has its own bucket's lower bound pulled
// down to just below the match, since those entries can never be reached
// again once the caller truncates the stack to the match. It returns the
// matching entry's stack index, or -1.
func (s *inlineStack) findMatch(ch byte, closeLen int, closeBothFlanking bool, degrade func(inlineEl)) int {
	b := bucketIndex(ch, closeBothFlanking, closeBothFlanking, closeLen)
	bound := s.lowerBound[b]
	for i := len(s.entries) - 1; i >= bound; i-- {
		el := s.entries[i]
		if el.ch != ch {
			continue
		}
		if ruleOfThreeOK(el, closeLen, closeBothFlanking) {
			newBound := i - 1
			if newBound < 0 {
				newBound = 0
			}
			for j := i + 1; j < len(s.entries); j++ {
				skipped := s.entries[j]
				degrade(skipped)
				s.lowerBound[bucketIndex(skipped.ch, skipped.canOpen, skipped.canClose, skipped.count)] = newBound
			}
			return i
		}
	}
	s.lowerBound[b] = len(s.entries)
	return -1
}

// ruleOfThreeOK implements CommonMark's "rule of three": a run of
// delimiters that is both a potential opener and a potential closer can
// only match another both-flanking run if the sum of their lengths is not
// a multiple of 3, or either length is itself a multiple of 3.
func ruleOfThreeOK(opener inlineEl, closeLen int, closeBothFlanking bool) bool {
	openerBothFlanking := opener.canOpen && opener.canClose
	if !openerBothFlanking && !closeBothFlanking {
		return true
	}
	sum := opener.count + closeLen
	return sum%3 != 0 || opener.count%3 == 0 || closeLen%3 == 0
}

// resolveEmphasis runs inline pass 2 over the Maybe* nodes already recorded
// by inline pass 1 within one block's child chain (children is the list of
// sibling indices at that level, in document order): matches emphasis/
// strikethrough delimiter runs by the rule of three, converting matched
// ranges into emphasisItem/strongItem/strikethroughItem containers that
// wrap the nodes between the two delimiter markers, and degrading any
// unmatched markers to plain text.
func (p *Parser) resolveEmphasis(children []treeIndex) {
	var stack inlineStack

	for _, ix := range children {
		node := p.tree.node(ix)
		if node.item.kind != maybeEmphasisItem {
			continue
		}
		el := inlineEl{ix: ix, ch: node.item.ch, count: node.item.n, canOpen: node.item.flagA, canClose: node.item.flagB}

		if el.canClose {
			for el.count > 0 {
				j := stack.findMatch(el.ch, el.count, el.canOpen && el.canClose, func(skipped inlineEl) {
					p.degradeToText(skipped.ix)
				})
				if j < 0 {
					break
				}
				opener := stack.entries[j]
				k := opener.count
				if el.count < k {
					k = el.count
				}
				if el.ch == '~' && k != 2 {
					// Strikethrough requires an exact two-tilde match; give
					// up on this closer rather than risk a wrong pairing.
					break
				}
				p.wrapEmphasisRange(opener.ix, ix, k, el.ch)
				stack.entries[j].count -= k
				el.count -= k
				if stack.entries[j].count == 0 {
					stack.entries = stack.entries[:j]
				} else {
					stack.entries = stack.entries[:j+1]
				}
			}
		}
		if el.count > 0 && el.canOpen {
			stack.push(el)
		} else if el.count > 0 {
			// Can't open (or ran out of closers to consume it) and was
			// never pushed, so popAll will never reach it: degrade now
			// or this maybeEmphasisItem is left stranded in that kind.
			p.degradeToText(el.ix)
		}
	}

	stack.popAll(func(el inlineEl) {
		p.degradeToText(el.ix)
	})
}

// wrapEmphasisRange consumes k delimiters from each of openIx/closeIx and
// wraps the nodes strictly between them in emphasisItem/strongItem/
// strikethroughItem containers, one pair of delimiters at a time
// (inside-out, so k=3 produces strong(emphasis(...))).
func (p *Parser) wrapEmphasisRange(openIx, closeIx treeIndex, k int, ch byte) {
	for k > 0 {
		step := 1
		kind := emphasisItem
		if ch == '~' {
			step = 2
			kind = strikethroughItem
		} else if k >= 2 {
			step = 2
			kind = strongItem
		}
		p.wrapOnePair(openIx, closeIx, step, kind)
		k -= step
	}
}

// wrapOnePair splices a new container node between openIx and closeIx's
// siblings, re-parenting everything between them (exclusive) as its
// children, and peels consume delimiter characters off each marker's own
// span: consume bytes off the right edge of the opener (its unconsumed
// remainder stays to the left, outside the wrap) and off the left edge of
// the closer (its remainder stays to the right). A marker whose count
// reaches zero is elided, since it no longer contributes any literal text
// or further matching potential. The tree has no removal operation;
// closing is done by rewriting the predecessor's next, exactly as [tree]
// documents.
func (p *Parser) wrapOnePair(openIx, closeIx treeIndex, consume int, kind itemKind) {
	// Node pointers from [tree.node] are only valid until the next
	// append/createNode call (the backing slice may grow and move), so
	// every pointer below is re-fetched by index right before use rather
	// than held across the createNode call.
	first := p.tree.node(openIx).next
	wrapIx := p.tree.createNode(itemBody{kind: kind, span: nullSpan})

	if first != closeIx {
		inner := first
		for p.tree.node(inner).next != closeIx {
			inner = p.tree.node(inner).next
		}
		p.tree.node(inner).next = nilIndex
		p.tree.node(wrapIx).child = first
	}

	p.tree.node(openIx).next = wrapIx
	p.tree.node(wrapIx).next = closeIx

	open := p.tree.node(openIx)
	open.item.n -= consume
	open.item.span.End -= consume
	if open.item.n == 0 {
		open.item.kind = elidedItem
	}

	close := p.tree.node(closeIx)
	close.item.n -= consume
	close.item.span.Start += consume
	if close.item.n == 0 {
		close.item.kind = elidedItem
	}
}

// degradeToText converts an unmatched Maybe* marker into a plain text node
// over its own span, the fallback CommonMark requires for delimiters that
// never find a partner.
func (p *Parser) degradeToText(ix treeIndex) {
	node := p.tree.node(ix)
	node.item.kind = textItem
}
