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

// Package htmlrender converts a parsed document's event stream into HTML.
// Unlike the teacher's html_renderer.go, which walks a *Block/*Inline
// pointer tree, this renderer consumes the flat Start/End event stream a
// [commonmark.Parser] produces: a link or image's destination and title
// arrive already resolved on its Tag, so there is no ReferenceMap lookup
// at render time the way the teacher's LinkKind/AutolinkKind cases need.
package htmlrender

import (
	"bytes"
	"html"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"

	"github.com/mdspine/commonmark"
)

// SoftBreakBehavior determines how [commonmark.SoftBreakEvent] is rendered.
type SoftBreakBehavior int

const (
	// SoftBreakNewline renders a soft break as a single newline, the
	// CommonMark-mandated default.
	SoftBreakNewline SoftBreakBehavior = iota
	// SoftBreakSpace renders a soft break as a single space.
	SoftBreakSpace
	// SoftBreakHarden renders a soft break as a hard line break.
	SoftBreakHarden
)

// A Renderer converts a document's event stream into HTML.
//
// # Security considerations
//
// CommonMark permits the use of [raw HTML], which can introduce
// [Cross-Site Scripting (XSS)] vulnerabilities and [HTML parse errors] when
// used with untrusted inputs. There are a few options to mitigate this
// risk:
//
//   - The resulting HTML can be sent through an HTML sanitizer. This is
//     highly recommended.
//   - Set IgnoreRaw to drop raw HTML blocks and inline HTML entirely.
//   - FilterTag can be used to prevent some tags from being used while
//     still showing the source text. This does not prevent parse errors,
//     so it should be combined with sanitization for untrusted inputs.
//
// [Cross-Site Scripting (XSS)]: https://owasp.org/www-community/attacks/xss/
// [HTML parse errors]: https://html.spec.whatwg.org/multipage/parsing.html#parse-errors
// [raw HTML]: https://spec.commonmark.org/0.30/#raw-html
type Renderer struct {
	SoftBreakBehavior SoftBreakBehavior
	IgnoreRaw         bool
	// FilterTag reports whether an element with the given lowercased tag
	// name should have its leading angle bracket escaped. If nil, no
	// filtering occurs.
	FilterTag func(tag []byte) bool
}

// RenderHTML parses source and writes it to w as HTML using the default
// Renderer options.
func RenderHTML(w io.Writer, source []byte, opts commonmark.Options) error {
	return (&Renderer{}).Render(w, source, opts)
}

// Render parses source and writes it to w as HTML.
func (r *Renderer) Render(w io.Writer, source []byte, opts commonmark.Options) error {
	_, err := w.Write(r.AppendDocument(nil, source, opts))
	return err
}

// AppendDocument parses source and appends its rendered HTML to dst,
// returning the resulting slice.
func (r *Renderer) AppendDocument(dst []byte, source []byte, opts commonmark.Options) []byte {
	p := commonmark.NewParser(source, opts)
	return r.AppendEvents(dst, collectEvents(p))
}

func collectEvents(p *commonmark.Parser) []commonmark.Event {
	it := p.Events()
	var events []commonmark.Event
	for {
		ev, ok := it.Next()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

// AppendEvents appends the rendered HTML of a fully collected event stream
// to dst and returns the resulting slice. Collecting the slice up front
// (rather than rendering straight off the iterator) is what lets image alt
// text be computed by scanning ahead to the matching EndEvent.
func (r *Renderer) AppendEvents(dst []byte, events []commonmark.Event) []byte {
	state := &renderState{Renderer: r, dst: dst}
	state.run(events)
	return state.dst
}

// containerFrame is pushed on every StartEvent and popped on its matching
// EndEvent, mirroring the teacher's recursive tight parameter with an
// explicit stack instead of call-stack recursion.
type containerFrame struct {
	kind      commonmark.TagKind
	tight     bool // ListTag only: is this list tight?
	suppressP bool // ItemTag/ParagraphTag only: is a direct child paragraph unwrapped?
}

type tableFrame struct {
	alignments []commonmark.Alignment
	column     int
	inHead     bool
	bodyOpen   bool
}

type renderState struct {
	*Renderer
	dst      []byte
	lowerBuf []byte
	stack    []containerFrame
	tables   []tableFrame
}

func (s *renderState) top() containerFrame {
	if len(s.stack) == 0 {
		return containerFrame{}
	}
	return s.stack[len(s.stack)-1]
}

func (s *renderState) openTagAttr(name atom.Atom) {
	start := len(s.dst)
	s.dst = append(s.dst, '<')
	s.dst = append(s.dst, name.String()...)
	if s.FilterTag != nil && s.FilterTag(s.dst[start+1:]) {
		s.dst = s.dst[:start]
		s.dst = append(s.dst, "&lt;"...)
		s.dst = append(s.dst, name.String()...)
	}
}

func (s *renderState) openTag(name atom.Atom) {
	s.openTagAttr(name)
	s.dst = append(s.dst, '>')
}

func (s *renderState) closeTag(name atom.Atom) {
	start := len(s.dst)
	s.dst = append(s.dst, "</"...)
	s.dst = append(s.dst, name.String()...)
	if s.FilterTag != nil && s.FilterTag(s.dst[start+2:]) {
		s.dst = s.dst[:start]
		s.dst = append(s.dst, "&lt;/"...)
		s.dst = append(s.dst, name.String()...)
	}
	s.dst = append(s.dst, '>')
}

func (s *renderState) run(events []commonmark.Event) {
	for i := 0; i < len(events); i++ {
		ev := events[i]
		switch ev.Kind {
		case commonmark.StartEvent:
			s.start(events, &i, ev.Tag)
		case commonmark.EndEvent:
			s.end(ev.Tag)
		case commonmark.TextEvent:
			s.dst = escapeHTML(s.dst, ev.Text)
		case commonmark.CodeEvent:
			s.openTag(atom.Code)
			s.dst = escapeHTML(s.dst, ev.Text)
			s.closeTag(atom.Code)
		case commonmark.HTMLEvent:
			if !s.IgnoreRaw {
				s.appendRaw(ev.Text)
			}
		case commonmark.InlineHTMLEvent:
			if !s.IgnoreRaw {
				s.appendRaw(ev.Text)
			}
		case commonmark.FootnoteReferenceEvent:
			label := html.EscapeString(ev.FootnoteLabel)
			s.dst = append(s.dst, `<sup class="footnote-ref"><a href="#fn-`...)
			s.dst = append(s.dst, label...)
			s.dst = append(s.dst, `" id="fnref-`...)
			s.dst = append(s.dst, label...)
			s.dst = append(s.dst, `">`...)
			s.dst = append(s.dst, label...)
			s.dst = append(s.dst, "</a></sup>"...)
		case commonmark.SoftBreakEvent:
			switch s.SoftBreakBehavior {
			case SoftBreakHarden:
				s.dst = append(s.dst, "<br>\n"...)
			case SoftBreakSpace:
				s.dst = append(s.dst, ' ')
			default:
				s.dst = append(s.dst, '\n')
			}
		case commonmark.HardBreakEvent:
			s.dst = append(s.dst, "<br>\n"...)
		case commonmark.TaskListMarkerEvent:
			s.dst = append(s.dst, `<input type="checkbox" disabled=""`...)
			if ev.Checked {
				s.dst = append(s.dst, ` checked=""`...)
			}
			s.dst = append(s.dst, "> "...)
		}
	}
}

func (s *renderState) start(events []commonmark.Event, i *int, tag commonmark.Tag) {
	switch tag.Kind {
	case commonmark.ParagraphTag:
		suppress := s.top().kind == commonmark.ItemTag && s.top().suppressP
		s.stack = append(s.stack, containerFrame{kind: tag.Kind, suppressP: suppress})
		if !suppress {
			s.openTag(atom.P)
		}
	case commonmark.RuleTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Hr)
	case commonmark.HeaderTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(headingAtom(tag.Level))
	case commonmark.BlockQuoteTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Blockquote)
	case commonmark.CodeBlockTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Pre)
		s.openTagAttr(atom.Code)
		if tag.InfoString != "" {
			words := strings.Fields(tag.InfoString)
			if len(words) > 0 {
				s.dst = append(s.dst, ` class="language-`...)
				s.dst = append(s.dst, html.EscapeString(words[0])...)
				s.dst = append(s.dst, `"`...)
			}
		}
		s.dst = append(s.dst, '>')
	case commonmark.ListTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind, tight: tag.IsTight})
		if tag.IsOrdered {
			s.openTagAttr(atom.Ol)
			if tag.StartIndex != 0 && tag.StartIndex != 1 {
				s.dst = append(s.dst, ` start="`...)
				s.dst = strconv.AppendInt(s.dst, int64(tag.StartIndex), 10)
				s.dst = append(s.dst, `"`...)
			}
			s.dst = append(s.dst, '>')
		} else {
			s.openTag(atom.Ul)
		}
	case commonmark.ItemTag:
		parentTight := s.top().kind == commonmark.ListTag && s.top().tight
		s.stack = append(s.stack, containerFrame{kind: tag.Kind, suppressP: parentTight})
		s.openTag(atom.Li)
	case commonmark.FootnoteDefinitionTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.dst = append(s.dst, `<div class="footnote-definition" id="fn-`...)
		s.dst = append(s.dst, html.EscapeString(tag.Label)...)
		s.dst = append(s.dst, `">`...)
	case commonmark.HTMLBlockTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
	case commonmark.TableTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.tables = append(s.tables, tableFrame{alignments: tag.Alignments})
		s.openTag(atom.Table)
	case commonmark.TableHeadTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		if t := s.curTable(); t != nil {
			t.inHead = true
			t.column = 0
		}
		s.openTag(atom.Thead)
	case commonmark.TableRowTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		if t := s.curTable(); t != nil {
			if !t.inHead && !t.bodyOpen {
				s.openTag(atom.Tbody)
				t.bodyOpen = true
			}
			t.column = 0
		}
		s.openTag(atom.Tr)
	case commonmark.TableCellTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		name, align := atom.Td, commonmark.AlignNone
		if t := s.curTable(); t != nil {
			if t.inHead {
				name = atom.Th
			}
			if t.column < len(t.alignments) {
				align = t.alignments[t.column]
			}
			t.column++
		}
		s.openTagAttr(name)
		switch align {
		case commonmark.AlignLeft:
			s.dst = append(s.dst, ` align="left"`...)
		case commonmark.AlignCenter:
			s.dst = append(s.dst, ` align="center"`...)
		case commonmark.AlignRight:
			s.dst = append(s.dst, ` align="right"`...)
		}
		s.dst = append(s.dst, '>')
	case commonmark.EmphasisTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Em)
	case commonmark.StrongTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Strong)
	case commonmark.StrikethroughTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTag(atom.Del)
	case commonmark.LinkTag:
		s.stack = append(s.stack, containerFrame{kind: tag.Kind})
		s.openTagAttr(atom.A)
		s.dst = append(s.dst, ` href="`...)
		s.dst = append(s.dst, html.EscapeString(NormalizeURI(tag.URL))...)
		s.dst = append(s.dst, `"`...)
		if tag.Title != "" {
			s.dst = append(s.dst, ` title="`...)
			s.dst = append(s.dst, html.EscapeString(tag.Title)...)
			s.dst = append(s.dst, `"`...)
		}
		s.dst = append(s.dst, '>')
	case commonmark.ImageTag:
		// alt text is the flattened text content of the image's children,
		// markup (emphasis, nested links, code spans) included but
		// stripped down to its text, so the whole subtree up to the
		// matching EndEvent is consumed here in one step instead of
		// pushed onto the stack for later rendering.
		end := matchingEnd(events, *i)
		s.openTagAttr(atom.Img)
		s.dst = append(s.dst, ` src="`...)
		s.dst = append(s.dst, html.EscapeString(NormalizeURI(tag.URL))...)
		s.dst = append(s.dst, `"`...)
		if tag.Title != "" {
			s.dst = append(s.dst, ` title="`...)
			s.dst = append(s.dst, html.EscapeString(tag.Title)...)
			s.dst = append(s.dst, `"`...)
		}
		s.dst = append(s.dst, ` alt="`...)
		s.dst = appendAltText(s.dst, events[*i+1:end])
		s.dst = append(s.dst, `">`...)
		*i = end
	}
}

func (s *renderState) end(tag commonmark.Tag) {
	frame := s.top()
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	switch tag.Kind {
	case commonmark.ParagraphTag:
		if !frame.suppressP {
			s.closeTag(atom.P)
		}
	case commonmark.RuleTag:
		// <hr> is a void element; nothing to close.
	case commonmark.HeaderTag:
		s.closeTag(headingAtom(tag.Level))
	case commonmark.BlockQuoteTag:
		s.closeTag(atom.Blockquote)
	case commonmark.CodeBlockTag:
		s.closeTag(atom.Code)
		s.closeTag(atom.Pre)
	case commonmark.ListTag:
		if tag.IsOrdered {
			s.closeTag(atom.Ol)
		} else {
			s.closeTag(atom.Ul)
		}
	case commonmark.ItemTag:
		s.closeTag(atom.Li)
	case commonmark.FootnoteDefinitionTag:
		s.dst = append(s.dst, "</div>"...)
	case commonmark.HTMLBlockTag:
		// No wrapper was opened; the block's own HTMLEvent already closed.
	case commonmark.TableTag:
		if t := s.curTable(); t != nil && t.bodyOpen {
			s.closeTag(atom.Tbody)
		}
		if len(s.tables) > 0 {
			s.tables = s.tables[:len(s.tables)-1]
		}
		s.closeTag(atom.Table)
	case commonmark.TableHeadTag:
		if t := s.curTable(); t != nil {
			t.inHead = false
		}
		s.closeTag(atom.Thead)
	case commonmark.TableRowTag:
		s.closeTag(atom.Tr)
	case commonmark.TableCellTag:
		s.closeCell()
	case commonmark.EmphasisTag:
		s.closeTag(atom.Em)
	case commonmark.StrongTag:
		s.closeTag(atom.Strong)
	case commonmark.StrikethroughTag:
		s.closeTag(atom.Del)
	case commonmark.LinkTag:
		s.closeTag(atom.A)
	}
}

// closeCell closes the current table cell, using the inHead state recorded
// when the row containing it was opened (TableCellTag's Tag carries no
// header/data distinction of its own; only its position does).
func (s *renderState) closeCell() {
	if t := s.curTable(); t != nil && t.inHead {
		s.closeTag(atom.Th)
		return
	}
	s.closeTag(atom.Td)
}

func (s *renderState) curTable() *tableFrame {
	if len(s.tables) == 0 {
		return nil
	}
	return &s.tables[len(s.tables)-1]
}

func headingAtom(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	case 3:
		return atom.H3
	case 4:
		return atom.H4
	case 5:
		return atom.H5
	default:
		return atom.H6
	}
}

// matchingEnd returns the index of the EndEvent that closes the StartEvent
// at events[start], accounting for nested containers.
func matchingEnd(events []commonmark.Event, start int) int {
	depth := 0
	for i := start; i < len(events); i++ {
		switch events[i].Kind {
		case commonmark.StartEvent:
			depth++
		case commonmark.EndEvent:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(events)
}

// appendAltText flattens an image's alt-text subtree the way the teacher's
// appendAltText walks Inline children: only literal text and line breaks
// contribute, any markup (emphasis, links, code spans) is unwrapped to its
// text content, and destination/title-only leaves contribute nothing.
func appendAltText(dst []byte, inner []commonmark.Event) []byte {
	for _, ev := range inner {
		switch ev.Kind {
		case commonmark.TextEvent, commonmark.CodeEvent, commonmark.InlineHTMLEvent:
			dst = escapeHTML(dst, ev.Text)
		case commonmark.SoftBreakEvent, commonmark.HardBreakEvent:
			dst = append(dst, ' ')
		case commonmark.FootnoteReferenceEvent:
			dst = escapeHTML(dst, ev.FootnoteLabel)
		}
	}
	return dst
}

// appendRaw copies raw HTML to dst verbatim, or through the disallowed-tag
// filter described in https://github.github.com/gfm/#disallowed-raw-html-extension-
// when FilterTag is set. It cannot use a conventional HTML parser, since
// raw HTML in Markdown may be incomplete or start mid-tag.
func (s *renderState) appendRaw(raw string) {
	if s.FilterTag == nil {
		s.dst = append(s.dst, raw...)
		return
	}
	s.dst = s.filterRaw(s.dst, raw)
}

func (s *renderState) filterRaw(dst []byte, raw string) []byte {
	const (
		copyState = iota
		commentState
		cdataState
		declState
	)
	const (
		cdataPrefix       = "<![CDATA["
		cdataSuffix       = "]]>"
		htmlCommentPrefix = "<!--"
		htmlCommentSuffix = "-->"
	)
	b := []byte(raw)
	state := copyState
	copyStart := 0
	for i := 0; i < len(b); {
		switch state {
		case copyState:
			if b[i] != '<' {
				i++
				continue
			}
			switch {
			case bytes.HasPrefix(b[i:], []byte(cdataPrefix)):
				state = cdataState
				i += len(cdataPrefix)
			case bytes.HasPrefix(b[i:], []byte(htmlCommentPrefix)):
				state = commentState
				i += len(htmlCommentPrefix)
			case i+2 <= len(b) && b[i+1] == '!':
				state = declState
				i += 2
			default:
				tagNameStart := i + 1
				if tagNameStart < len(b) && b[tagNameStart] == '/' {
					tagNameStart++
				}
				tagEnd := len(b)
				if j := bytes.IndexByte(b[tagNameStart:], '>'); j >= 0 {
					tagEnd = tagNameStart + j + 1
				}
				tagNameEnd := tagNameStart
				for tagNameEnd < tagEnd && isTagNameByte(b[tagNameEnd]) {
					tagNameEnd++
				}
				tagName := maybeLower(b[tagNameStart:tagNameEnd], &s.lowerBuf)
				if s.FilterTag(tagName) {
					dst = append(dst, b[copyStart:i]...)
					dst = append(dst, "&lt;"...)
					dst = append(dst, b[i+1:tagEnd]...)
					copyStart = tagEnd
				}
				i = tagEnd
			}
		case commentState:
			if bytes.HasPrefix(b[i:], []byte(htmlCommentSuffix)) {
				state = copyState
				i += len(htmlCommentSuffix)
			} else {
				i++
			}
		case cdataState:
			if bytes.HasPrefix(b[i:], []byte(cdataSuffix)) {
				state = copyState
				i += len(cdataSuffix)
			} else {
				i++
			}
		case declState:
			if b[i] == '>' {
				state = copyState
			}
			i++
		}
	}
	return append(dst, b[copyStart:]...)
}

func isTagNameByte(c byte) bool {
	return c != '>' && c != '/' && !isSpaceByte(c)
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func maybeLower(x []byte, buf *[]byte) []byte {
	hasUpper := false
	for _, b := range x {
		if 'A' <= b && b <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return x
	}
	*buf = (*buf)[:0]
	for _, b := range x {
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		*buf = append(*buf, b)
	}
	return *buf
}

// escapeHTML appends the HTML-escaped form of s to dst.
func escapeHTML(dst []byte, s string) []byte {
	verbatimStart := 0
	for i := 0; i < len(s); i++ {
		var esc string
		switch s[i] {
		case '&':
			esc = "&amp;"
		case '\'':
			esc = "&#39;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		case '"':
			esc = "&quot;"
		default:
			continue
		}
		dst = append(dst, s[verbatimStart:i]...)
		dst = append(dst, esc...)
		verbatimStart = i + 1
	}
	return append(dst, s[verbatimStart:]...)
}

// NormalizeURI percent-encodes a link or image destination per
// https://spec.commonmark.org/0.30/#link-destination, leaving already
// percent-encoded triplets and RFC 3986 reserved/unreserved characters
// untouched, except '[' and ']', which are percent-encoded.
func NormalizeURI(s string) string {
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	skip := 0
	var buf [utf8.UTFMax]byte
	for i, c := range s {
		if skip > 0 {
			skip--
			sb.WriteRune(c)
			continue
		}
		switch {
		case c == '%':
			if i+2 < len(s) && isHexByte(s[i+1]) && isHexByte(s[i+2]) {
				skip = 2
				sb.WriteByte('%')
			} else {
				sb.WriteString("%25")
			}
		case (c < 0x80 && (isASCIILetterByte(byte(c)) || isASCIIDigitByte(byte(c)))) || strings.ContainsRune(safeSet, c):
			sb.WriteRune(c)
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, bb := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(urlHexDigit(bb >> 4))
				sb.WriteByte(urlHexDigit(bb & 0x0f))
			}
		}
	}
	return sb.String()
}

func isHexByte(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || isASCIIDigitByte(c)
}

func isASCIILetterByte(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isASCIIDigitByte(c byte) bool {
	return '0' <= c && c <= '9'
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	default:
		return 'A' + x - 0xa
	}
}
