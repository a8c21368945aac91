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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collectEvents(p *Parser) []Event {
	it := p.Events()
	var events []Event
	for {
		ev, ok := it.Next()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestEmphasisEvents(t *testing.T) {
	p := NewParser([]byte("*hello* world"), 0)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: StartEvent, Tag: Tag{Kind: EmphasisTag}},
		{Kind: TextEvent, Text: "hello"},
		{Kind: EndEvent, Tag: Tag{Kind: EmphasisTag}},
		{Kind: TextEvent, Text: " world"},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestOffsetEventsPlainText(t *testing.T) {
	it := NewParser([]byte("hello world"), 0).OffsetEvents()
	var textSpans []Span
	for {
		ev, ok := it.Next()
		if !ok {
			break
		}
		if ev.Event.Kind == TextEvent {
			textSpans = append(textSpans, ev.Span)
		}
	}
	want := []Span{{Start: 0, End: 11}}
	if diff := cmp.Diff(want, textSpans); diff != "" {
		t.Errorf("text spans (-want +got):\n%s", diff)
	}
}

func TestLinkReferenceEvent(t *testing.T) {
	src := "[My site][world]\n\n[world]: https://vincentprouillet.com"
	p := NewParser([]byte(src), 0)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: StartEvent, Tag: Tag{Kind: LinkTag, LinkKind: LinkReference, URL: "https://vincentprouillet.com"}},
		{Kind: TextEvent, Text: "My site"},
		{Kind: EndEvent, Tag: Tag{Kind: LinkTag, LinkKind: LinkReference, URL: "https://vincentprouillet.com"}},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestScanLinkLabelNormalization(t *testing.T) {
	b := []byte("\t\tBlurry Eyes\t\t]")
	_, raw, normalized, ok := scanLinkLabel(b, &arena{}, nil)
	if !ok {
		t.Fatal("scanLinkLabel failed")
	}
	if raw != "\t\tBlurry Eyes\t\t" {
		t.Errorf("raw = %q; want %q", raw, "\t\tBlurry Eyes\t\t")
	}
	if normalized != " Blurry Eyes " {
		t.Errorf("normalized = %q; want %q", normalized, " Blurry Eyes ")
	}
}

func TestScanLinkLabelLinebreakHandler(t *testing.T) {
	b := []byte("hello\r\nworld\r\n]")
	_, _, normalized, ok := scanLinkLabel(b, &arena{}, func(afterBreak []byte) (int, bool) { return 0, true })
	if !ok {
		t.Fatal("scanLinkLabel failed")
	}
	if got := strings.TrimSpace(normalized); got != "hello world" {
		t.Errorf("normalized = %q (trimmed %q); want %q", normalized, got, "hello world")
	}
}

func TestLoneAngleBracket(t *testing.T) {
	p := NewParser([]byte("<"), 0)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "<"},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestBrokenLinkCallback(t *testing.T) {
	p := NewParserWithBrokenLinkCallback(
		[]byte("This is a link w/o def: [hello][world]"),
		0,
		func(label string) (dest, title string, ok bool) {
			if label != "world" {
				return "", "", false
			}
			return "YOLO", "SWAG", true
		},
	)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "This is a link w/o def: "},
		{Kind: StartEvent, Tag: Tag{Kind: LinkTag, LinkKind: LinkReferenceUnknown, URL: "YOLO", Title: "SWAG"}},
		{Kind: TextEvent, Text: "hello"},
		{Kind: EndEvent, Tag: Tag{Kind: LinkTag, LinkKind: LinkReferenceUnknown, URL: "YOLO", Title: "SWAG"}},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestSetextHeadingEvent(t *testing.T) {
	p := NewParser([]byte("Header\n-----"), 0)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: HeaderTag, Level: 2}},
		{Kind: TextEvent, Text: "Header"},
		{Kind: EndEvent, Tag: Tag{Kind: HeaderTag, Level: 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestHTMLBlockType1(t *testing.T) {
	src := "<script>\nalert('hi');\n</script>\nafter"
	p := NewParser([]byte(src), 0)
	got := collectEvents(p)
	if len(got) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(got), got)
	}
	if got[0].Kind != HTMLEvent {
		t.Errorf("event 0 kind = %v; want HTMLEvent", got[0].Kind)
	}
	if want := "<script>\nalert('hi');\n</script>"; !strings.HasPrefix(got[0].Text, want) {
		t.Errorf("html text = %q; want prefix %q", got[0].Text, want)
	}
	want := []Event{
		got[0],
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "after"},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestGFMTable(t *testing.T) {
	src := "| a | b |\n|---|--:|\n| 1 | 2 |"
	p := NewParser([]byte(src), EnableTables)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: TableTag, Alignments: []Alignment{AlignNone, AlignRight}}},
		{Kind: StartEvent, Tag: Tag{Kind: TableHeadTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableRowTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: TextEvent, Text: "a"},
		{Kind: EndEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: TextEvent, Text: "b"},
		{Kind: EndEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: EndEvent, Tag: Tag{Kind: TableRowTag}},
		{Kind: EndEvent, Tag: Tag{Kind: TableHeadTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableRowTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: TextEvent, Text: "1"},
		{Kind: EndEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: StartEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: TextEvent, Text: "2"},
		{Kind: EndEvent, Tag: Tag{Kind: TableCellTag}},
		{Kind: EndEvent, Tag: Tag{Kind: TableRowTag}},
		{Kind: EndEvent, Tag: Tag{Kind: TableTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestStrikethrough(t *testing.T) {
	p := NewParser([]byte("~~gone~~"), EnableStrikethrough)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: StartEvent, Tag: Tag{Kind: StrikethroughTag}},
		{Kind: TextEvent, Text: "gone"},
		{Kind: EndEvent, Tag: Tag{Kind: StrikethroughTag}},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestStrikethroughSingleTilde(t *testing.T) {
	// A single ~ on each side can't satisfy strikethrough's exact
	// two-tilde match, so both markers degrade to plain text rather than
	// merging into one text node (degradeToText only ever flips a node's
	// own kind in place; nothing in this package merges sibling text
	// nodes back together).
	p := NewParser([]byte("~not~"), EnableStrikethrough)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "~"},
		{Kind: TextEvent, Text: "not"},
		{Kind: TextEvent, Text: "~"},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestTaskList(t *testing.T) {
	p := NewParser([]byte("- [x] done\n- [ ] todo"), EnableTaskLists)
	it := p.Events()
	var markers []Event
	for {
		ev, ok := it.Next()
		if !ok {
			break
		}
		if ev.Kind == TaskListMarkerEvent {
			markers = append(markers, ev)
		}
	}
	want := []Event{
		{Kind: TaskListMarkerEvent, Checked: true},
		{Kind: TaskListMarkerEvent, Checked: false},
	}
	if diff := cmp.Diff(want, markers); diff != "" {
		t.Errorf("markers (-want +got):\n%s", diff)
	}
}

func TestFootnote(t *testing.T) {
	src := "See[^1].\n\n[^1]: Note text."
	p := NewParser([]byte(src), EnableFootnotes)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "See"},
		{Kind: FootnoteReferenceEvent, FootnoteLabel: "1"},
		{Kind: TextEvent, Text: "."},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: StartEvent, Tag: Tag{Kind: FootnoteDefinitionTag, Label: "1"}},
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "Note text."},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: EndEvent, Tag: Tag{Kind: FootnoteDefinitionTag, Label: "1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestFirstPassOnlyDegradesMarkers(t *testing.T) {
	// FirstPassOnly never runs inline resolution, so every Maybe* marker
	// the first pass recorded is reported back as its own literal text
	// event instead of being merged with its neighbors.
	p := NewParser([]byte("*hello* [world](x)"), FirstPassOnly)
	got := collectEvents(p)
	want := []Event{
		{Kind: StartEvent, Tag: Tag{Kind: ParagraphTag}},
		{Kind: TextEvent, Text: "*"},
		{Kind: TextEvent, Text: "hello"},
		{Kind: TextEvent, Text: "*"},
		{Kind: TextEvent, Text: " "},
		{Kind: TextEvent, Text: "["},
		{Kind: TextEvent, Text: "world"},
		{Kind: TextEvent, Text: "]"},
		{Kind: TextEvent, Text: "(x)"},
		{Kind: EndEvent, Tag: Tag{Kind: ParagraphTag}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}
