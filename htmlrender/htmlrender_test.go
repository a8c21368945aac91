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

package htmlrender

import (
	"testing"

	"github.com/mdspine/commonmark"
	"github.com/mdspine/commonmark/internal/normhtml"
)

func TestAppendDocument(t *testing.T) {
	tests := []struct {
		name string
		opts commonmark.Options
		src  string
		want string
	}{
		{
			name: "Emphasis",
			src:  "*hello* world",
			want: "<p><em>hello</em> world</p>",
		},
		{
			name: "ReferenceLink",
			src:  "[My site][world]\n\n[world]: https://vincentprouillet.com",
			want: `<p><a href="https://vincentprouillet.com">My site</a></p>`,
		},
		{
			name: "SetextHeading",
			src:  "Header\n-----",
			want: "<h2>Header</h2>",
		},
		{
			name: "FencedCodeBlock",
			src:  "```go\nfmt.Println(1)\n```",
			want: `<pre><code class="language-go">fmt.Println(1)
</code></pre>`,
		},
		{
			name: "TightList",
			src:  "- a\n- b",
			want: "<ul>\n<li>a</li>\n<li>b</li>\n</ul>",
		},
		{
			name: "LooseList",
			src:  "- a\n\n- b",
			want: "<ul>\n<li><p>a</p></li>\n<li><p>b</p></li>\n</ul>",
		},
		{
			name: "GFMTable",
			opts: commonmark.EnableTables,
			src:  "| a | b |\n|---|--:|\n| 1 | 2 |",
			want: `<table>
<thead>
<tr><th>a</th><th align="right">b</th></tr>
</thead>
<tbody>
<tr><td>1</td><td align="right">2</td></tr>
</tbody>
</table>`,
		},
		{
			name: "Strikethrough",
			opts: commonmark.EnableStrikethrough,
			src:  "~~gone~~",
			want: "<p><del>gone</del></p>",
		},
		{
			name: "TaskList",
			opts: commonmark.EnableTaskLists,
			src:  "- [x] done\n- [ ] todo",
			want: `<ul>
<li><input type="checkbox" disabled="" checked=""> done</li>
<li><input type="checkbox" disabled=""> todo</li>
</ul>`,
		},
		{
			name: "Image",
			src:  "![alt *text*](/img.png \"title\")",
			want: `<p><img src="/img.png" alt="alt text" title="title"></p>`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := (&Renderer{}).AppendDocument(nil, []byte(test.src), test.opts)
			gotNorm := normhtml.NormalizeHTML(got)
			wantNorm := normhtml.NormalizeHTML([]byte(test.want))
			if string(gotNorm) != string(wantNorm) {
				t.Errorf("AppendDocument(%q) =\n%s\nwant (normalized):\n%s\ngot (raw):\n%s", test.src, gotNorm, wantNorm, got)
			}
		})
	}
}

func TestSoftBreakBehavior(t *testing.T) {
	tests := []struct {
		name     string
		behavior SoftBreakBehavior
		input    string
		want     string
	}{
		{
			name:     "Newline",
			behavior: SoftBreakNewline,
			input:    "Hello\nWorld!",
			want:     "<p>Hello\nWorld!</p>",
		},
		{
			name:     "Space",
			behavior: SoftBreakSpace,
			input:    "Hello\nWorld!",
			want:     "<p>Hello World!</p>",
		},
		{
			name:     "Harden",
			behavior: SoftBreakHarden,
			input:    "Hello\nWorld!",
			want:     "<p>Hello<br>\nWorld!</p>",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := &Renderer{SoftBreakBehavior: test.behavior}
			got := r.AppendDocument(nil, []byte(test.input), 0)
			gotNorm := normhtml.NormalizeHTML(got)
			wantNorm := normhtml.NormalizeHTML([]byte(test.want))
			if string(gotNorm) != string(wantNorm) {
				t.Errorf("AppendDocument(%q) = %s; want %s", test.input, gotNorm, wantNorm)
			}
		})
	}
}

func TestIgnoreRaw(t *testing.T) {
	r := &Renderer{IgnoreRaw: true}
	got := r.AppendDocument(nil, []byte("hi <b>bold</b> <!-- comment -->\n\n<div>block</div>"), 0)
	gotNorm := normhtml.NormalizeHTML(got)
	wantNorm := normhtml.NormalizeHTML([]byte("<p>hi bold </p>"))
	if string(gotNorm) != string(wantNorm) {
		t.Errorf("AppendDocument with IgnoreRaw = %s; want %s", gotNorm, wantNorm)
	}
}

func TestFilterTag(t *testing.T) {
	r := &Renderer{
		FilterTag: func(tag []byte) bool {
			return string(tag) == "script"
		},
	}
	got := r.AppendDocument(nil, []byte("<script>alert(1)</script>"), 0)
	gotNorm := normhtml.NormalizeHTML(got)
	wantNorm := normhtml.NormalizeHTML([]byte("&lt;script&gt;alert(1)&lt;/script&gt;"))
	if string(gotNorm) != string(wantNorm) {
		t.Errorf("AppendDocument with FilterTag = %s; want %s", gotNorm, wantNorm)
	}
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a b", "https://example.com/a%20b"},
		{"https://example.com/%41", "https://example.com/%41"},
		{"https://example.com/100%", "https://example.com/100%25"},
	}
	for _, test := range tests {
		if got := NormalizeURI(test.in); got != test.want {
			t.Errorf("NormalizeURI(%q) = %q; want %q", test.in, got, test.want)
		}
	}
}
