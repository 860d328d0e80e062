// Copyright 2024 Ross Light
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

package myst

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/myst/internal/normhtml"
)

func TestHTMLRenderer(t *testing.T) {
	tests := []struct {
		name     string
		renderer *HTMLRenderer
		root     *Node
		want     string
	}{
		{
			name: "Blocks",
			root: rootNode(
				&Node{Type: HeadingType, Depth: 2, HTMLID: "title", Children: []*Node{textNode("Title")}},
				&Node{Type: ParagraphType, Children: []*Node{
					textNode("a "),
					&Node{Type: StrongType, Children: []*Node{textNode("b")}},
					&Node{Type: BreakType},
					&Node{Type: InlineCodeType, Value: "<c>"},
				}},
				&Node{Type: ThematicBreakType},
			),
			want: `<h2 id="title">Title</h2>` +
				`<p>a <strong>b</strong><br><code>&lt;c&gt;</code></p>` +
				`<hr>`,
		},
		{
			name: "Lists",
			root: rootNode(
				&Node{Type: ListType, Ordered: true, Start: 3, Children: []*Node{
					{Type: ListItemType, Children: []*Node{textNode("three")}},
				}},
				&Node{Type: ListType, Children: []*Node{
					{Type: ListItemType, Children: []*Node{textNode("dot")}},
				}},
			),
			want: `<ol start="3"><li>three</li></ol><ul><li>dot</li></ul>`,
		},
		{
			name: "Code",
			root: rootNode(&Node{Type: CodeType, Lang: "go", Value: "x := 1"}),
			want: "<pre><code class=\"language-go\">x := 1\n</code></pre>",
		},
		{
			name: "Admonition",
			root: rootNode(&Node{Type: AdmonitionType, Kind: "note", Children: []*Node{
				{Type: ParagraphType, Children: []*Node{textNode("Careful.")}},
			}}),
			want: `<aside class="admonition note">` +
				`<p class="admonition-title">Note</p>` +
				`<p>Careful.</p>` +
				`</aside>`,
		},
		{
			name:     "AdmonitionTitleOverride",
			renderer: &HTMLRenderer{AdmonitionTitles: map[string]string{"tip": "Astuce"}},
			root: rootNode(&Node{Type: AdmonitionType, Kind: "tip", Class: "dropdown", Children: []*Node{
				{Type: ParagraphType, Children: []*Node{textNode("Try it.")}},
			}}),
			want: `<aside class="admonition dropdown tip">` +
				`<p class="admonition-title">Astuce</p>` +
				`<p>Try it.</p>` +
				`</aside>`,
		},
		{
			name: "GenericAdmonition",
			root: rootNode(&Node{Type: AdmonitionType, Kind: GenericAdmonition, Children: []*Node{
				{Type: AdmonitionTitleType, Children: []*Node{textNode("Custom")}},
				{Type: ParagraphType, Children: []*Node{textNode("Body")}},
			}}),
			want: `<aside class="admonition">` +
				`<p class="admonition-title">Custom</p>` +
				`<p>Body</p>` +
				`</aside>`,
		},
		{
			name: "Figure",
			root: rootNode(&Node{
				Type:       ContainerType,
				Kind:       "figure",
				HTMLID:     "fig-cat",
				Enumerator: "2",
				Children: []*Node{
					{Type: ImageType, URL: "cat.png", Alt: "A cat", Align: "center", Width: "50%"},
					{Type: CaptionType, Children: []*Node{textNode("The cat.")}},
				},
			}),
			want: `<figure class="figure" id="fig-cat">` +
				`<img alt="A cat" class="align-center" src="cat.png" width="50%">` +
				`<figcaption><span class="caption-number">Figure 2</span> The cat.</figcaption>` +
				`</figure>`,
		},
		{
			name:     "FigureTemplate",
			renderer: &HTMLRenderer{Templates: map[string]string{"table": "Tab. %s"}},
			root: rootNode(&Node{
				Type:       ContainerType,
				Kind:       "table",
				Enumerator: "4",
				Children: []*Node{
					{Type: CaptionType, Children: []*Node{textNode("Data.")}},
				},
			}),
			want: `<figure class="table">` +
				`<figcaption><span class="caption-number">Tab. 4</span> Data.</figcaption>` +
				`</figure>`,
		},
		{
			name: "Math",
			root: rootNode(
				&Node{Type: MathType, HTMLID: "eq-1", Enumerator: "1", Value: "e=mc^2"},
				&Node{Type: ParagraphType, Children: []*Node{
					{Type: InlineMathType, Value: "x<y"},
				}},
			),
			want: `<div class="math" id="eq-1">e=mc^2 (1)</div>` +
				`<p><span class="math">x&lt;y</span></p>`,
		},
		{
			name: "References",
			root: rootNode(&Node{Type: ParagraphType, Children: []*Node{
				{
					Type:     ContentReferenceType,
					Status:   ReferenceResolved,
					URL:      "#fig-cat",
					Children: []*Node{textNode("Figure 1")},
				},
				textNode(" "),
				{
					Type:       ContentReferenceType,
					Status:     ReferenceUnresolved,
					Identifier: "missing",
					Label:      "Missing",
				},
				textNode(" "),
				{
					Type:     FootnoteReferenceType,
					Status:   ReferenceResolved,
					URL:      "notes.md#n1",
					Children: []*Node{textNode("1")},
				},
			}}),
			want: `<p><a class="reference" href="#fig-cat">Figure 1</a> ` +
				`<span class="reference unresolved" data-identifier="missing">Missing</span> ` +
				`<sup><a class="footnote-reference" href="notes.md#n1">1</a></sup></p>`,
		},
		{
			name: "Footnote",
			root: rootNode(&Node{
				Type:       FootnoteDefinitionType,
				HTMLID:     "n1",
				Enumerator: "1",
				Children: []*Node{
					{Type: ParagraphType, Children: []*Node{textNode("Note.")}},
				},
			}),
			want: `<div class="footnote" id="n1"><span class="footnote-number">1</span><p>Note.</p></div>`,
		},
		{
			name: "DirectiveAndRole",
			root: rootNode(
				&Node{Type: DirectiveType, Kind: "include", Args: "a.md", Value: ":lines: 1"},
				&Node{Type: ParagraphType, Children: []*Node{
					{Type: RoleType, Kind: "kbd", Value: "Ctrl"},
				}},
			),
			want: `<div class="directive" data-args="a.md" data-kind="include">:lines: 1</div>` +
				`<p><span class="role" data-kind="kbd">Ctrl</span></p>`,
		},
		{
			name: "HiddenNodes",
			root: rootNode(
				&Node{Type: CommentType, Value: "secret"},
				&Node{Type: BlockBreakType},
				&Node{Type: ParagraphType, Children: []*Node{textNode("shown")}},
			),
			want: `<p>shown</p>`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := test.renderer
			if r == nil {
				r = new(HTMLRenderer)
			}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, test.root); err != nil {
				t.Error("Render:", err)
			}
			got := string(normhtml.NormalizeHTML(buf.Bytes()))
			want := string(normhtml.NormalizeHTML([]byte(test.want)))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("output (-want +got):\n%s\nraw output:\n%s", diff, buf)
			}
		})
	}
}

func TestHTMLRendererRaw(t *testing.T) {
	const raw = "<script>alert(1)</script><em>ok</em>"
	tests := []struct {
		name     string
		renderer *HTMLRenderer
		want     string
	}{
		{
			name:     "Default",
			renderer: new(HTMLRenderer),
			want:     raw,
		},
		{
			name:     "IgnoreRaw",
			renderer: &HTMLRenderer{IgnoreRaw: true},
			want:     "",
		},
		{
			name:     "FilterTagGFM",
			renderer: &HTMLRenderer{FilterTag: FilterTagGFM},
			want:     "&lt;script>alert(1)&lt;/script><em>ok</em>",
		},
		{
			name:     "BlockAll",
			renderer: &HTMLRenderer{FilterTag: func(tag []byte) bool { return true }},
			want:     "&lt;script>alert(1)&lt;/script>&lt;em>ok&lt;/em>",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := rootNode(&Node{Type: HTMLType, Value: raw})
			got := string(test.renderer.AppendNode(nil, root))
			if got != test.want {
				t.Errorf("output = %q; want %q", got, test.want)
			}
		})
	}
}

type failWriter struct{}

var errWriteFailed = errors.New("write failed")

func (failWriter) Write(p []byte) (int, error) {
	return 0, errWriteFailed
}

func TestRenderHTMLError(t *testing.T) {
	err := RenderHTML(failWriter{}, rootNode(textNode("x")))
	if !errors.Is(err, errWriteFailed) {
		t.Errorf("RenderHTML(failWriter{}, ...) = %v; want %v", err, errWriteFailed)
	}
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"", ""},
		{"https://example.com/a?b=c#d", "https://example.com/a?b=c#d"},
		{"a b", "a%20b"},
		{"%41%zz", "%41%25zz"},
		{"café.png", "caf%C3%A9.png"},
		{"<x>", "%3Cx%3E"},
	}
	for _, test := range tests {
		if got := NormalizeURI(test.s); got != test.want {
			t.Errorf("NormalizeURI(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}
